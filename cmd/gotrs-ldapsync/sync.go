package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/gotrs-io/gotrs-ldapsync/internal/config"
	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/services/ldapsync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import every user and group from the directory once",
	Long: `Sync connects to the configured directory server, imports every user
matching the user import filter and then every group. Users whose directory
record has not changed since the last import are skipped.

When Redis is enabled, a run already in progress on another node makes this
command exit without importing anything.`,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent sync runs",
	RunE:  runStatus,
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Bind to the directory and run a one-entry search",
	RunE:  runTestConnection,
}

var historyLimitFlag int

func init() {
	statusCmd.Flags().IntVar(&historyLimitFlag, "limit", 10, "Number of runs to list")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, config.Get())
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.service.Sync(ctx, models.SyncTriggerManual)
	if errors.Is(err, ldapsync.ErrSyncInProgress) {
		fmt.Fprintln(cmd.OutOrStdout(), "Another sync is already running; nothing to do.")
		return nil
	}
	if h != nil {
		printRun(cmd, h)
	}
	return err
}

func printRun(cmd *cobra.Command, h *models.SyncHistory) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s %s in %s\n", h.ID, h.Status, time.Duration(h.Duration)*time.Millisecond)
	fmt.Fprintf(out, "  users:  %d found, %d created, %d updated, %d password only, %d skipped\n",
		h.UsersFound, h.UsersCreated, h.UsersUpdated, h.UsersPasswordOnly, h.UsersSkipped)
	fmt.Fprintf(out, "  groups: %d found, %d created, %d updated\n", h.GroupsFound, h.GroupsCreated, h.GroupsUpdated)
	if h.ErrorCount > 0 {
		fmt.Fprintf(out, "  errors: %d (see sync history for details)\n", h.ErrorCount)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, config.Get())
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.service.History(ctx, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sync runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tTRIGGER\tUSERS\tCREATED\tUPDATED\tGROUPS\tERRORS")
	for _, h := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			timeago.English.Format(h.StartTime), h.Status, h.TriggeredBy,
			h.UsersFound, h.UsersCreated, h.UsersUpdated, h.GroupsFound, h.ErrorCount)
	}
	return w.Flush()
}

func runTestConnection(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := config.Get()
	if problems := ldap.ValidateConfig(&cfg.LDAP.Config); len(problems) > 0 {
		return fmt.Errorf("invalid ldap configuration: %s", strings.Join(problems, "; "))
	}
	provider := ldap.NewProvider(&cfg.LDAP.Config)
	if err := provider.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection to %s failed: %w", provider.URL(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s as %s\n", provider.URL(), provider.Config().BindDN)
	return nil
}
