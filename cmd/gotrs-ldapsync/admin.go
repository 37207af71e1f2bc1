package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/gotrs-ldapsync/internal/auth"
	"github.com/gotrs-io/gotrs-ldapsync/internal/config"
	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/version"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the admin API",
	Long: `Token signs a JWT with api.jwt_secret for the given operator.

Admins may trigger syncs and test the connection; viewers may only read
status and history.`,
	RunE: runToken,
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSONFlag {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(version.GetInfo())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		return nil
	},
}

var (
	operatorFlag    string
	roleFlag        string
	versionJSONFlag bool
)

func init() {
	tokenCmd.Flags().StringVar(&operatorFlag, "operator", "", "Name recorded as the token subject")
	tokenCmd.Flags().StringVar(&roleFlag, "role", auth.RoleViewer, "Role granted to the token (admin or viewer)")
	tokenCmd.MarkFlagRequired("operator")

	versionCmd.Flags().BoolVar(&versionJSONFlag, "json", false, "Print build information as JSON")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := config.Get()
	dbCfg := *cfg
	dbCfg.Database.AutoMigrate = false
	db, err := openDB(ctx, &dbCfg, logging.Default())
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.RunMigrations(ctx, db, *logging.Default())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cfg.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is not set")
	}

	token, err := auth.NewJWTManager(cfg.API.JWTSecret, cfg.API.TokenDuration).GenerateToken(operatorFlag, roleFlag)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
