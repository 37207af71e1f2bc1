package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/gotrs-ldapsync/internal/config"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
	"github.com/gotrs-io/gotrs-ldapsync/internal/services/socialupgrade"
)

var upgradeSocialCmd = &cobra.Command{
	Use:   "upgrade-social",
	Short: "Re-insert historical social activities with unique create dates",
	Long: `Upgrade-social reads activities from a YAML file and inserts them into the
activity store. An activity whose create date is already taken within its
scope (class name and primary key) is moved to the next free millisecond.

Activities that cannot be stored are logged and reported; the rest of the
file is still processed.`,
	RunE: runUpgradeSocial,
}

var activitiesFileFlag string

func init() {
	upgradeSocialCmd.Flags().StringVar(&activitiesFileFlag, "file", "", "YAML file with an activities list")
	upgradeSocialCmd.MarkFlagRequired("file")
}

func runUpgradeSocial(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	activities, err := socialupgrade.LoadActivities(activitiesFileFlag)
	if err != nil {
		return err
	}

	logger := logging.Default()
	db, err := openDB(ctx, config.Get(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	upgrader := socialupgrade.NewUpgrader(repository.NewActivityRepository(db), socialupgrade.WithLogger(logger))
	res, err := upgrader.Run(ctx, activities)
	if res != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%d activities: %d inserted (%d moved), %d failed in %s\n",
			res.Total, res.Inserted, res.Shifted, res.Failed, res.Duration)
		for _, f := range res.Failures {
			fmt.Fprintf(cmd.OutOrStdout(), "  class %d/%d at %d: %v\n",
				f.Activity.ClassNameID, f.Activity.ClassPK, f.OriginalCreateDate, f.Err)
		}
	}
	return err
}
