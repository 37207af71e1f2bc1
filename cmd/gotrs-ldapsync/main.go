package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/gotrs-ldapsync/internal/config"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/version"
)

var (
	configDirFlag  string
	configFileFlag string
	logLevelFlag   string

	logCloser io.Closer
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "gotrs-ldapsync",
	Short: "GOTRS LDAP directory synchronization",
	Long: `GOTRS LDAP directory synchronization

Imports users and groups from an LDAP directory into the GOTRS portal,
either once from the command line or on a schedule behind a small
authenticated admin API.`,
	Version:           version.Short(),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config", "./config", "Directory holding default.yaml and an optional config.yaml overlay")
	rootCmd.PersistentFlags().StringVar(&configFileFlag, "config-file", "", "Load a single configuration file instead of --config")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(upgradeSocialCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	var err error
	if configFileFlag != "" {
		_, err = config.LoadFromFile(configFileFlag)
	} else {
		err = config.Load(configDirFlag)
	}
	if err != nil {
		return err
	}

	cfg := config.Get()
	logCfg := cfg.Logging.LoggerConfig()
	if logLevelFlag != "" {
		logCfg.Level = logLevelFlag
	}
	closer, err := logging.Configure(logCfg)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logCloser = closer

	return config.ValidateSecrets(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
