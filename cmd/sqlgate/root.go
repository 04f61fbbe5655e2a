package main

import (
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Rrens/sqlgate/internal/app"
	"github.com/Rrens/sqlgate/internal/config"
	"github.com/Rrens/sqlgate/internal/logger"
)

var (
	configPath string
	logLevel   string

	logCloser io.Closer
)

// rootCmd is the entry point. Every subcommand gets the loaded config and
// a logger writing to stderr, so stdout stays clean for results.
var rootCmd = &cobra.Command{
	Use:           "sqlgate",
	Short:         "Read-only SQL gateway",
	Long:          `sqlgate checks that SQL is a single read-only query and bounds how many rows it can return.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(validateCmd, tokenCmd, migrateCmd, mcpCmd)
}

// loadConfig reads .env and the config file, then sets up logging
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	// the CLI never writes a log file; stdout belongs to the command
	cfg.Logging.File = ""
	logCloser, err = logger.Setup(cfg.Logging, false)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
