package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Rrens/sqlgate/internal/repository/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the application store schema",
}

func newMigrateCmd(dir postgres.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(dir),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log.Info().
				Str("host", cfg.Database.Host).
				Int("port", cfg.Database.Port).
				Str("direction", string(dir)).
				Msg("running migrations")
			return postgres.Migrate(cfg.Database.DSN(), cfg.Database.MigrationsPath, dir)
		},
	}
}

func init() {
	migrateCmd.AddCommand(
		newMigrateCmd(postgres.Up, "Apply all pending migrations"),
		newMigrateCmd(postgres.Down, "Roll back all migrations"),
	)
}
