package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/migrations"
)

// Direction selects which way migrations run
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func newMigrate(dsn, sourceURL string) (*migrate.Migrate, error) {
	if sourceURL != "" {
		return migrate.New(sourceURL, dsn)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

// RunMigrations applies migrations from sourceURL, or from the embedded set
// when sourceURL is empty
func RunMigrations(dsn, sourceURL string) error {
	return Migrate(dsn, sourceURL, Up)
}

// Migrate runs all migrations in the given direction
func Migrate(dsn, sourceURL string, dir Direction) error {
	m, err := newMigrate(dsn, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("direction", string(dir)).Msg("database migration: no changes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrate %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Info().Str("direction", string(dir)).Uint("version", version).Bool("dirty", dirty).Msg("database migration: success")
	} else {
		log.Info().Str("direction", string(dir)).Msg("database migration: success")
	}
	return nil
}
