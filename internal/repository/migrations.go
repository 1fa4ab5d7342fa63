package repository

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations brings the users, bots and api_keys tables up to date.
// The SQL files are compiled in, so the binary can start from any directory.
func RunMigrations(databaseURL string, logger *zap.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	err = m.Up()
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		// a migration that died halfway is rolled back one step and applied again
		prev := max(dirty.Version-1, 0)
		logger.Warn("schema left dirty, retrying migration",
			zap.Int("dirty_version", dirty.Version),
			zap.Int("forced_version", prev),
		)
		if err := m.Force(prev); err != nil {
			return fmt.Errorf("force schema version %d: %w", prev, err)
		}
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", verr)
	}
	logger.Info("schema up to date", zap.Uint("version", version))
	return nil
}
