package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

// RunMigrations applies the embedded migrations of a service ("auction" or "search").
// It opens its own connection because the migrate driver closes the one it is given.
func RunMigrations(driver, databaseURL, service string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	dir, err := migrationDir(service)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", service, err)
	}

	sqlDB, err := sql.Open(driver, databaseURL)
	if err != nil {
		return err
	}

	dbDriver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{
		MigrationsTable: service + "_schema_migrations",
	})
	if err != nil {
		sqlDB.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, service, dbDriver)
	if err != nil {
		sqlDB.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply %s migrations: %w", service, err)
	}

	log.Info("migrations completed", zap.String("service", service))
	return nil
}

func migrationDir(service string) (string, error) {
	dir := "migrations/" + service
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil || len(entries) == 0 {
		return "", fmt.Errorf("no migrations for service %q", service)
	}
	return dir, nil
}
