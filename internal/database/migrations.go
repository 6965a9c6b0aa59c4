package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"catalog-cms/migrations"
)

// RunMigrations executes all pending migrations for the given dialect from
// the embedded migration set.
func RunMigrations(db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	dir, err := prepare(dialect)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...", zap.String("dialect", string(dialect)))

	if err := goose.Up(db, dir); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}

// SchemaVersion returns the version of the newest applied migration.
func SchemaVersion(db *sql.DB, dialect Dialect) (int64, error) {
	if _, err := prepare(dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func prepare(dialect Dialect) (string, error) {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	dir := "sqlite"
	gooseDialect := "sqlite3"
	if dialect == Postgres {
		dir = "postgres"
		gooseDialect = "postgres"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return "", fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return dir, nil
}
