// Package storage opens the repositories of the configured backend.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"catalog-cms/internal/config"
	"catalog-cms/internal/database"
	"catalog-cms/internal/repository"

	"go.uber.org/zap"
)

const DriverJSON = "json"

// Stores bundles the product and article repositories of one backend.
type Stores struct {
	Products repository.ProductRepository
	Articles repository.ArticleRepository

	db     database.Service // nil for the json driver
	driver string
}

// Open connects the backend named by cfg.Driver. SQL backends are migrated
// before the repositories are returned.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Stores, error) {
	if cfg.Driver == DriverJSON {
		return openJSON(cfg.JSONDir, logger)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected", zap.String("dialect", string(db.Dialect())))

	if err := database.RunMigrations(db.DB(), db.Dialect(), logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, err := database.SchemaVersion(db.DB(), db.Dialect()); err == nil {
		logger.Info("Schema ready", zap.Int64("version", version))
	}

	return &Stores{
		Products: repository.NewProductRepository(db.DB(), db.Dialect()),
		Articles: repository.NewArticleRepository(db.DB(), db.Dialect()),
		db:       db,
		driver:   string(db.Dialect()),
	}, nil
}

func openJSON(dir string, logger *zap.Logger) (*Stores, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	products, err := repository.NewJSONProductRepository(filepath.Join(dir, "products.json"))
	if err != nil {
		return nil, err
	}
	articles, err := repository.NewJSONArticleRepository(filepath.Join(dir, "articles.json"))
	if err != nil {
		return nil, err
	}

	logger.Info("Using JSON file storage", zap.String("dir", dir))
	return &Stores{Products: products, Articles: articles, driver: DriverJSON}, nil
}

// Driver names the backend in use
func (s *Stores) Driver() string {
	return s.driver
}

// Health reports the backend status for the health endpoint.
func (s *Stores) Health() map[string]string {
	if s.db == nil {
		return map[string]string{"status": "up", "dialect": s.driver}
	}
	return s.db.Health()
}

func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
