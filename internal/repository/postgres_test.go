package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"catalog-cms/internal/database"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func newPostgresBackend(t *testing.T) backend {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	ctx := context.Background()
	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { dbContainer.Terminate(context.Background()) })

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("could not get connection string: %v", err)
	}
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("could not open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db, database.Postgres, zap.NewNop()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return backend{
		name:     "postgres",
		products: NewProductRepository(db, database.Postgres),
		articles: NewArticleRepository(db, database.Postgres),
	}
}

func TestPostgresBackend(t *testing.T) {
	b := newPostgresBackend(t)
	ctx := context.Background()

	p := sampleProduct("pg-1")
	if err := b.products.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := b.products.Insert(ctx, p); err != ErrProductAlreadyExists {
		t.Errorf("Expected ErrProductAlreadyExists, got %v", err)
	}
	if err := b.products.Insert(ctx, sampleProduct("pg-2")); err != nil {
		t.Fatal(err)
	}

	list, err := b.products.List(ctx, ProductFilter{Query: "ПИРОМЕТР PG-2"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "pg-2" {
		t.Errorf("Expected only pg-2, got %d results", len(list))
	}

	all, _ := b.products.List(ctx, ProductFilter{})
	if len(all) != 2 || all[0].ID != "pg-2" {
		t.Errorf("Expected newest first, got %d results", len(all))
	}

	n, err := b.products.DeleteAll(ctx)
	if err != nil || n != 2 {
		t.Errorf("DeleteAll = %d, %v", n, err)
	}
}
