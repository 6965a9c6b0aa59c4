package database

import (
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	"go.uber.org/zap"

	"catalog-cms/internal/config"
	"catalog-cms/migrations"
)

func TestMigrationFilesMatchAcrossDialects(t *testing.T) {
	sqlite, err := fs.Glob(migrations.FS, "sqlite/*.sql")
	if err != nil {
		t.Fatalf("Failed to list sqlite migrations: %v", err)
	}
	postgres, err := fs.Glob(migrations.FS, "postgres/*.sql")
	if err != nil {
		t.Fatalf("Failed to list postgres migrations: %v", err)
	}

	if len(sqlite) == 0 {
		t.Fatal("No SQL migration files found")
	}
	if len(sqlite) != len(postgres) {
		t.Fatalf("Dialects have different migration counts: sqlite=%d postgres=%d", len(sqlite), len(postgres))
	}
	for i := range sqlite {
		a := strings.TrimPrefix(sqlite[i], "sqlite/")
		b := strings.TrimPrefix(postgres[i], "postgres/")
		if a != b {
			t.Errorf("Migration %d differs between dialects: %s vs %s", i, a, b)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*/*.sql")
	if err != nil {
		t.Fatalf("Failed to read migrations: %v", err)
	}

	for _, name := range files {
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", name, err)
			continue
		}
		contentStr := string(content)

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", name, directive)
			}
		}
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"products": "00001_create_products_table.sql",
		"articles": "00002_create_articles_table.sql",
	}

	for _, dialect := range []string{"sqlite", "postgres"} {
		for tableName, migrationFile := range expectedTables {
			content, err := fs.ReadFile(migrations.FS, dialect+"/"+migrationFile)
			if err != nil {
				t.Errorf("Failed to read migration file %s/%s: %v", dialect, migrationFile, err)
				continue
			}
			if !strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS "+tableName) {
				t.Errorf("Migration file %s/%s does not create table %s", dialect, migrationFile, tableName)
			}
			if !strings.Contains(string(content), "DROP TABLE IF EXISTS "+tableName) {
				t.Errorf("Migration file %s/%s does not drop table %s", dialect, migrationFile, tableName)
			}
		}
	}
}

func TestRunMigrationsOnSQLite(t *testing.T) {
	svc, err := New(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer svc.Close()

	if err := RunMigrations(svc.DB(), svc.Dialect(), zap.NewNop()); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	// a second run has nothing pending
	if err := RunMigrations(svc.DB(), svc.Dialect(), zap.NewNop()); err != nil {
		t.Fatalf("Second RunMigrations failed: %v", err)
	}

	if version, err := SchemaVersion(svc.DB(), svc.Dialect()); err != nil || version != 3 {
		t.Errorf("SchemaVersion() = %d, %v, want 3", version, err)
	}

	for _, table := range []string{"products", "articles"} {
		var name string
		err := svc.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err == sql.ErrNoRows {
			t.Errorf("Table %s was not created", table)
		} else if err != nil {
			t.Errorf("Failed to look up table %s: %v", table, err)
		}
	}

	health := svc.Health()
	if health["status"] != "up" {
		t.Errorf("Expected healthy database, got %v", health)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{SQLite, "SELECT * FROM products WHERE id = ?", "SELECT * FROM products WHERE id = ?"},
		{Postgres, "SELECT * FROM products WHERE id = ?", "SELECT * FROM products WHERE id = $1"},
		{Postgres, "UPDATE t SET a = ?, b = ? WHERE id = ?", "UPDATE t SET a = $1, b = $2 WHERE id = $3"},
		{Postgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		if got := tt.dialect.Rebind(tt.in); got != tt.want {
			t.Errorf("%s.Rebind(%q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Error("Expected an error for an unsupported driver")
	}
}

func TestContainsArg(t *testing.T) {
	if got := SQLite.ContainsArg("Пирометр 50%"); got != `%пирометр 50\%%` {
		t.Errorf("SQLite.ContainsArg = %q", got)
	}
	if got := Postgres.ContainsArg("A_b"); got != `%A\_b%` {
		t.Errorf("Postgres.ContainsArg = %q", got)
	}
}
