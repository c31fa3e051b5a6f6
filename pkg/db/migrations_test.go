package db

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_column.sql":    {Data: []byte("ALTER TABLE test ADD COLUMN name TEXT;")},
		"0001_create.sql":        {Data: []byte("CREATE TABLE test (id SERIAL PRIMARY KEY);")},
		"README.md":              {Data: []byte("# Migrations")},
		"notes.txt":              {Data: []byte("some notes")},
		"0000_dir.sql/inner.sql": {Data: []byte("SELECT 1;")},
	}

	result, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("db:migrations_test - expected 2 migrations, got %d", len(result))
	}
	if result[0].Name != "0001_create.sql" || result[1].Name != "0002_add_column.sql" {
		t.Errorf("db:migrations_test - migrations out of order: %s, %s", result[0].Name, result[1].Name)
	}
	if !strings.HasPrefix(result[0].SQL, "CREATE TABLE") {
		t.Errorf("db:migrations_test - unexpected SQL for %s: %q", result[0].Name, result[0].SQL)
	}
}

func TestLoadMigrationFiles_MissingDir(t *testing.T) {
	if _, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("db:migrations_test - expected error for missing directory")
	}
}

func TestLoadMigrationFiles_RepoMigrations(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "migrations")

	result, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - loading repo migrations: %v", err)
	}
	if len(result) == 0 {
		t.Fatal("db:migrations_test - expected at least one repo migration")
	}
	if result[0].Name != "001_catalog.sql" || !strings.Contains(result[0].SQL, "catalog_capabilities") {
		t.Errorf("db:migrations_test - first migration should create catalog_capabilities, got %s", result[0].Name)
	}
}
