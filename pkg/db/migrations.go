package db

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
)

const migrationsLogPrefix = "db:migrations"

// Migration is one SQL file of the catalog schema.
type Migration struct {
	Name string
	SQL  string
}

// LoadMigrationFiles reads the .sql files in dir.
func LoadMigrationFiles(dir string) ([]Migration, error) {
	migrations, err := LoadMigrations(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load migrations from %s: %w", migrationsLogPrefix, dir, err)
	}
	return migrations, nil
}

// LoadMigrations returns every top-level .sql file of fsys ordered by name.
// Directories are skipped even when their name ends in .sql.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("%s - read %s: %w", migrationsLogPrefix, e.Name(), err)
		}
		migrations = append(migrations, Migration{Name: e.Name(), SQL: string(data)})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Name < migrations[j].Name })
	return migrations, nil
}
