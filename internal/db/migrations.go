package db

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strings"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"

	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migration is a single schema change. SQL holds an optional Down section
// followed by the Up section, separated by the sql-migrate markers.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrations applies every pending migration in order using the given sql-migrate dialect.
func RunMigrations(log *logger.Logger, db *sql.DB, dialect string, migrations []Migration) error {
	source := &migrate.MemoryMigrationSource{}

	ids := make([]string, 0, len(migrations))
	for _, m := range migrations {
		down, up, found := strings.Cut(m.SQL, upMarker)
		if !found {
			return fmt.Errorf("migration %s missing '%s' separator", m.ID, upMarker)
		}

		if _, after, ok := strings.Cut(down, downMarker); ok {
			down = after
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(up)},
			Down: []string{strings.TrimSpace(down)},
		})
		ids = append(ids, m.ID)
	}

	applied, err := migrate.Exec(db, dialect, source, migrate.Up)
	if err != nil {
		return fmt.Errorf("error executing migrations [%s]: %w", strings.Join(ids, ", "), err)
	}

	log.Infof("applied %d of %d migrations", applied, len(ids))
	return nil
}

// LoadMigrations reads every .sql file in dir of fsys, ordered by file name.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{ID: entry.Name(), SQL: string(content)})
	}

	return migrations, nil
}
