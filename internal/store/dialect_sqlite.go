package store

import (
	"database/sql"
	"strings"

	"entgo.io/ent/dialect"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return dialect.SQLite }
func (sqliteDialect) DriverName() string { return "sqlite" }

// DSN attaches per-connection pragmas so every pooled connection gets them,
// not just the first one.
func (sqliteDialect) DSN(source string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	if strings.Contains(source, "_pragma=") {
		return source
	}
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(source, "file:") {
		source = "file:" + source
	}
	return source + sep + pragmas
}

func (sqliteDialect) Configure(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}
	return nil
}

func (sqliteDialect) MigrationsDir() string { return "migrations/sqlite" }
