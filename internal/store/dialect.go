package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Dialect captures what differs between the supported databases. Query
// text itself is produced by the ent SQL builder for Name().
type Dialect interface {
	// Name is the ent dialect identifier (dialect.SQLite, dialect.Postgres, dialect.MySQL).
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// DSN turns a user-supplied path or URL into a driver DSN.
	DSN(source string) string

	// Configure applies pool and session settings after opening.
	Configure(db *sql.DB) error

	// MigrationsDir is the embedded directory holding this dialect's schema.
	MigrationsDir() string
}

// DialectFor resolves a driver name from configuration.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}
