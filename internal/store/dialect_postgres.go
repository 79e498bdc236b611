package store

import (
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	_ "github.com/lib/pq"
)

type postgresDialect struct{}

func (postgresDialect) Name() string             { return dialect.Postgres }
func (postgresDialect) DriverName() string       { return "postgres" }
func (postgresDialect) DSN(source string) string { return source }

func (postgresDialect) Configure(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (postgresDialect) MigrationsDir() string { return "migrations/postgres" }
