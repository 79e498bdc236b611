package store

import (
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	"github.com/go-sql-driver/mysql"
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return dialect.MySQL }
func (mysqlDialect) DriverName() string { return "mysql" }

// DSN forces utf8mb4 so CJK answers round-trip. Unparseable sources are
// passed through for the driver to reject.
func (mysqlDialect) DSN(source string) string {
	cfg, err := mysql.ParseDSN(source)
	if err != nil {
		return source
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN()
}

func (mysqlDialect) Configure(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1"); err != nil {
		return err
	}
	return nil
}

func (mysqlDialect) MigrationsDir() string { return "migrations/mysql" }
