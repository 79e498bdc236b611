package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Rand is the random source used for question sampling.
// *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Store owns the database handle and hands out repositories.
type Store struct {
	db      *sql.DB
	dialect Dialect
	rng     Rand
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the random source used for sampling.
func WithRand(r Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithClock overrides the clock used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens the SQLite database at path and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	return OpenDialect(context.Background(), "sqlite", path, opts...)
}

// OpenDialect opens a database for the named driver ("sqlite", "postgres"
// or "mysql"). For SQLite source is a file path; otherwise it is a URL/DSN.
func OpenDialect(ctx context.Context, driver, source string, opts ...Option) (*Store, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName(), d.DSN(source))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := d.Configure(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure connection: %w", err)
	}

	s := &Store{
		db:      db,
		dialect: d,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the active dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) conn() conn {
	return conn{
		q:   s.db,
		b:   entsql.Dialect(s.dialect.Name()),
		rng: s.rng,
		now: s.now,
	}
}

// Quizzes returns the question bank repository.
func (s *Store) Quizzes() QuizRepo { return &quizRepo{s.conn()} }

// Sessions returns the practice session repository.
func (s *Store) Sessions() SessionRepo { return &sessionRepo{s.conn()} }

// Mistakes returns the mistake record repository.
func (s *Store) Mistakes() MistakeRepo { return &mistakeRepo{s.conn()} }

// Weaknesses returns the weakness record repository.
func (s *Store) Weaknesses() WeaknessRepo { return &weaknessRepo{s.conn()} }

// Events returns the LLM call log repository.
func (s *Store) Events() EventRepo { return &eventRepo{s.conn()} }

// DefaultDBPath resolves the database file path in priority order:
// 1. QUIZDRILL_DB environment variable
// 2. $XDG_DATA_HOME/quizdrill/quizdrill.db
// 3. ~/.local/share/quizdrill/quizdrill.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("QUIZDRILL_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "quizdrill", "quizdrill.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
