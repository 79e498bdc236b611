package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn bundles a query target with a dialect-aware statement builder.
type conn struct {
	q   DBTX
	b   *entsql.DialectBuilder
	rng Rand
	now func() time.Time
}

// querier is satisfied by every ent builder.
type querier interface {
	Query() (string, []any)
}

func (c conn) exec(ctx context.Context, stmt querier) (sql.Result, error) {
	query, args := stmt.Query()
	return c.q.ExecContext(ctx, query, args...)
}

func (c conn) query(ctx context.Context, stmt querier) (*sql.Rows, error) {
	query, args := stmt.Query()
	return c.q.QueryContext(ctx, query, args...)
}

func (c conn) queryRow(ctx context.Context, stmt querier) *sql.Row {
	query, args := stmt.Query()
	return c.q.QueryRowContext(ctx, query, args...)
}

func (c conn) count(ctx context.Context, stmt querier) (int, error) {
	var n int
	if err := c.queryRow(ctx, stmt).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// stringColumn runs a single-column query.
func (c conn) stringColumn(ctx context.Context, stmt querier) ([]string, error) {
	rows, err := c.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Tx is a transaction-scoped view of the store. Repositories obtained from
// it read and write inside the transaction.
type Tx struct {
	tx *sql.Tx
	c  conn
}

func (t *Tx) Quizzes() QuizRepo        { return &quizRepo{t.c} }
func (t *Tx) Sessions() SessionRepo    { return &sessionRepo{t.c} }
func (t *Tx) Mistakes() MistakeRepo    { return &mistakeRepo{t.c} }
func (t *Tx) Weaknesses() WeaknessRepo { return &weaknessRepo{t.c} }

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	c := s.conn()
	c.q = sqlTx
	if err := fn(&Tx{tx: sqlTx, c: c}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
