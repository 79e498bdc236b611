package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var mistakeColumns = []string{
	"id", "user_id", "quiz_id", "session_id", "incorrect_answer", "correct_answer",
	"mistake_count", "correction_count", "is_corrected", "next_review_date",
	"last_attempted_at", "created_at", "updated_at",
}

type mistakeRepo struct {
	c conn
}

// scanMistake reads mistakeColumns, optionally followed by extra targets.
func scanMistake(sc scanner, extra ...any) (*Mistake, error) {
	var (
		m                                 Mistake
		isCorrected                       int
		nextReview                        sql.NullString
		lastAttempt, createdAt, updatedAt string
	)
	dest := []any{&m.ID, &m.UserID, &m.QuizID, &m.SessionID, &m.IncorrectAnswer, &m.CorrectAnswer,
		&m.MistakeCount, &m.CorrectionCount, &isCorrected, &nextReview,
		&lastAttempt, &createdAt, &updatedAt}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.IsCorrected = isCorrected != 0

	var err error
	if m.NextReviewDate, err = parseNullTime(nextReview); err != nil {
		return nil, err
	}
	if m.LastAttemptedAt, err = parseTime(lastAttempt); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mistakeRepo) Get(ctx context.Context, userID, quizID string) (*Mistake, error) {
	t := r.c.b.Table(tableMistakes)
	sel := r.c.b.Select(qualify(t, mistakeColumns)...).From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.EQ(t.C("quiz_id"), quizID),
		))
	m, err := scanMistake(r.c.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mistake: %w", err)
	}
	return m, nil
}

func (r *mistakeRepo) Create(ctx context.Context, m *Mistake) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	ins := r.c.b.Insert(tableMistakes).
		Columns(mistakeColumns...).
		Values(m.ID, m.UserID, m.QuizID, m.SessionID, m.IncorrectAnswer, m.CorrectAnswer,
			m.MistakeCount, m.CorrectionCount, boolInt(m.IsCorrected), formatTimePtr(m.NextReviewDate),
			formatTime(m.LastAttemptedAt), formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if _, err := r.c.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert mistake: %w", err)
	}
	return nil
}

func (r *mistakeRepo) Update(ctx context.Context, m *Mistake) error {
	upd := r.c.b.Update(tableMistakes).
		Set("session_id", m.SessionID).
		Set("incorrect_answer", m.IncorrectAnswer).
		Set("correct_answer", m.CorrectAnswer).
		Set("mistake_count", m.MistakeCount).
		Set("correction_count", m.CorrectionCount).
		Set("is_corrected", boolInt(m.IsCorrected)).
		Set("next_review_date", formatTimePtr(m.NextReviewDate)).
		Set("last_attempted_at", formatTime(m.LastAttemptedAt)).
		Set("updated_at", formatTime(m.UpdatedAt)).
		Where(entsql.EQ("id", m.ID))
	if _, err := r.c.exec(ctx, upd); err != nil {
		return fmt.Errorf("update mistake: %w", err)
	}
	return nil
}

func (r *mistakeRepo) Delete(ctx context.Context, id string) error {
	del := r.c.b.Delete(tableMistakes).Where(entsql.EQ("id", id))
	if _, err := r.c.exec(ctx, del); err != nil {
		return fmt.Errorf("delete mistake: %w", err)
	}
	return nil
}

func (r *mistakeRepo) List(ctx context.Context, userID string, f MistakeFilter) ([]*Mistake, error) {
	// Columns are qualified before the join, so both tables need aliases.
	t := r.c.b.Table(tableMistakes).As("m")
	q := r.c.b.Table(tableQuizzes).As("q")

	ps := []*entsql.Predicate{entsql.EQ(t.C("user_id"), userID)}
	if !f.IncludeCorrected {
		ps = append(ps, entsql.EQ(t.C("is_corrected"), 0))
	}
	if len(f.KnowledgePointIDs) > 0 {
		ps = append(ps, entsql.In(q.C("knowledge_point_id"), anys(f.KnowledgePointIDs)...))
	}
	if f.DueBefore != nil {
		ps = append(ps,
			entsql.NotNull(t.C("next_review_date")),
			entsql.LTE(t.C("next_review_date"), formatTime(*f.DueBefore)),
		)
	}

	cols := append(qualify(t, mistakeColumns), q.C("knowledge_point_id"))
	sel := r.c.b.Select(cols...).
		From(t).
		Join(q).On(t.C("quiz_id"), q.C("id")).
		Where(entsql.And(ps...)).
		OrderBy(t.C("created_at"), t.C("id"))

	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	defer rows.Close()

	var out []*Mistake
	for rows.Next() {
		var kp string
		m, err := scanMistake(rows, &kp)
		if err != nil {
			return nil, fmt.Errorf("scan mistake: %w", err)
		}
		m.KnowledgePointID = kp
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// NULL ordering differs between dialects, so the final order is applied here.
	slices.SortStableFunc(out, func(a, b *Mistake) int {
		switch {
		case a.NextReviewDate == nil && b.NextReviewDate != nil:
			return 1
		case a.NextReviewDate != nil && b.NextReviewDate == nil:
			return -1
		case a.NextReviewDate != nil && !a.NextReviewDate.Equal(*b.NextReviewDate):
			return a.NextReviewDate.Compare(*b.NextReviewDate)
		}
		return b.MistakeCount - a.MistakeCount
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *mistakeRepo) Counts(ctx context.Context, userID string) (corrected, remaining int, err error) {
	t := r.c.b.Table(tableMistakes)
	sel := r.c.b.Select(t.C("is_corrected"), entsql.Count("*")).From(t).
		Where(entsql.EQ(t.C("user_id"), userID)).
		GroupBy(t.C("is_corrected"))
	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return 0, 0, fmt.Errorf("count mistakes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var flag, n int
		if err := rows.Scan(&flag, &n); err != nil {
			return 0, 0, fmt.Errorf("scan mistake count: %w", err)
		}
		if flag != 0 {
			corrected += n
		} else {
			remaining += n
		}
	}
	return corrected, remaining, rows.Err()
}
