package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var weaknessColumns = []string{
	"user_id", "knowledge_point_id", "accuracy_rate", "practice_count", "correct_count",
	"is_weak", "improvement_trend", "last_practiced_at", "updated_at",
}

type weaknessRepo struct {
	c conn
}

func scanWeakness(sc scanner) (*Weakness, error) {
	var (
		w            Weakness
		isWeak       int
		lastPractice sql.NullString
		updatedAt    string
	)
	err := sc.Scan(&w.UserID, &w.KnowledgePointID, &w.AccuracyRate, &w.PracticeCount,
		&w.CorrectCount, &isWeak, &w.ImprovementTrend, &lastPractice, &updatedAt)
	if err != nil {
		return nil, err
	}
	w.IsWeak = isWeak != 0
	if w.LastPracticedAt, err = parseNullTime(lastPractice); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *weaknessRepo) Get(ctx context.Context, userID, knowledgePointID string) (*Weakness, error) {
	t := r.c.b.Table(tableWeaknesses)
	sel := r.c.b.Select(qualify(t, weaknessColumns)...).From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.EQ(t.C("knowledge_point_id"), knowledgePointID),
		))
	w, err := scanWeakness(r.c.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weakness: %w", err)
	}
	return w, nil
}

func (r *weaknessRepo) Upsert(ctx context.Context, w *Weakness) error {
	existing, err := r.Get(ctx, w.UserID, w.KnowledgePointID)
	if err != nil {
		return err
	}
	w.UpdatedAt = r.c.now().UTC()

	if existing == nil {
		ins := r.c.b.Insert(tableWeaknesses).
			Columns(weaknessColumns...).
			Values(w.UserID, w.KnowledgePointID, w.AccuracyRate, w.PracticeCount, w.CorrectCount,
				boolInt(w.IsWeak), w.ImprovementTrend, formatTimePtr(w.LastPracticedAt), formatTime(w.UpdatedAt))
		if _, err := r.c.exec(ctx, ins); err != nil {
			return fmt.Errorf("insert weakness: %w", err)
		}
		return nil
	}

	upd := r.c.b.Update(tableWeaknesses).
		Set("accuracy_rate", w.AccuracyRate).
		Set("practice_count", w.PracticeCount).
		Set("correct_count", w.CorrectCount).
		Set("is_weak", boolInt(w.IsWeak)).
		Set("improvement_trend", w.ImprovementTrend).
		Set("last_practiced_at", formatTimePtr(w.LastPracticedAt)).
		Set("updated_at", formatTime(w.UpdatedAt)).
		Where(entsql.And(
			entsql.EQ("user_id", w.UserID),
			entsql.EQ("knowledge_point_id", w.KnowledgePointID),
		))
	if _, err := r.c.exec(ctx, upd); err != nil {
		return fmt.Errorf("update weakness: %w", err)
	}
	return nil
}

func (r *weaknessRepo) List(ctx context.Context, userID string, f WeaknessFilter) ([]*Weakness, error) {
	t := r.c.b.Table(tableWeaknesses)
	ps := []*entsql.Predicate{entsql.EQ(t.C("user_id"), userID)}
	if len(f.KnowledgePointIDs) > 0 {
		ps = append(ps, entsql.In(t.C("knowledge_point_id"), anys(f.KnowledgePointIDs)...))
	}
	if f.WeakOnly {
		ps = append(ps, entsql.EQ(t.C("is_weak"), 1))
	}
	sel := wherePreds(r.c.b.Select(qualify(t, weaknessColumns)...).From(t), ps).
		OrderBy(t.C("accuracy_rate"), t.C("knowledge_point_id"))

	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list weaknesses: %w", err)
	}
	defer rows.Close()

	var out []*Weakness
	for rows.Next() {
		w, err := scanWeakness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weakness: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
