package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/quizdrill/internal/grading"
)

const (
	tableKnowledgePoints   = "knowledge_points"
	tableQuizzes           = "quizzes"
	tablePracticeSessions  = "practice_sessions"
	tablePracticeQuestions = "practice_questions"
	tableMistakes          = "student_mistakes"
	tableWeaknesses        = "student_weaknesses"
	tableLLMCalls          = "llm_calls"
)

var quizColumns = []string{
	"id", "type", "question", "options", "answer", "answer_index",
	"alternative_answers", "order_groups", "knowledge_point_id", "difficulty",
	"explanation", "source", "created_at", "updated_at",
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type quizRepo struct {
	c conn
}

func qualify(t *entsql.SelectTable, cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = t.C(col)
	}
	return out
}

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// wherePreds applies the conjunction of ps to sel, if any.
func wherePreds(sel *entsql.Selector, ps []*entsql.Predicate) *entsql.Selector {
	switch len(ps) {
	case 0:
		return sel
	case 1:
		return sel.Where(ps[0])
	default:
		return sel.Where(entsql.And(ps...))
	}
}

func quizPredicates(t *entsql.SelectTable, f QuizFilter) []*entsql.Predicate {
	var ps []*entsql.Predicate
	if len(f.KnowledgePointIDs) > 0 {
		ps = append(ps, entsql.In(t.C("knowledge_point_id"), anys(f.KnowledgePointIDs)...))
	}
	if f.Difficulty != "" {
		ps = append(ps, entsql.EQ(t.C("difficulty"), f.Difficulty))
	}
	if f.Type != "" {
		ps = append(ps, entsql.EQ(t.C("type"), string(f.Type)))
	}
	return ps
}

func scanQuiz(sc scanner) (*Quiz, error) {
	var (
		q                                  Quiz
		typ, options, answer, answerIndex  string
		alts, groups, createdAt, updatedAt string
	)
	err := sc.Scan(&q.ID, &typ, &q.Question, &options, &answer, &answerIndex,
		&alts, &groups, &q.KnowledgePointID, &q.Difficulty,
		&q.Explanation, &q.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	q.Type = grading.QuestionType(typ)
	if q.Options, err = decodeJSON[string](options, "options"); err != nil {
		return nil, err
	}
	if q.Answer, err = decodeJSON[string](answer, "answer"); err != nil {
		return nil, err
	}
	if q.AnswerIndex, err = decodeJSON[int](answerIndex, "answer_index"); err != nil {
		return nil, err
	}
	if q.Alternatives, err = decodeJSON[string](alts, "alternative_answers"); err != nil {
		return nil, err
	}
	if q.Groups, err = decodeJSON[[]int](groups, "order_groups"); err != nil {
		return nil, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quizRepo) Create(ctx context.Context, q *Quiz) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	now := r.c.now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	ins := r.c.b.Insert(tableQuizzes).
		Columns(quizColumns...).
		Values(q.ID, string(q.Type), q.Question, encodeJSON(q.Options), encodeJSON(q.Answer),
			encodeJSON(q.AnswerIndex), encodeJSON(q.Alternatives), encodeJSON(q.Groups),
			q.KnowledgePointID, q.Difficulty, q.Explanation, q.Source,
			formatTime(q.CreatedAt), formatTime(q.UpdatedAt))
	if _, err := r.c.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (r *quizRepo) Get(ctx context.Context, id string) (*Quiz, error) {
	t := r.c.b.Table(tableQuizzes)
	sel := r.c.b.Select(qualify(t, quizColumns)...).From(t).Where(entsql.EQ(t.C("id"), id))
	q, err := scanQuiz(r.c.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

func (r *quizRepo) GetMany(ctx context.Context, ids []string) ([]*Quiz, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	t := r.c.b.Table(tableQuizzes)
	sel := r.c.b.Select(qualify(t, quizColumns)...).From(t).Where(entsql.In(t.C("id"), anys(ids)...))
	found, err := r.collect(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get quizzes: %w", err)
	}

	byID := make(map[string]*Quiz, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	out := make([]*Quiz, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *quizRepo) List(ctx context.Context, f QuizFilter, limit, offset int) ([]*Quiz, error) {
	t := r.c.b.Table(tableQuizzes)
	sel := wherePreds(r.c.b.Select(qualify(t, quizColumns)...).From(t), quizPredicates(t, f)).
		OrderBy(t.C("created_at"), t.C("id"))
	if limit > 0 {
		sel.Limit(limit)
		if offset > 0 {
			sel.Offset(offset)
		}
	}
	out, err := r.collect(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}

func (r *quizRepo) Count(ctx context.Context, f QuizFilter) (int, error) {
	t := r.c.b.Table(tableQuizzes)
	sel := wherePreds(r.c.b.Select(entsql.Count("*")).From(t), quizPredicates(t, f))
	n, err := r.c.count(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("count quizzes: %w", err)
	}
	return n, nil
}

func (r *quizRepo) collect(ctx context.Context, sel *entsql.Selector) ([]*Quiz, error) {
	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *quizRepo) candidateIDs(ctx context.Context, f QuizFilter) ([]string, error) {
	t := r.c.b.Table(tableQuizzes)
	sel := wherePreds(r.c.b.Select(t.C("id")).From(t), quizPredicates(t, f)).OrderBy(t.C("id"))
	return r.c.stringColumn(ctx, sel)
}

func (r *quizRepo) Sample(ctx context.Context, f QuizFilter, n int) ([]string, error) {
	ids, err := r.candidateIDs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sample quizzes: %w", err)
	}
	return sample(r.c.rng, ids, n), nil
}

func (r *quizRepo) Unattempted(ctx context.Context, userID string, f QuizFilter, n int) ([]string, error) {
	pq := r.c.b.Table(tablePracticeQuestions).As("pq")
	ps := r.c.b.Table(tablePracticeSessions).As("ps")
	attemptedSel := r.c.b.Select(pq.C("quiz_id")).Distinct().
		From(pq).
		Join(ps).On(pq.C("session_id"), ps.C("id")).
		Where(entsql.And(
			entsql.EQ(ps.C("user_id"), userID),
			entsql.NotNull(pq.C("is_correct")),
		))
	attempted, err := r.c.stringColumn(ctx, attemptedSel)
	if err != nil {
		return nil, fmt.Errorf("query attempted quizzes: %w", err)
	}

	ids, err := r.candidateIDs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query candidate quizzes: %w", err)
	}
	seen := make(map[string]bool, len(attempted))
	for _, id := range attempted {
		seen[id] = true
	}
	fresh := slices.DeleteFunc(ids, func(id string) bool { return seen[id] })
	return sample(r.c.rng, fresh, n), nil
}

func (r *quizRepo) WrongIDs(ctx context.Context, userID string, f QuizFilter, recentSessions int) ([]string, error) {
	if recentSessions <= 0 {
		recentSessions = 10
	}
	ps := r.c.b.Table(tablePracticeSessions)
	recentSel := r.c.b.Select(ps.C("id")).From(ps).
		Where(entsql.And(
			entsql.EQ(ps.C("user_id"), userID),
			entsql.EQ(ps.C("status"), string(StatusCompleted)),
		)).
		OrderBy(entsql.Desc(ps.C("completed_at")), entsql.Desc(ps.C("created_at"))).
		Limit(recentSessions)
	sessionIDs, err := r.c.stringColumn(ctx, recentSel)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	pq := r.c.b.Table(tablePracticeQuestions).As("pq")
	q := r.c.b.Table(tableQuizzes).As("q")
	preds := append([]*entsql.Predicate{
		entsql.In(pq.C("session_id"), anys(sessionIDs)...),
		entsql.EQ(pq.C("is_correct"), 0),
	}, quizPredicates(q, f)...)
	wrongSel := r.c.b.Select(pq.C("session_id"), pq.C("quiz_id")).
		From(pq).
		Join(q).On(pq.C("quiz_id"), q.C("id")).
		Where(entsql.And(preds...)).
		OrderBy(pq.C("question_number"))
	rows, err := r.c.query(ctx, wrongSel)
	if err != nil {
		return nil, fmt.Errorf("query wrong answers: %w", err)
	}
	defer rows.Close()

	perSession := make(map[string][]string)
	for rows.Next() {
		var sid, qid string
		if err := rows.Scan(&sid, &qid); err != nil {
			return nil, fmt.Errorf("scan wrong answer: %w", err)
		}
		perSession[sid] = append(perSession[sid], qid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]bool)
	for _, sid := range sessionIDs {
		for _, qid := range perSession[sid] {
			if !seen[qid] {
				seen[qid] = true
				out = append(out, qid)
			}
		}
	}
	return out, nil
}

func (r *quizRepo) KnowledgePointsOf(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	t := r.c.b.Table(tableQuizzes)
	sel := r.c.b.Select(t.C("id"), t.C("knowledge_point_id")).From(t).
		Where(entsql.In(t.C("id"), anys(ids)...))
	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query knowledge points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, kp string
		if err := rows.Scan(&id, &kp); err != nil {
			return nil, fmt.Errorf("scan knowledge point: %w", err)
		}
		out[id] = kp
	}
	return out, rows.Err()
}

func (r *quizRepo) AddAlternatives(ctx context.Context, quizID string, alts []string) error {
	upd := r.c.b.Update(tableQuizzes).
		Set("alternative_answers", encodeJSON(alts)).
		Set("updated_at", formatTime(r.c.now())).
		Where(entsql.EQ("id", quizID))
	if _, err := r.c.exec(ctx, upd); err != nil {
		return fmt.Errorf("update alternatives: %w", err)
	}
	return nil
}

func (r *quizRepo) SaveKnowledgePoint(ctx context.Context, kp KnowledgePoint) error {
	existing, err := r.KnowledgePoints(ctx, []string{kp.ID})
	if err != nil {
		return err
	}
	if _, ok := existing[kp.ID]; ok {
		upd := r.c.b.Update(tableKnowledgePoints).
			Set("name", kp.Name).
			Set("subject", kp.Subject).
			Where(entsql.EQ("id", kp.ID))
		if _, err := r.c.exec(ctx, upd); err != nil {
			return fmt.Errorf("update knowledge point: %w", err)
		}
		return nil
	}
	ins := r.c.b.Insert(tableKnowledgePoints).
		Columns("id", "name", "subject").
		Values(kp.ID, kp.Name, kp.Subject)
	if _, err := r.c.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert knowledge point: %w", err)
	}
	return nil
}

func (r *quizRepo) KnowledgePoints(ctx context.Context, ids []string) (map[string]KnowledgePoint, error) {
	out := make(map[string]KnowledgePoint, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	t := r.c.b.Table(tableKnowledgePoints)
	sel := r.c.b.Select(t.C("id"), t.C("name"), t.C("subject")).From(t).
		Where(entsql.In(t.C("id"), anys(ids)...))
	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query knowledge points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kp KnowledgePoint
		if err := rows.Scan(&kp.ID, &kp.Name, &kp.Subject); err != nil {
			return nil, fmt.Errorf("scan knowledge point: %w", err)
		}
		out[kp.ID] = kp
	}
	return out, rows.Err()
}

// sample draws up to n items from ids without replacement using a partial
// Fisher–Yates shuffle on a copy.
func sample(rng Rand, ids []string, n int) []string {
	if n <= 0 || len(ids) == 0 {
		return []string{}
	}
	out := slices.Clone(ids)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}
