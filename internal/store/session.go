package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/quizdrill/internal/grading"
)

var sessionColumns = []string{
	"id", "user_id", "status", "strategy", "question_type", "knowledge_point_ids",
	"quiz_ids", "total_questions", "answered_questions", "correct_answers",
	"incorrect_answers", "skipped_questions", "time_limit_minutes", "time_spent_seconds",
	"score", "last_question_index", "shuffle_questions", "shuffle_options",
	"created_at", "started_at", "completed_at", "updated_at",
}

var questionColumns = []string{
	"id", "session_id", "quiz_id", "question_number", "type", "question", "options",
	"answer", "answer_index", "alternative_answers", "order_groups", "knowledge_point_id",
	"difficulty", "student_answer", "is_correct", "is_skipped", "time_spent_seconds",
	"answered_at",
}

type sessionRepo struct {
	c conn
}

func scanSession(sc scanner) (*Session, error) {
	var (
		s                      Session
		status, kpIDs, quizIDs string
		timeLimit, lastIndex   sql.NullInt64
		shuffleQ, shuffleO     int
		createdAt, updatedAt   string
		startedAt, completedAt sql.NullString
	)
	err := sc.Scan(&s.ID, &s.UserID, &status, &s.Strategy, &s.QuestionType, &kpIDs,
		&quizIDs, &s.TotalQuestions, &s.AnsweredQuestions, &s.CorrectAnswers,
		&s.IncorrectAnswers, &s.SkippedQuestions, &timeLimit, &s.TimeSpentSeconds,
		&s.Score, &lastIndex, &shuffleQ, &shuffleO,
		&createdAt, &startedAt, &completedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = SessionStatus(status)
	s.TimeLimitMinutes = intPtr(timeLimit)
	s.LastQuestionIndex = intPtr(lastIndex)
	s.ShuffleQuestions = shuffleQ != 0
	s.ShuffleOptions = shuffleO != 0
	if s.KnowledgePointIDs, err = decodeJSON[string](kpIDs, "knowledge_point_ids"); err != nil {
		return nil, err
	}
	if s.QuizIDs, err = decodeJSON[string](quizIDs, "quiz_ids"); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if s.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if s.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanQuestion(sc scanner) (*SessionQuestion, error) {
	var (
		q                                 SessionQuestion
		typ, options, answer, answerIndex string
		alts, groups                      string
		studentAnswer, answeredAt         sql.NullString
		isCorrect                         sql.NullInt64
		isSkipped                         int
	)
	err := sc.Scan(&q.ID, &q.SessionID, &q.QuizID, &q.Number, &typ, &q.Question, &options,
		&answer, &answerIndex, &alts, &groups, &q.KnowledgePointID,
		&q.Difficulty, &studentAnswer, &isCorrect, &isSkipped, &q.TimeSpentSeconds,
		&answeredAt)
	if err != nil {
		return nil, err
	}
	q.Type = grading.QuestionType(typ)
	q.IsSkipped = isSkipped != 0
	if studentAnswer.Valid {
		v := studentAnswer.String
		q.StudentAnswer = &v
	}
	if isCorrect.Valid {
		v := isCorrect.Int64 != 0
		q.IsCorrect = &v
	}
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
	if q.AnsweredAt, err = parseNullTime(answeredAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *sessionRepo) Create(ctx context.Context, s *Session, questions []*SessionQuestion) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := r.c.now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	ins := r.c.b.Insert(tablePracticeSessions).
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, string(s.Status), s.Strategy, s.QuestionType,
			encodeJSON(s.KnowledgePointIDs), encodeJSON(s.QuizIDs),
			s.TotalQuestions, s.AnsweredQuestions, s.CorrectAnswers,
			s.IncorrectAnswers, s.SkippedQuestions, intPtrValue(s.TimeLimitMinutes), s.TimeSpentSeconds,
			s.Score, intPtrValue(s.LastQuestionIndex), boolInt(s.ShuffleQuestions), boolInt(s.ShuffleOptions),
			formatTime(s.CreatedAt), formatTimePtr(s.StartedAt), formatTimePtr(s.CompletedAt), formatTime(s.UpdatedAt))
	if _, err := r.c.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if len(questions) == 0 {
		return nil
	}
	qins := r.c.b.Insert(tablePracticeQuestions).Columns(questionColumns...)
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.SessionID = s.ID
		qins.Values(q.ID, q.SessionID, q.QuizID, q.Number, string(q.Type), q.Question,
			encodeJSON(q.Options), encodeJSON(q.Answer), encodeJSON(q.AnswerIndex),
			encodeJSON(q.Alternatives), encodeJSON(q.Groups), q.KnowledgePointID,
			q.Difficulty, studentAnswerValue(q.StudentAnswer), boolPtrValue(q.IsCorrect),
			boolInt(q.IsSkipped), q.TimeSpentSeconds, formatTimePtr(q.AnsweredAt))
	}
	if _, err := r.c.exec(ctx, qins); err != nil {
		return fmt.Errorf("insert session questions: %w", err)
	}
	return nil
}

func studentAnswerValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolPtrValue(p *bool) any {
	if p == nil {
		return nil
	}
	return boolInt(*p)
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	t := r.c.b.Table(tablePracticeSessions)
	sel := r.c.b.Select(qualify(t, sessionColumns)...).From(t).Where(entsql.EQ(t.C("id"), id))
	s, err := scanSession(r.c.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *Session) error {
	s.UpdatedAt = r.c.now().UTC()
	upd := r.c.b.Update(tablePracticeSessions).
		Set("status", string(s.Status)).
		Set("strategy", s.Strategy).
		Set("answered_questions", s.AnsweredQuestions).
		Set("correct_answers", s.CorrectAnswers).
		Set("incorrect_answers", s.IncorrectAnswers).
		Set("skipped_questions", s.SkippedQuestions).
		Set("time_spent_seconds", s.TimeSpentSeconds).
		Set("score", s.Score).
		Set("last_question_index", intPtrValue(s.LastQuestionIndex)).
		Set("started_at", formatTimePtr(s.StartedAt)).
		Set("completed_at", formatTimePtr(s.CompletedAt)).
		Set("updated_at", formatTime(s.UpdatedAt)).
		Where(entsql.EQ("id", s.ID))
	if _, err := r.c.exec(ctx, upd); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func sessionPredicates(t *entsql.SelectTable, userID string, f SessionFilter) []*entsql.Predicate {
	ps := []*entsql.Predicate{entsql.EQ(t.C("user_id"), userID)}
	if f.Status != "" {
		ps = append(ps, entsql.EQ(t.C("status"), string(f.Status)))
	}
	if f.Strategy != "" {
		ps = append(ps, entsql.EQ(t.C("strategy"), f.Strategy))
	}
	return ps
}

func (r *sessionRepo) List(ctx context.Context, userID string, f SessionFilter) ([]*Session, error) {
	t := r.c.b.Table(tablePracticeSessions)
	sel := wherePreds(r.c.b.Select(qualify(t, sessionColumns)...).From(t), sessionPredicates(t, userID, f)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id")))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
		if f.Offset > 0 {
			sel.Offset(f.Offset)
		}
	}
	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) Count(ctx context.Context, userID string, f SessionFilter) (int, error) {
	t := r.c.b.Table(tablePracticeSessions)
	sel := wherePreds(r.c.b.Select(entsql.Count("*")).From(t), sessionPredicates(t, userID, f))
	n, err := r.c.count(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (r *sessionRepo) Questions(ctx context.Context, sessionID string) ([]*SessionQuestion, error) {
	t := r.c.b.Table(tablePracticeQuestions)
	sel := r.c.b.Select(qualify(t, questionColumns)...).From(t).
		Where(entsql.EQ(t.C("session_id"), sessionID)).
		OrderBy(t.C("question_number"))
	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	defer rows.Close()

	var out []*SessionQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *sessionRepo) Question(ctx context.Context, sessionID, questionID string) (*SessionQuestion, error) {
	t := r.c.b.Table(tablePracticeQuestions)
	sel := r.c.b.Select(qualify(t, questionColumns)...).From(t).
		Where(entsql.And(
			entsql.EQ(t.C("session_id"), sessionID),
			entsql.EQ(t.C("id"), questionID),
		))
	q, err := scanQuestion(r.c.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session question: %w", err)
	}
	return q, nil
}

func (r *sessionRepo) UpdateQuestion(ctx context.Context, q *SessionQuestion) error {
	upd := r.c.b.Update(tablePracticeQuestions).
		Set("student_answer", studentAnswerValue(q.StudentAnswer)).
		Set("is_correct", boolPtrValue(q.IsCorrect)).
		Set("is_skipped", boolInt(q.IsSkipped)).
		Set("time_spent_seconds", q.TimeSpentSeconds).
		Set("answered_at", formatTimePtr(q.AnsweredAt)).
		Set("alternative_answers", encodeJSON(q.Alternatives)).
		Where(entsql.EQ("id", q.ID))
	if _, err := r.c.exec(ctx, upd); err != nil {
		return fmt.Errorf("update session question: %w", err)
	}
	return nil
}

func (r *sessionRepo) QuestionCounts(ctx context.Context, sessionID string) (QuestionCounts, error) {
	questions, err := r.Questions(ctx, sessionID)
	if err != nil {
		return QuestionCounts{}, err
	}
	var qc QuestionCounts
	for _, q := range questions {
		switch {
		case q.IsCorrect != nil:
			qc.Answered++
			if *q.IsCorrect {
				qc.Correct++
			} else {
				qc.Incorrect++
			}
		case q.IsSkipped:
			qc.Skipped++
		}
	}
	return qc, nil
}

func (r *sessionRepo) Totals(ctx context.Context, userID string) (SessionTotals, error) {
	t := r.c.b.Table(tablePracticeSessions)
	sel := r.c.b.Select(
		entsql.Count("*"),
		entsql.Sum(t.C("answered_questions")),
		entsql.Sum(t.C("correct_answers")),
		entsql.Sum(t.C("incorrect_answers")),
		entsql.Sum(t.C("skipped_questions")),
		entsql.Sum(t.C("time_spent_seconds")),
	).From(t).Where(entsql.EQ(t.C("user_id"), userID))

	var (
		st                                           SessionTotals
		answered, correct, incorrect, skipped, spent sql.NullInt64
	)
	err := r.c.queryRow(ctx, sel).Scan(&st.Sessions, &answered, &correct, &incorrect, &skipped, &spent)
	if err != nil {
		return SessionTotals{}, fmt.Errorf("session totals: %w", err)
	}
	st.Answered = int(answered.Int64)
	st.Correct = int(correct.Int64)
	st.Incorrect = int(incorrect.Int64)
	st.Skipped = int(skipped.Int64)
	st.TimeSpentSeconds = int(spent.Int64)

	st.Completed, err = r.Count(ctx, userID, SessionFilter{Status: StatusCompleted})
	if err != nil {
		return SessionTotals{}, err
	}
	return st, nil
}

func (r *sessionRepo) KnowledgePointStats(ctx context.Context, userID string) ([]AnswerStat, error) {
	return r.answerStats(ctx, userID, "knowledge_point_id")
}

func (r *sessionRepo) DifficultyStats(ctx context.Context, userID string) ([]AnswerStat, error) {
	return r.answerStats(ctx, userID, "difficulty")
}

// answerStats groups the user's graded question rows by a snapshot column.
func (r *sessionRepo) answerStats(ctx context.Context, userID, column string) ([]AnswerStat, error) {
	pq := r.c.b.Table(tablePracticeQuestions).As("pq")
	ps := r.c.b.Table(tablePracticeSessions).As("ps")
	sel := r.c.b.Select(
		pq.C(column),
		entsql.Count("*"),
		entsql.Sum(pq.C("is_correct")),
		entsql.Sum(pq.C("time_spent_seconds")),
		entsql.Max(pq.C("answered_at")),
	).
		From(pq).
		Join(ps).On(pq.C("session_id"), ps.C("id")).
		Where(entsql.And(
			entsql.EQ(ps.C("user_id"), userID),
			entsql.NotNull(pq.C("is_correct")),
		)).
		GroupBy(pq.C(column)).
		OrderBy(pq.C(column))

	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query %s stats: %w", column, err)
	}
	defer rows.Close()

	var out []AnswerStat
	for rows.Next() {
		var (
			st             AnswerStat
			correct, spent sql.NullInt64
			last           sql.NullString
		)
		if err := rows.Scan(&st.Key, &st.Total, &correct, &spent, &last); err != nil {
			return nil, fmt.Errorf("scan %s stats: %w", column, err)
		}
		st.Correct = int(correct.Int64)
		st.TimeSpentSeconds = int(spent.Int64)
		if st.LastAnsweredAt, err = parseNullTime(last); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Elapsed returns the wall time between start and completion, or zero.
func (s *Session) Elapsed() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}
