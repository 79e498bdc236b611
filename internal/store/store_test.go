package store

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/quizdrill/internal/grading"
)

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// ticker returns a clock that advances one second per call.
func ticker(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(ticker(testEpoch)))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedQuiz(t *testing.T, s *Store, id, kp, difficulty string) *Quiz {
	t.Helper()
	q := &Quiz{
		ID:               id,
		Type:             grading.SingleChoice,
		Question:         "question " + id,
		Options:          []string{"a", "b", "c"},
		Answer:           []string{"b"},
		AnswerIndex:      []int{1},
		KnowledgePointID: kp,
		Difficulty:       difficulty,
	}
	if err := s.Quizzes().Create(context.Background(), q); err != nil {
		t.Fatalf("create quiz %s: %v", id, err)
	}
	return q
}

func boolp(b bool) *bool { return &b }

func seedSession(t *testing.T, s *Store, userID string, status SessionStatus, completedAt *time.Time, answers map[string]*bool) *Session {
	t.Helper()
	ctx := context.Background()
	sess := &Session{
		UserID:         userID,
		Status:         status,
		TotalQuestions: len(answers),
		CompletedAt:    completedAt,
	}
	var questions []*SessionQuestion
	n := 0
	for _, quizID := range slices.Sorted(maps.Keys(answers)) {
		n++
		sess.QuizIDs = append(sess.QuizIDs, quizID)
		quiz, err := s.Quizzes().Get(ctx, quizID)
		if err != nil || quiz == nil {
			t.Fatalf("get quiz %s: %v", quizID, err)
		}
		questions = append(questions, &SessionQuestion{
			QuizID:           quizID,
			Number:           n,
			Type:             quiz.Type,
			Question:         quiz.Question,
			Options:          quiz.Options,
			Answer:           quiz.Answer,
			AnswerIndex:      quiz.AnswerIndex,
			KnowledgePointID: quiz.KnowledgePointID,
			Difficulty:       quiz.Difficulty,
			IsCorrect:        answers[quizID],
			TimeSpentSeconds: 10,
		})
	}
	if err := s.Sessions().Create(ctx, sess, questions); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("applied migrations = %d, want 1", n)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"", "sqlite", false},
		{"sqlite3", "sqlite", false},
		{"Postgres", "postgres", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		d, err := DialectFor(tt.driver)
		if tt.wantErr {
			if err == nil {
				t.Errorf("DialectFor(%q) expected error", tt.driver)
			}
			continue
		}
		if err != nil {
			t.Errorf("DialectFor(%q): %v", tt.driver, err)
			continue
		}
		if d.DriverName() != tt.want {
			t.Errorf("DialectFor(%q).DriverName() = %q, want %q", tt.driver, d.DriverName(), tt.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	got := sqliteDialect{}.DSN("/tmp/x.db")
	want := "file:/tmp/x.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestMySQLDSNForcesCharset(t *testing.T) {
	got := mysqlDialect{}.DSN("user:pw@tcp(localhost:3306)/quiz")
	if want := "charset=utf8mb4"; !strings.Contains(got, want) {
		t.Errorf("DSN = %q, missing %q", got, want)
	}
}

func TestQuizRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	q := &Quiz{
		Type:         grading.FillInBlank,
		Question:     "____ and ____ led the reform",
		Answer:       []string{"康有为", "梁启超"},
		Alternatives: []string{"[0]康有為"},
		Groups:       [][]int{{0, 1}},
	}
	if err := s.Quizzes().Create(ctx, q); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if q.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.Quizzes().Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Type != grading.FillInBlank || got.Difficulty != "medium" {
		t.Errorf("Type/Difficulty = %q/%q", got.Type, got.Difficulty)
	}
	if len(got.Answer) != 2 || got.Answer[1] != "梁启超" {
		t.Errorf("Answer = %v", got.Answer)
	}
	if len(got.Groups) != 1 || len(got.Groups[0]) != 2 {
		t.Errorf("Groups = %v", got.Groups)
	}

	missing, err := s.Quizzes().Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestGetManyPreservesOrder(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"q1", "q2", "q3"} {
		seedQuiz(t, s, id, "kp", "easy")
	}

	got, err := s.Quizzes().GetMany(context.Background(), []string{"q3", "missing", "q1"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 || got[0].ID != "q3" || got[1].ID != "q1" {
		ids := make([]string, len(got))
		for i, q := range got {
			ids[i] = q.ID
		}
		t.Errorf("GetMany ids = %v, want [q3 q1]", ids)
	}
}

func TestSampleFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedQuiz(t, s, "a1", "kp-a", "easy")
	seedQuiz(t, s, "a2", "kp-a", "hard")
	seedQuiz(t, s, "b1", "kp-b", "easy")

	ids, err := s.Quizzes().Sample(ctx, QuizFilter{KnowledgePointIDs: []string{"kp-a"}}, 10)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Sample len = %d, want 2", len(ids))
	}
	for _, id := range ids {
		if id != "a1" && id != "a2" {
			t.Errorf("unexpected id %q", id)
		}
	}

	ids, err = s.Quizzes().Sample(ctx, QuizFilter{Difficulty: "easy"}, 1)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(ids) != 1 || (ids[0] != "a1" && ids[0] != "b1") {
		t.Errorf("Sample(easy, 1) = %v", ids)
	}

	n, err := s.Quizzes().Count(ctx, QuizFilter{Difficulty: "easy"})
	if err != nil || n != 2 {
		t.Errorf("Count(easy) = %d, %v; want 2", n, err)
	}
}

func TestSampleHelper(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	ids := []string{"a", "b", "c", "d"}

	got := sample(rng, ids, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	seen := map[string]bool{}
	for _, id := range got {
		if seen[id] {
			t.Errorf("duplicate %q", id)
		}
		seen[id] = true
	}
	if ids[0] != "a" || ids[3] != "d" {
		t.Errorf("input mutated: %v", ids)
	}
	if got := sample(rng, ids, 0); len(got) != 0 {
		t.Errorf("sample(0) = %v", got)
	}
}

func TestWrongIDsAndUnattempted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"q1", "q2", "q3", "q4"} {
		seedQuiz(t, s, id, "kp", "medium")
	}

	older := testEpoch.Add(time.Hour)
	newer := testEpoch.Add(2 * time.Hour)
	seedSession(t, s, "u1", StatusCompleted, &older, map[string]*bool{"q1": boolp(false)})
	seedSession(t, s, "u1", StatusCompleted, &newer, map[string]*bool{"q2": boolp(false), "q3": boolp(true)})
	seedSession(t, s, "u1", StatusInProgress, nil, map[string]*bool{"q4": nil})
	seedSession(t, s, "u2", StatusCompleted, &newer, map[string]*bool{"q4": boolp(false)})

	got, err := s.Quizzes().WrongIDs(ctx, "u1", QuizFilter{}, 10)
	if err != nil {
		t.Fatalf("WrongIDs: %v", err)
	}
	if len(got) != 2 || got[0] != "q2" || got[1] != "q1" {
		t.Errorf("WrongIDs = %v, want [q2 q1]", got)
	}

	got, err = s.Quizzes().WrongIDs(ctx, "u1", QuizFilter{}, 1)
	if err != nil {
		t.Fatalf("WrongIDs: %v", err)
	}
	if len(got) != 1 || got[0] != "q2" {
		t.Errorf("WrongIDs(recent=1) = %v, want [q2]", got)
	}

	fresh, err := s.Quizzes().Unattempted(ctx, "u1", QuizFilter{}, 10)
	if err != nil {
		t.Fatalf("Unattempted: %v", err)
	}
	if len(fresh) != 1 || fresh[0] != "q4" {
		t.Errorf("Unattempted = %v, want [q4]", fresh)
	}
}

func TestFilteredSelections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedQuiz(t, s, "g1", "kp-geo", "easy")
	seedQuiz(t, s, "g2", "kp-geo", "hard")
	seedQuiz(t, s, "g3", "kp-geo", "easy")
	seedQuiz(t, s, "h1", "kp-his", "easy")
	seedQuiz(t, s, "h2", "kp-his", "hard")
	blank := &Quiz{
		ID:               "f1",
		Type:             grading.FillInBlank,
		Question:         "The capital of France is ___",
		Answer:           []string{"Paris"},
		KnowledgePointID: "kp-geo",
		Difficulty:       "easy",
	}
	if err := s.Quizzes().Create(ctx, blank); err != nil {
		t.Fatalf("create quiz f1: %v", err)
	}

	done := testEpoch.Add(time.Hour)
	seedSession(t, s, "u1", StatusCompleted, &done, map[string]*bool{
		"f1": boolp(false), "g1": boolp(false), "g2": boolp(false), "h1": boolp(false),
	})

	geo := []string{"kp-geo"}
	tests := []struct {
		name   string
		query  string
		filter QuizFilter
		want   []string
	}{
		{"wrong, no filter", "wrong", QuizFilter{}, []string{"f1", "g1", "g2", "h1"}},
		{"wrong, knowledge point", "wrong", QuizFilter{KnowledgePointIDs: geo}, []string{"f1", "g1", "g2"}},
		{"wrong, difficulty", "wrong", QuizFilter{Difficulty: "easy"}, []string{"f1", "g1", "h1"}},
		{"wrong, type", "wrong", QuizFilter{Type: grading.FillInBlank}, []string{"f1"}},
		{"wrong, combined", "wrong", QuizFilter{KnowledgePointIDs: geo, Difficulty: "hard"}, []string{"g2"}},
		{"unattempted, no filter", "fresh", QuizFilter{}, []string{"g3", "h2"}},
		{"unattempted, knowledge point", "fresh", QuizFilter{KnowledgePointIDs: geo}, []string{"g3"}},
		{"unattempted, difficulty", "fresh", QuizFilter{Difficulty: "hard"}, []string{"h2"}},
		{"unattempted, type", "fresh", QuizFilter{Type: grading.FillInBlank}, nil},
		{"sample, knowledge point and difficulty", "sample", QuizFilter{KnowledgePointIDs: []string{"kp-his"}, Difficulty: "easy"}, []string{"h1"}},
		{"sample, type", "sample", QuizFilter{Type: grading.FillInBlank}, []string{"f1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got []string
				err error
			)
			switch tt.query {
			case "wrong":
				got, err = s.Quizzes().WrongIDs(ctx, "u1", tt.filter, 10)
			case "fresh":
				got, err = s.Quizzes().Unattempted(ctx, "u1", tt.filter, 10)
				slices.Sort(got)
			case "sample":
				got, err = s.Quizzes().Sample(ctx, tt.filter, 10)
				slices.Sort(got)
			}
			if err != nil {
				t.Fatalf("%s: %v", tt.query, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("%s(%+v) = %v, want %v", tt.query, tt.filter, got, tt.want)
			}
		})
	}
}

func TestSessionCountersAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedQuiz(t, s, "q1", "kp-a", "easy")
	seedQuiz(t, s, "q2", "kp-a", "hard")
	seedQuiz(t, s, "q3", "kp-b", "easy")

	sess := seedSession(t, s, "u1", StatusInProgress, nil,
		map[string]*bool{"q1": boolp(true), "q2": boolp(false), "q3": nil})

	questions, err := s.Sessions().Questions(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(questions) != 3 || questions[0].Number != 1 || questions[2].QuizID != "q3" {
		t.Fatalf("unexpected questions: %+v", questions)
	}

	q3 := questions[2]
	q3.IsSkipped = true
	if err := s.Sessions().UpdateQuestion(ctx, q3); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}

	counts, err := s.Sessions().QuestionCounts(ctx, sess.ID)
	if err != nil {
		t.Fatalf("QuestionCounts: %v", err)
	}
	want := QuestionCounts{Answered: 2, Correct: 1, Incorrect: 1, Skipped: 1}
	if counts != want {
		t.Errorf("QuestionCounts = %+v, want %+v", counts, want)
	}

	kpStats, err := s.Sessions().KnowledgePointStats(ctx, "u1")
	if err != nil {
		t.Fatalf("KnowledgePointStats: %v", err)
	}
	if len(kpStats) != 1 || kpStats[0].Key != "kp-a" || kpStats[0].Total != 2 || kpStats[0].Correct != 1 {
		t.Errorf("KnowledgePointStats = %+v", kpStats)
	}

	diffStats, err := s.Sessions().DifficultyStats(ctx, "u1")
	if err != nil {
		t.Fatalf("DifficultyStats: %v", err)
	}
	if len(diffStats) != 2 {
		t.Errorf("DifficultyStats len = %d, want 2", len(diffStats))
	}
}

func TestSessionUpdateAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedQuiz(t, s, "q1", "kp", "easy")

	first := seedSession(t, s, "u1", StatusInProgress, nil, map[string]*bool{"q1": nil})
	second := seedSession(t, s, "u1", StatusInProgress, nil, map[string]*bool{"q1": nil})

	idx := 0
	first.Status = StatusPaused
	first.LastQuestionIndex = &idx
	first.Score = 33.33
	if err := s.Sessions().Update(ctx, first); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Sessions().Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusPaused || got.LastQuestionIndex == nil || *got.LastQuestionIndex != 0 || got.Score != 33.33 {
		t.Errorf("updated session = %+v", got)
	}

	list, err := s.Sessions().List(ctx, "u1", SessionFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("List should be newest first")
	}

	paused, err := s.Sessions().Count(ctx, "u1", SessionFilter{Status: StatusPaused})
	if err != nil || paused != 1 {
		t.Errorf("Count(paused) = %d, %v; want 1", paused, err)
	}

	totals, err := s.Sessions().Totals(ctx, "u1")
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Sessions != 2 || totals.Completed != 0 {
		t.Errorf("Totals = %+v", totals)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Quizzes().Create(ctx, &Quiz{ID: "tx1", Type: grading.Subjective, Question: "q"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	q, err := s.Quizzes().Get(ctx, "tx1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if q != nil {
		t.Error("quiz should not exist after rollback")
	}
}

func TestMistakeListOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"q1", "q2", "q3", "q4"} {
		seedQuiz(t, s, id, "kp-"+id, "medium")
	}

	day := 24 * time.Hour
	d1 := testEpoch.Add(day)
	d3 := testEpoch.Add(3 * day)
	mistakes := []*Mistake{
		{QuizID: "q1", MistakeCount: 1, NextReviewDate: &d3},
		{QuizID: "q2", MistakeCount: 1, NextReviewDate: &d1},
		{QuizID: "q3", MistakeCount: 4, NextReviewDate: &d1},
		{QuizID: "q4", MistakeCount: 2, CorrectionCount: 3, IsCorrected: true},
	}
	for _, m := range mistakes {
		m.UserID = "u1"
		m.LastAttemptedAt = testEpoch
		m.CreatedAt = testEpoch
		m.UpdatedAt = testEpoch
		if err := s.Mistakes().Create(ctx, m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	ids := func(ms []*Mistake) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.QuizID
		}
		return out
	}
	equal := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	tests := []struct {
		name   string
		filter MistakeFilter
		want   []string
	}{
		{"outstanding", MistakeFilter{}, []string{"q3", "q2", "q1"}},
		{"include corrected", MistakeFilter{IncludeCorrected: true}, []string{"q3", "q2", "q1", "q4"}},
		{"due", MistakeFilter{DueBefore: &d1}, []string{"q3", "q2"}},
		{"knowledge point", MistakeFilter{KnowledgePointIDs: []string{"kp-q1"}}, []string{"q1"}},
		{"limit", MistakeFilter{Limit: 1}, []string{"q3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Mistakes().List(ctx, "u1", tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !equal(ids(got), tt.want) {
				t.Errorf("List = %v, want %v", ids(got), tt.want)
			}
			for _, m := range got {
				if m.KnowledgePointID != "kp-"+m.QuizID {
					t.Errorf("%s KnowledgePointID = %q", m.QuizID, m.KnowledgePointID)
				}
			}
		})
	}

	corrected, remaining, err := s.Mistakes().Counts(ctx, "u1")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if corrected != 1 || remaining != 3 {
		t.Errorf("Counts = %d/%d, want 1/3", corrected, remaining)
	}
}

func TestWeaknessUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Weaknesses()

	w := &Weakness{UserID: "u1", KnowledgePointID: "kp", AccuracyRate: 40, PracticeCount: 5, CorrectCount: 2, IsWeak: true}
	if err := repo.Upsert(ctx, w); err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	w.AccuracyRate = 80
	w.IsWeak = false
	w.ImprovementTrend = 40
	if err := repo.Upsert(ctx, w); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err := repo.Get(ctx, "u1", "kp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccuracyRate != 80 || got.IsWeak || got.ImprovementTrend != 40 {
		t.Errorf("weakness = %+v", got)
	}

	weak, err := repo.List(ctx, "u1", WeaknessFilter{WeakOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(weak) != 0 {
		t.Errorf("weak list = %d entries, want 0", len(weak))
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Events()

	for _, purpose := range []string{"answer-reevaluation", "other", "answer-reevaluation"} {
		err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Provider: "mock", Model: "m", Purpose: purpose, InputTokens: 10, OutputTokens: 5,
			Success: true, RequestBody: "{}", ResponseBody: `{"acceptable":true}`,
		})
		if err != nil {
			t.Fatalf("AppendLLMRequest: %v", err)
		}
	}

	events, err := repo.QueryLLMEvents(ctx, 10, "answer-reevaluation")
	if err != nil {
		t.Fatalf("QueryLLMEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].ID < events[1].ID {
		t.Error("events should be newest first")
	}

	e, err := repo.GetLLMEvent(ctx, events[0].ID)
	if err != nil {
		t.Fatalf("GetLLMEvent: %v", err)
	}
	if e == nil || !e.Success || e.ResponseBody != `{"acceptable":true}` {
		t.Errorf("GetLLMEvent = %+v", e)
	}
}

func TestSplitStatements(t *testing.T) {
	in := "-- comment\nCREATE TABLE a (\n  x INT\n);\n\nCREATE INDEX i ON a(x);\n"
	got := splitStatements(in)
	if len(got) != 2 {
		t.Fatalf("statements = %d, want 2: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX i ON a(x)" {
		t.Errorf("second statement = %q", got[1])
	}
}
