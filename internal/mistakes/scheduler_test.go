package mistakes

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/store"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(days int) { c.now = c.now.AddDate(0, 0, days) }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedQuiz(t *testing.T, s *store.Store, id, kp string) {
	t.Helper()
	err := s.Quizzes().Create(context.Background(), &store.Quiz{
		ID:               id,
		Type:             grading.SingleChoice,
		Question:         "Q " + id,
		Options:          []string{"a", "b"},
		Answer:           []string{"a"},
		KnowledgePointID: kp,
		Difficulty:       "easy",
	})
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *clock, *store.Store) {
	t.Helper()
	s := openStore(t)
	seedQuiz(t, s, "q1", "kp-a")
	seedQuiz(t, s, "q2", "kp-b")
	c := &clock{now: t0}
	return NewScheduler(s.Mistakes(), WithClock(c.Now)), c, s
}

func TestIntervalDays(t *testing.T) {
	tests := []struct {
		corrections int
		want        int
	}{
		{-1, 1},
		{0, 1},
		{1, 3},
		{2, 7},
		{4, 30},
		{9, 30},
	}
	for _, tt := range tests {
		if got := IntervalDays(tt.corrections); got != tt.want {
			t.Errorf("IntervalDays(%d) = %d, want %d", tt.corrections, got, tt.want)
		}
	}
}

func TestRecordMistake_New(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	ctx := context.Background()

	m, err := sched.RecordMistake(ctx, MistakeInput{
		UserID: "u1", QuizID: "q1", SessionID: "s1", Incorrect: "1", Correct: "0",
	})
	if err != nil {
		t.Fatalf("RecordMistake: %v", err)
	}
	if m.MistakeCount != 1 || m.CorrectionCount != 0 || m.IsCorrected {
		t.Errorf("record = %+v, want count 1, 0 corrections, not corrected", m)
	}
	if want := t0.AddDate(0, 0, 1); m.NextReviewDate == nil || !m.NextReviewDate.Equal(want) {
		t.Errorf("next review = %v, want %v", m.NextReviewDate, want)
	}
}

func TestRecordMistake_RepeatResetsCycle(t *testing.T) {
	sched, c, s := newTestScheduler(t)
	ctx := context.Background()
	in := MistakeInput{UserID: "u1", QuizID: "q1", SessionID: "s1", Incorrect: "1", Correct: "0"}

	if _, err := sched.RecordMistake(ctx, in); err != nil {
		t.Fatal(err)
	}
	c.advance(1)
	if _, err := sched.RecordCorrection(ctx, "u1", "q1"); err != nil {
		t.Fatal(err)
	}
	c.advance(3)
	in.SessionID = "s2"
	m, err := sched.RecordMistake(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Mistakes().Get(ctx, "u1", "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != m.ID {
		t.Errorf("id = %s, want the existing record %s", got.ID, m.ID)
	}
	if got.MistakeCount != 2 {
		t.Errorf("mistake count = %d, want 2", got.MistakeCount)
	}
	if got.CorrectionCount != 0 || got.IsCorrected {
		t.Errorf("corrections = %d corrected = %v, want reset", got.CorrectionCount, got.IsCorrected)
	}
	if got.SessionID != "s2" {
		t.Errorf("session = %s, want s2", got.SessionID)
	}
	if want := c.now.AddDate(0, 0, 1); !got.NextReviewDate.Equal(want) {
		t.Errorf("next review = %v, want %v", got.NextReviewDate, want)
	}
}

func TestRecordCorrection_Graduates(t *testing.T) {
	sched, c, _ := newTestScheduler(t)
	ctx := context.Background()

	if _, err := sched.RecordMistake(ctx, MistakeInput{UserID: "u1", QuizID: "q1"}); err != nil {
		t.Fatal(err)
	}

	wantDays := []int{3, 7}
	for i, days := range wantDays {
		c.advance(1)
		m, err := sched.RecordCorrection(ctx, "u1", "q1")
		if err != nil {
			t.Fatal(err)
		}
		if m.CorrectionCount != i+1 {
			t.Errorf("correction %d: count = %d", i+1, m.CorrectionCount)
		}
		if want := c.now.AddDate(0, 0, days); m.NextReviewDate == nil || !m.NextReviewDate.Equal(want) {
			t.Errorf("correction %d: next review = %v, want %v", i+1, m.NextReviewDate, want)
		}
	}

	m, err := sched.RecordCorrection(ctx, "u1", "q1")
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsCorrected {
		t.Error("expected corrected after 3 corrections")
	}
	if m.NextReviewDate != nil {
		t.Errorf("next review = %v, want nil", m.NextReviewDate)
	}

	n, err := sched.OutstandingCount(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("outstanding = %d, want 0", n)
	}
}

func TestRecordCorrection_NoRecord(t *testing.T) {
	sched, _, _ := newTestScheduler(t)

	m, err := sched.RecordCorrection(context.Background(), "u1", "q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("record = %+v, want nil", m)
	}
}

func TestDueAndList(t *testing.T) {
	sched, c, _ := newTestScheduler(t)
	ctx := context.Background()

	if _, err := sched.RecordMistake(ctx, MistakeInput{UserID: "u1", QuizID: "q1"}); err != nil {
		t.Fatal(err)
	}
	c.advance(1)
	if _, err := sched.RecordMistake(ctx, MistakeInput{UserID: "u1", QuizID: "q2"}); err != nil {
		t.Fatal(err)
	}

	// q1 is due now, q2 tomorrow.
	due, err := sched.Due(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].QuizID != "q1" {
		t.Fatalf("due = %v, want [q1]", quizIDs(due))
	}

	c.advance(1)
	due, err = sched.Due(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := quizIDs(due); len(got) != 2 || got[0] != "q1" || got[1] != "q2" {
		t.Errorf("due = %v, want [q1 q2]", got)
	}

	list, err := sched.List(ctx, "u1", ListFilter{KnowledgePointIDs: []string{"kp-b"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].KnowledgePointID != "kp-b" {
		t.Errorf("filtered list = %v, want [q2]", quizIDs(list))
	}

	n, err := sched.OutstandingCount(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("outstanding = %d, want 2", n)
	}
}

func TestInUsesTransactionRepo(t *testing.T) {
	sched, _, s := newTestScheduler(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		_, err := sched.In(tx.Mistakes()).RecordMistake(ctx, MistakeInput{UserID: "u1", QuizID: "q1"})
		if err != nil {
			return err
		}
		return context.Canceled
	})
	if err != context.Canceled {
		t.Fatalf("WithTx err = %v", err)
	}

	m, err := s.Mistakes().Get(ctx, "u1", "q1")
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Error("expected the rolled back mistake to be gone")
	}
}

func quizIDs(ms []*store.Mistake) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.QuizID
	}
	return ids
}

func TestWithdrawMistake(t *testing.T) {
	sched, c, s := newTestScheduler(t)
	ctx := context.Background()
	in := MistakeInput{UserID: "u1", QuizID: "q1", SessionID: "s1", Incorrect: "1", Correct: "0"}

	if _, err := sched.RecordMistake(ctx, in); err != nil {
		t.Fatal(err)
	}
	c.advance(2)
	in.SessionID = "s2"
	if _, err := sched.RecordMistake(ctx, in); err != nil {
		t.Fatal(err)
	}

	if err := sched.WithdrawMistake(ctx, "u1", "q1"); err != nil {
		t.Fatalf("WithdrawMistake: %v", err)
	}
	got, err := s.Mistakes().Get(ctx, "u1", "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.MistakeCount != 1 {
		t.Fatalf("record = %+v, want one remaining mistake", got)
	}

	if err := sched.WithdrawMistake(ctx, "u1", "q1"); err != nil {
		t.Fatalf("WithdrawMistake: %v", err)
	}
	if got, err = s.Mistakes().Get(ctx, "u1", "q1"); err != nil || got != nil {
		t.Errorf("record = %+v, %v, want it removed", got, err)
	}
	if n, err := sched.OutstandingCount(ctx, "u1"); err != nil || n != 0 {
		t.Errorf("OutstandingCount = %d, %v, want 0", n, err)
	}

	if err := sched.WithdrawMistake(ctx, "u1", "missing"); err != nil {
		t.Errorf("withdrawing without a record: %v", err)
	}
}
