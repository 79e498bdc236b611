// Package mistakes keeps the per-user mistake notebook and schedules
// wrong answers for review.
package mistakes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/quizdrill/internal/store"
)

// Scheduler records mistakes and corrections against a MistakeRepo.
type Scheduler struct {
	repo   store.MistakeRepo
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a scheduler over repo.
func NewScheduler(repo store.MistakeRepo, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// In returns a copy of the scheduler that reads and writes through repo,
// typically the transaction-bound repo from store.Tx.
func (s *Scheduler) In(repo store.MistakeRepo) *Scheduler {
	c := *s
	c.repo = repo
	return &c
}

// MistakeInput describes one wrong answer.
type MistakeInput struct {
	UserID    string
	QuizID    string
	SessionID string
	Incorrect string
	Correct   string
}

// RecordMistake creates the (user, quiz) record or, if it exists, counts
// another mistake and restarts its review cycle.
func (s *Scheduler) RecordMistake(ctx context.Context, in MistakeInput) (*store.Mistake, error) {
	now := s.now().UTC()

	m, err := s.repo.Get(ctx, in.UserID, in.QuizID)
	if err != nil {
		return nil, err
	}

	review := nextReview(now, 0)
	if m == nil {
		m = &store.Mistake{
			UserID:          in.UserID,
			QuizID:          in.QuizID,
			SessionID:       in.SessionID,
			IncorrectAnswer: in.Incorrect,
			CorrectAnswer:   in.Correct,
			MistakeCount:    1,
			NextReviewDate:  &review,
			LastAttemptedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Create(ctx, m); err != nil {
			return nil, fmt.Errorf("record mistake: %w", err)
		}
		return m, nil
	}

	m.SessionID = in.SessionID
	m.IncorrectAnswer = in.Incorrect
	m.CorrectAnswer = in.Correct
	m.MistakeCount++
	m.CorrectionCount = 0
	m.IsCorrected = false
	m.NextReviewDate = &review
	m.LastAttemptedAt = now
	m.UpdatedAt = now
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("record mistake: %w", err)
	}
	return m, nil
}

// RecordCorrection counts a correct review of a previously missed quiz.
// It returns (nil, nil) when the user has no record for the quiz.
func (s *Scheduler) RecordCorrection(ctx context.Context, userID, quizID string) (*store.Mistake, error) {
	m, err := s.repo.Get(ctx, userID, quizID)
	if err != nil || m == nil {
		return nil, err
	}

	now := s.now().UTC()
	m.CorrectionCount++
	m.LastAttemptedAt = now
	m.UpdatedAt = now
	if m.CorrectionCount >= GraduationThreshold {
		m.IsCorrected = true
		m.NextReviewDate = nil
	} else {
		review := nextReview(now, m.CorrectionCount)
		m.NextReviewDate = &review
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("record correction: %w", err)
	}
	if m.IsCorrected {
		s.logger.Debug("mistake corrected", "user", userID, "quiz", quizID)
	}
	return m, nil
}

// WithdrawMistake takes back one mistake recorded for a wrong answer that was
// later accepted. A record holding only that mistake is removed. Older
// mistakes on the same quiz keep the record and its review schedule. It is a
// no-op when the user has no record for the quiz.
func (s *Scheduler) WithdrawMistake(ctx context.Context, userID, quizID string) error {
	m, err := s.repo.Get(ctx, userID, quizID)
	if err != nil || m == nil {
		return err
	}

	if m.MistakeCount <= 1 {
		if err := s.repo.Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("withdraw mistake: %w", err)
		}
		s.logger.Debug("mistake withdrawn", "user", userID, "quiz", quizID)
		return nil
	}

	m.MistakeCount--
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return fmt.Errorf("withdraw mistake: %w", err)
	}
	return nil
}

// ListFilter narrows List.
type ListFilter struct {
	KnowledgePointIDs []string
	IncludeCorrected  bool
	Limit             int
}

// List returns the user's mistakes, soonest review first and then by
// mistake count descending.
func (s *Scheduler) List(ctx context.Context, userID string, f ListFilter) ([]*store.Mistake, error) {
	return s.repo.List(ctx, userID, store.MistakeFilter{
		KnowledgePointIDs: f.KnowledgePointIDs,
		IncludeCorrected:  f.IncludeCorrected,
		Limit:             f.Limit,
	})
}

// Due returns uncorrected mistakes whose review date has passed, most
// overdue first. A limit of 0 returns all of them.
func (s *Scheduler) Due(ctx context.Context, userID string, limit int) ([]*store.Mistake, error) {
	now := s.now().UTC()
	return s.repo.List(ctx, userID, store.MistakeFilter{
		DueBefore: &now,
		Limit:     limit,
	})
}

// OutstandingCount returns how many of the user's mistakes are not yet
// corrected.
func (s *Scheduler) OutstandingCount(ctx context.Context, userID string) (int, error) {
	_, remaining, err := s.repo.Counts(ctx, userID)
	return remaining, err
}

// Counts returns corrected and remaining totals.
func (s *Scheduler) Counts(ctx context.Context, userID string) (corrected, remaining int, err error) {
	return s.repo.Counts(ctx, userID)
}
