package session

import (
	"context"
	"fmt"

	"github.com/abhisek/quizdrill/internal/store"
)

// transition loads an owned session inside a transaction, lets apply mutate
// it, and writes it back.
func (m *Manager) transition(ctx context.Context, sessionID, userID string, apply func(s *store.Session) error) (*store.Session, error) {
	var out *store.Session
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		s, err := ownedSession(ctx, tx.Sessions(), sessionID, userID)
		if err != nil {
			return err
		}
		before := s.Status
		if err := apply(s); err != nil {
			return err
		}
		out = s
		if s.Status == before && before == store.StatusInProgress {
			return nil
		}
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Start moves a created session to in progress. Starting a session that is
// already in progress returns it unchanged.
func (m *Manager) Start(ctx context.Context, sessionID, userID string) (*store.Session, error) {
	return m.transition(ctx, sessionID, userID, func(s *store.Session) error {
		switch s.Status {
		case store.StatusInProgress:
			return nil
		case store.StatusCreated:
			now := m.clock()
			s.Status = store.StatusInProgress
			s.StartedAt = &now
			return nil
		default:
			return invalidState(s, "start")
		}
	})
}

// Pause suspends an in-progress session.
func (m *Manager) Pause(ctx context.Context, sessionID, userID string) (*store.Session, error) {
	return m.transition(ctx, sessionID, userID, func(s *store.Session) error {
		if s.Status != store.StatusInProgress {
			return invalidState(s, "pause")
		}
		s.Status = store.StatusPaused
		return nil
	})
}

// Abandon ends a session without completing it.
func (m *Manager) Abandon(ctx context.Context, sessionID, userID string) (*store.Session, error) {
	s, err := m.transition(ctx, sessionID, userID, func(s *store.Session) error {
		if s.Status.Terminal() {
			return invalidState(s, "abandon")
		}
		s.Status = store.StatusAbandoned
		return nil
	})
	if err == nil {
		m.logger.Info("session abandoned", "session", sessionID, "user", userID)
	}
	return s, err
}

// Complete finishes an in-progress or paused session before every question
// is answered.
func (m *Manager) Complete(ctx context.Context, sessionID, userID string) (*store.Session, error) {
	s, err := m.transition(ctx, sessionID, userID, func(s *store.Session) error {
		if s.Status != store.StatusInProgress && s.Status != store.StatusPaused {
			return invalidState(s, "complete")
		}
		now := m.clock()
		s.Status = store.StatusCompleted
		s.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.completed(ctx, s)
	return s, nil
}

// completed runs the post-completion hooks. Failures are logged only.
func (m *Manager) completed(ctx context.Context, s *store.Session) {
	m.logger.Info("session completed",
		"session", s.ID,
		"user", s.UserID,
		"score", s.Score,
		"answered", s.AnsweredQuestions,
		"total", s.TotalQuestions)

	if m.refresher == nil {
		return
	}
	if err := m.refresher.RefreshWeaknesses(ctx, s.UserID); err != nil {
		m.logger.Warn("weakness refresh failed", "user", s.UserID, "err", err)
	}
}

// Detail is a session with its questions and the answers given so far.
type Detail struct {
	Session   *store.Session
	Questions []*store.SessionQuestion

	// Answers maps question ID to the persisted answer.
	Answers map[string]string
}

// ResumeResult is everything a client needs to continue a session.
type ResumeResult struct {
	Detail
	QuizIDs      []string
	CurrentIndex int
}

// Resume continues a paused, created or in-progress session.
func (m *Manager) Resume(ctx context.Context, sessionID, userID string) (*ResumeResult, error) {
	s, err := m.transition(ctx, sessionID, userID, func(s *store.Session) error {
		if s.Status.Terminal() {
			return invalidState(s, "resume")
		}
		if s.StartedAt == nil {
			now := m.clock()
			s.StartedAt = &now
		}
		s.Status = store.StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	d, err := m.detail(ctx, s)
	if err != nil {
		return nil, err
	}
	return &ResumeResult{
		Detail:       *d,
		QuizIDs:      s.QuizIDs,
		CurrentIndex: currentIndex(s, d.Questions),
	}, nil
}

// currentIndex is the 0-based position to continue from.
func currentIndex(s *store.Session, questions []*store.SessionQuestion) int {
	if s.LastQuestionIndex != nil {
		return *s.LastQuestionIndex
	}
	done := 0
	for _, q := range questions {
		if q.Answered() || q.IsSkipped {
			done++
		}
	}
	return max(0, min(done, s.TotalQuestions-1))
}

// Get returns a session with its questions and prior answers.
func (m *Manager) Get(ctx context.Context, sessionID, userID string) (*Detail, error) {
	s, err := ownedSession(ctx, m.store.Sessions(), sessionID, userID)
	if err != nil {
		return nil, err
	}
	return m.detail(ctx, s)
}

func (m *Manager) detail(ctx context.Context, s *store.Session) (*Detail, error) {
	questions, err := m.store.Sessions().Questions(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("load session questions: %w", err)
	}
	answers := make(map[string]string)
	for _, q := range questions {
		if q.StudentAnswer != nil {
			answers[q.ID] = *q.StudentAnswer
		}
	}
	return &Detail{Session: s, Questions: questions, Answers: answers}, nil
}

// HistoryFilter narrows History.
type HistoryFilter struct {
	Status store.SessionStatus
	Limit  int
	Offset int
}

// HistoryPage is one page of a user's sessions.
type HistoryPage struct {
	Sessions []*store.Session
	Total    int
}

// History lists the user's sessions, newest first.
func (m *Manager) History(ctx context.Context, userID string, f HistoryFilter) (*HistoryPage, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrValidation)
	}
	sf := store.SessionFilter{Status: f.Status, Limit: f.Limit, Offset: f.Offset}

	sessions, err := m.store.Sessions().List(ctx, userID, sf)
	if err != nil {
		return nil, err
	}
	total, err := m.store.Sessions().Count(ctx, userID, sf)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Sessions: sessions, Total: total}, nil
}
