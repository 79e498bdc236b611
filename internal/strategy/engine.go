package strategy

import (
	"context"
	"log/slog"

	"github.com/abhisek/quizdrill/internal/mistakes"
	"github.com/abhisek/quizdrill/internal/session"
	"github.com/abhisek/quizdrill/internal/store"
)

// SessionCreator is the part of session.Manager the engine needs.
type SessionCreator interface {
	Create(ctx context.Context, userID string, req session.CreateRequest) (*session.CreateResult, error)
}

// Engine picks strategies and turns them into session compositions.
type Engine struct {
	store     *store.Store
	sessions  SessionCreator
	questions session.QuestionProvider
	mistakes  *mistakes.Scheduler
	weakness  *WeaknessTracker
	rng       store.Rand
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithWeaknessTracker shares a tracker with the session manager.
func WithWeaknessTracker(t *WeaknessTracker) Option {
	return func(e *Engine) { e.weakness = t }
}

// NewEngine creates a strategy engine that creates sessions through mgr and
// shares its question source, mistake scheduler and random source.
func NewEngine(st *store.Store, mgr *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		sessions:  mgr,
		questions: mgr.Questions(),
		mistakes:  mgr.Mistakes(),
		rng:       mgr.Rand(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.weakness == nil {
		e.weakness = NewWeaknessTracker(st)
	}
	return e
}

// Available returns the strategies the user qualifies for. An empty userID
// returns every definition.
func (e *Engine) Available(ctx context.Context, userID string) ([]Definition, error) {
	if userID == "" {
		return Definitions(), nil
	}

	practiced, err := e.store.Sessions().Count(ctx, userID, store.SessionFilter{})
	if err != nil {
		return nil, err
	}
	outstanding, err := e.mistakes.OutstandingCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []Definition
	for _, d := range definitions {
		if d.RequiredHistory {
			if practiced < d.MinimumPracticeCount || outstanding < d.MinimumMistakeCount {
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// RefreshWeaknesses recomputes the user's per-knowledge-point accuracy.
func (e *Engine) RefreshWeaknesses(ctx context.Context, userID string) error {
	return e.weakness.RefreshWeaknesses(ctx, userID)
}
