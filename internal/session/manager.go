// Package session implements the practice session lifecycle: question
// selection, answering, pausing and completion.
package session

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/quizdrill/internal/judge"
	"github.com/abhisek/quizdrill/internal/mistakes"
	"github.com/abhisek/quizdrill/internal/store"
)

const (
	// DefaultQuestionCount is used when a request leaves the count unset.
	DefaultQuestionCount = 20

	// MaxQuestionCount bounds the size of a single session.
	MaxQuestionCount = 100

	// DefaultWrongHistory is how many recent completed sessions are searched
	// for wrong answers.
	DefaultWrongHistory = 10

	// DefaultHistoryLimit is the page size of History.
	DefaultHistoryLimit = 20
)

// QuestionProvider selects and loads questions from the bank.
// *store.QuizRepo implementations satisfy it.
type QuestionProvider interface {
	Get(ctx context.Context, id string) (*store.Quiz, error)
	GetMany(ctx context.Context, ids []string) ([]*store.Quiz, error)
	Sample(ctx context.Context, f store.QuizFilter, n int) ([]string, error)
	Unattempted(ctx context.Context, userID string, f store.QuizFilter, n int) ([]string, error)
	WrongIDs(ctx context.Context, userID string, f store.QuizFilter, recentSessions int) ([]string, error)
	KnowledgePointsOf(ctx context.Context, ids []string) (map[string]string, error)
}

// WeaknessRefresher recomputes a user's weakness records. It is called after
// a session completes.
type WeaknessRefresher interface {
	RefreshWeaknesses(ctx context.Context, userID string) error
}

// Manager runs practice sessions against a store.
type Manager struct {
	store     *store.Store
	questions QuestionProvider
	mistakes  *mistakes.Scheduler
	judge     judge.Judge
	refresher WeaknessRefresher
	rng       store.Rand
	now       func() time.Time
	logger    *slog.Logger

	defaultCount int
	wrongHistory int
}

// Option configures a Manager.
type Option func(*Manager)

// WithJudge sets the collaborator used by Reevaluate.
func WithJudge(j judge.Judge) Option {
	return func(m *Manager) { m.judge = j }
}

// WithQuestionProvider overrides the question source. Defaults to the
// store's quiz repository.
func WithQuestionProvider(p QuestionProvider) Option {
	return func(m *Manager) { m.questions = p }
}

// WithWeaknessRefresher sets the hook run when a session completes.
func WithWeaknessRefresher(r WeaknessRefresher) Option {
	return func(m *Manager) { m.refresher = r }
}

// WithRand sets the random source for shuffling.
func WithRand(r store.Rand) Option {
	return func(m *Manager) { m.rng = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDefaultQuestionCount changes the count used when a request has none.
func WithDefaultQuestionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 && n <= MaxQuestionCount {
			m.defaultCount = n
		}
	}
}

// WithWrongHistory changes how many recent sessions feed wrong-only
// selection.
func WithWrongHistory(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.wrongHistory = n
		}
	}
}

// NewManager creates a session manager.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:        st,
		questions:    st.Quizzes(),
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:          time.Now,
		logger:       slog.Default(),
		defaultCount: DefaultQuestionCount,
		wrongHistory: DefaultWrongHistory,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.mistakes = mistakes.NewScheduler(st.Mistakes(),
		mistakes.WithClock(m.now),
		mistakes.WithLogger(m.logger))
	return m
}

// Mistakes returns the scheduler that tracks wrong answers.
func (m *Manager) Mistakes() *mistakes.Scheduler {
	return m.mistakes
}

// Questions returns the question provider.
func (m *Manager) Questions() QuestionProvider {
	return m.questions
}

// Rand returns the random source used for shuffling.
func (m *Manager) Rand() store.Rand {
	return m.rng
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

// ownedSession loads a session and checks that userID owns it. Sessions of
// other users are reported as missing.
func ownedSession(ctx context.Context, repo store.SessionRepo, sessionID, userID string) (*store.Session, error) {
	s, err := repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UserID != userID {
		return nil, notFound("session", sessionID)
	}
	return s, nil
}

// round2 rounds to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// score is the session score as a percentage of all questions.
func score(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}
