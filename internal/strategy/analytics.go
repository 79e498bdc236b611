package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/quizdrill/internal/session"
	"github.com/abhisek/quizdrill/internal/store"
)

var weakOnly = store.WeaknessFilter{WeakOnly: true}

// Analytics reports how a strategy has worked for a user.
type Analytics struct {
	Code          Code
	TotalSessions int
	LastUsedAt    *time.Time
	AverageScore  float64

	// Improvement is the average score of the newer half of the sessions
	// minus that of the older half.
	Improvement float64

	// Effectiveness is nil for strategies without a tracked target.
	Effectiveness *Effectiveness
}

// Effectiveness counts targets that were fixed versus still open: weak
// knowledge points for weakness reinforcement, mistakes for mistake
// reinforcement.
type Effectiveness struct {
	Improved  int
	Remaining int
}

// Analytics summarizes the user's sessions created with code.
func (e *Engine) Analytics(ctx context.Context, userID string, code Code) (*Analytics, error) {
	if _, ok := Lookup(code); !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", session.ErrValidation, code)
	}

	sessions, err := e.store.Sessions().List(ctx, userID, store.SessionFilter{Strategy: string(code)})
	if err != nil {
		return nil, err
	}

	a := &Analytics{Code: code, TotalSessions: len(sessions)}
	scores := make([]float64, len(sessions))
	for i, s := range sessions {
		scores[i] = sessionScore(s)
		if s.StartedAt != nil && (a.LastUsedAt == nil || s.StartedAt.After(*a.LastUsedAt)) {
			a.LastUsedAt = s.StartedAt
		}
	}
	a.AverageScore = round2(mean(scores))

	// Sessions are newest first.
	if half := len(scores) / 2; half > 0 {
		a.Improvement = round2(mean(scores[:half]) - mean(scores[half:]))
	}

	switch code {
	case WeaknessReinforcement:
		all, err := e.store.Weaknesses().List(ctx, userID, store.WeaknessFilter{})
		if err != nil {
			return nil, err
		}
		eff := &Effectiveness{}
		for _, w := range all {
			if w.IsWeak {
				eff.Remaining++
			} else {
				eff.Improved++
			}
		}
		a.Effectiveness = eff
	case MistakeReinforcement:
		corrected, remaining, err := e.mistakes.Counts(ctx, userID)
		if err != nil {
			return nil, err
		}
		a.Effectiveness = &Effectiveness{Improved: corrected, Remaining: remaining}
	}
	return a, nil
}

func sessionScore(s *store.Session) float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions) * 100
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
