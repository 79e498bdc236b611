package strategy

import (
	"context"
	"fmt"
	"slices"
)

// Recommendation suggests a strategy to the user.
type Recommendation struct {
	Code     Code
	Name     string
	Reason   string
	Priority int
}

// Recommendations holds the best suggestion and the others in priority
// order.
type Recommendations struct {
	Primary      Recommendation
	Alternatives []Recommendation
}

// Recommend ranks the strategies for the user. Quick practice is always
// offered.
func (e *Engine) Recommend(ctx context.Context, userID string) (*Recommendations, error) {
	weak, err := e.store.Weaknesses().List(ctx, userID, weakOnly)
	if err != nil {
		return nil, err
	}
	outstanding, err := e.mistakes.OutstandingCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation
	if len(weak) > 0 {
		recs = append(recs, recommendation(WeaknessReinforcement, 1,
			fmt.Sprintf("%d knowledge points are below %.0f%% accuracy", len(weak), weakThreshold)))
	}
	if d, _ := Lookup(MistakeReinforcement); outstanding >= d.MinimumMistakeCount {
		priority := 2
		if len(weak) == 0 {
			priority = 1
		}
		recs = append(recs, recommendation(MistakeReinforcement, priority,
			fmt.Sprintf("%d mistakes are waiting to be corrected", outstanding)))
	}
	recs = append(recs, recommendation(QuickPractice, 3, "Keep practicing with a random mix"))

	slices.SortStableFunc(recs, func(a, b Recommendation) int { return a.Priority - b.Priority })
	return &Recommendations{Primary: recs[0], Alternatives: recs[1:]}, nil
}

func recommendation(code Code, priority int, reason string) Recommendation {
	d, _ := Lookup(code)
	return Recommendation{Code: code, Name: d.Name, Reason: reason, Priority: priority}
}
