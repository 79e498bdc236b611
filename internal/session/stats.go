package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/abhisek/quizdrill/internal/store"
)

// Difficulties are the buckets reported by Statistics, in display order.
var Difficulties = []string{"easy", "medium", "hard"}

// recentSessionCount is how many sessions Statistics lists.
const recentSessionCount = 10

// Statistics summarizes a user's practice history.
type Statistics struct {
	TotalSessions     int
	CompletedSessions int
	TotalAnswered     int
	TotalCorrect      int
	TotalIncorrect    int
	TotalSkipped      int

	// AverageAccuracy is correct/answered as a percentage.
	AverageAccuracy  float64
	TotalTimeMinutes float64

	KnowledgePoints []KnowledgePointPerformance
	Difficulty      []DifficultyPerformance
	RecentSessions  []*store.Session
}

// KnowledgePointPerformance is the user's record on one knowledge point.
type KnowledgePointPerformance struct {
	ID                 string
	Name               string
	Total              int
	Correct            int
	Accuracy           float64
	AverageTimeSeconds float64
}

// DifficultyPerformance is the user's record on one difficulty level.
type DifficultyPerformance struct {
	Difficulty string
	Total      int
	Correct    int
	Accuracy   float64
}

func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}

// Statistics aggregates the user's sessions and answered questions.
func (m *Manager) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	sessions := m.store.Sessions()

	totals, err := sessions.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}
	st := &Statistics{
		TotalSessions:     totals.Sessions,
		CompletedSessions: totals.Completed,
		TotalAnswered:     totals.Answered,
		TotalCorrect:      totals.Correct,
		TotalIncorrect:    totals.Incorrect,
		TotalSkipped:      totals.Skipped,
		AverageAccuracy:   accuracy(totals.Correct, totals.Answered),
		TotalTimeMinutes:  round2(float64(totals.TimeSpentSeconds) / 60),
	}

	kpStats, err := sessions.KnowledgePointStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(kpStats))
	for i, s := range kpStats {
		ids[i] = s.Key
	}
	names, err := m.store.Quizzes().KnowledgePoints(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range kpStats {
		kp := KnowledgePointPerformance{
			ID:       s.Key,
			Name:     s.Key,
			Total:    s.Total,
			Correct:  s.Correct,
			Accuracy: accuracy(s.Correct, s.Total),
		}
		if p, ok := names[s.Key]; ok && p.Name != "" {
			kp.Name = p.Name
		}
		if s.Total > 0 {
			kp.AverageTimeSeconds = round2(float64(s.TimeSpentSeconds) / float64(s.Total))
		}
		st.KnowledgePoints = append(st.KnowledgePoints, kp)
	}
	// Weakest first.
	slices.SortStableFunc(st.KnowledgePoints, func(a, b KnowledgePointPerformance) int {
		switch {
		case a.Accuracy < b.Accuracy:
			return -1
		case a.Accuracy > b.Accuracy:
			return 1
		}
		return 0
	})

	diffStats, err := sessions.DifficultyStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, d := range Difficulties {
		dp := DifficultyPerformance{Difficulty: d}
		if i := slices.IndexFunc(diffStats, func(s store.AnswerStat) bool { return s.Key == d }); i >= 0 {
			dp.Total = diffStats[i].Total
			dp.Correct = diffStats[i].Correct
			dp.Accuracy = accuracy(dp.Correct, dp.Total)
		}
		st.Difficulty = append(st.Difficulty, dp)
	}

	st.RecentSessions, err = sessions.List(ctx, userID, store.SessionFilter{Limit: recentSessionCount})
	if err != nil {
		return nil, err
	}
	return st, nil
}
