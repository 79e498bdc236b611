package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/abhisek/quizdrill/internal/store"
)

// WeaknessTracker maintains the per-knowledge-point weakness records. It
// satisfies session.WeaknessRefresher.
type WeaknessTracker struct {
	store *store.Store
}

// NewWeaknessTracker creates a tracker over st.
func NewWeaknessTracker(st *store.Store) *WeaknessTracker {
	return &WeaknessTracker{store: st}
}

// RefreshWeaknesses recomputes accuracy for every knowledge point the user
// has answered and records the change since the previous refresh.
func (w *WeaknessTracker) RefreshWeaknesses(ctx context.Context, userID string) error {
	err := w.store.WithTx(ctx, func(tx *store.Tx) error {
		stats, err := tx.Sessions().KnowledgePointStats(ctx, userID)
		if err != nil {
			return err
		}
		repo := tx.Weaknesses()
		for _, st := range stats {
			if st.Total == 0 {
				continue
			}
			acc := round2(float64(st.Correct) / float64(st.Total) * 100)

			prev, err := repo.Get(ctx, userID, st.Key)
			if err != nil {
				return err
			}
			var trend float64
			if prev != nil {
				trend = round2(acc - prev.AccuracyRate)
			}

			err = repo.Upsert(ctx, &store.Weakness{
				UserID:           userID,
				KnowledgePointID: st.Key,
				AccuracyRate:     acc,
				PracticeCount:    st.Total,
				CorrectCount:     st.Correct,
				IsWeak:           acc < weakThreshold,
				ImprovementTrend: trend,
				LastPracticedAt:  st.LastAnsweredAt,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("refresh weaknesses: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
