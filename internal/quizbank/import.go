package quizbank

import (
	"context"
	"fmt"

	"github.com/abhisek/quizdrill/internal/store"
)

// Result counts what an import wrote.
type Result struct {
	KnowledgePoints int
	Created         int
	Skipped         int // entries whose ID already exists
}

// Import validates the bank and writes it in one transaction. Entries with
// an ID already in the store are left untouched.
func Import(ctx context.Context, st *store.Store, b *Bank) (*Result, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		quizzes := tx.Quizzes()
		for _, kp := range b.KnowledgePoints {
			err := quizzes.SaveKnowledgePoint(ctx, store.KnowledgePoint{ID: kp.ID, Name: kp.Name, Subject: kp.Subject})
			if err != nil {
				return err
			}
			res.KnowledgePoints++
		}
		for _, e := range b.Quizzes {
			if e.ID != "" {
				existing, err := quizzes.Get(ctx, e.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					res.Skipped++
					continue
				}
			}
			if err := quizzes.Create(ctx, e.Quiz()); err != nil {
				return fmt.Errorf("quiz %q: %w", e.ID, err)
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import quiz bank: %w", err)
	}
	return res, nil
}
