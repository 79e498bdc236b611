package strategy

import (
	"context"
	"fmt"
	"slices"

	"github.com/abhisek/quizdrill/internal/mistakes"
	"github.com/abhisek/quizdrill/internal/session"
	"github.com/abhisek/quizdrill/internal/store"
)

// GenerateRequest asks for a session composition.
type GenerateRequest struct {
	StrategyCode      Code
	KnowledgePointIDs []string
	QuestionCount     int
	TimeLimitMinutes  *int
}

// Plan is a generated session composition.
type Plan struct {
	// StrategyCode is the strategy actually used, after any fallback.
	StrategyCode Code
	QuizIDs      []string
	Metadata     Metadata
}

// Metadata describes a plan.
type Metadata struct {
	TotalQuestions   int
	EstimatedSeconds int

	// Distribution counts planned questions per knowledge point.
	Distribution map[string]int

	// FallbackFrom is set when the requested strategy had no data and
	// quick practice was used instead.
	FallbackFrom Code

	WeakQuestions    int
	OtherQuestions   int
	MistakeQuestions int
	SimilarQuestions int
}

// Generate composes a session for the requested strategy. Weakness and
// mistake strategies fall back to quick practice when the user has no
// matching history.
func (e *Engine) Generate(ctx context.Context, userID string, req GenerateRequest) (*Plan, error) {
	if req.QuestionCount == 0 {
		req.QuestionCount = session.DefaultQuestionCount
	}
	if req.QuestionCount < 1 || req.QuestionCount > session.MaxQuestionCount {
		return nil, fmt.Errorf("%w: question count must be between 1 and %d, got %d",
			session.ErrValidation, session.MaxQuestionCount, req.QuestionCount)
	}

	var (
		plan *Plan
		err  error
	)
	switch req.StrategyCode {
	case QuickPractice:
		plan, err = e.quick(ctx, req)
	case WeaknessReinforcement:
		plan, err = e.weaknessPlan(ctx, userID, req)
	case MistakeReinforcement:
		plan, err = e.mistakePlan(ctx, userID, req)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", session.ErrValidation, req.StrategyCode)
	}
	if err != nil {
		return nil, err
	}
	if len(plan.QuizIDs) == 0 {
		return nil, fmt.Errorf("%w: no questions for these knowledge points", session.ErrEmptySelection)
	}

	plan.Metadata.TotalQuestions = len(plan.QuizIDs)
	plan.Metadata.EstimatedSeconds = len(plan.QuizIDs) * secondsPerQuestion
	if req.TimeLimitMinutes != nil {
		plan.Metadata.EstimatedSeconds = *req.TimeLimitMinutes * 60
	}

	kps, err := e.questions.KnowledgePointsOf(ctx, plan.QuizIDs)
	if err != nil {
		return nil, err
	}
	plan.Metadata.Distribution = make(map[string]int)
	for _, id := range plan.QuizIDs {
		plan.Metadata.Distribution[kps[id]]++
	}
	return plan, nil
}

func (e *Engine) quick(ctx context.Context, req GenerateRequest) (*Plan, error) {
	ids, err := e.questions.Sample(ctx, store.QuizFilter{KnowledgePointIDs: req.KnowledgePointIDs}, req.QuestionCount)
	if err != nil {
		return nil, err
	}
	return &Plan{StrategyCode: QuickPractice, QuizIDs: ids}, nil
}

func (e *Engine) fallback(ctx context.Context, from Code, userID string, req GenerateRequest) (*Plan, error) {
	e.logger.Info("strategy fallback", "user", userID, "from", string(from), "to", string(QuickPractice))
	plan, err := e.quick(ctx, req)
	if err != nil {
		return nil, err
	}
	plan.Metadata.FallbackFrom = from
	return plan, nil
}

// weaknessPlan draws 70% of the session from weak knowledge points and the
// rest from the requested ones.
func (e *Engine) weaknessPlan(ctx context.Context, userID string, req GenerateRequest) (*Plan, error) {
	weak, err := e.store.Weaknesses().List(ctx, userID, store.WeaknessFilter{
		KnowledgePointIDs: req.KnowledgePointIDs,
		WeakOnly:          true,
	})
	if err != nil {
		return nil, err
	}
	if len(weak) == 0 {
		return e.fallback(ctx, WeaknessReinforcement, userID, req)
	}

	n := req.QuestionCount
	weakKPs := make([]string, len(weak))
	for i, w := range weak {
		weakKPs[i] = w.KnowledgePointID
	}
	weakIDs, err := e.questions.Sample(ctx, store.QuizFilter{KnowledgePointIDs: weakKPs}, int(float64(n)*weakShare))
	if err != nil {
		return nil, err
	}

	rest, err := e.questions.Sample(ctx, store.QuizFilter{KnowledgePointIDs: req.KnowledgePointIDs}, n)
	if err != nil {
		return nil, err
	}
	ids := fill(weakIDs, rest, n)

	return &Plan{
		StrategyCode: WeaknessReinforcement,
		QuizIDs:      session.Shuffle(e.rng, ids),
		Metadata: Metadata{
			WeakQuestions:  len(weakIDs),
			OtherQuestions: len(ids) - len(weakIDs),
		},
	}, nil
}

// mistakePlan repeats 20% of the outstanding mistakes verbatim and fills
// the rest with questions from the knowledge points of the mistakes.
func (e *Engine) mistakePlan(ctx context.Context, userID string, req GenerateRequest) (*Plan, error) {
	list, err := e.mistakes.List(ctx, userID, mistakes.ListFilter{KnowledgePointIDs: req.KnowledgePointIDs})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return e.fallback(ctx, MistakeReinforcement, userID, req)
	}

	n := req.QuestionCount
	mistaken := make([]string, len(list))
	for i, m := range list {
		mistaken[i] = m.QuizID
	}

	exact := slices.Clone(mistaken[:min(int(float64(n)*exactShare), len(mistaken))])
	similar := min(n-len(exact), len(mistaken))

	kpByQuiz, err := e.questions.KnowledgePointsOf(ctx, mistaken[:similar])
	if err != nil {
		return nil, err
	}
	var kps []string
	for _, id := range mistaken[:similar] {
		if kp, ok := kpByQuiz[id]; ok && !slices.Contains(kps, kp) {
			kps = append(kps, kp)
		}
	}

	var pool []string
	if len(kps) > 0 && similar > 0 {
		// Over-sample so removing the exact repeats still leaves enough.
		pool, err = e.questions.Sample(ctx, store.QuizFilter{KnowledgePointIDs: kps}, similar+len(exact))
		if err != nil {
			return nil, err
		}
	}
	ids := fill(exact, pool, len(exact)+similar)

	return &Plan{
		StrategyCode: MistakeReinforcement,
		QuizIDs:      session.Shuffle(e.rng, ids),
		Metadata: Metadata{
			MistakeQuestions: len(exact),
			SimilarQuestions: len(ids) - len(exact),
		},
	}, nil
}

// fill appends ids from more to base, skipping duplicates, until base has n
// entries or more is exhausted.
func fill(base, more []string, n int) []string {
	out := slices.Clone(base)
	for _, id := range more {
		if len(out) >= n {
			break
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// SessionOptions are the session settings that are not part of the plan.
type SessionOptions struct {
	ShuffleOptions bool
}

// CreateSession generates a plan and starts a session with exactly the
// planned questions.
func (e *Engine) CreateSession(ctx context.Context, userID string, req GenerateRequest, opts SessionOptions) (*Plan, *session.CreateResult, error) {
	plan, err := e.Generate(ctx, userID, req)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.sessions.Create(ctx, userID, session.CreateRequest{
		KnowledgePointIDs: req.KnowledgePointIDs,
		QuestionCount:     len(plan.QuizIDs),
		TimeLimitMinutes:  req.TimeLimitMinutes,
		ShuffleOptions:    opts.ShuffleOptions,
		Strategy:          string(plan.StrategyCode),
		QuizIDs:           plan.QuizIDs,
	})
	if err != nil {
		return nil, nil, err
	}
	return plan, res, nil
}
