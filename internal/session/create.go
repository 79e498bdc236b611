package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/store"
)

// Mix controls which questions a session draws from.
type Mix string

const (
	// MixRandom samples uniformly from the bank.
	MixRandom Mix = ""

	// MixNewOnly draws questions the user has never answered.
	MixNewOnly Mix = "new-only"

	// MixWrongOnly draws questions answered wrong in recent sessions.
	MixWrongOnly Mix = "wrong-only"

	// MixWithWrong fills up to half the session with recent wrong answers
	// and the rest at random.
	MixWithWrong Mix = "with-wrong"
)

// Valid reports whether x is a known mix.
func (x Mix) Valid() bool {
	switch x {
	case MixRandom, MixNewOnly, MixWrongOnly, MixWithWrong:
		return true
	}
	return false
}

// CreateRequest describes a new session.
type CreateRequest struct {
	KnowledgePointIDs []string
	QuestionCount     int
	Mix               Mix
	Difficulty        string
	Type              grading.QuestionType
	TimeLimitMinutes  *int
	ShuffleQuestions  bool
	ShuffleOptions    bool

	// Strategy records the strategy that composed the session.
	Strategy string

	// QuizIDs, when set, is used as the selection verbatim.
	QuizIDs []string
}

// CreateResult is the outcome of Create. Empty is set, with a nil Session,
// when a wrong-only session has no wrong answers to draw from.
type CreateResult struct {
	Session   *store.Session
	Questions []*store.SessionQuestion
	Empty     bool
	Message   string
}

func (m *Manager) validate(req *CreateRequest) error {
	if req.QuestionCount == 0 {
		req.QuestionCount = m.defaultCount
	}
	if len(req.QuizIDs) > 0 && req.QuestionCount < len(req.QuizIDs) {
		req.QuestionCount = len(req.QuizIDs)
	}
	if req.QuestionCount < 1 || req.QuestionCount > MaxQuestionCount {
		return fmt.Errorf("%w: question count must be between 1 and %d, got %d",
			ErrValidation, MaxQuestionCount, req.QuestionCount)
	}
	if !req.Mix.Valid() {
		return fmt.Errorf("%w: unknown question type %q", ErrValidation, req.Mix)
	}
	switch req.Difficulty {
	case "", "easy", "medium", "hard":
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrValidation, req.Difficulty)
	}
	if req.Type != "" && !req.Type.Valid() {
		return fmt.Errorf("%w: unknown quiz type %q", ErrValidation, req.Type)
	}
	if req.TimeLimitMinutes != nil && *req.TimeLimitMinutes < 1 {
		return fmt.Errorf("%w: time limit must be positive", ErrValidation)
	}
	return nil
}

// Create selects questions, persists the session with a snapshot of every
// question, and starts it.
func (m *Manager) Create(ctx context.Context, userID string, req CreateRequest) (*CreateResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if err := m.validate(&req); err != nil {
		return nil, err
	}

	filter := store.QuizFilter{
		KnowledgePointIDs: req.KnowledgePointIDs,
		Difficulty:        req.Difficulty,
		Type:              req.Type,
	}

	ids := req.QuizIDs
	if len(ids) == 0 {
		var err error
		ids, err = m.selectQuestions(ctx, userID, filter, req.Mix, req.QuestionCount)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 && req.Mix == MixWrongOnly {
			return &CreateResult{
				Empty:   true,
				Message: fmt.Sprintf("no wrong answers in your last %d completed sessions", m.wrongHistory),
			}, nil
		}
	}

	quizzes, err := m.questions.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(quizzes) == 0 {
		return nil, emptySelection(filter, req.Mix)
	}
	if req.ShuffleQuestions {
		quizzes = Shuffle(m.rng, quizzes)
	}

	now := m.clock()
	sess := &store.Session{
		UserID:            userID,
		Status:            store.StatusInProgress,
		Strategy:          req.Strategy,
		QuestionType:      string(req.Mix),
		KnowledgePointIDs: req.KnowledgePointIDs,
		TotalQuestions:    len(quizzes),
		TimeLimitMinutes:  req.TimeLimitMinutes,
		ShuffleQuestions:  req.ShuffleQuestions,
		ShuffleOptions:    req.ShuffleOptions,
		CreatedAt:         now,
		StartedAt:         &now,
	}
	questions := make([]*store.SessionQuestion, len(quizzes))
	for i, q := range quizzes {
		sess.QuizIDs = append(sess.QuizIDs, q.ID)
		questions[i] = snapshot(q, i+1)
		if req.ShuffleOptions {
			shuffleOptions(m.rng, questions[i])
		}
	}

	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.Sessions().Create(ctx, sess, questions)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("session created",
		"session", sess.ID,
		"user", userID,
		"questions", sess.TotalQuestions,
		"mix", string(req.Mix),
		"strategy", req.Strategy)

	return &CreateResult{Session: sess, Questions: questions}, nil
}

func (m *Manager) selectQuestions(ctx context.Context, userID string, f store.QuizFilter, mix Mix, n int) ([]string, error) {
	switch mix {
	case MixNewOnly:
		return m.questions.Unattempted(ctx, userID, f, n)

	case MixWrongOnly:
		wrong, err := m.questions.WrongIDs(ctx, userID, f, m.wrongHistory)
		if err != nil {
			return nil, err
		}
		return wrong[:min(n, len(wrong))], nil

	case MixWithWrong:
		wrong, err := m.questions.WrongIDs(ctx, userID, f, m.wrongHistory)
		if err != nil {
			return nil, err
		}
		ids := wrong[:min(n/2, len(wrong))]

		// Over-sample so the random fill survives removal of duplicates.
		random, err := m.questions.Sample(ctx, f, n+len(ids))
		if err != nil {
			return nil, err
		}
		for _, id := range random {
			if len(ids) == n {
				break
			}
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		return ids, nil

	default:
		return m.questions.Sample(ctx, f, n)
	}
}

func emptySelection(f store.QuizFilter, mix Mix) error {
	switch {
	case mix == MixNewOnly:
		return fmt.Errorf("%w: no unattempted questions left for these knowledge points", ErrEmptySelection)
	case len(f.KnowledgePointIDs) > 0:
		return fmt.Errorf("%w: no questions for these knowledge points", ErrEmptySelection)
	default:
		return fmt.Errorf("%w: the question bank has no matching questions", ErrEmptySelection)
	}
}

// snapshot copies the gradable parts of a quiz into a session question.
func snapshot(q *store.Quiz, number int) *store.SessionQuestion {
	return &store.SessionQuestion{
		QuizID:           q.ID,
		Number:           number,
		Type:             q.Type,
		Question:         q.Question,
		Options:          slices.Clone(q.Options),
		Answer:           slices.Clone(q.Answer),
		AnswerIndex:      slices.Clone(q.AnswerIndex),
		Alternatives:     slices.Clone(q.Alternatives),
		Groups:           slices.Clone(q.Groups),
		KnowledgePointID: q.KnowledgePointID,
		Difficulty:       q.Difficulty,
	}
}
