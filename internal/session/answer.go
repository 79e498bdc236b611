package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/judge"
	"github.com/abhisek/quizdrill/internal/mistakes"
	"github.com/abhisek/quizdrill/internal/store"
)

// SubmitRequest is one answer to one session question.
type SubmitRequest struct {
	SessionID        string
	QuestionID       string
	UserID           string
	Answer           grading.Answer
	TimeSpentSeconds int
}

// SubmitResult reports the graded answer and the updated session.
type SubmitResult struct {
	Session  *store.Session
	Question *store.SessionQuestion
	Correct  bool

	// NextQuestion is the next unanswered question, or nil once the
	// session is complete.
	NextQuestion *store.SessionQuestion
}

// Submit grades an answer and records it. Answering the last open question
// completes the session.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.TimeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: negative time spent", ErrValidation)
	}

	var res SubmitResult
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		s, q, err := m.openQuestion(ctx, tx, req.SessionID, req.QuestionID, req.UserID, "answer")
		if err != nil {
			return err
		}

		graded := grading.Evaluate(q.Grading(), req.Answer)
		now := m.clock()
		q.StudentAnswer = &graded.Normalized
		q.IsCorrect = &graded.Correct
		q.IsSkipped = false
		q.TimeSpentSeconds = req.TimeSpentSeconds
		q.AnsweredAt = &now
		if err := tx.Sessions().UpdateQuestion(ctx, q); err != nil {
			return err
		}

		if !graded.Correct {
			_, err := m.mistakes.In(tx.Mistakes()).RecordMistake(ctx, mistakes.MistakeInput{
				UserID:    s.UserID,
				QuizID:    q.QuizID,
				SessionID: s.ID,
				Incorrect: graded.Normalized,
				Correct:   canonicalAnswer(q),
			})
			if err != nil {
				return err
			}
		}

		s.TimeSpentSeconds += req.TimeSpentSeconds
		if err := m.recount(ctx, tx, s, q); err != nil {
			return err
		}
		if s.AnsweredQuestions == s.TotalQuestions {
			s.Status = store.StatusCompleted
			s.CompletedAt = &now
		}
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return err
		}

		res = SubmitResult{Session: s, Question: q, Correct: graded.Correct}
		if s.Status != store.StatusCompleted {
			res.NextQuestion, err = nextQuestion(ctx, tx, s.ID, q.Number)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Session.Status == store.StatusCompleted {
		m.completed(ctx, res.Session)
	}
	return &res, nil
}

// SkipRequest skips one session question.
type SkipRequest struct {
	SessionID        string
	QuestionID       string
	UserID           string
	TimeSpentSeconds int
}

// SkipResult reports the skipped question and the updated session.
type SkipResult struct {
	Session      *store.Session
	Question     *store.SessionQuestion
	NextQuestion *store.SessionQuestion
}

// Skip marks an unanswered question as skipped. Skipping never completes a
// session.
func (m *Manager) Skip(ctx context.Context, req SkipRequest) (*SkipResult, error) {
	if req.TimeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: negative time spent", ErrValidation)
	}

	var res SkipResult
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		s, q, err := m.openQuestion(ctx, tx, req.SessionID, req.QuestionID, req.UserID, "skip questions in")
		if err != nil {
			return err
		}
		if q.Answered() {
			return fmt.Errorf("%w: question %d is already answered", ErrInvalidState, q.Number)
		}

		q.IsSkipped = true
		q.TimeSpentSeconds += req.TimeSpentSeconds
		if err := tx.Sessions().UpdateQuestion(ctx, q); err != nil {
			return err
		}

		s.TimeSpentSeconds += req.TimeSpentSeconds
		if err := m.recount(ctx, tx, s, q); err != nil {
			return err
		}
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return err
		}

		res = SkipResult{Session: s, Question: q}
		res.NextQuestion, err = nextQuestion(ctx, tx, s.ID, q.Number)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// openQuestion loads an owned in-progress session and one of its questions.
func (m *Manager) openQuestion(ctx context.Context, tx *store.Tx, sessionID, questionID, userID, op string) (*store.Session, *store.SessionQuestion, error) {
	s, err := ownedSession(ctx, tx.Sessions(), sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	q, err := tx.Sessions().Question(ctx, s.ID, questionID)
	if err != nil {
		return nil, nil, err
	}
	if q == nil {
		return nil, nil, notFound("question", questionID)
	}
	if s.Status != store.StatusInProgress {
		return nil, nil, invalidState(s, op)
	}
	return s, q, nil
}

// recount derives the session counters from its question rows so that a
// re-answered question is never counted twice.
func (m *Manager) recount(ctx context.Context, tx *store.Tx, s *store.Session, last *store.SessionQuestion) error {
	qc, err := tx.Sessions().QuestionCounts(ctx, s.ID)
	if err != nil {
		return err
	}
	s.AnsweredQuestions = qc.Answered
	s.CorrectAnswers = qc.Correct
	s.IncorrectAnswers = qc.Incorrect
	s.SkippedQuestions = qc.Skipped
	s.Score = score(qc.Correct, s.TotalQuestions)
	if last != nil {
		idx := last.Number - 1
		s.LastQuestionIndex = &idx
	}
	return nil
}

// nextQuestion returns the first open question after number, wrapping
// around to earlier skipped or unanswered questions. The question at number
// itself is returned only when nothing else is open.
func nextQuestion(ctx context.Context, tx *store.Tx, sessionID string, number int) (*store.SessionQuestion, error) {
	questions, err := tx.Sessions().Questions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var wrapped, self *store.SessionQuestion
	for _, q := range questions {
		switch {
		case q.Answered():
		case q.Number == number:
			self = q
		case q.Number > number && !q.IsSkipped:
			return q, nil
		case wrapped == nil:
			wrapped = q
		}
	}
	if wrapped != nil {
		return wrapped, nil
	}
	return self, nil
}

// canonicalAnswer renders the expected answer for the mistake notebook.
func canonicalAnswer(q *store.SessionQuestion) string {
	switch {
	case q.Type == grading.FillInBlank:
		return strings.Join(q.Answer, grading.BlankSeparator)
	case len(q.Answer) > 0:
		return strings.Join(q.Answer, ",")
	}
	parts := make([]string, 0, len(q.AnswerIndex))
	for _, i := range q.AnswerIndex {
		if i >= 0 && i < len(q.Options) {
			parts = append(parts, q.Options[i])
		}
	}
	return strings.Join(parts, ",")
}

// ReevaluateRequest asks the judge to reconsider a wrong fill-in answer.
type ReevaluateRequest struct {
	SessionID  string
	QuestionID string
	UserID     string
}

// ReevaluateResult is the judge's decision and the resulting session.
type ReevaluateResult struct {
	Accepted  bool
	Reasoning string
	Session   *store.Session
	Question  *store.SessionQuestion
}

// Reevaluate sends an incorrect fill-in-the-blank answer to the judge. An
// accepted answer is flipped to correct and registered as an alternative on
// the quiz, so the same answer is accepted from then on without a judge
// call. The mistake recorded when the answer was submitted is withdrawn.
func (m *Manager) Reevaluate(ctx context.Context, req ReevaluateRequest) (*ReevaluateResult, error) {
	sessions := m.store.Sessions()
	s, err := ownedSession(ctx, sessions, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}
	q, err := sessions.Question(ctx, s.ID, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, notFound("question", req.QuestionID)
	}
	if q.Type != grading.FillInBlank {
		return nil, fmt.Errorf("%w: only fill-in-the-blank answers can be re-evaluated", ErrInvalidState)
	}
	if !q.Answered() || *q.IsCorrect {
		return nil, fmt.Errorf("%w: question %d has no incorrect answer to re-evaluate", ErrInvalidState, q.Number)
	}
	if m.judge == nil {
		return nil, fmt.Errorf("%w: no answer judge configured", ErrExternalFailure)
	}

	submitted := grading.Answer(strings.Split(*q.StudentAnswer, grading.BlankSeparator))
	jreq := judge.Request{
		Question:        q.Question,
		CorrectAnswer:   q.Answer,
		SubmittedAnswer: submitted,
	}
	quiz, err := m.questions.Get(ctx, q.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz != nil {
		jreq.Source = quiz.Source
	}

	verdict, err := m.judge.Evaluate(ctx, jreq)
	if err != nil {
		m.logger.Warn("answer re-evaluation failed", "session", s.ID, "question", q.ID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrExternalFailure, err)
	}
	m.logger.Info("answer re-evaluated",
		"session", s.ID,
		"question", q.ID,
		"accepted", verdict.Acceptable,
		"confidence", verdict.Confidence)

	res := &ReevaluateResult{Accepted: verdict.Acceptable, Reasoning: verdict.Reasoning, Session: s, Question: q}
	if !verdict.Acceptable {
		return res, nil
	}

	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		if quiz != nil {
			alts, added := grading.AddAlternative(quiz.Grading(), submitted)
			if added {
				if err := tx.Quizzes().AddAlternatives(ctx, quiz.ID, alts); err != nil {
					return err
				}
			}
		}

		q.Alternatives, _ = grading.AddAlternative(q.Grading(), submitted)
		correct := true
		q.IsCorrect = &correct
		if err := tx.Sessions().UpdateQuestion(ctx, q); err != nil {
			return err
		}
		if err := m.mistakes.In(tx.Mistakes()).WithdrawMistake(ctx, s.UserID, q.QuizID); err != nil {
			return err
		}

		// Re-read the session so concurrent answers are not overwritten.
		fresh, err := tx.Sessions().Get(ctx, s.ID)
		if err != nil {
			return err
		}
		if err := m.recount(ctx, tx, fresh, nil); err != nil {
			return err
		}
		res.Session = fresh
		return tx.Sessions().Update(ctx, fresh)
	})
	if err != nil {
		return nil, fmt.Errorf("apply re-evaluation: %w", err)
	}
	return res, nil
}
