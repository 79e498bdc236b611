package quizbank

import (
	"errors"
	"fmt"
	"slices"

	"github.com/abhisek/quizdrill/internal/grading"
)

// ValidationError describes why one bank entry was rejected.
type ValidationError struct {
	Index   int    // position in the file, 0-based
	ID      string // entry ID, may be empty
	Message string
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("quiz %d (%s): %s", e.Index, e.ID, e.Message)
	}
	return fmt.Sprintf("quiz %d: %s", e.Index, e.Message)
}

var difficulties = []string{"", "easy", "medium", "hard"}

// Validate checks every entry and returns all problems joined.
func (b *Bank) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	known := make(map[string]bool)
	for _, kp := range b.KnowledgePoints {
		if kp.ID == "" {
			errs = append(errs, errors.New("knowledge point with empty id"))
		}
		known[kp.ID] = true
	}

	for i, e := range b.Quizzes {
		fail := func(format string, args ...any) {
			errs = append(errs, &ValidationError{Index: i, ID: e.ID, Message: fmt.Sprintf(format, args...)})
		}
		if e.ID != "" {
			if seen[e.ID] {
				fail("duplicate id")
			}
			seen[e.ID] = true
		}
		if e.Question == "" {
			fail("question is empty")
		}
		if !e.Type.Valid() {
			fail("unknown type %q", e.Type)
			continue
		}
		if e.KnowledgePointID == "" {
			fail("knowledge_point is empty")
		}
		if !slices.Contains(difficulties, e.Difficulty) {
			fail("difficulty must be easy, medium or hard")
		}
		if msg := checkAnswer(e); msg != "" {
			fail("%s", msg)
		}
	}
	return errors.Join(errs...)
}

func checkAnswer(e Entry) string {
	if e.Type.IsChoice() {
		if len(e.Options) < 2 {
			return "choice questions need at least two options"
		}
		for _, idx := range e.AnswerIndex {
			if idx < 0 || idx >= len(e.Options) {
				return fmt.Sprintf("answer_index %d out of range", idx)
			}
		}
		q := e.Quiz()
		switch {
		case e.Type == grading.SingleChoice && len(q.AnswerIndex) != 1:
			return "single-choice needs exactly one correct option"
		case e.Type == grading.MultipleChoice && len(q.AnswerIndex) == 0:
			return "multiple-choice needs at least one correct option"
		}
		return ""
	}

	if len(e.Answer) == 0 {
		return "answer is empty"
	}
	for _, g := range e.Groups {
		for _, pos := range g {
			if pos < 0 || pos >= len(e.Answer) {
				return fmt.Sprintf("group position %d out of range", pos)
			}
		}
	}
	return ""
}
