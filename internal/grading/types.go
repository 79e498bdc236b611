package grading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QuestionType identifies how a question is graded.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	FillInBlank    QuestionType = "fill-in-the-blank"
	Subjective     QuestionType = "subjective"
	Other          QuestionType = "other"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, FillInBlank, Subjective, Other:
		return true
	}
	return false
}

// IsChoice reports whether answers to t may be given as option letters.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultipleChoice
}

// BlankSeparator joins per-blank answers in their persisted form.
const BlankSeparator = "|||"

// Question carries everything the evaluator needs to grade one question.
// Choice types use Options and AnswerIndex; fill-in-the-blank uses Answer
// (one entry per blank), Alternatives and Groups.
type Question struct {
	Type         QuestionType
	Options      []string
	Answer       []string
	AnswerIndex  []int
	Alternatives []string

	// Groups lists blank positions whose answers may appear in any order.
	Groups [][]int
}

// Answer is a submitted answer. A bare string submission is a
// single-element Answer.
type Answer []string

// Text wraps a bare string submission.
func Text(s string) Answer {
	return Answer{s}
}

// List wraps an ordered multi-part submission.
func List(parts ...string) Answer {
	return Answer(parts)
}

// ParseAnswer decodes a submission given as JSON (a string, a number, or an
// array of strings and numbers). Input that is not valid JSON is treated as a
// bare string.
func ParseAnswer(raw string) (Answer, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Text(""), nil
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return Text(raw), nil
	}

	switch val := v.(type) {
	case string:
		return Text(val), nil
	case float64:
		return Text(formatNumber(val)), nil
	case []any:
		out := make(Answer, 0, len(val))
		for i, item := range val {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case float64:
				out = append(out, formatNumber(it))
			case nil:
				out = append(out, "")
			default:
				return nil, fmt.Errorf("answer element %d: unsupported type %T", i, item)
			}
		}
		return out, nil
	default:
		return Text(raw), nil
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Result is the outcome of grading one submission.
type Result struct {
	Correct bool

	// Normalized is the persisted form of the submission: comma-joined for
	// multiple choice, BlankSeparator-joined for fill-in-the-blank. Blanks
	// are stored case-folded with punctuation variants folded.
	Normalized string
}
