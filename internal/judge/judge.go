// Package judge decides whether a fill-in-the-blank answer that failed
// exact matching is still an acceptable answer.
package judge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/quizdrill/internal/llm"
)

// Judge evaluates a submitted answer against the canonical one.
type Judge interface {
	Evaluate(ctx context.Context, req Request) (*Verdict, error)
}

// Request is the input for a single judgment.
type Request struct {
	Question        string
	CorrectAnswer   []string
	SubmittedAnswer []string

	// Source is the passage the question was taken from, if any.
	Source string
}

// Verdict is the judge's decision.
type Verdict struct {
	Acceptable bool
	Reasoning  string
	Confidence float64
}

// Config holds generation settings for the LLM judge.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   256,
		Temperature: 0,
	}
}

// LLMJudge asks an LLM provider for a verdict.
type LLMJudge struct {
	provider llm.Provider
	cfg      Config
}

// NewLLMJudge creates a judge backed by provider.
func NewLLMJudge(provider llm.Provider, cfg Config) *LLMJudge {
	return &LLMJudge{provider: provider, cfg: cfg}
}

var _ Judge = (*LLMJudge)(nil)

type judgmentOutput struct {
	Acceptable bool    `json:"acceptable"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Evaluate sends the question and both answers to the provider.
func (j *LLMJudge) Evaluate(ctx context.Context, req Request) (*Verdict, error) {
	ctx = llm.WithPurpose(ctx, "answer-reevaluation")

	userMsg, err := buildJudgmentMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build judgment prompt: %w", err)
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:      judgmentSystemPrompt,
		Messages:    llm.UserMessage(userMsg),
		Schema:      JudgmentSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM judgment failed: %w", err)
	}

	var out judgmentOutput
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	return &Verdict{
		Acceptable: out.Acceptable,
		Reasoning:  out.Reasoning,
		Confidence: out.Confidence,
	}, nil
}

const judgmentSystemPrompt = `You grade fill-in-the-blank answers. Automatic matching has already marked the learner's answer wrong because it is not textually identical to the reference answer. Decide whether it should be accepted anyway.

Instructions:
- Accept answers that mean the same thing as the reference for every blank: synonyms, alternate spellings, equivalent notation, or the full form of an abbreviation.
- Reject answers that are vague, partially correct, or answer a different blank.
- Use the source passage, when given, as the authority on what the blank refers to.
- Provide a confidence score (0.0–1.0).
- Keep reasoning to one sentence.`

var judgmentUserTemplate = template.Must(template.New("judgment").Funcs(template.FuncMap{
	"blanks": formatBlanks,
}).Parse(`Question: {{.Question}}
Reference answer:
{{blanks .CorrectAnswer}}
Learner's answer:
{{blanks .SubmittedAnswer}}
{{- if .Source}}

Source passage:
{{.Source}}
{{- end}}
`))

func buildJudgmentMessage(req Request) (string, error) {
	var buf bytes.Buffer
	if err := judgmentUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatBlanks(values []string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  blank %d: %s", i+1, v)
	}
	return b.String()
}
