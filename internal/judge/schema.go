package judge

import "github.com/abhisek/quizdrill/internal/llm"

// JudgmentSchema defines the JSON schema for answer judgments.
var JudgmentSchema = &llm.Schema{
	Name:        "answer-judgment",
	Description: "Decision on whether a learner's fill-in-the-blank answer is acceptable",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"acceptable": map[string]any{
				"type":        "boolean",
				"description": "True if the learner's answer should be accepted for every blank",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence score (0.0–1.0) for the decision",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief one-sentence explanation of the decision",
			},
		},
		"required":             []any{"acceptable", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}
