package llm

import (
	"encoding/json"
	"fmt"
)

// modelAliases holds the short model names accepted in configuration,
// per provider. OpenRouter IDs are already "vendor/model" and are never
// rewritten.
var modelAliases = map[string]map[string]string{
	"anthropic": {
		"claude-haiku":  "claude-haiku-4-5-20251001",
		"claude-sonnet": "claude-sonnet-4-5-20250929",
		"claude-opus":   "claude-opus-4-1-20250805",
	},
	"openai": {
		"gpt":      "gpt-4.1",
		"gpt-mini": "gpt-4.1-mini",
		"gpt-nano": "gpt-4.1-nano",
	},
	"gemini": {
		"gemini-flash":      "gemini-2.5-flash",
		"gemini-flash-lite": "gemini-2.5-flash-lite",
		"gemini-pro":        "gemini-2.5-pro",
	},
}

// resolveModel returns the model ID for an alias of provider. Anything
// that is not an alias is returned unchanged.
func resolveModel(provider, name string) string {
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}

// defaultMaxTokens caps a reply when the request sets no limit. A verdict
// is a few sentences of JSON.
const defaultMaxTokens = 1024

func errMissingKey(provider string) error {
	return fmt.Errorf("%s API key is required", provider)
}

// reply is a vendor response cut down to what finish needs.
type reply struct {
	text      string
	model     string
	usage     Usage
	truncated bool
}

// finish applies the checks shared by every vendor: a truncated reply is
// an ErrMaxTokensExceeded, and a reply to a schema-bound request must
// validate against that schema.
func (r reply) finish(schema *Schema) (*Response, error) {
	content := json.RawMessage(r.text)
	if r.truncated {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if err := schema.validate(content); err != nil {
		return nil, err
	}

	usage := r.usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{
		Content:    content,
		Usage:      usage,
		Model:      r.model,
		StopReason: "end",
	}, nil
}
