package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func verdictSchema() *Schema {
	return &Schema{
		Name:        "test-verdict",
		Description: "Whether a free-text answer is acceptable",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"acceptable": map[string]any{"type": "boolean"},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"blanks": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "integer"},
				},
				"category": map[string]any{"type": "string", "enum": []any{"synonym", "typo", "wrong"}},
			},
			"required":             []any{"acceptable", "confidence"},
			"additionalProperties": false,
		},
	}
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"all fields", `{"acceptable":true,"confidence":0.9,"blanks":[0,2],"category":"synonym"}`, false},
		{"required only", `{"acceptable":false,"confidence":0}`, false},
		{"missing required", `{"acceptable":true}`, true},
		{"wrong type", `{"acceptable":"yes","confidence":0.5}`, true},
		{"out of range", `{"acceptable":true,"confidence":1.5}`, true},
		{"bad enum", `{"acceptable":true,"confidence":0.5,"category":"lucky"}`, true},
		{"bad array item", `{"acceptable":true,"confidence":0.5,"blanks":["first"]}`, true},
		{"extra property", `{"acceptable":true,"confidence":0.5,"note":"x"}`, true},
		{"malformed", `{acceptable}`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verdictSchema().validate(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("error type = %T, want *ErrInvalidResponse", err)
			}
			if string(inv.Content) != tt.raw {
				t.Errorf("Content = %s, want %s", inv.Content, tt.raw)
			}
		})
	}
}

func TestSchemaValidate_NilAcceptsAnything(t *testing.T) {
	var s *Schema
	if err := s.validate(json.RawMessage(`"plain text"`)); err != nil {
		t.Fatalf("nil schema: %v", err)
	}
}

func TestSchemaValidate_BadDefinition(t *testing.T) {
	s := &Schema{
		Name:       "test-broken",
		Definition: map[string]any{"type": "no-such-type"},
	}
	var inv *ErrInvalidResponse
	if err := s.validate(json.RawMessage(`{}`)); !errors.As(err, &inv) {
		t.Fatalf("error = %v, want *ErrInvalidResponse", err)
	}
}
