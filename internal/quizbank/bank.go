// Package quizbank reads question banks from JSON or TOML files and loads
// them into the store.
package quizbank

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/store"
)

// Bank is the file format.
type Bank struct {
	KnowledgePoints []KnowledgePoint `json:"knowledge_points" toml:"knowledge_points"`
	Quizzes         []Entry          `json:"quizzes" toml:"quizzes"`
}

// KnowledgePoint is a named topic that quizzes belong to.
type KnowledgePoint struct {
	ID      string `json:"id" toml:"id"`
	Name    string `json:"name" toml:"name"`
	Subject string `json:"subject" toml:"subject"`
}

// Entry is one quiz in a bank file.
type Entry struct {
	ID               string               `json:"id" toml:"id"`
	Type             grading.QuestionType `json:"type" toml:"type"`
	Question         string               `json:"question" toml:"question"`
	Options          []string             `json:"options" toml:"options"`
	Answer           Answers              `json:"answer" toml:"answer"`
	AnswerIndex      []int                `json:"answer_index" toml:"answer_index"`
	Alternatives     []string             `json:"alternatives" toml:"alternatives"`
	Groups           [][]int              `json:"groups" toml:"groups"`
	KnowledgePointID string               `json:"knowledge_point" toml:"knowledge_point"`
	Difficulty       string               `json:"difficulty" toml:"difficulty"`
	Explanation      string               `json:"explanation" toml:"explanation"`
	Source           string               `json:"source" toml:"source"`
}

// Answers accepts either a single string or a list of strings.
type Answers []string

func (a *Answers) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*a = Answers{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("answer must be a string or a list of strings")
	}
	*a = many
	return nil
}

func (a *Answers) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		*a = Answers{val}
	case []any:
		out := make(Answers, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("answer must be a string or a list of strings")
			}
			out = append(out, s)
		}
		*a = out
	default:
		return fmt.Errorf("answer must be a string or a list of strings")
	}
	return nil
}

// Format is a bank file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported quiz bank extension %q (want .json or .toml)", filepath.Ext(path))
}

// Decode reads a bank in the given format.
func Decode(r io.Reader, format Format) (*Bank, error) {
	var b Bank
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode json bank: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&b)
		if err != nil {
			return nil, fmt.Errorf("decode toml bank: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml bank: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return &b, nil
}

// Quiz converts the entry to a store row. Choice answers given as option
// texts are resolved to indices.
func (e Entry) Quiz() *store.Quiz {
	q := &store.Quiz{
		ID:               e.ID,
		Type:             e.Type,
		Question:         e.Question,
		Options:          e.Options,
		Answer:           []string(e.Answer),
		AnswerIndex:      e.AnswerIndex,
		Alternatives:     e.Alternatives,
		Groups:           e.Groups,
		KnowledgePointID: e.KnowledgePointID,
		Difficulty:       e.Difficulty,
		Explanation:      e.Explanation,
		Source:           e.Source,
	}
	if len(q.AnswerIndex) > 0 {
		return q
	}
	switch q.Type {
	case grading.SingleChoice:
		if idx := grading.CorrectIndex(q.Grading()); idx >= 0 {
			q.AnswerIndex = []int{idx}
		}
	case grading.MultipleChoice:
		q.AnswerIndex = grading.CorrectIndices(q.Grading())
	}
	return q
}
