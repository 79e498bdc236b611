package grading

import (
	"strconv"
	"strings"
)

// blankReplacer folds punctuation variants that learners type
// interchangeably in transliterated names.
var blankReplacer = strings.NewReplacer(
	"·", "", "•", "", "・", "", "‧", "", "∙", "",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
)

// normalizeBlank prepares a fill-in-the-blank value for comparison.
func normalizeBlank(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(blankReplacer.Replace(s))
}

// letterIndex converts a single option letter to its zero-based index.
func letterIndex(s string) (int, bool) {
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	}
	return 0, false
}

// choiceToken trims a choice submission and converts an option letter to
// its index string when the question has that many options. Other tokens,
// such as a one-letter option text past the last letter, are returned
// trimmed.
func choiceToken(s string, options int) string {
	s = strings.TrimSpace(s)
	if idx, ok := letterIndex(s); ok && idx < options {
		return strconv.Itoa(idx)
	}
	return s
}

// splitChoices flattens a multiple-choice submission into trimmed,
// non-empty tokens. Both ASCII and full-width commas delimit.
func splitChoices(a Answer) []string {
	var out []string
	for _, part := range a {
		for _, tok := range strings.FieldsFunc(part, func(r rune) bool { return r == ',' || r == '，' }) {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

// splitBlanks returns one entry per blank. A single string holding the
// persisted separator is split; empty blanks are kept.
func splitBlanks(a Answer) []string {
	if len(a) == 1 && strings.Contains(a[0], BlankSeparator) {
		return strings.Split(a[0], BlankSeparator)
	}
	if len(a) == 0 {
		return []string{""}
	}
	return []string(a)
}

// parseTag splits a position-tagged alternative such as "[1]liang qichao".
func parseTag(alt string) (pos int, value string, ok bool) {
	alt = strings.TrimSpace(alt)
	if !strings.HasPrefix(alt, "[") {
		return 0, alt, false
	}
	end := strings.Index(alt, "]")
	if end < 2 {
		return 0, alt, false
	}
	n, err := strconv.Atoi(alt[1:end])
	if err != nil || n < 0 {
		return 0, alt, false
	}
	return n, alt[end+1:], true
}
