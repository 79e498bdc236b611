package grading

import (
	"slices"
	"strconv"
	"strings"
)

// Evaluate grades a submission against q.
//
// Choice questions accept an option index, an option letter (A=0), or the
// option text. Multiple choice compares sets, so order and duplicates do not
// matter. Fill-in-the-blank compares blank by blank after normalization,
// honouring position-tagged and global alternatives, and lets blanks inside
// an order-independent group match each other in any pairing. Any other type
// requires an exact match after trimming.
func Evaluate(q Question, a Answer) Result {
	switch q.Type {
	case SingleChoice:
		return gradeSingleChoice(q, a)
	case MultipleChoice:
		return gradeMultipleChoice(q, a)
	case FillInBlank:
		return gradeFillInBlank(q, a)
	default:
		return gradeExact(q, a)
	}
}

// CorrectIndex returns the index of the correct option of a single-choice
// question, or -1 if it cannot be determined.
func CorrectIndex(q Question) int {
	if len(q.AnswerIndex) > 0 {
		return q.AnswerIndex[0]
	}
	if len(q.Answer) == 0 {
		return -1
	}
	canonical := strings.TrimSpace(q.Answer[0])
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == canonical {
			return i
		}
	}
	if idx, ok := letterIndex(canonical); ok && idx < len(q.Options) {
		return idx
	}
	return -1
}

// CorrectIndices returns the indices of the correct options of a
// multiple-choice question. Answer texts not found among the options are
// skipped.
func CorrectIndices(q Question) []int {
	if len(q.AnswerIndex) > 0 {
		return slices.Clone(q.AnswerIndex)
	}
	var out []int
	for _, ans := range q.Answer {
		ans = strings.TrimSpace(ans)
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == ans {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func gradeSingleChoice(q Question, a Answer) Result {
	submitted := ""
	if len(a) > 0 {
		submitted = strings.TrimSpace(a[0])
	}
	token := choiceToken(submitted, len(q.Options))
	res := Result{Normalized: token}
	if submitted == "" {
		return res
	}

	idx := CorrectIndex(q)
	if idx >= 0 && token == strconv.Itoa(idx) {
		res.Correct = true
		return res
	}
	if len(q.Answer) > 0 && submitted == strings.TrimSpace(q.Answer[0]) {
		res.Correct = true
		return res
	}
	if idx >= 0 && idx < len(q.Options) && submitted == strings.TrimSpace(q.Options[idx]) {
		res.Correct = true
	}
	return res
}

func gradeMultipleChoice(q Question, a Answer) Result {
	raw := splitChoices(a)
	tokens := make([]string, len(raw))
	for i, r := range raw {
		tokens[i] = choiceToken(r, len(q.Options))
	}
	res := Result{Normalized: strings.Join(tokens, ",")}
	if len(tokens) == 0 {
		return res
	}

	if want := CorrectIndices(q); len(want) > 0 {
		got := make(map[int]struct{}, len(tokens))
		numeric := true
		for _, tok := range tokens {
			n, err := strconv.Atoi(tok)
			if err != nil {
				numeric = false
				break
			}
			got[n] = struct{}{}
		}
		if numeric && equalSets(got, toSet(want)) {
			res.Correct = true
			return res
		}
	}

	if len(q.Answer) > 0 {
		canonical := make(map[string]struct{}, len(q.Answer))
		for _, ans := range q.Answer {
			canonical[strings.TrimSpace(ans)] = struct{}{}
		}
		submitted := make(map[string]struct{}, len(raw))
		for _, r := range raw {
			submitted[r] = struct{}{}
		}
		if equalSets(submitted, canonical) {
			res.Correct = true
		}
	}
	return res
}

func gradeFillInBlank(q Question, a Answer) Result {
	parts := splitBlanks(a)
	folded := make([]string, len(parts))
	for i, p := range parts {
		folded[i] = normalizeBlank(p)
	}
	// The folded blanks are what gets persisted and shown to the judge.
	res := Result{Normalized: strings.Join(folded, BlankSeparator)}
	if len(q.Answer) == 0 || len(folded) != len(q.Answer) {
		return res
	}
	res.Correct = matchBlanks(q, folded)
	return res
}

func gradeExact(q Question, a Answer) Result {
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = strings.TrimSpace(p)
	}
	submitted := strings.Join(parts, ",")
	canonical := make([]string, len(q.Answer))
	for i, p := range q.Answer {
		canonical[i] = strings.TrimSpace(p)
	}
	return Result{
		Correct:    submitted != "" && submitted == strings.Join(canonical, ","),
		Normalized: submitted,
	}
}

func toSet[T comparable](items []T) map[T]struct{} {
	out := make(map[T]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func equalSets[T comparable](a, b map[T]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
