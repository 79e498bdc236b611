package grading

import (
	"strconv"
	"strings"
)

// blankMatches reports whether a submitted blank is acceptable at canonical
// position pos: the canonical answer itself, an alternative tagged with pos,
// or an untagged alternative.
func blankMatches(q Question, submitted string, pos int) bool {
	got := normalizeBlank(submitted)
	if pos < len(q.Answer) && got == normalizeBlank(q.Answer[pos]) {
		return true
	}
	if got == "" {
		return false
	}
	for _, alt := range q.Alternatives {
		tag, value, tagged := parseTag(alt)
		if tagged && tag != pos {
			continue
		}
		if got == normalizeBlank(value) {
			return true
		}
	}
	return false
}

// matchBlanks grades equal-length blank lists. Positions in an
// order-independent group are matched greedily: each submitted blank takes
// the first unmatched canonical blank of its group that accepts it. All
// other positions must match in place.
func matchBlanks(q Question, submitted []string) bool {
	n := len(submitted)
	userMatched := make([]bool, n)
	canonMatched := make([]bool, n)
	grouped := make([]bool, n)

	for _, group := range q.Groups {
		members := make([]int, 0, len(group))
		for _, pos := range group {
			if pos >= 0 && pos < n && !grouped[pos] {
				members = append(members, pos)
				grouped[pos] = true
			}
		}

		for _, u := range members {
			if userMatched[u] {
				continue
			}
			found := false
			for _, c := range members {
				if canonMatched[c] {
					continue
				}
				if blankMatches(q, submitted[u], c) {
					userMatched[u] = true
					canonMatched[c] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}

	for i := range submitted {
		if grouped[i] {
			continue
		}
		if !blankMatches(q, submitted[i], i) {
			return false
		}
	}
	return true
}

// AddAlternative returns q's alternatives extended so that the submitted
// answer grades correct. With several blanks each non-matching blank is
// registered under its position tag; a single blank is registered untagged.
// added is false when nothing new was needed.
func AddAlternative(q Question, a Answer) (alts []string, added bool) {
	alts = append([]string(nil), q.Alternatives...)
	existing := toSet(alts)
	register := func(alt string) {
		if _, ok := existing[alt]; ok {
			return
		}
		existing[alt] = struct{}{}
		alts = append(alts, alt)
		added = true
	}

	parts := splitBlanks(a)
	if len(q.Answer) <= 1 {
		value := strings.TrimSpace(parts[0])
		if value != "" && !blankMatches(q, value, 0) {
			register(value)
		}
		return alts, added
	}

	for i, p := range parts {
		if i >= len(q.Answer) {
			break
		}
		value := strings.TrimSpace(p)
		if value == "" || blankMatches(q, value, i) {
			continue
		}
		register("[" + strconv.Itoa(i) + "]" + value)
	}
	return alts, added
}
