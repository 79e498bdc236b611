package session

import (
	"slices"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/store"
)

// Shuffle returns a Fisher–Yates permutation of items. The input is not
// modified.
func Shuffle[T any](rng store.Rand, items []T) []T {
	shuffled := slices.Clone(items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// shuffleOptions permutes the options of a choice question in place and
// rewrites its answer so grading still accepts the same option. Questions
// whose correct options cannot be resolved are left untouched.
func shuffleOptions(rng store.Rand, q *store.SessionQuestion) {
	if !q.Type.IsChoice() || len(q.Options) < 2 {
		return
	}

	var correct []int
	if q.Type == grading.SingleChoice {
		idx := grading.CorrectIndex(q.Grading())
		if idx < 0 || idx >= len(q.Options) {
			return
		}
		correct = []int{idx}
	} else {
		correct = grading.CorrectIndices(q.Grading())
		if len(correct) == 0 || slices.ContainsFunc(correct, func(i int) bool { return i < 0 || i >= len(q.Options) }) {
			return
		}
	}

	// perm[new] = old
	perm := Shuffle(rng, indexes(len(q.Options)))
	options := make([]string, len(perm))
	position := make([]int, len(perm))
	for newPos, oldPos := range perm {
		options[newPos] = q.Options[oldPos]
		position[oldPos] = newPos
	}

	answerIndex := make([]int, len(correct))
	answer := make([]string, len(correct))
	for i, old := range correct {
		answerIndex[i] = position[old]
		answer[i] = q.Options[old]
	}
	if q.Type == grading.MultipleChoice {
		slices.Sort(answerIndex)
		answer = answer[:0]
		for _, idx := range answerIndex {
			answer = append(answer, options[idx])
		}
	}

	q.Options = options
	q.AnswerIndex = answerIndex
	q.Answer = answer
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
