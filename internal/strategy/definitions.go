// Package strategy composes practice sessions from a learner's weakness
// and mistake history.
package strategy

// Code identifies a strategy.
type Code string

const (
	QuickPractice         Code = "quick-practice"
	WeaknessReinforcement Code = "weakness-reinforcement"
	MistakeReinforcement  Code = "mistake-reinforcement"
)

// Definition describes a strategy and the history it needs.
type Definition struct {
	Code        Code
	Name        string
	Description string

	// RequiredHistory marks strategies that only make sense once the user
	// has practiced.
	RequiredHistory      bool
	MinimumPracticeCount int
	MinimumMistakeCount  int
}

var definitions = []Definition{
	{
		Code:        QuickPractice,
		Name:        "Quick Practice",
		Description: "Random questions from the selected knowledge points.",
	},
	{
		Code:                 WeaknessReinforcement,
		Name:                 "Weakness Reinforcement",
		Description:          "Most questions come from knowledge points below 60% accuracy.",
		RequiredHistory:      true,
		MinimumPracticeCount: 3,
	},
	{
		Code:                 MistakeReinforcement,
		Name:                 "Mistake Reinforcement",
		Description:          "Revisit missed questions plus similar ones from the same knowledge points.",
		RequiredHistory:      true,
		MinimumPracticeCount: 1,
		MinimumMistakeCount:  5,
	},
}

// Definitions returns the built-in strategies.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for code.
func Lookup(code Code) (Definition, bool) {
	for _, d := range definitions {
		if d.Code == code {
			return d, true
		}
	}
	return Definition{}, false
}

const (
	// weakShare is the fraction of a weakness session drawn from weak
	// knowledge points.
	weakShare = 0.7

	// exactShare is the fraction of a mistake session made of the missed
	// questions themselves.
	exactShare = 0.2

	// secondsPerQuestion estimates session length when no time limit is set.
	secondsPerQuestion = 90

	// weakThreshold is the accuracy below which a knowledge point is weak.
	weakThreshold = 60.0
)
