package grading

import (
	"slices"
	"strings"
	"testing"
)

func TestEvaluate_SingleChoice(t *testing.T) {
	withIndex := Question{
		Type:        SingleChoice,
		Options:     []string{"北京", "上海", "广州", "深圳"},
		Answer:      []string{"深圳"},
		AnswerIndex: []int{3},
	}
	withoutIndex := withIndex
	withoutIndex.AnswerIndex = nil

	tests := []struct {
		input Answer
		want  bool
	}{
		{Text("3"), true},
		{Text("D"), true},
		{Text("d"), true},
		{Text(" D "), true},
		{Text("深圳"), true},
		{List("3"), true},
		{Text("2"), false},
		{Text("C"), false},
		{Text("上海"), false},
		{Text(""), false},
		{nil, false},
	}

	for _, q := range []Question{withIndex, withoutIndex} {
		for _, tc := range tests {
			got := Evaluate(q, tc.input)
			if got.Correct != tc.want {
				t.Errorf("Evaluate(%q, index=%v) = %v, want %v", tc.input, q.AnswerIndex, got.Correct, tc.want)
			}
		}
	}
}

func TestEvaluate_SingleChoiceEncodingsAgree(t *testing.T) {
	q := Question{
		Type:    SingleChoice,
		Options: []string{"alpha", "beta", "gamma"},
		Answer:  []string{"beta"},
	}
	for correct := range q.Options {
		q.Answer = []string{q.Options[correct]}
		for i, opt := range q.Options {
			byIndex := Evaluate(q, Text(string(rune('0'+i)))).Correct
			byLetter := Evaluate(q, Text(string(rune('A'+i)))).Correct
			byText := Evaluate(q, Text(opt)).Correct
			if byIndex != byLetter || byIndex != byText {
				t.Errorf("option %d with answer %d: index=%v letter=%v text=%v", i, correct, byIndex, byLetter, byText)
			}
			if byIndex != (i == correct) {
				t.Errorf("option %d with answer %d: got %v", i, correct, byIndex)
			}
		}
	}
}

func TestEvaluate_SingleChoiceNormalizedForm(t *testing.T) {
	q := Question{Type: SingleChoice, Options: []string{"a", "b"}, AnswerIndex: []int{1}}
	if got := Evaluate(q, Text("B")).Normalized; got != "1" {
		t.Errorf("Normalized = %q, want %q", got, "1")
	}
}

func TestEvaluate_LetterOptionTexts(t *testing.T) {
	single := Question{Type: SingleChoice, Options: []string{"x", "y", "z"}, Answer: []string{"y"}}
	multi := Question{Type: MultipleChoice, Options: []string{"x", "y", "z"}, Answer: []string{"y", "x"}}

	tests := []struct {
		name       string
		q          Question
		input      Answer
		correct    bool
		normalized string
	}{
		{"option text past the letters", single, Text("y"), true, "y"},
		{"letter within range", single, Text("B"), true, "1"},
		{"wrong option text", single, Text("z"), false, "z"},
		{"index", single, Text("1"), true, "1"},
		{"multi option texts", multi, Text("y,x"), true, "y,x"},
		{"multi letters", multi, List("A", "B"), true, "0,1"},
		{"multi wrong texts", multi, List("y", "z"), false, "y,z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.q, tc.input)
			if got.Correct != tc.correct {
				t.Errorf("Correct = %v, want %v", got.Correct, tc.correct)
			}
			if got.Normalized != tc.normalized {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tc.normalized)
			}
		})
	}
}

func TestEvaluate_MultipleChoice(t *testing.T) {
	q := Question{
		Type:        MultipleChoice,
		Options:     []string{"红", "黄", "蓝", "绿"},
		Answer:      []string{"黄", "蓝"},
		AnswerIndex: []int{1, 2},
	}

	tests := []struct {
		name  string
		input Answer
		want  bool
	}{
		{"indices", List("1", "2"), true},
		{"indices reversed", List("2", "1"), true},
		{"letters", List("B", "C"), true},
		{"lowercase letters", List("c", "b"), true},
		{"texts", List("黄", "蓝"), true},
		{"texts reversed", List("蓝", "黄"), true},
		{"comma string", Text("1,2"), true},
		{"letter string", Text("B,C"), true},
		{"full-width comma", Text("C，B"), true},
		{"duplicates", List("1", "2", "2"), true},
		{"subset", List("1"), false},
		{"superset", List("1", "2", "3"), false},
		{"text subset", List("黄"), false},
		{"text superset", List("黄", "蓝", "红"), false},
		{"wrong indices", List("0", "3"), false},
		{"empty", List(), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(q, tc.input)
			if got.Correct != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.input, got.Correct, tc.want)
			}
		})
	}
}

func TestEvaluate_MultipleChoiceWithoutAnswerIndex(t *testing.T) {
	q := Question{
		Type:    MultipleChoice,
		Options: []string{"红", "黄", "蓝", "绿"},
		Answer:  []string{"黄", "蓝"},
	}
	if !Evaluate(q, List("B", "C")).Correct {
		t.Error("letters should resolve through answer texts")
	}
	if got := Evaluate(q, List("B", "C")).Normalized; got != "1,2" {
		t.Errorf("Normalized = %q, want %q", got, "1,2")
	}
}

func TestEvaluate_FillInBlankGroups(t *testing.T) {
	q := Question{
		Type:   FillInBlank,
		Answer: []string{"康有为", "梁启超"},
		Groups: [][]int{{0, 1}},
	}

	tests := []struct {
		input Answer
		want  bool
	}{
		{List("康有为", "梁启超"), true},
		{List("梁启超", "康有为"), true},
		{List("康有为", "康有为"), false},
		{List("梁启超", "梁启超"), false},
		{List("康有为"), false},
	}
	for _, tc := range tests {
		if got := Evaluate(q, tc.input).Correct; got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestEvaluate_FillInBlankPositionAlternative(t *testing.T) {
	q := Question{
		Type:         FillInBlank,
		Answer:       []string{"康有为", "梁启超"},
		Alternatives: []string{"[1]liang qichao"},
	}

	if !Evaluate(q, List("康有为", "liang qichao")).Correct {
		t.Error("position-tagged alternative should be accepted at its position")
	}
	if !Evaluate(q, List("康有为", "Liang Qichao")).Correct {
		t.Error("alternatives compare case-insensitively")
	}
	if Evaluate(q, List("liang qichao", "梁启超")).Correct {
		t.Error("position-tagged alternative must not match another position")
	}
}

func TestEvaluate_FillInBlankGroupsWithAlternatives(t *testing.T) {
	q := Question{
		Type:         FillInBlank,
		Answer:       []string{"辽", "西夏", "金"},
		Alternatives: []string{"契丹", "[1]大夏", "金朝"},
		Groups:       [][]int{{0, 1}},
	}

	tests := []struct {
		name  string
		input Answer
		want  bool
	}{
		{"original order", List("辽", "西夏", "金"), true},
		{"swap in group", List("西夏", "辽", "金"), true},
		{"global alternative at 0", List("契丹", "西夏", "金"), true},
		{"tagged alternative at 1", List("辽", "大夏", "金"), true},
		{"global alternative at 2", List("辽", "西夏", "金朝"), true},
		{"swap and alternative at 0", List("西夏", "契丹", "金"), true},
		{"swap and tagged alternative", List("大夏", "辽", "金"), true},
		{"all alternatives", List("契丹", "大夏", "金朝"), true},
		{"all alternatives swapped", List("大夏", "契丹", "金朝"), true},
		{"wrong at 2", List("辽", "西夏", "辽"), false},
		{"ungrouped position moved", List("金", "西夏", "辽"), false},
		{"all wrong", List("宋", "唐", "明"), false},
		{"tagged alternative consumes its slot", List("大夏", "西夏", "金"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(q, tc.input).Correct; got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestEvaluate_FillInBlankPersistedForm(t *testing.T) {
	q := Question{Type: FillInBlank, Answer: []string{"康有为", "梁启超"}}

	got := Evaluate(q, List("康有为", ""))
	if got.Correct {
		t.Error("empty blank should be incorrect")
	}
	if got.Normalized != "康有为|||" {
		t.Errorf("Normalized = %q, want %q", got.Normalized, "康有为|||")
	}

	folded := Evaluate(Question{Type: FillInBlank, Answer: []string{"Kang Youwei"}}, Text("  K’ang Yu-wei "))
	if folded.Normalized != "k'ang yu-wei" {
		t.Errorf("Normalized = %q, want case-folded %q", folded.Normalized, "k'ang yu-wei")
	}

	joined := Evaluate(q, Text("康有为|||梁启超"))
	if !joined.Correct {
		t.Error("separator-joined string should be split into blanks")
	}
}

func TestEvaluate_FillInBlankKeepsLetters(t *testing.T) {
	tests := []struct {
		canonical string
		input     string
		want      bool
	}{
		{"O", "O", true},
		{"O", "o", true},
		{"H", "H", true},
		{"A", "A", true},
		{"A", "0", false},
		{"O", "14", false},
	}
	for _, tc := range tests {
		q := Question{Type: FillInBlank, Answer: []string{tc.canonical}}
		got := Evaluate(q, Text(tc.input))
		if got.Correct != tc.want {
			t.Errorf("Evaluate(%q against %q) = %v, want %v", tc.input, tc.canonical, got.Correct, tc.want)
		}
		if want := strings.ToLower(tc.input); got.Normalized != want {
			t.Errorf("Normalized = %q, want %q", got.Normalized, want)
		}
	}
}

func TestEvaluate_FillInBlankPunctuationFolding(t *testing.T) {
	tests := []struct {
		canonical string
		input     string
	}{
		{"列夫·托尔斯泰", "列夫托尔斯泰"},
		{"列夫·托尔斯泰", "列夫•托尔斯泰"},
		{"列夫·托尔斯泰", "列夫・托尔斯泰"},
		{`"hello"`, "“hello”"},
		{"it's", "it’s"},
	}
	for _, tc := range tests {
		q := Question{Type: FillInBlank, Answer: []string{tc.canonical}}
		if !Evaluate(q, Text(tc.input)).Correct {
			t.Errorf("Evaluate(%q against %q) = false, want true", tc.input, tc.canonical)
		}
	}
}

func TestEvaluate_OutOfRangeGroupIgnored(t *testing.T) {
	q := Question{
		Type:   FillInBlank,
		Answer: []string{"a", "b"},
		Groups: [][]int{{0, 1, 7}},
	}
	if !Evaluate(q, List("b", "a")).Correct {
		t.Error("group with an out-of-range position should still match valid members")
	}
}

func TestEvaluate_Exact(t *testing.T) {
	q := Question{Type: Subjective, Answer: []string{"photosynthesis"}}
	tests := []struct {
		input Answer
		want  bool
	}{
		{Text("photosynthesis"), true},
		{Text("  photosynthesis "), true},
		{Text("Photosynthesis"), false},
		{Text(""), false},
	}
	for _, tc := range tests {
		if got := Evaluate(q, tc.input).Correct; got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}

	multi := Question{Type: Other, Answer: []string{"a", "b"}}
	if !Evaluate(multi, Text("a,b")).Correct {
		t.Error("list answers compare comma-joined")
	}
}

func TestAddAlternative(t *testing.T) {
	q := Question{Type: FillInBlank, Answer: []string{"康有为", "梁启超"}}
	submitted := List("康有为", "梁任公")

	alts, added := AddAlternative(q, submitted)
	if !added {
		t.Fatal("expected an alternative to be added")
	}
	if !slices.Equal(alts, []string{"[1]梁任公"}) {
		t.Errorf("alts = %v, want [[1]梁任公]", alts)
	}

	q.Alternatives = alts
	if !Evaluate(q, submitted).Correct {
		t.Error("submission should grade correct after registration")
	}

	if _, again := AddAlternative(q, submitted); again {
		t.Error("re-registering the same submission should be a no-op")
	}
}

func TestAddAlternative_SingleBlank(t *testing.T) {
	q := Question{Type: FillInBlank, Answer: []string{"北京"}, Alternatives: []string{"燕京"}}
	alts, added := AddAlternative(q, Text("北平"))
	if !added {
		t.Fatal("expected an alternative to be added")
	}
	if !slices.Equal(alts, []string{"燕京", "北平"}) {
		t.Errorf("alts = %v, want [燕京 北平]", alts)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		raw  string
		want Answer
	}{
		{`"D"`, Text("D")},
		{`D`, Text("D")},
		{`3`, Text("3")},
		{`[1,2]`, List("1", "2")},
		{`["B","C"]`, List("B", "C")},
		{`["康有为",null]`, List("康有为", "")},
		{`康有为|||梁启超`, Text("康有为|||梁启超")},
		{``, Text("")},
	}
	for _, tc := range tests {
		got, err := ParseAnswer(tc.raw)
		if err != nil {
			t.Errorf("ParseAnswer(%q): %v", tc.raw, err)
			continue
		}
		if !slices.Equal(got, tc.want) {
			t.Errorf("ParseAnswer(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}

	if _, err := ParseAnswer(`[{"a":1}]`); err == nil {
		t.Error("expected error for object element")
	}
}
