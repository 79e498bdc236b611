package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/store"
	"github.com/abhisek/quizdrill/internal/ui/components"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

const timeLayout = "2006-01-02 15:04"

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func printSession(w io.Writer, s *store.Session) {
	limit := "none"
	if s.TimeLimitMinutes != nil {
		limit = fmt.Sprintf("%d min", *s.TimeLimitMinutes)
	}
	strategy := s.Strategy
	if strategy == "" {
		strategy = "-"
	}
	fmt.Fprintln(w, components.Fields(
		components.Field{Label: "Session", Value: theme.Title.Render(s.ID)},
		components.Field{Label: "Status", Value: theme.Status(string(s.Status)).Render(string(s.Status))},
		components.Field{Label: "Strategy", Value: strategy},
		components.Field{Label: "Progress", Value: fmt.Sprintf("%d/%d answered, %d correct, %d incorrect, %d skipped",
			s.AnsweredQuestions, s.TotalQuestions, s.CorrectAnswers, s.IncorrectAnswers, s.SkippedQuestions)},
		components.Field{Label: "Score", Value: theme.Score(s.Score).Render(fmt.Sprintf("%.1f%%", s.Score))},
		components.Field{Label: "Time limit", Value: limit},
		components.Field{Label: "Started", Value: fmtTime(s.StartedAt)},
		components.Field{Label: "Completed", Value: fmtTime(s.CompletedAt)},
	))
}

// printQuestion shows a question without revealing its answer.
func printQuestion(w io.Writer, q *store.SessionQuestion) {
	header := fmt.Sprintf("Q%d  %s", q.Number, theme.Label.Render(string(q.Type)))
	if q.Difficulty != "" {
		header += theme.Label.Render(" · " + q.Difficulty)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, theme.Hint.Render("id "+q.ID))
	fmt.Fprintln(w, q.Question)
	for i, opt := range q.Options {
		fmt.Fprintf(w, "  %c) %s\n", 'A'+i, opt)
	}
	if q.Type == grading.FillInBlank && len(q.Answer) > 1 {
		fmt.Fprintln(w, theme.Hint.Render(fmt.Sprintf("%d blanks: answer as a JSON list", len(q.Answer))))
	}
}

func questionState(q *store.SessionQuestion) string {
	switch {
	case q.IsSkipped && !q.Answered():
		return theme.Warning.Render("skipped")
	case !q.Answered():
		return theme.Label.Render("open")
	case *q.IsCorrect:
		return theme.Correct.Render("correct")
	default:
		return theme.Incorrect.Render("incorrect")
	}
}

func printQuestionTable(w io.Writer, qs []*store.SessionQuestion, answers map[string]string) {
	rows := make([][]string, len(qs))
	for i, q := range qs {
		ans := answers[q.ID]
		if ans == "" {
			ans = "-"
		}
		rows[i] = []string{
			fmt.Sprint(q.Number),
			q.ID,
			string(q.Type),
			truncate(q.Question, 40),
			truncate(strings.ReplaceAll(ans, grading.BlankSeparator, " | "), 24),
			questionState(q),
		}
	}
	fmt.Fprintln(w, components.Table{
		Headers: []string{"#", "ID", "Type", "Question", "Answer", "Result"},
		Rows:    rows,
	}.Render())
}

func printSessionTable(w io.Writer, sessions []*store.Session) {
	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{
			s.ID,
			theme.Status(string(s.Status)).Render(string(s.Status)),
			orDash(s.Strategy),
			fmt.Sprintf("%d/%d", s.AnsweredQuestions, s.TotalQuestions),
			theme.Score(s.Score).Render(fmt.Sprintf("%.1f%%", s.Score)),
			s.CreatedAt.Local().Format(timeLayout),
		}
	}
	fmt.Fprintln(w, components.Table{
		Headers: []string{"ID", "Status", "Strategy", "Answered", "Score", "Created"},
		Rows:    rows,
	}.Render())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
