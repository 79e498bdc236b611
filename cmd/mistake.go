package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/mistakes"
	"github.com/abhisek/quizdrill/internal/store"
	"github.com/abhisek/quizdrill/internal/ui/components"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

var mistakeCmd = &cobra.Command{
	Use:   "mistake",
	Short: "Review the mistake book",
}

var mistakeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded mistakes",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		kps, _ := cmd.Flags().GetStringSlice("kp")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := a.sessions.Mistakes().List(cmd.Context(), a.user, mistakes.ListFilter{
			KnowledgePointIDs: kps,
			IncludeCorrected:  all,
			Limit:             limit,
		})
		if err != nil {
			return err
		}
		printMistakes(cmd.OutOrStdout(), list, "No mistakes recorded.")
		return nil
	}),
}

var mistakeDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List mistakes due for review",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		list, err := a.sessions.Mistakes().Due(cmd.Context(), a.user, limit)
		if err != nil {
			return err
		}
		printMistakes(cmd.OutOrStdout(), list, "Nothing due for review.")
		return nil
	}),
}

var mistakeCorrectCmd = &cobra.Command{
	Use:   "correct <quiz-id>",
	Short: "Record a correct review of a mistaken quiz",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		m, err := a.sessions.Mistakes().RecordCorrection(cmd.Context(), a.user, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case m == nil:
			fmt.Fprintf(out, "No mistake recorded for %s.\n", args[0])
		case m.IsCorrected:
			fmt.Fprintln(out, theme.Correct.Render(fmt.Sprintf("%s corrected after %d reviews", m.QuizID, m.CorrectionCount)))
		default:
			fmt.Fprintf(out, "%s reviewed %d/%d, next review %s\n",
				m.QuizID, m.CorrectionCount, mistakes.GraduationThreshold, fmtTime(m.NextReviewDate))
		}
		return nil
	}),
}

func printMistakes(w io.Writer, list []*store.Mistake, empty string) {
	if len(list) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	rows := make([][]string, len(list))
	for i, m := range list {
		state := theme.Warning.Render("open")
		if m.IsCorrected {
			state = theme.Correct.Render("corrected")
		}
		rows[i] = []string{
			m.QuizID,
			orDash(m.KnowledgePointID),
			fmt.Sprint(m.MistakeCount),
			fmt.Sprintf("%d/%d", m.CorrectionCount, mistakes.GraduationThreshold),
			fmtTime(m.NextReviewDate),
			truncate(orDash(m.IncorrectAnswer), 24),
			state,
		}
	}
	fmt.Fprintln(w, components.Table{
		Headers: []string{"Quiz", "Knowledge point", "Misses", "Reviews", "Next review", "Last answer", "State"},
		Rows:    rows,
	}.Render())
}

func init() {
	mistakeListCmd.Flags().StringSlice("kp", nil, "Filter by knowledge point IDs")
	mistakeListCmd.Flags().Bool("all", false, "Include corrected mistakes")
	mistakeListCmd.Flags().IntP("limit", "n", 0, "Maximum rows (0 = all)")
	mistakeDueCmd.Flags().IntP("limit", "n", 20, "Maximum rows")

	mistakeCmd.AddCommand(mistakeListCmd)
	mistakeCmd.AddCommand(mistakeDueCmd)
	mistakeCmd.AddCommand(mistakeCorrectCmd)
}
