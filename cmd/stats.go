package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/ui/components"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

const barWidth = 24

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice statistics",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		st, err := a.sessions.Statistics(cmd.Context(), a.user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if st.TotalSessions == 0 {
			fmt.Fprintln(out, "No practice yet. Create a session with `quizdrill session create`.")
			return nil
		}

		fmt.Fprintln(out, theme.Title.Render("Overview"))
		fmt.Fprintln(out, components.Fields(
			components.Field{Label: "Sessions", Value: fmt.Sprintf("%d (%d completed)", st.TotalSessions, st.CompletedSessions)},
			components.Field{Label: "Answered", Value: fmt.Sprintf("%d (%d correct, %d incorrect, %d skipped)",
				st.TotalAnswered, st.TotalCorrect, st.TotalIncorrect, st.TotalSkipped)},
			components.Field{Label: "Accuracy", Value: theme.Score(st.AverageAccuracy).Render(fmt.Sprintf("%.1f%%", st.AverageAccuracy))},
			components.Field{Label: "Time", Value: fmt.Sprintf("%.1f min", st.TotalTimeMinutes)},
		))

		if len(st.KnowledgePoints) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Title.Render("Knowledge points"))
			for _, kp := range st.KnowledgePoints {
				name := kp.Name
				if name == "" {
					name = kp.ID
				}
				fmt.Fprintf(out, "%s  %s\n",
					components.Bar{Label: name, LabelWidth: 20, Percent: kp.Accuracy, Width: barWidth}.Render(),
					theme.Label.Render(fmt.Sprintf("%d/%d, %.0fs avg", kp.Correct, kp.Total, kp.AverageTimeSeconds)))
			}
		}

		if len(st.Difficulty) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Title.Render("Difficulty"))
			for _, d := range st.Difficulty {
				fmt.Fprintf(out, "%s  %s\n",
					components.Bar{Label: d.Difficulty, LabelWidth: 20, Percent: d.Accuracy, Width: barWidth}.Render(),
					theme.Label.Render(fmt.Sprintf("%d/%d", d.Correct, d.Total)))
			}
		}

		if len(st.RecentSessions) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Title.Render("Recent sessions"))
			printSessionTable(out, st.RecentSessions)
		}
		return nil
	}),
}
