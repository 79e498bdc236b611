package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/quizbank"
	"github.com/abhisek/quizdrill/internal/store"
	"github.com/abhisek/quizdrill/internal/ui/components"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Manage the quiz bank",
}

var quizImportCmd = &cobra.Command{
	Use:   "import <file.json|file.toml>",
	Short: "Import quizzes and knowledge points from a bank file",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		format, err := quizbank.FormatOf(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open bank: %w", err)
		}
		defer f.Close()

		bank, err := quizbank.Decode(f, format)
		if err != nil {
			return err
		}
		res, err := quizbank.Import(cmd.Context(), a.store, bank)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d quizzes (%d already present), %d knowledge points.\n",
			res.Created, res.Skipped, res.KnowledgePoints)
		return nil
	}),
}

var quizListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quizzes in the bank",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		f := cmd.Flags()
		kps, _ := f.GetStringSlice("kp")
		difficulty, _ := f.GetString("difficulty")
		qtype, _ := f.GetString("type")
		limit, _ := f.GetInt("limit")
		offset, _ := f.GetInt("offset")

		filter := store.QuizFilter{
			KnowledgePointIDs: kps,
			Difficulty:        difficulty,
			Type:              grading.QuestionType(qtype),
		}
		quizzes := a.store.Quizzes()
		list, err := quizzes.List(cmd.Context(), filter, limit, offset)
		if err != nil {
			return err
		}
		total, err := quizzes.Count(cmd.Context(), filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No quizzes found. Import a bank with `quizdrill quiz import`.")
			return nil
		}
		rows := make([][]string, len(list))
		for i, q := range list {
			rows[i] = []string{q.ID, string(q.Type), q.KnowledgePointID, orDash(q.Difficulty), truncate(q.Question, 48)}
		}
		fmt.Fprintln(out, components.Table{
			Headers: []string{"ID", "Type", "Knowledge point", "Difficulty", "Question"},
			Rows:    rows,
		}.Render())
		fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("%d of %d quizzes", len(list), total)))
		return nil
	}),
}

func init() {
	f := quizListCmd.Flags()
	f.StringSlice("kp", nil, "Filter by knowledge point IDs")
	f.String("difficulty", "", "Filter by difficulty")
	f.String("type", "", "Filter by question type")
	f.IntP("limit", "n", 50, "Number of quizzes to show")
	f.Int("offset", 0, "Quizzes to skip")

	quizCmd.AddCommand(quizImportCmd)
	quizCmd.AddCommand(quizListCmd)
}
