package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/strategy"
	"github.com/abhisek/quizdrill/internal/ui/components"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Pick practice strategies based on weaknesses and mistakes",
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the strategies available to you",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		user := a.user
		if all, _ := cmd.Flags().GetBool("all"); all {
			user = ""
		}
		defs, err := a.strategies.Available(cmd.Context(), user)
		if err != nil {
			return err
		}
		rows := make([][]string, len(defs))
		for i, d := range defs {
			rows[i] = []string{string(d.Code), d.Name, d.Description}
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Table{
			Headers: []string{"Code", "Name", "Description"},
			Rows:    rows,
		}.Render())
		return nil
	}),
}

var strategyRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest what to practice next",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		recs, err := a.strategies.Recommend(cmd.Context(), a.user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Card.Render(
			theme.Title.Render(recs.Primary.Name)+"\n"+
				recs.Primary.Reason+"\n"+
				theme.Hint.Render("quizdrill strategy generate --code "+string(recs.Primary.Code)+" --create")))
		for _, r := range recs.Alternatives {
			fmt.Fprintf(out, "  %d. %s  %s\n", r.Priority, theme.Selected.Render(r.Name), theme.Label.Render(r.Reason))
		}
		return nil
	}),
}

var strategyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compose a session with a strategy",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		f := cmd.Flags()
		code, _ := f.GetString("code")
		kps, _ := f.GetStringSlice("kp")
		count, _ := f.GetInt("count")
		create, _ := f.GetBool("create")
		shuffleOpts, _ := f.GetBool("shuffle-options")

		if count == 0 {
			count = cfg.Practice.DefaultQuestionCount
		}
		req := strategy.GenerateRequest{
			StrategyCode:      strategy.Code(code),
			KnowledgePointIDs: kps,
			QuestionCount:     count,
		}
		if f.Changed("time-limit") {
			limit, _ := f.GetInt("time-limit")
			req.TimeLimitMinutes = &limit
		}

		out := cmd.OutOrStdout()
		if !create {
			plan, err := a.strategies.Generate(cmd.Context(), a.user, req)
			if err != nil {
				return err
			}
			printPlan(cmd, plan)
			fmt.Fprintln(out, theme.Hint.Render("Run again with --create to start this session."))
			return nil
		}

		plan, res, err := a.strategies.CreateSession(cmd.Context(), a.user, req,
			strategy.SessionOptions{ShuffleOptions: shuffleOpts})
		if err != nil {
			return err
		}
		printPlan(cmd, plan)
		fmt.Fprintln(out)
		printSession(out, res.Session)
		if len(res.Questions) > 0 {
			fmt.Fprintln(out)
			printQuestion(out, res.Questions[0])
		}
		return nil
	}),
}

func printPlan(cmd *cobra.Command, p *strategy.Plan) {
	out := cmd.OutOrStdout()
	md := p.Metadata
	if md.FallbackFrom != "" {
		fmt.Fprintln(out, theme.Warning.Render(fmt.Sprintf("Not enough history for %s, using %s.", md.FallbackFrom, p.StrategyCode)))
	}
	fields := []components.Field{
		{Label: "Strategy", Value: theme.Selected.Render(string(p.StrategyCode))},
		{Label: "Questions", Value: fmt.Sprint(md.TotalQuestions)},
		{Label: "Estimated", Value: fmt.Sprintf("%d min", (md.EstimatedSeconds+59)/60)},
	}
	switch p.StrategyCode {
	case strategy.WeaknessReinforcement:
		fields = append(fields, components.Field{Label: "Weak / other", Value: fmt.Sprintf("%d / %d", md.WeakQuestions, md.OtherQuestions)})
	case strategy.MistakeReinforcement:
		fields = append(fields, components.Field{Label: "Repeat / similar", Value: fmt.Sprintf("%d / %d", md.MistakeQuestions, md.SimilarQuestions)})
	}
	fmt.Fprintln(out, components.Fields(fields...))

	for _, kp := range slices.Sorted(maps.Keys(md.Distribution)) {
		fmt.Fprintf(out, "  %-20s %d\n", kp, md.Distribution[kp])
	}
}

var strategyAnalyticsCmd = &cobra.Command{
	Use:   "analytics <code>",
	Short: "Show how a strategy has worked for you",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		an, err := a.strategies.Analytics(cmd.Context(), a.user, strategy.Code(args[0]))
		if err != nil {
			return err
		}
		fields := []components.Field{
			{Label: "Strategy", Value: theme.Selected.Render(string(an.Code))},
			{Label: "Sessions", Value: fmt.Sprint(an.TotalSessions)},
			{Label: "Last used", Value: fmtTime(an.LastUsedAt)},
			{Label: "Average", Value: theme.Score(an.AverageScore).Render(fmt.Sprintf("%.1f%%", an.AverageScore))},
			{Label: "Improvement", Value: fmt.Sprintf("%+.1f points", an.Improvement)},
		}
		if e := an.Effectiveness; e != nil {
			fields = append(fields, components.Field{Label: "Effectiveness",
				Value: fmt.Sprintf("%d improved, %d remaining", e.Improved, e.Remaining)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Fields(fields...))
		return nil
	}),
}

func init() {
	strategyListCmd.Flags().Bool("all", false, "List every strategy regardless of history")

	f := strategyGenerateCmd.Flags()
	f.StringP("code", "c", string(strategy.QuickPractice), "Strategy code")
	f.StringSlice("kp", nil, "Knowledge point IDs to draw from")
	f.IntP("count", "n", 0, "Number of questions (default from config)")
	f.Int("time-limit", 0, "Advisory time limit in minutes")
	f.Bool("create", false, "Create the session instead of only previewing it")
	f.Bool("shuffle-options", false, "Shuffle choice options")

	strategyCmd.AddCommand(strategyListCmd)
	strategyCmd.AddCommand(strategyRecommendCmd)
	strategyCmd.AddCommand(strategyGenerateCmd)
	strategyCmd.AddCommand(strategyAnalyticsCmd)
}
