package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/grading"
	"github.com/abhisek/quizdrill/internal/session"
	"github.com/abhisek/quizdrill/internal/store"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create, answer and inspect practice sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a practice session",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		f := cmd.Flags()
		kps, _ := f.GetStringSlice("kp")
		count, _ := f.GetInt("count")
		mix, _ := f.GetString("mix")
		difficulty, _ := f.GetString("difficulty")
		qtype, _ := f.GetString("type")
		quizIDs, _ := f.GetStringSlice("quiz")
		shuffleOpts, _ := f.GetBool("shuffle-options")

		shuffle := cfg.Practice.ShuffleQuestions
		if f.Changed("shuffle") {
			shuffle, _ = f.GetBool("shuffle")
		}

		req := session.CreateRequest{
			KnowledgePointIDs: kps,
			QuestionCount:     count,
			Mix:               session.Mix(mix),
			Difficulty:        difficulty,
			Type:              grading.QuestionType(qtype),
			ShuffleQuestions:  shuffle,
			ShuffleOptions:    shuffleOpts,
			QuizIDs:           quizIDs,
		}
		if f.Changed("time-limit") {
			limit, _ := f.GetInt("time-limit")
			req.TimeLimitMinutes = &limit
		}

		res, err := a.sessions.Create(cmd.Context(), a.user, req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Empty {
			fmt.Fprintln(out, theme.Warning.Render(res.Message))
			return nil
		}
		printSession(out, res.Session)
		fmt.Fprintln(out)
		if len(res.Questions) > 0 {
			printQuestion(out, res.Questions[0])
		}
		return nil
	}),
}

// transition is a Manager method expression such as (*session.Manager).Pause.
type transition func(m *session.Manager, ctx context.Context, sessionID, userID string) (*store.Session, error)

// lifecycleCmd builds one of the id-only state transition commands.
func lifecycleCmd(use, short string, op transition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
			s, err := op(a.sessions, cmd.Context(), args[0], a.user)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		}),
	}
}

var sessionResumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a session at its current question",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		res, err := a.sessions.Resume(cmd.Context(), args[0], a.user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printSession(out, res.Session)
		fmt.Fprintln(out)
		if res.CurrentIndex < len(res.Questions) {
			printQuestion(out, res.Questions[res.CurrentIndex])
		}
		return nil
	}),
}

var sessionSubmitCmd = &cobra.Command{
	Use:   "submit <session-id> <question-id> <answer>...",
	Short: "Submit an answer",
	Long: "Submit an answer. A single argument may be a JSON string or list; " +
		"several arguments are taken as one answer per blank.",
	Args: cobra.MinimumNArgs(3),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		answer, err := answerArgs(args[2:])
		if err != nil {
			return err
		}
		spent, _ := cmd.Flags().GetInt("time")

		res, err := a.sessions.Submit(cmd.Context(), session.SubmitRequest{
			SessionID:        args[0],
			QuestionID:       args[1],
			UserID:           a.user,
			Answer:           answer,
			TimeSpentSeconds: spent,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.Correct {
			fmt.Fprintln(out, theme.Correct.Render("✓ Correct"))
		} else {
			fmt.Fprintln(out, theme.Incorrect.Render("✗ Incorrect"))
		}
		fmt.Fprintf(out, "%d/%d answered, score %.1f%%\n",
			res.Session.AnsweredQuestions, res.Session.TotalQuestions, res.Session.Score)
		if res.Session.Status == store.StatusCompleted {
			fmt.Fprintln(out, theme.Title.Render("Session complete"))
			return nil
		}
		if res.NextQuestion != nil {
			fmt.Fprintln(out)
			printQuestion(out, res.NextQuestion)
		}
		return nil
	}),
}

func answerArgs(args []string) (grading.Answer, error) {
	if len(args) == 1 {
		return grading.ParseAnswer(args[0])
	}
	return grading.List(args...), nil
}

var sessionSkipCmd = &cobra.Command{
	Use:   "skip <session-id> <question-id>",
	Short: "Skip a question",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		spent, _ := cmd.Flags().GetInt("time")
		res, err := a.sessions.Skip(cmd.Context(), session.SkipRequest{
			SessionID:        args[0],
			QuestionID:       args[1],
			UserID:           a.user,
			TimeSpentSeconds: spent,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Skipped Q%d (%d skipped so far)\n", res.Question.Number, res.Session.SkippedQuestions)
		if res.NextQuestion != nil && res.NextQuestion.ID != res.Question.ID {
			fmt.Fprintln(out)
			printQuestion(out, res.NextQuestion)
		}
		return nil
	}),
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its questions",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		d, err := a.sessions.Get(cmd.Context(), args[0], a.user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printSession(out, d.Session)
		fmt.Fprintln(out)
		printQuestionTable(out, d.Questions, d.Answers)
		return nil
	}),
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past sessions, newest first",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		page, err := a.sessions.History(cmd.Context(), a.user, session.HistoryFilter{
			Status: store.SessionStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(page.Sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		printSessionTable(out, page.Sessions)
		fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("%d of %d sessions", len(page.Sessions), page.Total)))
		return nil
	}),
}

var sessionReevaluateCmd = &cobra.Command{
	Use:   "reevaluate <session-id> <question-id>",
	Short: "Ask the AI judge to reconsider a wrong fill-in answer",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(appOptions{judge: true}, func(cmd *cobra.Command, a *app, args []string) error {
		res, err := a.sessions.Reevaluate(cmd.Context(), session.ReevaluateRequest{
			SessionID:  args[0],
			QuestionID: args[1],
			UserID:     a.user,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Accepted {
			fmt.Fprintln(out, theme.Correct.Render("Accepted"))
		} else {
			fmt.Fprintln(out, theme.Incorrect.Render("Not accepted"))
		}
		if res.Reasoning != "" {
			fmt.Fprintln(out, theme.Hint.Render(res.Reasoning))
		}
		fmt.Fprintf(out, "Score %.1f%%\n", res.Session.Score)
		return nil
	}),
}

func init() {
	f := sessionCreateCmd.Flags()
	f.StringSlice("kp", nil, "Knowledge point IDs to draw from")
	f.IntP("count", "n", 0, "Number of questions (default from config)")
	f.String("mix", "", "Question mix: new-only, wrong-only or with-wrong")
	f.String("difficulty", "", "Only easy, medium or hard questions")
	f.String("type", "", "Only questions of this type")
	f.Int("time-limit", 0, "Advisory time limit in minutes")
	f.Bool("shuffle", false, "Shuffle question order")
	f.Bool("shuffle-options", false, "Shuffle choice options")
	f.StringSlice("quiz", nil, "Use exactly these quiz IDs")

	sessionSubmitCmd.Flags().Int("time", 0, "Seconds spent on the question")
	sessionSkipCmd.Flags().Int("time", 0, "Seconds spent on the question")

	sessionHistoryCmd.Flags().String("status", "", "Filter by status")
	sessionHistoryCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	sessionHistoryCmd.Flags().Int("offset", 0, "Sessions to skip")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(lifecycleCmd("start", "Start a created session", (*session.Manager).Start))
	sessionCmd.AddCommand(lifecycleCmd("pause", "Pause an in-progress session", (*session.Manager).Pause))
	sessionCmd.AddCommand(lifecycleCmd("complete", "Complete a session", (*session.Manager).Complete))
	sessionCmd.AddCommand(lifecycleCmd("abandon", "Abandon a session", (*session.Manager).Abandon))
	sessionCmd.AddCommand(sessionResumeCmd)
	sessionCmd.AddCommand(sessionSubmitCmd)
	sessionCmd.AddCommand(sessionSkipCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(sessionReevaluateCmd)
}
