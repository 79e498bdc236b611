package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/llm"
	"github.com/abhisek/quizdrill/internal/ui/components"
	"github.com/abhisek/quizdrill/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM request/response events",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events with estimated cost",
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		events, err := a.store.Events().QueryLLMEvents(cmd.Context(), limit, purpose)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM events found.")
			return nil
		}

		var (
			total   float64
			unknown bool
		)
		rows := make([][]string, len(events))
		for i, e := range events {
			ok := theme.Correct.Render("✓")
			if !e.Success {
				ok = theme.Incorrect.Render("✗")
			}
			cost := "?"
			if c, known := llm.EstimateCost(e.Model, e.InputTokens, e.OutputTokens); known {
				cost = formatCost(c)
				total += c
			} else {
				unknown = true
			}
			rows[i] = []string{
				strconv.FormatInt(e.ID, 10),
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				truncate(e.Model, 28),
				strconv.Itoa(e.InputTokens),
				strconv.Itoa(e.OutputTokens),
				strconv.FormatInt(e.LatencyMs, 10),
				cost,
				ok,
			}
		}
		fmt.Fprintln(out, components.Table{
			Headers: []string{"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "Cost", "OK"},
			Rows:    rows,
		}.Render())

		label := "Total"
		if unknown {
			label = "Total (partial)"
		}
		fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("%s: %s", label, formatCost(total))))
		return nil
	}),
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View full request/response for an LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(appOptions{}, func(cmd *cobra.Command, a *app, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		e, err := a.store.Events().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		cost := "unknown"
		if c, ok := llm.EstimateCost(e.Model, e.InputTokens, e.OutputTokens); ok {
			cost = formatCost(c)
		}
		fields := []components.Field{
			{Label: "ID", Value: strconv.FormatInt(e.ID, 10)},
			{Label: "Time", Value: e.Timestamp.Local().Format("2006-01-02 15:04:05")},
			{Label: "Provider", Value: e.Provider},
			{Label: "Model", Value: e.Model},
			{Label: "Purpose", Value: e.Purpose},
			{Label: "Tokens", Value: fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)},
			{Label: "Cost", Value: cost},
			{Label: "Latency", Value: fmt.Sprintf("%dms", e.LatencyMs)},
			{Label: "Success", Value: fmt.Sprint(e.Success)},
		}
		if e.ErrorMessage != "" {
			fields = append(fields, components.Field{Label: "Error", Value: theme.Incorrect.Render(e.ErrorMessage)})
		}
		fmt.Fprintln(out, components.Fields(fields...))

		sep := theme.Rule.Render(strings.Repeat("─", 60))
		for _, part := range []struct{ name, body string }{
			{"REQUEST", e.RequestBody},
			{"RESPONSE", e.ResponseBody},
		} {
			fmt.Fprintln(out)
			fmt.Fprintln(out, sep)
			fmt.Fprintln(out, theme.Heading.Render(part.name))
			fmt.Fprintln(out, sep)
			if part.body != "" {
				fmt.Fprintln(out, part.body)
			} else {
				fmt.Fprintln(out, theme.Hint.Render("(not captured)"))
			}
		}
		return nil
	}),
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. answer-reevaluation)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
}
