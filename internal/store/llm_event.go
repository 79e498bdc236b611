package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var llmCallColumns = []string{
	"created_at", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

// eventRepo implements EventRepo on the llm_calls table.
type eventRepo struct {
	c conn
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	ins := r.c.b.Insert(tableLLMCalls).
		Columns(llmCallColumns...).
		Values(formatTime(r.c.now()), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, boolInt(data.Success),
			data.ErrorMessage, data.RequestBody, data.ResponseBody)
	if _, err := r.c.exec(ctx, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func scanLLMEvent(sc scanner) (*LLMRequestEvent, error) {
	var (
		e         LLMRequestEvent
		createdAt string
		success   int
	)
	err := sc.Scan(&e.ID, &createdAt, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens,
		&e.OutputTokens, &e.LatencyMs, &success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	if err != nil {
		return nil, err
	}
	e.Success = success != 0
	if e.Timestamp, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, limit int, purpose string) ([]LLMRequestEvent, error) {
	t := r.c.b.Table(tableLLMCalls)
	sel := r.c.b.Select(append([]string{t.C("id")}, qualify(t, llmCallColumns)...)...).From(t)
	if purpose != "" {
		sel.Where(entsql.EQ(t.C("purpose"), purpose))
	}
	sel.OrderBy(entsql.Desc(t.C("id")))
	if limit > 0 {
		sel.Limit(limit)
	}

	rows, err := r.c.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	t := r.c.b.Table(tableLLMCalls)
	sel := r.c.b.Select(append([]string{t.C("id")}, qualify(t, llmCallColumns)...)...).From(t).
		Where(entsql.EQ(t.C("id"), id))
	e, err := scanLLMEvent(r.c.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	return e, nil
}
