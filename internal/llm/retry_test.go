package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestRetry(t *testing.T) {
	ok := MockResponse{Content: json.RawMessage(`{"acceptable":true,"confidence":1}`)}
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	invalid := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("not a verdict")}}

	tests := []struct {
		name      string
		attempts  int
		replies   []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first try", 3, []MockResponse{ok}, 1, false},
		{"outage then success", 3, []MockResponse{down, ok}, 2, false},
		{"rate limited then success", 3, []MockResponse{{Err: &ErrRateLimit{}}, ok}, 2, false},
		{"outage every time", 3, []MockResponse{down, down, down, ok}, 3, true},
		{"truncation is final", 3, []MockResponse{{Err: &ErrMaxTokensExceeded{}}, ok}, 1, true},
		{"rejection is final", 3, []MockResponse{{Err: &ErrRequestRejected{Status: 401}}, ok}, 1, true},
		{"invalid reply retried once", 3, []MockResponse{invalid, ok}, 2, false},
		{"invalid reply twice gives up", 5, []MockResponse{invalid, invalid, ok}, 2, true},
		{"zero attempts still calls", 0, []MockResponse{down, ok}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.replies...)
			resp, err := WithRetry(mock, fastRetry(tt.attempts)).Generate(context.Background(), Request{})

			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(resp.Content) != string(ok.Content) {
				t.Errorf("Content = %s", resp.Content)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("first")}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("second")}},
	)
	_, err := WithRetry(mock, fastRetry(2)).Generate(context.Background(), Request{})
	if err == nil || err.Error() != "LLM provider unavailable: second" {
		t.Fatalf("error = %v, want the second failure", err)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 40 * time.Millisecond}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	start := time.Now()
	if _, err := WithRetry(mock, fastRetry(2)).Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("retried after %v, want at least 40ms", elapsed)
	}
}

func TestRetry_StopsWhenContextEnds(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	cfg := fastRetry(2)
	cfg.InitialWait = time.Minute
	cfg.MaxWait = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := WithRetry(mock, cfg).Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetry_Backoff(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{
		InitialWait: 100 * time.Millisecond,
		MaxWait:     300 * time.Millisecond,
		Multiplier:  2,
	}}
	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{6, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		got := r.backoff(tt.attempt, errors.New("x"))
		lo, hi := tt.base*8/10, tt.base*12/10
		if got < lo || got > hi {
			t.Errorf("backoff(%d) = %v, want within [%v, %v]", tt.attempt, got, lo, hi)
		}
	}

	if got := r.backoff(0, &ErrRateLimit{RetryAfter: 2 * time.Second}); got != 2*time.Second {
		t.Errorf("backoff with Retry-After = %v, want 2s", got)
	}
}

func TestRetry_ModelID(t *testing.T) {
	if got := WithRetry(NewMockProvider(), fastRetry(1)).ModelID(); got != "mock" {
		t.Errorf("ModelID = %q, want mock", got)
	}
}
