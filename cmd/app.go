package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/judge"
	"github.com/abhisek/quizdrill/internal/llm"
	"github.com/abhisek/quizdrill/internal/session"
	"github.com/abhisek/quizdrill/internal/store"
	"github.com/abhisek/quizdrill/internal/strategy"
)

// app bundles the services one command needs.
type app struct {
	store      *store.Store
	sessions   *session.Manager
	strategies *strategy.Engine
	user       string
}

type appOptions struct {
	// judge wires an LLM judge into the session manager. Opening fails when
	// no provider is configured.
	judge bool
}

// openApp opens the configured store and builds the services on top of it.
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	ctx := cmd.Context()
	logger := slog.Default()

	driver, source, err := cfg.DataSource()
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.OpenDialect(ctx, driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	tracker := strategy.NewWeaknessTracker(st)
	mopts := []session.Option{
		session.WithLogger(logger),
		session.WithWeaknessRefresher(tracker),
		session.WithDefaultQuestionCount(cfg.Practice.DefaultQuestionCount),
		session.WithWrongHistory(cfg.Practice.WrongHistorySessions),
	}

	if opts.judge {
		pc, ok := cfg.ProviderConfig()
		if !ok {
			st.Close()
			return nil, fmt.Errorf("no LLM provider configured: set QUIZDRILL_LLM_PROVIDER and its API key")
		}
		provider, err := llm.NewProvider(ctx, pc, st.Events(), logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("LLM provider: %w", err)
		}
		mopts = append(mopts, session.WithJudge(judge.NewLLMJudge(provider, judge.DefaultConfig())))
	}

	mgr := session.NewManager(st, mopts...)
	return &app{
		store:    st,
		sessions: mgr,
		strategies: strategy.NewEngine(st, mgr,
			strategy.WithLogger(logger),
			strategy.WithWeaknessTracker(tracker)),
		user: cfg.User,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp opens the app, runs fn and closes the store.
func withApp(opts appOptions, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
