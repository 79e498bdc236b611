package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdrill/internal/config"
)

// cfg is resolved once per invocation by loadConfig.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "quizdrill",
	Short: "Practice sessions over a quiz bank",
	Long: "quizdrill runs practice sessions over an imported quiz bank, tracks mistakes " +
		"on a spaced review schedule and suggests what to practice next.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config.toml (default $XDG_CONFIG_HOME/quizdrill/config.toml)")
	pf.String("env-file", "", "Path to a .env file (default ./.env when present)")
	pf.String("db", "", "Path to SQLite database file (overrides QUIZDRILL_DB)")
	pf.String("driver", "", "Database driver: sqlite, postgres or mysql")
	pf.String("database-url", "", "Connection string for postgres or mysql")
	pf.StringP("user", "u", "", "User to act as (overrides QUIZDRILL_USER)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(strategyCmd)
	rootCmd.AddCommand(mistakeCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves defaults, the config file, the .env file and the
// environment, then applies flags on top.
func loadConfig(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	loaded, err := config.Load(config.LoadOptions{Path: path, EnvFile: envFile})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flag := func(dst *string, name string) {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			*dst = v
		}
	}
	flag(&loaded.Database.Path, "db")
	flag(&loaded.Database.Driver, "driver")
	flag(&loaded.Database.URL, "database-url")
	flag(&loaded.User, "user")
	flag(&loaded.LogLevel, "log-level")

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	level, _ := loaded.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg = loaded
	return nil
}
