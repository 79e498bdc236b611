// Package config loads quizdrill settings from defaults, a TOML file, a
// .env file and QUIZDRILL_* environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/quizdrill/internal/llm"
	"github.com/abhisek/quizdrill/internal/session"
	"github.com/abhisek/quizdrill/internal/store"
)

const envPrefix = "QUIZDRILL_"

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Practice PracticeConfig `toml:"practice"`
	LLM      LLMConfig      `toml:"llm"`
	LogLevel string         `toml:"log_level"`

	// User owns the sessions, mistakes and weaknesses the CLI works on.
	User string `toml:"user"`

	// getenv is the merged process and .env lookup used by Load. Provider
	// keys are read through it so they may live in .env.
	getenv func(string) string
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite, postgres or mysql
	Path   string `toml:"path"`   // sqlite file
	URL    string `toml:"url"`    // postgres/mysql connection string
}

// PracticeConfig holds session defaults.
type PracticeConfig struct {
	DefaultQuestionCount int  `toml:"default_question_count"`
	WrongHistorySessions int  `toml:"wrong_history_sessions"`
	ShuffleQuestions     bool `toml:"shuffle_questions"`
}

// LLMConfig selects the judge provider. Empty fields defer to the
// provider-specific QUIZDRILL_* variables read by the llm package.
type LLMConfig struct {
	Provider string   `toml:"provider"`
	Model    string   `toml:"model"`
	Timeout  Duration `toml:"timeout"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Practice: PracticeConfig{
			DefaultQuestionCount: session.DefaultQuestionCount,
			WrongHistorySessions: session.DefaultWrongHistory,
		},
		LogLevel: "info",
		User:     "local",
		getenv:   os.Getenv,
	}
}

// ApplyEnv overlays QUIZDRILL_* values found through getenv onto c.
// Malformed numbers and booleans are reported, not ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(dst *string, name string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str(&c.Database.Driver, "DB_DRIVER")
	str(&c.Database.Path, "DB")
	str(&c.Database.URL, "DATABASE_URL")
	str(&c.LLM.Provider, "LLM_PROVIDER")
	str(&c.LLM.Model, "LLM_MODEL")
	str(&c.LogLevel, "LOG_LEVEL")
	str(&c.User, "USER")

	if v := getenv(envPrefix + "QUESTION_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sQUESTION_COUNT: %w", envPrefix, err)
		}
		c.Practice.DefaultQuestionCount = n
	}
	if v := getenv(envPrefix + "WRONG_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWRONG_HISTORY: %w", envPrefix, err)
		}
		c.Practice.WrongHistorySessions = n
	}
	if v := getenv(envPrefix + "SHUFFLE_QUESTIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSHUFFLE_QUESTIONS: %w", envPrefix, err)
		}
		c.Practice.ShuffleQuestions = b
	}
	if v := getenv(envPrefix + "LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sLLM_TIMEOUT: %w", envPrefix, err)
		}
		c.LLM.Timeout = Duration{d}
	}
	c.getenv = getenv
	return nil
}

// Validate checks the values that cannot be fixed up later.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres", "mysql":
		if c.Database.URL == "" {
			return fmt.Errorf("database url is required for the %s driver", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if n := c.Practice.DefaultQuestionCount; n < 1 || n > session.MaxQuestionCount {
		return fmt.Errorf("default_question_count must be between 1 and %d, got %d", session.MaxQuestionCount, n)
	}
	if c.Practice.WrongHistorySessions < 1 {
		return fmt.Errorf("wrong_history_sessions must be positive, got %d", c.Practice.WrongHistorySessions)
	}
	if c.User == "" {
		return fmt.Errorf("user must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// DataSource returns the driver name and connection source for
// store.OpenDialect. A sqlite path defaults to the XDG data directory.
func (c Config) DataSource() (driver, source string, err error) {
	if c.Database.Driver != "sqlite" {
		return c.Database.Driver, c.Database.URL, nil
	}
	if c.Database.Path != "" {
		return "sqlite", c.Database.Path, store.EnsureDir(c.Database.Path)
	}
	p, err := store.DefaultDBPath()
	if err != nil {
		return "", "", err
	}
	return "sqlite", p, nil
}

// ProviderConfig builds the judge provider config. The second result is
// false when no provider is selected and no vendor API key is found.
func (c Config) ProviderConfig() (llm.Config, bool) {
	getenv := c.getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	var cfg llm.Config
	if c.LLM.Provider == "" {
		discovered, ok := llm.DiscoverConfig()
		if !ok {
			return llm.Config{}, false
		}
		cfg = discovered
	} else {
		cfg = llm.DefaultConfig()
		cfg.ApplyEnv(getenv)
		cfg.Provider = c.LLM.Provider
	}
	cfg.SetModel(c.LLM.Model)
	if c.LLM.Timeout.Duration > 0 {
		cfg.Timeout = c.LLM.Timeout.Duration
	}
	return cfg, true
}

// DefaultPath returns $XDG_CONFIG_HOME/quizdrill/config.toml.
func DefaultPath() string {
	return filepath.Join(xdgConfigHome(), "quizdrill", "config.toml")
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}
