package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// isolate points the default config and .env lookups at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{Getenv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Practice.DefaultQuestionCount != 20 {
		t.Errorf("DefaultQuestionCount = %d, want 20", cfg.Practice.DefaultQuestionCount)
	}
	if cfg.Practice.WrongHistorySessions != 10 {
		t.Errorf("WrongHistorySessions = %d, want 10", cfg.Practice.WrongHistorySessions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.toml", `
log_level = "warn"

[database]
driver = "postgres"
url = "postgres://localhost/quizdrill"

[practice]
default_question_count = 15
shuffle_questions = true

[llm]
provider = "gemini"
timeout = "20s"
`)
	envFile := writeFile(t, dir, "test.env", "QUIZDRILL_QUESTION_COUNT=25\nQUIZDRILL_LOG_LEVEL=debug\n")

	cfg, err := Load(LoadOptions{
		Path:    path,
		EnvFile: envFile,
		Getenv:  envMap(map[string]string{"QUIZDRILL_QUESTION_COUNT": "30"}),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Practice.DefaultQuestionCount != 30 {
		t.Errorf("DefaultQuestionCount = %d, want 30 (process env wins)", cfg.Practice.DefaultQuestionCount)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (.env beats file)", cfg.LogLevel)
	}
	if !cfg.Practice.ShuffleQuestions {
		t.Error("ShuffleQuestions = false, want true")
	}
	if cfg.Practice.WrongHistorySessions != 10 {
		t.Errorf("WrongHistorySessions = %d, want default 10", cfg.Practice.WrongHistorySessions)
	}
	if cfg.LLM.Timeout.Duration != 20*time.Second {
		t.Errorf("LLM.Timeout = %v, want 20s", cfg.LLM.Timeout.Duration)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", level)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)
	unknown := writeFile(t, dir, "bad.toml", "[practice]\nquestion_cnt = 3\n")

	tests := []struct {
		name string
		opts LoadOptions
		want string
	}{
		{"missing explicit file", LoadOptions{Path: filepath.Join(dir, "nope.toml")}, "stat config"},
		{"unknown key", LoadOptions{Path: unknown}, "practice.question_cnt"},
		{"missing env file", LoadOptions{EnvFile: filepath.Join(dir, "nope.env")}, "read env file"},
		{"bad number", LoadOptions{Getenv: envMap(map[string]string{"QUIZDRILL_QUESTION_COUNT": "many"})}, "QUIZDRILL_QUESTION_COUNT"},
		{"bad bool", LoadOptions{Getenv: envMap(map[string]string{"QUIZDRILL_SHUFFLE_QUESTIONS": "maybe"})}, "QUIZDRILL_SHUFFLE_QUESTIONS"},
		{"bad duration", LoadOptions{Getenv: envMap(map[string]string{"QUIZDRILL_LLM_TIMEOUT": "soon"})}, "QUIZDRILL_LLM_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.opts.Getenv == nil {
				tt.opts.Getenv = envMap(nil)
			}
			_, err := Load(tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"mysql with url", func(c *Config) { c.Database.Driver = "mysql"; c.Database.URL = "u:p@/db" }, true},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, false},
		{"zero question count", func(c *Config) { c.Practice.DefaultQuestionCount = 0 }, false},
		{"too many questions", func(c *Config) { c.Practice.DefaultQuestionCount = 101 }, false},
		{"zero wrong history", func(c *Config) { c.Practice.WrongHistorySessions = 0 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestDataSource(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Database.Path = filepath.Join(dir, "nested", "q.db")
	driver, source, err := cfg.DataSource()
	if err != nil {
		t.Fatalf("DataSource: %v", err)
	}
	if driver != "sqlite" || source != cfg.Database.Path {
		t.Errorf("DataSource = %q, %q", driver, source)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}

	cfg.Database = DatabaseConfig{Driver: "postgres", URL: "postgres://db"}
	driver, source, _ = cfg.DataSource()
	if driver != "postgres" || source != "postgres://db" {
		t.Errorf("DataSource = %q, %q", driver, source)
	}
}

func TestProviderConfig_FromEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := writeFile(t, dir, ".env", "QUIZDRILL_LLM_PROVIDER=openrouter\nQUIZDRILL_OPENROUTER_API_KEY=sk-or\n")

	cfg, err := Load(LoadOptions{
		EnvFile: envFile,
		Getenv:  envMap(map[string]string{"QUIZDRILL_LLM_MODEL": "openai/gpt-4.1-mini", "QUIZDRILL_LLM_TIMEOUT": "5s"}),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pc, ok := cfg.ProviderConfig()
	if !ok {
		t.Fatal("ProviderConfig reported no provider")
	}
	if pc.Provider != "openrouter" {
		t.Errorf("Provider = %q, want openrouter", pc.Provider)
	}
	if pc.OpenRouter.APIKey != "sk-or" {
		t.Errorf("APIKey = %q, want sk-or", pc.OpenRouter.APIKey)
	}
	if pc.OpenRouter.Model != "openai/gpt-4.1-mini" {
		t.Errorf("Model = %q", pc.OpenRouter.Model)
	}
	if pc.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", pc.Timeout)
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
