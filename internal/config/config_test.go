package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/relaybot/internal/config"
)

// clearEnv neutralises variables that may leak in from the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TELEGRAM_TOKEN", "AI_API_KEY",
		"RELAYBOT_TELEGRAM_TOKEN", "RELAYBOT_COMPLETION_API_KEY",
		"RELAYBOT_COMPLETION_MODEL", "RELAYBOT_LOGGER_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_DefaultsFromEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("AI_API_KEY", "sk-test")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Telegram.Token, "123:abc")
	}
	if cfg.Completion.APIKey != "sk-test" {
		t.Errorf("Completion.APIKey = %q, want %q", cfg.Completion.APIKey, "sk-test")
	}

	c := cfg.Completion
	if c.BaseURL != config.DefaultCompletionBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, config.DefaultCompletionBaseURL)
	}
	if c.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", c.MaxTokens)
	}
	if c.Temperature != 1.0 || c.TopP != 1.0 {
		t.Errorf("Temperature/TopP = %v/%v, want 1/1", c.Temperature, c.TopP)
	}
	if c.FrequencyPenalty != 1.4 || c.PresencePenalty != 0.8 {
		t.Errorf("penalties = %v/%v, want 1.4/0.8", c.FrequencyPenalty, c.PresencePenalty)
	}
	if c.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", c.Timeout)
	}
	if !cfg.Bot.AnnotateReplies {
		t.Error("AnnotateReplies should default to true")
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	task, ok := cfg.Scheduler.Tasks[config.TaskContextEviction]
	if !ok {
		t.Fatalf("scheduler task %q missing from defaults", config.TaskContextEviction)
	}
	if task.Enabled {
		t.Error("context eviction should be disabled by default")
	}
}

func TestLoadConfig_MissingSecrets(t *testing.T) {
	tests := []struct {
		name  string
		token string
		key   string
	}{
		{name: "missing token", token: "", key: "sk-test"},
		{name: "missing api key", token: "123:abc", key: ""},
		{name: "missing both", token: "", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TELEGRAM_TOKEN", tt.token)
			t.Setenv("AI_API_KEY", tt.key)

			_, err := config.LoadConfig("")
			if err == nil {
				t.Fatal("LoadConfig() expected error, got nil")
			}
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("error %v is not ErrConfiguration", err)
			}
		})
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
logger:
  level: debug
  json: false
telegram:
  token: file-token
completion:
  api_key: file-key
  model: file-model
  include_user_info: true
  system_prompt: You are a helpful assistant.
bot:
  annotate_replies: false
store:
  backend: sqlite
`)
	t.Setenv("RELAYBOT_COMPLETION_MODEL", "env-model")
	t.Setenv("TELEGRAM_TOKEN", "env-token")

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Logger.Level != "debug" || cfg.Logger.JSON {
		t.Errorf("Logger = %+v, want level debug, json false", cfg.Logger)
	}
	if cfg.Completion.Model != "env-model" {
		t.Errorf("Completion.Model = %q, want env override", cfg.Completion.Model)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("Telegram.Token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Completion.APIKey != "file-key" {
		t.Errorf("Completion.APIKey = %q, want file value", cfg.Completion.APIKey)
	}
	if !cfg.Completion.IncludeUserInfo || cfg.Completion.SystemPrompt == "" {
		t.Errorf("Completion prompt settings not loaded: %+v", cfg.Completion)
	}
	if cfg.Bot.AnnotateReplies {
		t.Error("AnnotateReplies should be false from file")
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want sqlite", cfg.Store.Backend)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "temperature out of range",
			body: "completion:\n  temperature: 3.5\n",
		},
		{
			name: "unknown log level",
			body: "logger:\n  level: verbose\n",
		},
		{
			name: "unknown store backend",
			body: "store:\n  backend: redis\n",
		},
		{
			name: "bad base url",
			body: "completion:\n  base_url: not a url\n",
		},
		{
			name: "enabled task without schedule",
			body: "scheduler:\n  tasks:\n    context_eviction:\n      enabled: true\n      schedule: \"\"\n",
		},
		{
			name: "malformed yaml",
			body: "completion: [\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TELEGRAM_TOKEN", "123:abc")
			t.Setenv("AI_API_KEY", "sk-test")

			_, err := config.LoadConfig(writeConfig(t, tt.body))
			if !errors.Is(err, config.ErrConfiguration) {
				t.Fatalf("LoadConfig() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv() on missing file error = %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RELAYBOT_LOGGER_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	// godotenv never overrides a set variable, even an empty one.
	if err := os.Unsetenv("RELAYBOT_LOGGER_LEVEL"); err != nil {
		t.Fatalf("Unsetenv() error = %v", err)
	}
	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("RELAYBOT_LOGGER_LEVEL"); got != "warn" {
		t.Errorf("RELAYBOT_LOGGER_LEVEL = %q, want warn", got)
	}
}

func TestLoadConfig_ExampleFileMatchesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "tg")
	t.Setenv("AI_API_KEY", "key")

	cfg, err := config.LoadConfig(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	msgs := cfg.Messages
	if msgs.Help != config.DefaultMsgHelp {
		t.Errorf("Help = %q, want %q", msgs.Help, config.DefaultMsgHelp)
	}
	if msgs.Welcome != config.DefaultMsgWelcome || msgs.Apology != config.DefaultMsgApology ||
		msgs.UsernameFound != config.DefaultMsgUsernameFound || msgs.UsernameNotFound != config.DefaultMsgUsernameNotFound {
		t.Errorf("Messages = %+v, want the defaults", msgs)
	}
	if cfg.Completion.Model != config.DefaultCompletionModel || cfg.Completion.Temperature != config.DefaultCompletionTemperature {
		t.Errorf("Completion = %+v, want the defaults", cfg.Completion)
	}
}
