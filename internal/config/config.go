// Package config provides configuration loading, validation, and management
// for the relay bot. It reads an optional YAML file, applies defaults,
// overlays environment variables and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key when read from the environment
// (e.g. RELAYBOT_COMPLETION_MODEL for completion.model).
const EnvPrefix = "RELAYBOT"

// ErrConfiguration marks every error returned by LoadConfig.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration parameters for all components
// of the relay bot: logging, Telegram transport, completion API, reply
// behaviour, user context storage and scheduled tasks.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Completion CompletionConfig `mapstructure:"completion"`
	Bot        BotConfig        `mapstructure:"bot"`
	Messages   MessagesConfig   `mapstructure:"messages"`
	Store      StoreConfig      `mapstructure:"store"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and transport timeouts.
type TelegramConfig struct {
	Token        string        `mapstructure:"token"         validate:"required"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout" validate:"min=1s,max=5m"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// CompletionConfig describes the chat-completion endpoint and the generation
// parameters sent with every request.
type CompletionConfig struct {
	APIKey           string        `mapstructure:"api_key"           validate:"required"`
	BaseURL          string        `mapstructure:"base_url"          validate:"required,url"`
	Model            string        `mapstructure:"model"             validate:"required"`
	MaxTokens        int           `mapstructure:"max_tokens"        validate:"min=1,max=200000"`
	Temperature      float32       `mapstructure:"temperature"       validate:"min=0,max=2"`
	TopP             float32       `mapstructure:"top_p"             validate:"gt=0,max=1"`
	FrequencyPenalty float32       `mapstructure:"frequency_penalty" validate:"min=-2,max=2"`
	PresencePenalty  float32       `mapstructure:"presence_penalty"  validate:"min=-2,max=2"`
	SystemPrompt     string        `mapstructure:"system_prompt"`
	IncludeUserInfo  bool          `mapstructure:"include_user_info"`
	Timeout          time.Duration `mapstructure:"timeout"           validate:"min=1s,max=10m"`
}

// BotConfig controls how replies are shaped before they are sent.
type BotConfig struct {
	AnnotateReplies  bool `mapstructure:"annotate_replies"`
	MaxMessageLength int  `mapstructure:"max_message_length" validate:"min=64,max=4096"`
}

// MessagesConfig holds the user-facing texts. {name} is replaced with the
// user's display name and @botname with the bot's username.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"            validate:"required"`
	UsernameFound    string `mapstructure:"username_found"     validate:"required"`
	UsernameNotFound string `mapstructure:"username_not_found" validate:"required"`
	Apology          string `mapstructure:"apology"            validate:"required"`
	Help             string `mapstructure:"help"               validate:"required"`
}

// StoreConfig selects the user context store backend.
type StoreConfig struct {
	Backend string        `mapstructure:"backend"  validate:"oneof=memory sqlite"`
	IdleTTL time.Duration `mapstructure:"idle_ttl" validate:"min=1m"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a scheduled task and gives its cron expression (with seconds).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error. Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No .env file found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("%w: failed to load env file %s: %v", ErrConfiguration, path, err)
	}
	slog.Debug("Loaded .env file", "path", path)
	return nil
}

// LoadConfig reads configuration from the YAML file at path (optional),
// applies defaults and environment overrides, and validates the result.
// The bot token and completion API key are also read from the
// TELEGRAM_TOKEN and AI_API_KEY variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("%w: failed to bind env for %s: %v", ErrConfiguration, key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks the struct tags of the whole configuration.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
