package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultTelegramReplyTimeout = 10 * time.Second

	DefaultCompletionBaseURL          = "https://openrouter.ai/api/v1"
	DefaultCompletionModel            = "openai/gpt-3.5-turbo"
	DefaultCompletionMaxTokens        = 2000
	DefaultCompletionTemperature      = 1.0
	DefaultCompletionTopP             = 1.0
	DefaultCompletionFrequencyPenalty = 1.4
	DefaultCompletionPresencePenalty  = 0.8
	DefaultCompletionTimeout          = 2 * time.Minute

	DefaultBotAnnotateReplies  = true
	DefaultBotMaxMessageLength = 4096 // Telegram's maximum message length

	DefaultStoreBackend = "memory"
	DefaultStoreIdleTTL = 24 * time.Hour

	// Task names as used under scheduler.tasks
	TaskContextEviction = "context_eviction"
)

// Default user-facing messages
const (
	DefaultMsgWelcome          = "Hello, {name} 😏"
	DefaultMsgUsernameFound    = "Your username: @{name}"
	DefaultMsgUsernameNotFound = "Sorry, I can't find your username. Send /start first."
	DefaultMsgApology          = "An error occurred, please try again later."
	DefaultMsgHelp             = "Send me any text and @botname will forward it to the language model.\n\n" +
		"/start - introduce yourself\n" +
		"/username - show the username I know you by\n" +
		"/help - show this message"
)

// envAliases binds keys to extra environment variable names, checked in order.
var envAliases = map[string][]string{
	"telegram.token":     {EnvPrefix + "_TELEGRAM_TOKEN", "TELEGRAM_TOKEN"},
	"completion.api_key": {EnvPrefix + "_COMPLETION_API_KEY", "AI_API_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.reply_timeout", DefaultTelegramReplyTimeout)

	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.base_url", DefaultCompletionBaseURL)
	v.SetDefault("completion.model", DefaultCompletionModel)
	v.SetDefault("completion.max_tokens", DefaultCompletionMaxTokens)
	v.SetDefault("completion.temperature", DefaultCompletionTemperature)
	v.SetDefault("completion.top_p", DefaultCompletionTopP)
	v.SetDefault("completion.frequency_penalty", DefaultCompletionFrequencyPenalty)
	v.SetDefault("completion.presence_penalty", DefaultCompletionPresencePenalty)
	v.SetDefault("completion.system_prompt", "")
	v.SetDefault("completion.include_user_info", false)
	v.SetDefault("completion.timeout", DefaultCompletionTimeout)

	v.SetDefault("bot.annotate_replies", DefaultBotAnnotateReplies)
	v.SetDefault("bot.max_message_length", DefaultBotMaxMessageLength)

	v.SetDefault("messages.welcome", DefaultMsgWelcome)
	v.SetDefault("messages.username_found", DefaultMsgUsernameFound)
	v.SetDefault("messages.username_not_found", DefaultMsgUsernameNotFound)
	v.SetDefault("messages.apology", DefaultMsgApology)
	v.SetDefault("messages.help", DefaultMsgHelp)

	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.idle_ttl", DefaultStoreIdleTTL)

	v.SetDefault("scheduler.tasks."+TaskContextEviction+".enabled", false)
	v.SetDefault("scheduler.tasks."+TaskContextEviction+".schedule", "0 0 * * * *")
}
