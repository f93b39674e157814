package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/usercontext"
)

var errNoSender = errors.New("no telegram sender available")

// annotate prefixes a reply with the sender's identity.
func annotate(uc usercontext.UserContext, text string) string {
	return fmt.Sprintf("@%s (ID: %d):\n%s", uc.DisplayName, uc.UserID, text)
}

// fillName replaces the {name} placeholder of a message template.
func fillName(tmpl, name string) string {
	return strings.ReplaceAll(tmpl, "{name}", name)
}

// fillBotName replaces @botname with the bot's own username, when known.
func fillBotName(cfg *config.Config, text string) string {
	if cfg.Telegram.BotInfo == nil || cfg.Telegram.BotInfo.Username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+cfg.Telegram.BotInfo.Username)
}

// splitMessage cuts text into chunks of at most limit characters, preferring
// to break after a newline in the second half of a chunk.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// sendText delivers text to chatID, split into as many messages as the
// configured length limit requires. It stops at the first failed send.
func sendText(ctx context.Context, s Sender, deps HandlerDeps, chatID int64, text string) error {
	if s == nil {
		return errNoSender
	}

	timeout := deps.Config.Telegram.ReplyTimeout
	if timeout <= 0 {
		timeout = config.DefaultTelegramReplyTimeout
	}

	for i, chunk := range splitMessage(text, deps.Config.Bot.MaxMessageLength) {
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := s.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: chunk})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to send message part %d to chat %d: %w", i+1, chatID, err)
		}
	}
	return nil
}

// sendApology makes a single attempt at telling the user something went wrong.
func sendApology(ctx context.Context, s Sender, deps HandlerDeps, log *slog.Logger, chatID int64) {
	if err := sendText(ctx, s, deps, chatID, deps.Config.Messages.Apology); err != nil {
		log.ErrorContext(ctx, "Failed to send apology message", "error", err, "chat_id", chatID)
	}
}
