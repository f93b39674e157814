package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/completion"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/usercontext"
)

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      usercontext.Store
	Completion completion.Client
}

// Sender is the part of the Telegram client the handlers talk to.
// *bot.Bot satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

var _ Sender = (*bot.Bot)(nil)

// asSender avoids wrapping a nil *bot.Bot in a non-nil interface.
func asSender(b *bot.Bot) Sender {
	if b == nil {
		return nil
	}
	return b
}
