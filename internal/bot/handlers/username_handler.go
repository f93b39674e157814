package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/usercontext"
)

// NewUsernameHandler returns a handler for the /username command.
func NewUsernameHandler(deps HandlerDeps) bot.HandlerFunc {
	return usernameHandler{deps}.Handle
}

// usernameHandler reports the name stored for the sender in this chat.
type usernameHandler struct {
	deps HandlerDeps
}

func (h usernameHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, asSender(b), update)
}

func (h usernameHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "username")

	if update.Message == nil {
		log.WarnContext(ctx, "Username handler received update with nil message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	if update.Message.From == nil {
		log.InfoContext(ctx, "Username requested without sender info", "chat_id", chatID)
		h.reply(ctx, s, chatID, msgs.UsernameNotFound)
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	uc, found, err := h.deps.Store.Get(storeCtx, usercontext.KeyFor(update))
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Failed to read stored user context", "error", err, "chat_id", chatID)
		sendApology(ctx, s, h.deps, log, chatID)
		return
	}

	log.InfoContext(ctx, "Handling /username command", "chat_id", chatID, "user_id", update.Message.From.ID, "found", found)

	if !found {
		h.reply(ctx, s, chatID, msgs.UsernameNotFound)
		return
	}
	h.reply(ctx, s, chatID, fillName(msgs.UsernameFound, uc.DisplayName))
}

func (h usernameHandler) reply(ctx context.Context, s Sender, chatID int64, text string) {
	if err := sendText(ctx, s, h.deps, chatID, text); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send username reply", "handler", "username", "error", err, "chat_id", chatID)
	}
}
