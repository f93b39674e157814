package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/usercontext"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler records the sender's context and greets them.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, asSender(b), update)
}

func (h startHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil {
		log.WarnContext(ctx, "Start handler received update with nil message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	uc, err := usercontext.Extract(ctx, log, update)
	if err != nil {
		log.ErrorContext(ctx, "Failed to extract user info", "error", err, "chat_id", chatID)
		sendApology(ctx, s, h.deps, log, chatID)
		return
	}

	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", uc.UserID)

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	err = h.deps.Store.Save(storeCtx, usercontext.KeyFor(update), uc)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Failed to store user context", "error", err, "chat_id", chatID)
		sendApology(ctx, s, h.deps, log, chatID)
		return
	}

	welcome := fillName(h.deps.Config.Messages.Welcome, uc.DisplayName)
	if err := sendText(ctx, s, h.deps, chatID, welcome); err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err, "chat_id", chatID)
	} else {
		log.DebugContext(ctx, "Successfully sent welcome message", "chat_id", chatID)
	}
}
