package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/completion"
	"github.com/edgard/relaybot/internal/usercontext"
)

const storeTimeout = 5 * time.Second

type messageHandler struct {
	deps HandlerDeps
}

// NewMessageHandler creates the default handler: every plain text message is
// relayed to the completion client and the answer is sent back to the chat.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, asSender(b), update)
}

func (h messageHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil {
		log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring message without text", "chat_id", msg.Chat.ID, "message_id", msg.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", msg.Chat.ID, "text", msg.Text)
		return
	}

	chatID := msg.Chat.ID

	uc, err := usercontext.Extract(ctx, log, update)
	if err != nil {
		log.ErrorContext(ctx, "Failed to extract user info", "error", err, "chat_id", chatID)
		sendApology(ctx, s, deps, log, chatID)
		return
	}

	h.rememberUser(ctx, usercontext.KeyFor(update), uc)

	if s != nil {
		if _, err := s.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping}); err != nil {
			log.WarnContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
		}
	}

	res := deps.Completion.Complete(ctx, msg.Text, &uc)
	if res.Ok() && strings.TrimSpace(res.Text) == "" {
		// Telegram rejects empty messages.
		res = completion.Failed(&completion.Error{Kind: completion.ErrMalformedResponse})
	}
	if !res.Ok() {
		log.WarnContext(ctx, "Completion failed, relaying error text", "error", res.Err, "chat_id", chatID)
	}

	reply := res.Message()
	if deps.Config.Bot.AnnotateReplies {
		reply = annotate(uc, reply)
	}

	if err := sendText(ctx, s, deps, chatID, reply); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
		if !errors.Is(err, errNoSender) {
			sendApology(ctx, s, deps, log, chatID)
		}
		return
	}

	log.InfoContext(ctx, "Sent reply", "chat_id", chatID, "user_id", uc.UserID, "completion_ok", res.Ok())
}

// rememberUser stores uc unless the chat already has a context for this user.
// Store failures are logged and do not block the reply.
func (h messageHandler) rememberUser(ctx context.Context, key usercontext.Key, uc usercontext.UserContext) {
	log := h.deps.Logger.With("handler", "message")

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, found, err := h.deps.Store.Get(storeCtx, key)
	if err != nil {
		log.WarnContext(ctx, "Failed to read stored user context", "error", err, "chat_id", key.ChatID, "user_id", key.UserID)
		return
	}
	if found {
		return
	}
	if err := h.deps.Store.Save(storeCtx, key, uc); err != nil {
		log.WarnContext(ctx, "Failed to store user context", "error", err, "chat_id", key.ChatID, "user_id", key.UserID)
	}
}
