// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"runtime/debug"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover creates a middleware that turns a panic in the wrapped handler into
// a logged error and an apology to the originating chat.
func Recover(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			guard(ctx, deps, asSender(bot), update, func() { next(ctx, bot, update) })
		}
	}
}

func guard(ctx context.Context, deps HandlerDeps, s Sender, update *models.Update, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		log := deps.Logger.With("middleware", "Recover")
		log.ErrorContext(ctx, "Recovered from panic in handler",
			"panic", r,
			"update_id", update.ID,
			"stack", string(debug.Stack()))

		// Only message updates have a chat to apologise to.
		if update.Message == nil {
			return
		}
		sendApology(ctx, s, deps, log, update.Message.Chat.ID)
	}()

	fn()
}
