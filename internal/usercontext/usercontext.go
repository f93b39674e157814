// Package usercontext derives the sender identity attached to each relayed
// message and defines the store that keeps it for the lifetime of a chat.
package usercontext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-telegram/bot/models"
)

// ErrMissingUserInfo is returned when an update carries no sender data.
var ErrMissingUserInfo = errors.New("missing user info")

// UserContext identifies the sender of a message.
type UserContext struct {
	DisplayName string
	UserID      int64
	CreatedAt   time.Time
}

// Key addresses one stored context. Contexts are isolated per chat.
type Key struct {
	ChatID int64
	UserID int64
}

// DisplayName returns username when set, otherwise "ID:<userID>".
func DisplayName(username string, userID int64) string {
	if username != "" {
		return username
	}
	return "ID:" + strconv.FormatInt(userID, 10)
}

// Extract derives the sender's context from an update.
func Extract(ctx context.Context, log *slog.Logger, update *models.Update) (UserContext, error) {
	if update == nil || update.Message == nil {
		return UserContext{}, fmt.Errorf("%w: update has no message", ErrMissingUserInfo)
	}
	from := update.Message.From
	if from == nil {
		return UserContext{}, fmt.Errorf("%w: message %d has no sender", ErrMissingUserInfo, update.Message.ID)
	}

	uc := UserContext{
		DisplayName: DisplayName(from.Username, from.ID),
		UserID:      from.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if log != nil {
		log.InfoContext(ctx, "Extracted user info", "display_name", uc.DisplayName, "user_id", uc.UserID)
	}
	return uc, nil
}

// KeyFor returns the store key for the chat and sender of an update.
// The update must already have passed Extract.
func KeyFor(update *models.Update) Key {
	return Key{ChatID: update.Message.Chat.ID, UserID: update.Message.From.ID}
}
