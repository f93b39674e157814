package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/relaybot/internal/usercontext"
)

// contextRow mirrors one row of the user_contexts table.
type contextRow struct {
	ChatID      int64  `db:"chat_id"`
	UserID      int64  `db:"user_id"`
	DisplayName string `db:"display_name"`
	CreatedAt   int64  `db:"created_at"` // unix nanoseconds, UTC
}

// sqlxStore implements usercontext.Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewContextStore creates a usercontext.Store backed by sqlx.
// It requires a connected, migrated sqlx.DB instance.
func NewContextStore(db *sqlx.DB, logger *slog.Logger) usercontext.Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "context_store"),
	}
}

func (s *sqlxStore) Get(ctx context.Context, key usercontext.Key) (usercontext.UserContext, bool, error) {
	var row contextRow
	query := `
        SELECT chat_id, user_id, display_name, created_at
        FROM user_contexts
        WHERE chat_id = ? AND user_id = ?;
    `

	err := s.db.GetContext(ctx, &row, query, key.ChatID, key.UserID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user context found", "chat_id", key.ChatID, "user_id", key.UserID)
		return usercontext.UserContext{}, false, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user context",
			"chat_id", key.ChatID, "user_id", key.UserID, "error", err)
		return usercontext.UserContext{}, false, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user context", "chat_id", key.ChatID, "user_id", key.UserID, "error", err)
		return usercontext.UserContext{}, false, fmt.Errorf("failed to get user context (chat %d, user %d): %w", key.ChatID, key.UserID, err)
	}

	return usercontext.UserContext{
		DisplayName: row.DisplayName,
		UserID:      row.UserID,
		CreatedAt:   time.Unix(0, row.CreatedAt).UTC(),
	}, true, nil
}

func (s *sqlxStore) Save(ctx context.Context, key usercontext.Key, uc usercontext.UserContext) error {
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = time.Now().UTC()
	}
	row := contextRow{
		ChatID:      key.ChatID,
		UserID:      key.UserID,
		DisplayName: uc.DisplayName,
		CreatedAt:   uc.CreatedAt.UnixNano(),
	}

	query := `
        INSERT INTO user_contexts (chat_id, user_id, display_name, created_at)
        VALUES (:chat_id, :user_id, :display_name, :created_at)
        ON CONFLICT (chat_id, user_id) DO UPDATE SET
            display_name = excluded.display_name,
            created_at   = excluded.created_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user context", "chat_id", key.ChatID, "user_id", key.UserID, "error", err)
		return fmt.Errorf("failed to save user context (chat %d, user %d): %w", key.ChatID, key.UserID, err)
	}

	s.logger.DebugContext(ctx, "User context saved", "chat_id", key.ChatID, "user_id", key.UserID, "display_name", uc.DisplayName)
	return nil
}

func (s *sqlxStore) Delete(ctx context.Context, key usercontext.Key) error {
	query := `DELETE FROM user_contexts WHERE chat_id = ? AND user_id = ?;`
	if _, err := s.db.ExecContext(ctx, query, key.ChatID, key.UserID); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting user context", "chat_id", key.ChatID, "user_id", key.UserID, "error", err)
		return fmt.Errorf("failed to delete user context (chat %d, user %d): %w", key.ChatID, key.UserID, err)
	}
	return nil
}

func (s *sqlxStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM user_contexts WHERE created_at < ?;`
	result, err := s.db.ExecContext(ctx, query, cutoff.UTC().UnixNano())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error evicting user contexts", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to evict user contexts: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows after eviction", "error", err)
		return 0, nil
	}

	s.logger.DebugContext(ctx, "Evicted user contexts", "count", affected, "cutoff", cutoff)
	return int(affected), nil
}
