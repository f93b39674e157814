package usercontext_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/usercontext"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		update   *models.Update
		wantName string
		wantID   int64
		wantErr  bool
	}{
		{
			name: "username present",
			update: &models.Update{Message: &models.Message{
				From: &models.User{ID: 42, Username: "alice"},
			}},
			wantName: "alice",
			wantID:   42,
		},
		{
			name: "username missing falls back to id",
			update: &models.Update{Message: &models.Message{
				From: &models.User{ID: 42},
			}},
			wantName: "ID:42",
			wantID:   42,
		},
		{
			name:    "nil update",
			update:  nil,
			wantErr: true,
		},
		{
			name:    "no message",
			update:  &models.Update{ID: 1},
			wantErr: true,
		},
		{
			name:    "no sender",
			update:  &models.Update{Message: &models.Message{ID: 5, Text: "hi"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc, err := usercontext.Extract(context.Background(), nil, tt.update)
			if tt.wantErr {
				if !errors.Is(err, usercontext.ErrMissingUserInfo) {
					t.Fatalf("Extract() error = %v, want ErrMissingUserInfo", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() unexpected error = %v", err)
			}
			if uc.DisplayName != tt.wantName || uc.UserID != tt.wantID {
				t.Errorf("Extract() = (%q, %d), want (%q, %d)", uc.DisplayName, uc.UserID, tt.wantName, tt.wantID)
			}
		})
	}
}

func TestExtractLogsIdentifiers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	update := &models.Update{Message: &models.Message{From: &models.User{ID: 7, Username: "carol"}}}
	if _, err := usercontext.Extract(context.Background(), log, update); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "display_name=carol") || !strings.Contains(out, "user_id=7") {
		t.Errorf("log output %q lacks identifiers", out)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := usercontext.NewMemoryStore()

	keyA := usercontext.Key{ChatID: 1, UserID: 10}
	keyB := usercontext.Key{ChatID: 2, UserID: 10}

	if _, ok, err := store.Get(ctx, keyA); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}

	if err := store.Save(ctx, keyA, usercontext.UserContext{DisplayName: "alice", UserID: 10}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Get(ctx, keyA)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got.DisplayName != "alice" || got.CreatedAt.IsZero() {
		t.Errorf("Get() = %+v, want alice with CreatedAt set", got)
	}

	if _, ok, _ := store.Get(ctx, keyB); ok {
		t.Error("context leaked across chats")
	}

	if err := store.Delete(ctx, keyA); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, keyA); ok {
		t.Error("context still present after Delete")
	}
	if err := store.Delete(ctx, keyA); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestMemoryStoreEvictOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := usercontext.NewMemoryStore()
	now := time.Now().UTC()

	old := usercontext.Key{ChatID: 1, UserID: 1}
	fresh := usercontext.Key{ChatID: 1, UserID: 2}
	_ = store.Save(ctx, old, usercontext.UserContext{DisplayName: "old", UserID: 1, CreatedAt: now.Add(-48 * time.Hour)})
	_ = store.Save(ctx, fresh, usercontext.UserContext{DisplayName: "fresh", UserID: 2, CreatedAt: now})

	n, err := store.EvictOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("EvictOlderThan() error = %v", err)
	}
	if n != 1 {
		t.Errorf("EvictOlderThan() evicted %d, want 1", n)
	}
	if _, ok, _ := store.Get(ctx, old); ok {
		t.Error("old context survived eviction")
	}
	if _, ok, _ := store.Get(ctx, fresh); !ok {
		t.Error("fresh context was evicted")
	}
}

func TestMemoryStoreConcurrentChats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := usercontext.NewMemoryStore()

	var wg sync.WaitGroup
	for chat := int64(1); chat <= 50; chat++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			key := usercontext.Key{ChatID: chat, UserID: chat}
			_ = store.Save(ctx, key, usercontext.UserContext{DisplayName: usercontext.DisplayName("", chat), UserID: chat})
			_, _, _ = store.Get(ctx, key)
		}(chat)
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Errorf("Len() = %d, want 50", store.Len())
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	t.Parallel()
	store := usercontext.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Save(ctx, usercontext.Key{ChatID: 1}, usercontext.UserContext{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() with cancelled context error = %v, want context.Canceled", err)
	}
}
