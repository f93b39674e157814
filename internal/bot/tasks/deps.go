// Package tasks implements scheduled maintenance tasks for the relay bot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/usercontext"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  usercontext.Store
	Config *config.Config

	// Now defaults to time.Now when nil.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
