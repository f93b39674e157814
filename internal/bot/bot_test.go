package bot

import (
	"context"
	"testing"
	"time"
)

type blockingListener struct {
	started chan struct{}
}

func (l *blockingListener) Start(ctx context.Context) {
	close(l.started)
	<-ctx.Done()
}

type returningListener struct{}

func (returningListener) Start(context.Context) {}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(discardLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	listener := &blockingListener{started: make(chan struct{})}
	app := NewBot(discardLogger(), listener, newTestScheduler(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case <-listener.started:
	case <-time.After(5 * time.Second):
		t.Fatal("listener never started")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_ListenerExitIsError(t *testing.T) {
	t.Parallel()

	app := NewBot(discardLogger(), returningListener{}, newTestScheduler(t))

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Run() = nil, want error when listener exits on its own")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
}
