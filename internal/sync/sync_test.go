package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ok, failing atomic.Int32
	s := New("@every 1s", discard())
	s.Register(Job{Name: "tasks", Run: func(context.Context) error {
		ok.Add(1)
		return nil
	}})
	s.Register(Job{Name: "broken", Run: func(context.Context) error {
		failing.Add(1)
		return errors.New("offline")
	}})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return ok.Load() >= 1 && failing.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_NoJobs(t *testing.T) {
	err := New("@every 1s", discard()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoJobs)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New("not a schedule", discard())
	s.Register(Job{Name: "tasks", Run: func(context.Context) error { return nil }})

	err := s.Run(context.Background())
	assert.Error(t, err)
}
