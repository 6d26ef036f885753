package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) DeleteExpired(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 2, s.err
}

func TestCleanupSessions_RunsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cleanupSessions(ctx, sweeper, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond,
		"errors must not stop the sweeper")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanupSessions did not return after cancel")
	}
}

func TestCleanupSessions_DisabledInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	cleanupSessions(context.Background(), sweeper, 0, zap.NewNop())
	assert.Equal(t, int32(0), sweeper.calls.Load())
}
