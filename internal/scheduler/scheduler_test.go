package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/scheduler"
)

type countingTicker struct {
	ticks atomic.Int32
	err   error
}

func (t *countingTicker) Tick(context.Context) error {
	t.ticks.Add(1)
	return t.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunTicksOnInterval(t *testing.T) {
	first := &countingTicker{}
	second := &countingTicker{err: errors.New("flaky")}
	s := scheduler.New(10*time.Millisecond, discardLogger())
	s.Register(first)
	s.Register(second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return first.ticks.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	// A failing ticker never stops the others.
	require.GreaterOrEqual(t, second.ticks.Load(), int32(2))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestKickTicksImmediately(t *testing.T) {
	ticker := &countingTicker{}
	s := scheduler.New(time.Hour, discardLogger())
	s.Register(ticker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Kick()
	require.Eventually(t, func() bool {
		return ticker.ticks.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestKickCoalesces(t *testing.T) {
	s := scheduler.New(time.Hour, discardLogger())
	// Without a running loop, repeated kicks must not block.
	for i := 0; i < 10; i++ {
		s.Kick()
	}
}
