package reservation

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemreserve/util/clockx"
)

type countingScanner struct{ calls atomic.Int32 }

func (c *countingScanner) NotifyOverdue(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestSchedulerRunsAndStops(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Empty store: every pass is a no-op, so no transactions are opened.
	f := newFakeStore()
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	sw := NewSweeper(db, f.resRepo(), f.itemRepo(), f.recordRepo(),
		clockx.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)), &notifierSpy{}, testPolicy, log)

	scanner := &countingScanner{}
	s := NewScheduler(sw, scanner, 5*time.Millisecond, 5*time.Millisecond, log)
	s.Start()
	s.Start() // second Start is a no-op

	assert.Eventually(t, func() bool {
		return scanner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop() // idempotent

	// No ticks land after Stop returns.
	n := scanner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, scanner.calls.Load())
}
