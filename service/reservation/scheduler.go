package reservation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// OverdueScanner is the slow-cadence job run alongside the sweep; the
// record service implements it.
type OverdueScanner interface {
	NotifyOverdue(ctx context.Context) (int, error)
}

// Scheduler owns the periodic reconciliation loops: a short-period sweep
// for prompt state transitions and an hourly-scale overdue scan. It has
// an explicit start/stop lifecycle and holds no process-wide state, so
// tests can run several instances side by side.
type Scheduler struct {
	sweeper      *Sweeper
	overdue      OverdueScanner
	sweepEvery   time.Duration
	overdueEvery time.Duration
	log          *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewScheduler(sweeper *Sweeper, overdue OverdueScanner, sweepEvery, overdueEvery time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:      sweeper,
		overdue:      overdue,
		sweepEvery:   sweepEvery,
		overdueEvery: overdueEvery,
		log:          log,
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.sweepEvery, s.runSweep)
	if s.overdue != nil {
		s.wg.Add(1)
		go s.loop(s.overdueEvery, s.runOverdue)
	}
}

// Stop halts the tickers and waits for in-flight passes. A pass is always
// safe to interrupt at a reservation boundary; anything unfinished is
// picked up by the next process.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(every time.Duration, run func(context.Context)) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			run(ctx)
			cancel()
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	st := s.sweeper.RunOnce(ctx)
	if st != (Stats{}) {
		s.log.Info("sweep pass",
			"activated", st.Activated,
			"conflicted", st.Conflicted,
			"reactivated", st.Reactivated,
			"expired", st.Expired,
			"reminders", st.Reminders,
			"errors", st.Errors,
		)
	}
}

func (s *Scheduler) runOverdue(ctx context.Context) {
	n, err := s.overdue.NotifyOverdue(ctx)
	if err != nil {
		s.log.Error("overdue scan failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("overdue scan", "notified", n)
	}
}
