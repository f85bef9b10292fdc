// Package schedule runs the archival sweep on a fixed interval.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

// SweepFunc performs one archival sweep.
type SweepFunc func(ctx context.Context) (store.ArchiveResult, error)

// sweepTimeout is the maximum time allowed for a single sweep.
const sweepTimeout = 5 * time.Minute

// Status reports the outcome of the most recent sweep.
type Status struct {
	LastRun    time.Time
	LastResult store.ArchiveResult
	LastError  error
	Runs       int
}

// Runner invokes a SweepFunc on a ticker until stopped.
type Runner struct {
	sweep    SweepFunc
	interval time.Duration
	logger   *slog.Logger

	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      sync.Mutex
	running bool
	status  Status
}

// New creates a Runner. A non-positive interval defaults to 24 hours.
func New(sweep SweepFunc, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sweep:     sweep,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
// Calling Start on a running Runner does nothing.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.loop(ctx, r.stopCh, r.doneCh)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
}

// Trigger requests an immediate sweep. Requests made while one is pending
// are coalesced.
func (r *Runner) Trigger() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the outcome of the most recent sweep.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	res, err := r.sweep(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "archival sweep failed", slog.Any("error", err))
	}

	r.mu.Lock()
	r.status = Status{
		LastRun:    time.Now(),
		LastResult: res,
		LastError:  err,
		Runs:       r.status.Runs + 1,
	}
	r.mu.Unlock()
}
