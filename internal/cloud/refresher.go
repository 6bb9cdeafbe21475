package cloud

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chordscout/internal/logging"
)

// Refresher keeps the capability report warm by re-probing on a fixed cadence.
// It is process-wide: its lifetime is owned by whoever calls Start, never by
// an individual job. Start is idempotent while running; Stop waits for the
// loop goroutine to exit.
type Refresher struct {
	probe    *Probe
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current Report
}

// NewRefresher builds a refresher around probe. Interval values at or below
// zero fall back to 45 seconds.
func NewRefresher(probe *Probe, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &Refresher{
		probe:    probe,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "cloud-refresher"),
	}
}

// Start launches the refresh loop. The first probe happens immediately so
// Latest is populated before the first tick.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)
}

// Stop halts the refresh loop and blocks until it has exited. Safe to call
// when not running.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Latest returns the most recent report. The zero Report (no services, zero
// CheckedAt) means no probe has completed yet.
func (r *Refresher) Latest() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	r.refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	report := r.probe.Status(ctx)
	r.mu.Lock()
	r.current = report
	r.mu.Unlock()
	if report.Degraded {
		r.logger.Debug("capability refresh degraded", logging.String("probe_error", report.ProbeError))
		return
	}
	r.logger.Debug("capability refreshed", logging.Bool("any_healthy", report.AnyHealthy()))
}
