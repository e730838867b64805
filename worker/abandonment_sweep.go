// Package worker holds background jobs that run alongside the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const minSweepInterval = time.Second

// Sweeper is the part of the funnel engine the sweep worker drives.
type Sweeper interface {
	SweepAbandoned(ctx context.Context) int
}

// AbandonmentSweeper periodically moves idle users to completed history, so users
// who simply stop sending events are still classified as abandoned.
type AbandonmentSweeper struct {
	engine   Sweeper
	interval time.Duration
	log      *logrus.Entry
}

func NewAbandonmentSweeper(engine Sweeper, interval time.Duration, log *logrus.Entry) *AbandonmentSweeper {
	if interval < minSweepInterval {
		interval = 5 * time.Minute
	}
	return &AbandonmentSweeper{engine: engine, interval: interval, log: log}
}

// Start runs until ctx is cancelled.
func (w *AbandonmentSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("abandonment sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("abandonment sweeper stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep, recovering from panics so the next tick still runs.
func (w *AbandonmentSweeper) RunOnce(ctx context.Context) (moved int) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("abandonment sweep panicked, retrying on next tick")
			moved = 0
		}
	}()

	moved = w.engine.SweepAbandoned(ctx)
	if moved > 0 {
		w.log.WithField("abandoned", moved).Debug("abandonment sweep finished")
	}
	return moved
}
