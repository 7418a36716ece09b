package scheduler

import (
	"context"
	"sync"
	"time"

	"marketplace-backend/pkg/logger"

	"go.uber.org/zap"
)

// DefaultInterval is how often expired cache entries are purged
const DefaultInterval = time.Hour

// Purger removes expired cache entries
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Reaper periodically purges expired cache entries until stopped
type Reaper struct {
	purger   Purger
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.Mutex
	started  bool
	stopped  bool
	log      *zap.SugaredLogger
}

// NewReaper creates a new reaper
func NewReaper(purger Purger, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		purger:   purger,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		log:      logger.GetLogger("reaper"),
	}
}

// Start begins the purge loop. The first purge runs one interval after start.
// The loop ends when ctx is cancelled or Stop is called.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true

	r.log.Infow("Started background cache cleaning", "interval", r.interval)

	go func() {
		defer close(r.doneChan)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.RunOnce(ctx)
			case <-r.stopChan:
				r.log.Info("Reaper stopped")
				return
			case <-ctx.Done():
				r.log.Info("Reaper context cancelled")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight purge to finish
func (r *Reaper) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	close(r.stopChan)
	r.mu.Unlock()

	if started {
		<-r.doneChan
	}
}

// RunOnce performs one purge cycle. Errors and panics are logged, never
// propagated.
func (r *Reaper) RunOnce(ctx context.Context) (removed int64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorw("Panic in scheduled cache cleanup", "panic", rec)
		}
	}()

	r.log.Info("Running scheduled cache cleanup")
	removed, err := r.purger.PurgeExpired(ctx)
	if err != nil {
		r.log.Errorw("Error in scheduled cache cleanup", "error", err)
		return removed
	}
	r.log.Infow("Scheduled cache cleanup finished", "removed", removed)
	return removed
}
