// Package supervisor implements the TimeoutSupervisor: a periodic sweep
// that requeues or fails jobs whose lease-holder has gone silent (§4.6).
package supervisor

import (
	"context"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/store"
)

// Supervisor ticks on a fixed interval and calls Store.HandleTimeouts.
type Supervisor struct {
	Store      store.Store
	Interval   time.Duration
	MaxRetries int
	stop       chan struct{}
}

// New builds a Supervisor from the current configuration.
func New(appStore store.Store) *Supervisor {
	return &Supervisor{
		Store:      appStore,
		Interval:   time.Duration(config.TimeoutSupervisorTickSeconds) * time.Second,
		MaxRetries: config.MaxRetries,
		stop:       make(chan struct{}),
	}
}

// Run blocks, ticking until ctx is done or Stop is called. Each sweep is
// isolated: a panic or error in one tick is logged and the next tick runs
// afresh, per §4.6's "exceptions must not crash the service."
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop requests Run to return at the next opportunity.
func (s *Supervisor) Stop() {
	close(s.stop)
}

func (s *Supervisor) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.Log.WithField("panic", r).Error("timeout supervisor sweep panicked")
		}
	}()

	touched, err := s.Store.HandleTimeouts(ctx, s.MaxRetries)
	if err != nil {
		logging.Log.WithError(err).Error("timeout supervisor sweep failed")
		return
	}
	if len(touched) > 0 {
		logging.Log.WithField("count", len(touched)).Info("timeout supervisor requeued/failed stalled jobs")
	}
}
