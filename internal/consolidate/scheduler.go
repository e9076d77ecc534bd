package consolidate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the default time between scheduled consolidation
// runs.
const DefaultInterval = time.Hour

// Scheduler runs consolidation passes on a fixed interval.
//
// All public methods are thread-safe; the running state is protected by a
// mutex so Start and Stop can be called concurrently.
type Scheduler struct {
	interval     time.Duration
	consolidator *Consolidator
	logger       *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the time between runs. If not set, defaults to
// DefaultInterval.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// NewScheduler creates a consolidation scheduler. It does not start
// automatically; call Start to begin scheduled runs.
func NewScheduler(consolidator *Consolidator, logger *zap.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if consolidator == nil {
		return nil, fmt.Errorf("consolidator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		interval:     DefaultInterval,
		consolidator: consolidator,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins the background consolidation loop. Calling Start on a
// running scheduler returns an error without starting a second goroutine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.stopCh = make(chan struct{})
	s.running = true

	s.logger.Info("consolidation scheduler started",
		zap.Duration("interval", s.interval))
	go s.loop(s.stopCh)
	return nil
}

// Stop signals the background loop to exit. Stopping a stopped scheduler
// is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info("consolidation scheduler stopped")
}

func (s *Scheduler) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-stopCh:
			return
		}
	}
}

// runOnce executes a single pass. Errors are logged but do not stop the
// scheduler.
func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.consolidator.Run(ctx); err != nil {
		s.logger.Error("scheduled consolidation failed", zap.Error(err))
	}
}
