package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the sync scheduler.
type SchedulerConfig struct {
	// Interval is how often a sync cycle is triggered.
	// Default: 60 seconds
	Interval time.Duration

	// CycleTimeout bounds one triggered cycle.
	// Default: 2 minutes
	CycleTimeout time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     60 * time.Second,
		CycleTimeout: 2 * time.Minute,
	}
}

// Syncer runs one sync cycle.
type Syncer interface {
	Trigger(ctx context.Context)
}

// SyncScheduler periodically triggers the sync engine.
type SyncScheduler struct {
	engine    Syncer
	config    SchedulerConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewSyncScheduler creates a new sync scheduler.
func NewSyncScheduler(engine Syncer, config SchedulerConfig) *SyncScheduler {
	defaults := DefaultSchedulerConfig()
	if config.Interval == 0 {
		config.Interval = defaults.Interval
	}
	if config.CycleTimeout == 0 {
		config.CycleTimeout = defaults.CycleTimeout
	}

	return &SyncScheduler{
		engine: engine,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the sync scheduler.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("[SyncScheduler] Started - Interval: %v", s.config.Interval)

	go s.run()
}

// run is the main scheduling loop.
func (s *SyncScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			log.Printf("[SyncScheduler] Stopped")
			return
		}
	}
}

// RunNow triggers an immediate sync cycle.
func (s *SyncScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.CycleTimeout)
	defer cancel()

	s.engine.Trigger(ctx)
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.mu.Unlock()
	})
	s.wg.Wait()
}
