package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"listingsite/server/internal/catalog"
)

// Refresher reloads the listing catalog.
type Refresher interface {
	Refresh(ctx context.Context) catalog.Snapshot
}

// Scheduler manages periodic refreshes of the listing catalog
type Scheduler struct {
	refresher Refresher
	logger    *logrus.Logger
	interval  time.Duration
	timeout   time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	jobMutex  sync.Mutex // Ensures refreshes never overlap
	stopOnce  sync.Once
}

// NewScheduler creates a new scheduler. timeout bounds each refresh.
func NewScheduler(refresher Refresher, logger *logrus.Logger, interval, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		refresher: refresher,
		logger:    logger,
		interval:  interval,
		timeout:   timeout,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduled refreshes. A non-positive interval disables them.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Periodic catalog refresh disabled")
		return
	}

	s.wg.Add(1)
	go s.runScheduler()
}

// runScheduler handles the refresh loop
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("Catalog refresh scheduler started")

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs a single refresh, waiting for any refresh already running.
func (s *Scheduler) RunOnce() catalog.Snapshot {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	ctx, cancel := s.context()
	defer cancel()

	started := time.Now()
	snapshot := s.refresher.Refresh(ctx)

	s.logger.WithFields(logrus.Fields{
		"origin":        snapshot.Origin,
		"listing_count": len(snapshot.Listings),
		"duration":      time.Since(started).String(),
	}).Info("Catalog refresh completed")

	return snapshot
}

// context is cancelled by Stop or after the refresh timeout
func (s *Scheduler) context() (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-done:
		}
	}()

	return ctx, func() {
		close(done)
		cancel()
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}
