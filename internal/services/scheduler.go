package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// archiveTimeout bounds a single scheduled upload
const archiveTimeout = 2 * time.Minute

// Scheduler periodically archives the ICA report of the records stored
// since its previous successful run
type Scheduler struct {
	reports    *ReportService
	interval   time.Duration
	ticker     *time.Ticker
	stopChan   chan struct{}
	done       chan struct{}
	mu         sync.RWMutex
	isRunning  bool
	lastRun    time.Time
	lastResult *ArchiveResult
}

// NewScheduler creates a new scheduler instance
func NewScheduler(reports *ReportService, interval time.Duration) *Scheduler {
	return &Scheduler{
		reports:  reports,
		interval: interval,
		lastRun:  reports.now().UTC(),
	}
}

// Start begins the scheduler background process
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		log.Println("⚠️  Scheduler: Already running")
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.isRunning = true

	log.Printf("🕐 Scheduler: Started - archiving ICA reports every %v", s.interval)

	go s.run(s.ticker.C, s.stopChan, s.done)
}

// Stop halts the scheduler and waits for an in-flight upload to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
	log.Println("🛑 Scheduler: Stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ticks <-chan time.Time, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ticks:
			ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
			s.RunOnce(ctx)
			cancel()
		case <-stop:
			return
		}
	}
}

// RunOnce archives the records stored in (lastRun, now]. A failed upload
// leaves the period open so the next run covers it.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.RLock()
	from := s.lastRun
	s.mu.RUnlock()
	to := s.reports.now().UTC()

	result, err := s.reports.ArchiveIngested(ctx, from, to)
	if err != nil {
		log.Printf("❌ Scheduler: Failed to archive report: %v", err)
		return
	}

	s.mu.Lock()
	s.lastRun = to
	s.lastResult = result
	s.mu.Unlock()
}

// LastResult returns the most recent archived report, if any
func (s *Scheduler) LastResult() *ArchiveResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
