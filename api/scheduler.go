/*
scheduler.go - Periodic forecast snapshots

PURPOSE:
  Periodically computes the running month's forecast for all companies and
  stores it in forecast_snapshots, so finance can compare what the engine
  said over time. Snapshots are audit copies; the engine never reads them.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Every tick snapshots the current month
  - The previous month is snapshotted once more after it closes
    (skipped if a snapshot for it already exists)

CONFIGURATION:
  - Interval: How often to snapshot (default: 1 hour)
  - Enabled: Whether scheduler is active (default: false)

USAGE:
  scheduler := NewSnapshotScheduler(store, engine)
  scheduler.Interval = 15 * time.Minute
  scheduler.Enabled = true
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunSnapshot endpoint (manual snapshot)
  - store/sqldb/snapshots.go: Persistence
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/store/sqldb"
)

// SnapshotScheduler stores month forecasts on a timer.
type SnapshotScheduler struct {
	Store    *sqldb.Store
	Engine   *forecast.Engine
	Interval time.Duration
	Enabled  bool
	Now      func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a disabled scheduler.
func NewSnapshotScheduler(store *sqldb.Store, engine *forecast.Engine) *SnapshotScheduler {
	return &SnapshotScheduler{
		Store:    store,
		Engine:   engine,
		Interval: 1 * time.Hour,
		Now:      time.Now,
	}
}

// Start begins the scheduler.
func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.Interval <= 0 {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with snapshot interval: %v", s.Interval)
}

// Stop stops the scheduler and waits for a running tick to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (s *SnapshotScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.tick()

	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

func (s *SnapshotScheduler) tick() {
	ctx := context.Background()
	current := generic.MonthOf(s.now())
	previous := generic.MonthOf(current.Start().AddDays(-1).Time)

	done, err := s.Store.HasSnapshot(ctx, previous.String(), "")
	if err != nil {
		log.Printf("[Scheduler] Error checking snapshot for %s: %v", previous, err)
	} else if !done {
		if _, err := s.Snapshot(ctx, previous); err != nil {
			log.Printf("[Scheduler] Error closing %s: %v", previous, err)
		}
	}

	if _, err := s.Snapshot(ctx, current); err != nil {
		log.Printf("[Scheduler] Error snapshotting %s: %v", current, err)
	}
}

// RunNow triggers an immediate tick (for testing/admin).
func (s *SnapshotScheduler) RunNow() {
	s.tick()
}

// Snapshot computes and stores the all-company forecast of month.
func (s *SnapshotScheduler) Snapshot(ctx context.Context, month generic.MonthYear) (*sqldb.Snapshot, error) {
	res, err := s.Engine.Compute(ctx, generic.ForMonth(month), nil)
	if err != nil {
		return nil, err
	}

	lines := make([]LineDTO, 0, len(res.Breakdown))
	for _, l := range res.Breakdown {
		lines = append(lines, toLineDTO(l))
	}
	breakdown, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}

	snap := sqldb.Snapshot{
		ID:            uuid.NewString(),
		Period:        month.String(),
		Total:         res.Total.StringFixed(generic.MinorUnits),
		BreakdownJSON: string(breakdown),
		WarningCount:  len(res.Warnings),
		CreatedAt:     s.now(),
	}
	if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	log.Printf("[Scheduler] Snapshot %s: total=%s lines=%d warnings=%d",
		snap.Period, snap.Total, len(lines), snap.WarningCount)
	return &snap, nil
}

// GetNextRunTime returns when the next scheduled tick will occur.
func (s *SnapshotScheduler) GetNextRunTime() time.Time {
	return s.now().Add(s.Interval)
}

func (s *SnapshotScheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
