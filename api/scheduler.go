/*
scheduler.go - Automated flight completion scheduler

PURPOSE:
  Periodically completes flights whose arrival has passed, together with
  their ACTIVE orders, so statuses stay current without a human trigger.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass is airline.Engine.RunMaintenance: AutoComplete plus a
    recorded MaintenanceRun for audit
  - Passes are idempotent, so overlapping with a manual trigger from
    POST /api/admin/auto-complete is harmless

CONFIGURATION:
  - CheckInterval: How often to run (default: 5 minutes)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMaintenanceScheduler(engine)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerAutoComplete endpoint (manual pass)
  - airline/lifecycle.go: AutoComplete
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/flytau/ops-engine/airline"
)

// MaintenanceScheduler runs AutoComplete on an interval.
type MaintenanceScheduler struct {
	Engine        *airline.Engine
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	last   time.Time
}

// NewMaintenanceScheduler creates a new scheduler.
func NewMaintenanceScheduler(engine *airline.Engine) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		Engine:        engine,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ms *MaintenanceScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.stop = make(chan struct{})
	ms.wg.Add(1)

	go ms.run(ms.ticker, ms.stop)

	log.Printf("[Scheduler] Started with check interval: %v", ms.CheckInterval)
}

// Stop stops the scheduler and waits for a running pass to finish.
func (ms *MaintenanceScheduler) Stop() {
	ms.mu.Lock()
	ticker, stop := ms.ticker, ms.stop
	ms.ticker, ms.stop = nil, nil
	ms.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	ms.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (ms *MaintenanceScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ms.wg.Done()

	// Run immediately on start
	ms.RunNow()

	for {
		select {
		case <-ticker.C:
			ms.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one pass and returns its record.
func (ms *MaintenanceScheduler) RunNow() airline.MaintenanceRun {
	ctx := context.Background()
	log.Printf("[Scheduler] Completing arrived flights at %v", ms.Engine.Now().Format(time.RFC3339))

	run, err := ms.Engine.RunMaintenance(ctx)
	if err != nil {
		log.Printf("[Scheduler] Pass %s failed: %v", run.ID, err)
	} else {
		log.Printf("[Scheduler] Completed: %d flights, %d orders", run.FlightsComplete, run.OrdersComplete)
	}

	ms.mu.Lock()
	ms.last = run.FinishedAt
	ms.mu.Unlock()
	return run
}

// GetNextRunTime returns when the next scheduled pass will occur.
func (ms *MaintenanceScheduler) GetNextRunTime() time.Time {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.last.IsZero() {
		return time.Now()
	}
	return ms.last.Add(ms.CheckInterval)
}
