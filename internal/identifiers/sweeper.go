package identifiers

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"meridiancare.org/internal/obs"
)

// DefaultSweepSchedule runs the retention sweep nightly, off peak.
const DefaultSweepSchedule = "0 3 * * *"

// Sweeper periodically deactivates org identifiers whose expiration date has
// passed. Soft lifecycle only: rows survive for as long as claims reference
// them; retention beyond deactivation is a regulatory decision outside this
// service.
type Sweeper struct {
	store    Store
	cron     *cron.Cron
	schedule string
}

func NewSweeper(store Store, schedule string) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("identifiers: store is required")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &Sweeper{
		store:    store,
		cron:     cron.New(),
		schedule: schedule,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the background schedule. Safe to call once.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		obs.Alert("identifiers.sweep_failed", map[string]any{"error": err.Error()})
	}
}

// RunOnce performs a single sweep immediately and reports how many
// identifiers it retired.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.store.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		obs.LogRequest(map[string]any{
			"ts":      time.Now().UTC().Format(time.RFC3339Nano),
			"event":   "identifiers.sweep",
			"retired": n,
		})
	}
	return n, nil
}
