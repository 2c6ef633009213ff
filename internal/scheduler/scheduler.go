// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Refresher re-runs the trigger cache refresh on a cron schedule. It is a
// safety net on top of write-through invalidation: a mutation that somehow
// skipped its refresh call is picked up on the next tick instead of going
// stale forever.
type Refresher struct {
	schedule string
	refresh  func(context.Context) error
	cron     *cron.Cron
}

// New creates a Refresher for the given cron schedule. An empty schedule
// disables it.
func New(schedule string, refresh func(context.Context) error) *Refresher {
	return &Refresher{
		schedule: schedule,
		refresh:  refresh,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the refresh job and starts the cron ticker. A no-op when
// the schedule is empty.
func (r *Refresher) Start() error {
	if r.schedule == "" {
		return nil
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.refresh(context.Background()); err != nil {
			slog.Error("scheduled cache refresh failed", "error", err)
			return
		}
		slog.Debug("scheduled cache refresh completed")
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}

	r.cron.Start()
	slog.Info("cache refresh scheduled", "schedule", r.schedule)
	return nil
}

// Stop stops the cron ticker.
func (r *Refresher) Stop() {
	r.cron.Stop()
}
