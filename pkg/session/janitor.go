package session

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the janitor every fifteen minutes
const DefaultPurgeSchedule = "*/15 * * * *"

// Janitor periodically purges expired entries from backends that support it
type Janitor struct {
	cron    *cron.Cron
	purgers map[string]Purger
	logger  *observability.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewJanitor collects the backends that implement Purger. Backends that do
// not, such as Redis which expires keys itself, are skipped.
func NewJanitor(logger *observability.Logger, metrics *observability.Metrics, backends map[string]Backend) *Janitor {
	purgers := make(map[string]Purger)
	for name, b := range backends {
		if p, ok := b.(Purger); ok {
			purgers[name] = p
		}
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Janitor{
		cron:    cron.New(),
		purgers: purgers,
		logger:  logger.WithField("component", "session_janitor"),
		metrics: metrics,
		timeout: time.Minute,
	}
}

// Len reports how many backends the janitor sweeps
func (j *Janitor) Len() int {
	return len(j.purgers)
}

// Start schedules the purge job. An empty schedule uses DefaultPurgeSchedule.
func (j *Janitor) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	_, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		j.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session purge: %w", err)
	}
	j.cron.Start()
	return nil
}

// RunOnce purges every backend and returns the number of entries removed
func (j *Janitor) RunOnce(ctx context.Context) int64 {
	var total int64
	for name, p := range j.purgers {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			j.logger.WithField("backend", name).WithError(err).Warn("session purge failed")
			j.metrics.RecordStoreError("purge")
			continue
		}
		total += n
	}
	j.metrics.RecordPurged(total)
	if total > 0 {
		j.logger.WithField("purged", total).Info("purged expired sessions")
	}
	return total
}

// Stop stops the scheduler and waits for a running job
func (j *Janitor) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
