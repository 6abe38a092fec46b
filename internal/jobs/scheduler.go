// Package jobs runs periodic maintenance in-process on a gocron scheduler.
// The only job today deletes expired idempotency records so the table does
// not grow with every keyed lead submission.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// JobIdempotencyPurge names the expired-record cleanup job.
const JobIdempotencyPurge = "idempotency-purge"

// Purger deletes records that expired at or before now and reports how many.
type Purger func(ctx context.Context, now time.Time) (int64, error)

var purgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "idempotency_records_purged_total",
	Help: "Expired idempotency records deleted by the purge job.",
})

func init() {
	prometheus.MustRegister(purgedTotal)
}

// Scheduler wraps a gocron scheduler with the service's jobs.
type Scheduler struct {
	s       gocron.Scheduler
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler builds an idle scheduler; call Start to begin running jobs.
func NewScheduler(log zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	return &Scheduler{
		s:       s,
		log:     log,
		timeout: 30 * time.Second,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// SchedulePurge runs purge every interval. A run still in progress when the
// next one is due causes that next run to be skipped.
func (s *Scheduler) SchedulePurge(interval time.Duration, purge Purger) error {
	if interval <= 0 {
		return fmt.Errorf("purge interval must be positive, got %s", interval)
	}
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.runPurge, purge),
		gocron.WithName(JobIdempotencyPurge),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", JobIdempotencyPurge, err)
	}
	return nil
}

func (s *Scheduler) runPurge(purge Purger) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := purge(ctx, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("job", JobIdempotencyPurge).Msg("purge failed")
		return
	}
	purgedTotal.Add(float64(n))
	if n > 0 {
		s.log.Debug().Int64("deleted", n).Str("job", JobIdempotencyPurge).Msg("expired idempotency records purged")
	}
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() { s.s.Start() }

// Stop waits for running jobs to finish and stops the scheduler.
func (s *Scheduler) Stop() error { return s.s.Shutdown() }

// PurgeInterval derives how often to purge from the record TTL: half the
// TTL, clamped to [1m, 1h].
func PurgeInterval(ttl time.Duration) time.Duration {
	iv := ttl / 2
	if iv < time.Minute {
		iv = time.Minute
	}
	if iv > time.Hour {
		iv = time.Hour
	}
	return iv
}
