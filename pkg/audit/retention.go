package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/brightpath/casehub/pkg/observability"
)

// DefaultRetentionDays is how long persisted denial logs are kept.
const DefaultRetentionDays = 90

// RetentionSweeper purges denial logs past their retention period on a
// daily schedule.
type RetentionSweeper struct {
	store   LogStore
	logger  *observability.Logger
	metrics *observability.Metrics
	days    int
	cron    *cron.Cron
}

// NewRetentionSweeper creates a sweeper. days <= 0 falls back to the
// default. metrics may be nil.
func NewRetentionSweeper(store LogStore, logger *observability.Logger, metrics *observability.Metrics, days int) *RetentionSweeper {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return &RetentionSweeper{
		store:   store,
		logger:  logger,
		metrics: metrics,
		days:    days,
		cron:    cron.New(),
	}
}

// Start schedules the daily purge. Call Stop on shutdown.
func (s *RetentionSweeper) Start() error {
	_, err := s.cron.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *RetentionSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep purges logs older than the retention cutoff.
func (s *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.days)

	purged, err := s.store.Purge(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("denial log retention sweep failed")
		return
	}

	if s.metrics != nil {
		s.metrics.DenialLogsPurgedTotal.Add(float64(purged))
	}
	if purged > 0 {
		s.logger.WithField("purged", purged).
			WithField("cutoff", cutoff.Format(time.RFC3339)).
			Info("purged expired denial logs")
	}
}
