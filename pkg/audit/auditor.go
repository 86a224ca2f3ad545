package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/brightpath/casehub/pkg/observability"
)

const (
	// DefaultWindow is how long a denial counter stays live without
	// reaching the threshold.
	DefaultWindow = 5 * time.Minute

	// DefaultThreshold is the in-window denial count that triggers a
	// persisted log entry.
	DefaultThreshold = 3
)

// Auditor counts denials per (org, user, resource, action) tuple and
// persists a log entry once the threshold is reached within the window.
// Recording never fails the request that triggered it.
type Auditor struct {
	counters  CounterStore
	logs      LogStore
	logger    *observability.Logger
	metrics   *observability.Metrics
	window    time.Duration
	threshold int64
	now       func() time.Time
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithWindow overrides the counting window.
func WithWindow(window time.Duration) AuditorOption {
	return func(a *Auditor) { a.window = window }
}

// WithThreshold overrides the persistence threshold.
func WithThreshold(threshold int64) AuditorOption {
	return func(a *Auditor) { a.threshold = threshold }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) AuditorOption {
	return func(a *Auditor) { a.now = now }
}

// NewAuditor creates a denial auditor. metrics may be nil.
func NewAuditor(counters CounterStore, logs LogStore, logger *observability.Logger, metrics *observability.Metrics, opts ...AuditorOption) *Auditor {
	a := &Auditor{
		counters:  counters,
		logs:      logs,
		logger:    logger,
		metrics:   metrics,
		window:    DefaultWindow,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func counterKey(d *Denial) string {
	return fmt.Sprintf("%s:%s:%s:%s", d.Identity.OrgID, d.Identity.UserID, d.Resource, d.Action)
}

// RecordDenial counts a denial and persists a log entry when the tuple
// reaches the threshold within the window. The counter is removed after
// persisting, so the next denial starts a fresh window. All failures are
// logged and swallowed.
func (a *Auditor) RecordDenial(ctx context.Context, denial *Denial) {
	if denial == nil || denial.Identity == nil {
		return
	}

	now := a.now().UTC()
	key := counterKey(denial)

	count, err := a.counters.Increment(ctx, key, now, a.window)
	if err != nil {
		a.logger.WithError(err).WithField("key", key).Warn("failed to count denial")
		return
	}

	if a.metrics != nil {
		a.metrics.DenialsRecordedTotal.WithLabelValues(string(denial.Resource), string(denial.Action), string(denial.Reason)).Inc()
		a.updateActiveGauge()
	}

	// Only the exact threshold hit persists, so concurrent denials on the
	// same tuple produce a single log entry per window.
	if count != a.threshold {
		return
	}

	event := &DenialEvent{
		OrgID:      denial.Identity.OrgID,
		UserID:     denial.Identity.UserID,
		Role:       denial.Identity.Role,
		Resource:   denial.Resource,
		Action:     denial.Action,
		ResourceID: denial.ResourceID,
		Reason:     denial.Reason,
		Count:      count,
		IPAddress:  denial.Meta.IPAddress,
		UserAgent:  denial.Meta.UserAgent,
		RequestID:  denial.Meta.RequestID,
		OccurredAt: now,
	}

	if err := a.logs.Insert(ctx, event); err != nil {
		if a.metrics != nil {
			a.metrics.DenialPersistErrorsTotal.Inc()
		}
		a.logger.WithError(err).
			WithField("org_id", denial.Identity.OrgID.String()).
			WithField("user_id", denial.Identity.UserID.String()).
			WithField("resource", string(denial.Resource)).
			Warn("failed to persist denial log")
		return
	}

	if a.metrics != nil {
		a.metrics.DenialLogsPersistedTotal.Inc()
	}

	if err := a.counters.Reset(ctx, key); err != nil {
		a.logger.WithError(err).WithField("key", key).Warn("failed to reset denial counter")
	}
	if a.metrics != nil {
		a.updateActiveGauge()
	}
}

func (a *Auditor) updateActiveGauge() {
	if mem, ok := a.counters.(*MemoryCounterStore); ok {
		a.metrics.DenialCountersActive.Set(float64(mem.Active()))
	}
}
