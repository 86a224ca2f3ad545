package audit

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brightpath/casehub/pkg/observability"
)

type purgeRecorder struct {
	fakeLogStore
	cutoff   time.Time
	purged   int64
	purgeErr error
}

func (p *purgeRecorder) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	p.cutoff = olderThan
	return p.purged, p.purgeErr
}

func TestRetentionSweeper_Sweep(t *testing.T) {
	store := &purgeRecorder{purged: 12}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sweeper := NewRetentionSweeper(store, logger, nil, 30)

	before := time.Now().UTC().AddDate(0, 0, -30)
	sweeper.Sweep(context.Background())
	after := time.Now().UTC().AddDate(0, 0, -30)

	assert.False(t, store.cutoff.Before(before))
	assert.False(t, store.cutoff.After(after))
}

func TestRetentionSweeper_DefaultDays(t *testing.T) {
	store := &purgeRecorder{}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	sweeper := NewRetentionSweeper(store, logger, nil, 0)
	assert.Equal(t, DefaultRetentionDays, sweeper.days)
}

func TestRetentionSweeper_PurgeErrorLoggedNotFatal(t *testing.T) {
	store := &purgeRecorder{purgeErr: errors.New("database unavailable")}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sweeper := NewRetentionSweeper(store, logger, nil, 30)

	// Must not panic.
	sweeper.Sweep(context.Background())
}
