package audit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/observability"
)

type fakeLogStore struct {
	mu        sync.Mutex
	events    []*DenialEvent
	insertErr error
}

func (f *fakeLogStore) Insert(_ context.Context, event *DenialEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeLogStore) Search(_ context.Context, _ SearchFilter) ([]*DenialEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*DenialEvent(nil), f.events...), nil
}

func (f *fakeLogStore) GetStats(_ context.Context, _ uuid.UUID, _ *time.Time) (*Stats, error) {
	return &Stats{}, nil
}

func (f *fakeLogStore) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLogStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestAuditor(t *testing.T) (*Auditor, *fakeLogStore, *fakeClock) {
	t.Helper()
	logs := &fakeLogStore{}
	clock := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	auditor := NewAuditor(NewMemoryCounterStore(), logs, logger, nil, WithClock(clock.Now))
	return auditor, logs, clock
}

func testDenial(identity *authz.Identity) *Denial {
	return &Denial{
		Identity: identity,
		Resource: authz.ResourceClients,
		Action:   authz.ActionUpdate,
		Reason:   authz.DenyNoGrant,
		Meta:     RequestMeta{IPAddress: "10.0.0.1", RequestID: "req-1"},
	}
}

func testIdentity() *authz.Identity {
	return &authz.Identity{
		UserID: uuid.New(),
		OrgID:  uuid.New(),
		Role:   authz.RoleViewer,
	}
}

func TestAuditor_BelowThresholdNothingPersisted(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)
	identity := testIdentity()

	auditor.RecordDenial(context.Background(), testDenial(identity))
	auditor.RecordDenial(context.Background(), testDenial(identity))

	assert.Equal(t, 0, logs.count())
}

func TestAuditor_ThirdDenialPersistsOnce(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)
	identity := testIdentity()

	for i := 0; i < 3; i++ {
		auditor.RecordDenial(context.Background(), testDenial(identity))
	}

	require.Equal(t, 1, logs.count())
	event := logs.events[0]
	assert.Equal(t, identity.UserID, event.UserID)
	assert.Equal(t, identity.OrgID, event.OrgID)
	assert.Equal(t, authz.ResourceClients, event.Resource)
	assert.Equal(t, authz.ActionUpdate, event.Action)
	assert.Equal(t, authz.DenyNoGrant, event.Reason)
	assert.Equal(t, int64(3), event.Count)
	assert.Equal(t, "10.0.0.1", event.IPAddress)
}

func TestAuditor_CounterResetAfterPersist(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)
	identity := testIdentity()

	for i := 0; i < 3; i++ {
		auditor.RecordDenial(context.Background(), testDenial(identity))
	}
	require.Equal(t, 1, logs.count())

	// Two more denials stay under a fresh threshold.
	auditor.RecordDenial(context.Background(), testDenial(identity))
	auditor.RecordDenial(context.Background(), testDenial(identity))
	assert.Equal(t, 1, logs.count())

	// The sixth trips it again.
	auditor.RecordDenial(context.Background(), testDenial(identity))
	assert.Equal(t, 2, logs.count())
}

func TestAuditor_WindowLapseResetsCount(t *testing.T) {
	auditor, logs, clock := newTestAuditor(t)
	identity := testIdentity()

	auditor.RecordDenial(context.Background(), testDenial(identity))
	auditor.RecordDenial(context.Background(), testDenial(identity))

	clock.Advance(6 * time.Minute)

	// The count restarted, so this is denial 1 of a new window.
	auditor.RecordDenial(context.Background(), testDenial(identity))
	assert.Equal(t, 0, logs.count())

	auditor.RecordDenial(context.Background(), testDenial(identity))
	auditor.RecordDenial(context.Background(), testDenial(identity))
	assert.Equal(t, 1, logs.count())
}

func TestAuditor_SpacedDenialsStillReachThreshold(t *testing.T) {
	auditor, logs, clock := newTestAuditor(t)
	identity := testIdentity()

	// Each denial falls within the window of the previous one, so the
	// third persists even though 8 minutes separate it from the first.
	auditor.RecordDenial(context.Background(), testDenial(identity))
	clock.Advance(4 * time.Minute)
	auditor.RecordDenial(context.Background(), testDenial(identity))
	assert.Equal(t, 0, logs.count())

	clock.Advance(4 * time.Minute)
	auditor.RecordDenial(context.Background(), testDenial(identity))
	assert.Equal(t, 1, logs.count())
}

func TestAuditor_DistinctTuplesCountSeparately(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)
	identity := testIdentity()

	other := testDenial(identity)
	other.Resource = authz.ResourceBilling
	other.Action = authz.ActionRead

	auditor.RecordDenial(context.Background(), testDenial(identity))
	auditor.RecordDenial(context.Background(), testDenial(identity))
	auditor.RecordDenial(context.Background(), other)
	auditor.RecordDenial(context.Background(), other)

	assert.Equal(t, 0, logs.count())
}

func TestAuditor_PersistErrorIsSwallowed(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)
	logs.insertErr = errors.New("database unavailable")
	identity := testIdentity()

	// Must not panic or surface the error to the caller.
	for i := 0; i < 3; i++ {
		auditor.RecordDenial(context.Background(), testDenial(identity))
	}
	assert.Equal(t, 0, logs.count())
}

func TestAuditor_ConcurrentDenialsPersistOnce(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)
	identity := testIdentity()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			auditor.RecordDenial(context.Background(), testDenial(identity))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, logs.count())
}

func TestAuditor_NilDenialIgnored(t *testing.T) {
	auditor, logs, _ := newTestAuditor(t)

	auditor.RecordDenial(context.Background(), nil)
	auditor.RecordDenial(context.Background(), &Denial{})

	assert.Equal(t, 0, logs.count())
}
