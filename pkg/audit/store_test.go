package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/casehub/pkg/authz"
)

func TestDBStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDBStore(db)
	event := &DenialEvent{
		OrgID:      uuid.New(),
		UserID:     uuid.New(),
		Role:       authz.RoleViewer,
		Resource:   authz.ResourceClients,
		Action:     authz.ActionUpdate,
		Reason:     authz.DenyNoGrant,
		Count:      3,
		IPAddress:  "10.0.0.1",
		OccurredAt: time.Now().UTC(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO denial_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, store.Insert(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_SearchAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDBStore(db)
	orgID := uuid.New()
	userID := uuid.New()

	columns := []string{
		"id", "org_id", "user_id", "role", "resource", "action",
		"resource_id", "reason", "denial_count", "ip_address",
		"user_agent", "request_id", "occurred_at",
	}
	rows := sqlmock.NewRows(columns).AddRow(
		int64(1), orgID.String(), userID.String(), "VIEWER", "clients", "update",
		nil, "no_grant", int64(3), "10.0.0.1", nil, "req-1", time.Now(),
	)

	mock.ExpectQuery("SELECT .+ FROM denial_logs WHERE 1=1 AND org_id = \\$1 AND user_id = \\$2 AND resource = \\$3.+ORDER BY occurred_at DESC LIMIT \\$4").
		WithArgs(orgID, userID, "clients", 100).
		WillReturnRows(rows)

	events, err := store.Search(context.Background(), SearchFilter{
		OrgID:    &orgID,
		UserID:   &userID,
		Resource: authz.ResourceClients,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, authz.RoleViewer, events[0].Role)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Nil(t, events[0].ResourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_Purge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDBStore(db)
	cutoff := time.Now().UTC().AddDate(0, 0, -90)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM denial_logs WHERE occurred_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	purged, err := store.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_GetStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDBStore(db)
	orgID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM denial_logs WHERE org_id = $1")).
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery("SELECT resource, COUNT").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"resource", "count"}).
			AddRow("clients", int64(3)).AddRow("billing", int64(2)))
	mock.ExpectQuery("SELECT reason, COUNT").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"reason", "count"}).
			AddRow("no_grant", int64(5)))
	mock.ExpectQuery("SELECT user_id, COUNT").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "c"}).
			AddRow(userID.String(), int64(5)))

	stats, err := store.GetStats(context.Background(), orgID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalEvents)
	assert.Equal(t, int64(3), stats.EventsByResource[authz.ResourceClients])
	assert.Equal(t, int64(5), stats.EventsByReason[authz.DenyNoGrant])
	require.Len(t, stats.TopUsers, 1)
	assert.Equal(t, userID, stats.TopUsers[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
