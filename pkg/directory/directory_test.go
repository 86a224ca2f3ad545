package directory

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDirectory(t *testing.T) (*Directory, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir, err := New(db)
	require.NoError(t, err)
	return dir, mock
}

func TestProgramsForUser(t *testing.T) {
	dir, mock := setupDirectory(t)
	userID := uuid.New()
	programA := uuid.New()
	programB := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT program_id FROM program_members WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"program_id"}).
			AddRow(programA.String()).AddRow(programB.String()))

	programs, err := dir.ProgramsForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{programA, programB}, programs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrolledPrograms_FiltersStatus(t *testing.T) {
	dir, mock := setupDirectory(t)
	clientID := uuid.New()
	programID := uuid.New()

	mock.ExpectQuery("SELECT program_id FROM client_enrollments\\s+WHERE client_id = \\$1 AND status IN \\('ENROLLED', 'COMPLETED'\\)").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"program_id"}).AddRow(programID.String()))

	programs, err := dir.EnrolledPrograms(context.Background(), clientID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{programID}, programs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrolledPrograms_Empty(t *testing.T) {
	dir, mock := setupDirectory(t)
	clientID := uuid.New()

	mock.ExpectQuery("SELECT program_id FROM client_enrollments").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"program_id"}))

	programs, err := dir.EnrolledPrograms(context.Background(), clientID)
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestIsAssigned(t *testing.T) {
	dir, mock := setupDirectory(t)
	clientID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM client_assignments").
		WithArgs(clientID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	assigned, err := dir.IsAssigned(context.Background(), clientID, userID)
	require.NoError(t, err)
	assert.True(t, assigned)
}

func TestHasActiveShare(t *testing.T) {
	dir, mock := setupDirectory(t)
	clientID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery("SELECT 1 FROM client_shares").
		WithArgs(clientID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	shared, err := dir.HasActiveShare(context.Background(), clientID, userID)
	require.NoError(t, err)
	assert.False(t, shared)
}

func TestSessionActive(t *testing.T) {
	dir, mock := setupDirectory(t)
	sessionID := uuid.New()

	mock.ExpectQuery("SELECT 1 FROM sessions").
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := dir.SessionActive(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestAdminContact_CachesResult(t *testing.T) {
	dir, mock := setupDirectory(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT contact_name, contact_email FROM org_admin_contacts").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"contact_name", "contact_email"}).
			AddRow("Dana Ops", "dana@example.org"))

	contact, err := dir.AdminContact(context.Background(), orgID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "Dana Ops", contact.Name)

	// Second call hits the cache; no further query is expected.
	contact, err = dir.AdminContact(context.Background(), orgID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "dana@example.org", contact.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminContact_MissingIsNil(t *testing.T) {
	dir, mock := setupDirectory(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT contact_name, contact_email FROM org_admin_contacts").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"contact_name", "contact_email"}))

	contact, err := dir.AdminContact(context.Background(), orgID)
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestAdminContact_InvalidateForcesReload(t *testing.T) {
	dir, mock := setupDirectory(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT contact_name, contact_email FROM org_admin_contacts").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"contact_name", "contact_email"}).
			AddRow("Old Contact", "old@example.org"))
	mock.ExpectQuery("SELECT contact_name, contact_email FROM org_admin_contacts").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"contact_name", "contact_email"}).
			AddRow("New Contact", "new@example.org"))

	contact, err := dir.AdminContact(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, "Old Contact", contact.Name)

	dir.Invalidate(orgID)

	contact, err = dir.AdminContact(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, "New Contact", contact.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
