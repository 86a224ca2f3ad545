package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/brightpath/casehub/pkg/authz"
)

// LogStore persists and queries denial events.
type LogStore interface {
	// Insert writes a denial event and sets its ID.
	Insert(ctx context.Context, event *DenialEvent) error

	// Search returns denial events matching the filter, newest first.
	Search(ctx context.Context, filter SearchFilter) ([]*DenialEvent, error)

	// GetStats summarizes denial events for an organization.
	GetStats(ctx context.Context, orgID uuid.UUID, since *time.Time) (*Stats, error)

	// Purge removes denial events older than the cutoff and returns the
	// number deleted.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// DBStore implements LogStore on PostgreSQL.
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates a database-backed denial log store.
func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

// Insert writes a denial event.
func (s *DBStore) Insert(ctx context.Context, event *DenialEvent) error {
	query := `
		INSERT INTO denial_logs (org_id, user_id, role, resource, action, resource_id, reason, denial_count, ip_address, user_agent, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		event.OrgID,
		event.UserID,
		string(event.Role),
		string(event.Resource),
		string(event.Action),
		event.ResourceID,
		string(event.Reason),
		event.Count,
		nullableString(event.IPAddress),
		nullableString(event.UserAgent),
		nullableString(event.RequestID),
		event.OccurredAt,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to insert denial log: %w", err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Search returns denial events matching the filter, newest first.
func (s *DBStore) Search(ctx context.Context, filter SearchFilter) ([]*DenialEvent, error) {
	query := `
		SELECT id, org_id, user_id, role, resource, action, resource_id, reason, denial_count, ip_address, user_agent, request_id, occurred_at
		FROM denial_logs
		WHERE 1=1
	`

	args := []interface{}{}
	argCount := 1

	if filter.OrgID != nil {
		query += fmt.Sprintf(" AND org_id = $%d", argCount)
		args = append(args, *filter.OrgID)
		argCount++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, *filter.UserID)
		argCount++
	}
	if filter.Resource != "" {
		query += fmt.Sprintf(" AND resource = $%d", argCount)
		args = append(args, string(filter.Resource))
		argCount++
	}
	if len(filter.Reasons) > 0 {
		query += fmt.Sprintf(" AND reason = ANY($%d)", argCount)
		reasons := make([]string, len(filter.Reasons))
		for i, r := range filter.Reasons {
			reasons[i] = string(r)
		}
		args = append(args, pq.Array(reasons))
		argCount++
	}
	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argCount)
		args = append(args, *filter.StartTime)
		argCount++
	}
	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argCount)
		args = append(args, *filter.EndTime)
		argCount++
	}

	query += " ORDER BY occurred_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)
	argCount++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search denial logs: %w", err)
	}
	defer rows.Close()

	var events []*DenialEvent
	for rows.Next() {
		var e DenialEvent
		var resourceID sql.NullString
		var ipAddress, userAgent, requestID sql.NullString

		err := rows.Scan(
			&e.ID,
			&e.OrgID,
			&e.UserID,
			&e.Role,
			&e.Resource,
			&e.Action,
			&resourceID,
			&e.Reason,
			&e.Count,
			&ipAddress,
			&userAgent,
			&requestID,
			&e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan denial log: %w", err)
		}

		if resourceID.Valid {
			id, err := uuid.Parse(resourceID.String)
			if err == nil {
				e.ResourceID = &id
			}
		}
		e.IPAddress = ipAddress.String
		e.UserAgent = userAgent.String
		e.RequestID = requestID.String

		events = append(events, &e)
	}

	return events, rows.Err()
}

// GetStats summarizes denial events for an organization since the given
// time (or all time when since is nil).
func (s *DBStore) GetStats(ctx context.Context, orgID uuid.UUID, since *time.Time) (*Stats, error) {
	stats := &Stats{
		EventsByResource: make(map[authz.Resource]int64),
		EventsByReason:   make(map[authz.DenyReason]int64),
	}

	where := " WHERE org_id = $1"
	args := []interface{}{orgID}
	if since != nil {
		where += " AND occurred_at >= $2"
		args = append(args, *since)
	}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM denial_logs"+where, args...).Scan(&stats.TotalEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to count denial logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT resource, COUNT(*) FROM denial_logs"+where+" GROUP BY resource", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group by resource: %w", err)
	}
	for rows.Next() {
		var resource string
		var count int64
		if err := rows.Scan(&resource, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan resource stats: %w", err)
		}
		stats.EventsByResource[authz.Resource(resource)] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT reason, COUNT(*) FROM denial_logs"+where+" GROUP BY reason", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group by reason: %w", err)
	}
	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan reason stats: %w", err)
		}
		stats.EventsByReason[authz.DenyReason(reason)] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT user_id, COUNT(*) AS c FROM denial_logs"+where+" GROUP BY user_id ORDER BY c DESC LIMIT 10", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group by user: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entry UserDenialCount
		if err := rows.Scan(&entry.UserID, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan user stats: %w", err)
		}
		stats.TopUsers = append(stats.TopUsers, entry)
	}

	return stats, rows.Err()
}

// Purge removes denial events older than the cutoff.
func (s *DBStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM denial_logs WHERE occurred_at < $1", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge denial logs: %w", err)
	}
	return res.RowsAffected()
}
