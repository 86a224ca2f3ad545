package delegation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no delegation row exists for a user.
var ErrNotFound = errors.New("delegation not found")

// Store handles delegation persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a new delegation store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves the delegation row for a user within an organization.
// Expiry is not applied here; callers decide how lapsed rows are treated.
func (s *Store) Get(ctx context.Context, orgID, userID uuid.UUID) (*Delegation, error) {
	query := `
		SELECT org_id, user_id, can_manage_billing, can_manage_team, can_manage_integrations, can_manage_branding, delegated_by_id, delegated_at, expires_at
		FROM settings_delegations
		WHERE org_id = $1 AND user_id = $2
	`

	var d Delegation
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, orgID, userID).Scan(
		&d.OrgID,
		&d.UserID,
		&d.CanManageBilling,
		&d.CanManageTeam,
		&d.CanManageIntegrations,
		&d.CanManageBranding,
		&d.DelegatedByID,
		&d.DelegatedAt,
		&expiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delegation: %w", err)
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		d.ExpiresAt = &t
	}

	return &d, nil
}

// Upsert writes a delegation row, replacing any existing row for the same
// (org, user) pair. Last write wins; the four booleans are never merged.
func (s *Store) Upsert(ctx context.Context, grant *Grant) (*Delegation, error) {
	query := `
		INSERT INTO settings_delegations (org_id, user_id, can_manage_billing, can_manage_team, can_manage_integrations, can_manage_branding, delegated_by_id, delegated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (org_id, user_id) DO UPDATE SET
			can_manage_billing = EXCLUDED.can_manage_billing,
			can_manage_team = EXCLUDED.can_manage_team,
			can_manage_integrations = EXCLUDED.can_manage_integrations,
			can_manage_branding = EXCLUDED.can_manage_branding,
			delegated_by_id = EXCLUDED.delegated_by_id,
			delegated_at = EXCLUDED.delegated_at,
			expires_at = EXCLUDED.expires_at
	`

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		grant.OrgID,
		grant.UserID,
		grant.CanManageBilling,
		grant.CanManageTeam,
		grant.CanManageIntegrations,
		grant.CanManageBranding,
		grant.DelegatedByID,
		now,
		grant.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert delegation: %w", err)
	}

	return &Delegation{
		OrgID:                 grant.OrgID,
		UserID:                grant.UserID,
		CanManageBilling:      grant.CanManageBilling,
		CanManageTeam:         grant.CanManageTeam,
		CanManageIntegrations: grant.CanManageIntegrations,
		CanManageBranding:     grant.CanManageBranding,
		DelegatedByID:         grant.DelegatedByID,
		DelegatedAt:           now,
		ExpiresAt:             grant.ExpiresAt,
	}, nil
}

// Delete removes the delegation row for a user. Deleting an absent row is
// not an error; revocation is idempotent.
func (s *Store) Delete(ctx context.Context, orgID, userID uuid.UUID) error {
	query := `DELETE FROM settings_delegations WHERE org_id = $1 AND user_id = $2`

	if _, err := s.db.ExecContext(ctx, query, orgID, userID); err != nil {
		return fmt.Errorf("failed to delete delegation: %w", err)
	}
	return nil
}

// ListByOrg returns all delegation rows for an organization, newest first.
func (s *Store) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Delegation, error) {
	query := `
		SELECT org_id, user_id, can_manage_billing, can_manage_team, can_manage_integrations, can_manage_branding, delegated_by_id, delegated_at, expires_at
		FROM settings_delegations
		WHERE org_id = $1
		ORDER BY delegated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegations: %w", err)
	}
	defer rows.Close()

	var delegations []*Delegation
	for rows.Next() {
		var d Delegation
		var expiresAt sql.NullTime

		err := rows.Scan(
			&d.OrgID,
			&d.UserID,
			&d.CanManageBilling,
			&d.CanManageTeam,
			&d.CanManageIntegrations,
			&d.CanManageBranding,
			&d.DelegatedByID,
			&d.DelegatedAt,
			&expiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delegation: %w", err)
		}

		if expiresAt.Valid {
			t := expiresAt.Time
			d.ExpiresAt = &t
		}
		delegations = append(delegations, &d)
	}

	return delegations, rows.Err()
}
