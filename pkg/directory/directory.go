// Package directory resolves the organizational facts the permission
// checker depends on: program membership, client enrollment, direct
// assignment, shares, session state, and escalation contacts.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/brightpath/casehub/pkg/authz"
)

const adminContactCacheSize = 512

// Directory implements the lookup interfaces consumed by the checker on
// PostgreSQL. Admin contacts are served from a small LRU because every
// denial response may need one.
type Directory struct {
	db            *sql.DB
	contactsCache *lru.Cache[uuid.UUID, *authz.AdminContact]
}

// New creates a directory backed by the given database.
func New(db *sql.DB) (*Directory, error) {
	cache, err := lru.New[uuid.UUID, *authz.AdminContact](adminContactCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact cache: %w", err)
	}
	return &Directory{db: db, contactsCache: cache}, nil
}

// ProgramsForUser returns the programs a user belongs to.
func (d *Directory) ProgramsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT program_id FROM program_members WHERE user_id = $1`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query program members: %w", err)
	}
	defer rows.Close()

	return scanUUIDs(rows)
}

// EnrolledPrograms returns the programs a client is actively enrolled in.
// Withdrawn and pending enrollments do not grant visibility.
func (d *Directory) EnrolledPrograms(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT program_id FROM client_enrollments
		WHERE client_id = $1 AND status IN ('ENROLLED', 'COMPLETED')
	`

	rows, err := d.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	return scanUUIDs(rows)
}

func scanUUIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsAssigned reports whether the client is directly assigned to the user.
func (d *Directory) IsAssigned(ctx context.Context, clientID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM client_assignments WHERE client_id = $1 AND user_id = $2)`

	var assigned bool
	if err := d.db.QueryRowContext(ctx, query, clientID, userID).Scan(&assigned); err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return assigned, nil
}

// HasActiveShare reports whether a non-revoked, unexpired share grants the
// user access to the client.
func (d *Directory) HasActiveShare(ctx context.Context, clientID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM client_shares
			WHERE client_id = $1 AND user_id = $2
			  AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > NOW())
		)
	`

	var shared bool
	if err := d.db.QueryRowContext(ctx, query, clientID, userID).Scan(&shared); err != nil {
		return false, fmt.Errorf("failed to check share: %w", err)
	}
	return shared, nil
}

// SessionActive reports whether a session is currently running.
func (d *Directory) SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM sessions
			WHERE id = $1 AND status = 'ACTIVE'
		)
	`

	var active bool
	if err := d.db.QueryRowContext(ctx, query, sessionID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return active, nil
}

// AdminContact returns the organization's escalation contact, or nil when
// none is configured. Results are cached; Invalidate clears an entry after
// the contact changes.
func (d *Directory) AdminContact(ctx context.Context, orgID uuid.UUID) (*authz.AdminContact, error) {
	if contact, ok := d.contactsCache.Get(orgID); ok {
		return contact, nil
	}

	query := `SELECT contact_name, contact_email FROM org_admin_contacts WHERE org_id = $1`

	var contact authz.AdminContact
	err := d.db.QueryRowContext(ctx, query, orgID).Scan(&contact.Name, &contact.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin contact: %w", err)
	}

	d.contactsCache.Add(orgID, &contact)
	return &contact, nil
}

// Invalidate drops the cached admin contact for an organization.
func (d *Directory) Invalidate(orgID uuid.UUID) {
	d.contactsCache.Remove(orgID)
}
