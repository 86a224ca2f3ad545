package delegation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/observability"
)

// Service answers settings-area questions and manages delegation rows.
// It implements authz.SettingsDelegation.
type Service struct {
	store   *Store
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a delegation service. metrics may be nil.
func NewService(store *Store, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// HasSettingsAccess reports whether a user may manage the given settings
// area. Admin roles always pass without a lookup. For everyone else the
// answer comes from the stored delegation row; an absent or expired row
// means no access.
func (s *Service) HasSettingsAccess(ctx context.Context, role authz.Role, orgID, userID uuid.UUID, area authz.SettingArea) (bool, error) {
	if authz.IsAdminRole(role) {
		return true, nil
	}

	d, err := s.store.Get(ctx, orgID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check settings access: %w", err)
	}

	if d.Expired(s.now().UTC()) {
		return false, nil
	}
	return d.Allows(area), nil
}

// Grant upserts a delegation row on behalf of an admin.
func (s *Service) Grant(ctx context.Context, grant *Grant) (*Delegation, error) {
	d, err := s.store.Upsert(ctx, grant)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DelegationGrantsTotal.Inc()
	}
	s.logger.WithField("org_id", grant.OrgID.String()).
		WithField("user_id", grant.UserID.String()).
		WithField("delegated_by", grant.DelegatedByID.String()).
		Info("settings delegation granted")

	return d, nil
}

// Revoke removes a user's delegation row. Revoking an absent row succeeds.
func (s *Service) Revoke(ctx context.Context, orgID, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, orgID, userID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DelegationRevokesTotal.Inc()
	}
	s.logger.WithField("org_id", orgID.String()).
		WithField("user_id", userID.String()).
		Info("settings delegation revoked")

	return nil
}

// Get returns the delegation row for a user, or ErrNotFound.
func (s *Service) Get(ctx context.Context, orgID, userID uuid.UUID) (*Delegation, error) {
	return s.store.Get(ctx, orgID, userID)
}

// ListByOrg returns all delegation rows for an organization.
func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Delegation, error) {
	return s.store.ListByOrg(ctx, orgID)
}

// SnapshotFor builds a point-in-time delegation snapshot for the capability
// view. Absent and expired rows yield a snapshot with all flags false.
func (s *Service) SnapshotFor(ctx context.Context, identity *authz.Identity) (Snapshot, error) {
	snap := Snapshot{
		Role:      identity.Role,
		FetchedAt: s.now().UTC(),
	}

	d, err := s.store.Get(ctx, identity.OrgID, identity.UserID)
	if errors.Is(err, ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to build delegation snapshot: %w", err)
	}

	if d.Expired(snap.FetchedAt) {
		return snap, nil
	}

	snap.CanManageBilling = d.CanManageBilling
	snap.CanManageTeam = d.CanManageTeam
	snap.CanManageIntegrations = d.CanManageIntegrations
	snap.CanManageBranding = d.CanManageBranding
	return snap, nil
}
