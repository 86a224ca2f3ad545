// Package audit records repeated authorization denials so operators can
// spot misconfigured roles and probing behavior. Single denials are
// expected noise; only repeats within a short window are persisted.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/authz"
)

// DenialEvent is a persisted record of repeated denials for one
// (user, resource, action) tuple.
type DenialEvent struct {
	ID         int64            `json:"id"`
	OrgID      uuid.UUID        `json:"org_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Role       authz.Role       `json:"role"`
	Resource   authz.Resource   `json:"resource"`
	Action     authz.Action     `json:"action"`
	ResourceID *uuid.UUID       `json:"resource_id,omitempty"`
	Reason     authz.DenyReason `json:"reason"`
	Count      int64            `json:"count"`
	IPAddress  string           `json:"ip_address,omitempty"`
	UserAgent  string           `json:"user_agent,omitempty"`
	RequestID  string           `json:"request_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// RequestMeta carries request attributes worth keeping with a denial log.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// Denial describes a single denied check handed to the auditor.
type Denial struct {
	Identity   *authz.Identity
	Resource   authz.Resource
	Action     authz.Action
	ResourceID *uuid.UUID
	Reason     authz.DenyReason
	Meta       RequestMeta
}

// SearchFilter narrows denial log queries. Zero values mean "any".
type SearchFilter struct {
	OrgID     *uuid.UUID
	UserID    *uuid.UUID
	Resource  authz.Resource
	Reasons   []authz.DenyReason
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Stats summarizes denial logs for an organization.
type Stats struct {
	TotalEvents      int64                      `json:"total_events"`
	EventsByResource map[authz.Resource]int64   `json:"events_by_resource"`
	EventsByReason   map[authz.DenyReason]int64 `json:"events_by_reason"`
	TopUsers         []UserDenialCount          `json:"top_users"`
}

// UserDenialCount pairs a user with their persisted denial count.
type UserDenialCount struct {
	UserID uuid.UUID `json:"user_id"`
	Count  int64     `json:"count"`
}

// CounterStore tracks in-window denial counts per tuple. Implementations
// must tolerate concurrent callers; the auditor never retries on error.
type CounterStore interface {
	// Increment bumps the tuple's counter and returns the new in-window
	// count. A counter whose window has lapsed restarts at 1.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)

	// Reset removes the tuple's counter.
	Reset(ctx context.Context, key string) error
}
