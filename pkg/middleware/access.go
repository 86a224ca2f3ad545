package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/audit"
	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/contextkeys"
	"github.com/brightpath/casehub/pkg/httputil"
	"github.com/brightpath/casehub/pkg/observability"
)

// Access builds per-route authorization middleware around the checker.
// Denials are handed to the auditor without blocking the response.
type Access struct {
	checker *authz.Checker
	auditor *audit.Auditor
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAccess creates the access middleware factory. auditor and metrics may
// be nil.
func NewAccess(checker *authz.Checker, auditor *audit.Auditor, logger *observability.Logger, metrics *observability.Metrics) *Access {
	return &Access{
		checker: checker,
		auditor: auditor,
		logger:  logger,
		metrics: metrics,
	}
}

type requireConfig struct {
	resourceID   func(*http.Request) *uuid.UUID
	scopeContext func(*http.Request) *authz.ScopeContext
	settingArea  *authz.SettingArea
	skip         bool
}

// Option adjusts how a route's permission check is built.
type Option func(*requireConfig)

// WithResourceID extracts the concrete resource the route operates on.
func WithResourceID(extract func(*http.Request) *uuid.UUID) Option {
	return func(c *requireConfig) { c.resourceID = extract }
}

// WithScopeContext extracts the scope context the route can establish.
// Routes that cannot supply the context their scope needs are denied.
func WithScopeContext(extract func(*http.Request) *authz.ScopeContext) Option {
	return func(c *requireConfig) { c.scopeContext = extract }
}

// WithSettingArea marks the route as managing a delegable settings area.
func WithSettingArea(area authz.SettingArea) Option {
	return func(c *requireConfig) { c.settingArea = &area }
}

// SkipAuthorization keeps the identity requirement but bypasses the
// permission check, for routes like capability listing that are safe for
// any authenticated caller.
func SkipAuthorization() Option {
	return func(c *requireConfig) { c.skip = true }
}

type errorBody struct {
	Code         string              `json:"code"`
	Message      string              `json:"message"`
	AdminContact *authz.AdminContact `json:"admin_contact,omitempty"`
}

// Require authorizes the route for the given resource and action. Requests
// without an identity get 401; denied requests get 403 with the decision's
// user message and escalation contact.
func (a *Access) Require(resource authz.Resource, action authz.Action, opts ...Option) func(http.Handler) http.Handler {
	cfg := &requireConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authz.IdentityFromContext(r.Context())
			if !ok {
				httputil.WriteJSON(w, http.StatusUnauthorized, errorBody{
					Code:    "UNAUTHORIZED",
					Message: "Authentication required.",
				})
				return
			}

			if cfg.skip {
				next.ServeHTTP(w, r)
				return
			}

			req := authz.CheckRequest{
				Resource:    resource,
				Action:      action,
				SettingArea: cfg.settingArea,
			}
			if cfg.resourceID != nil {
				req.ResourceID = cfg.resourceID(r)
			}
			if cfg.scopeContext != nil {
				req.Scope = cfg.scopeContext(r)
			}

			start := time.Now()
			decision := a.checker.Check(r.Context(), *identity, req)
			if a.metrics != nil {
				a.metrics.ObserveCheck(string(resource), string(action), decision.Allowed, string(decision.Reason), time.Since(start))
			}

			if !decision.Allowed {
				a.recordDenial(r, identity, req, decision)
				httputil.WriteJSON(w, http.StatusForbidden, errorBody{
					Code:         "FORBIDDEN",
					Message:      decision.UserMessage,
					AdminContact: decision.AdminContact,
				})
				return
			}

			ctx := contextkeys.WithDecision(r.Context(), &decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recordDenial hands the denial to the auditor on a detached context so a
// slow audit path never delays the response.
func (a *Access) recordDenial(r *http.Request, identity *authz.Identity, req authz.CheckRequest, decision authz.Decision) {
	if a.auditor == nil {
		return
	}

	denial := &audit.Denial{
		Identity:   identity,
		Resource:   req.Resource,
		Action:     req.Action,
		ResourceID: req.ResourceID,
		Reason:     decision.Reason,
		Meta: audit.RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			RequestID: contextkeys.GetRequestID(r.Context()),
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.auditor.RecordDenial(ctx, denial)
	}()
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop only; the full chain can overflow the audit column.
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
