package auth

import (
	"context"
	"errors"

	"taskdesk.org/internal/obs"
)

// DenyReason classifies a refused authorization.
type DenyReason string

const (
	// DenyUnauthenticated: no, invalid, expired or revoked session, or an
	// inactive principal.
	DenyUnauthenticated DenyReason = "unauthenticated"
	// DenyForbidden: authenticated but the role lacks the requirement.
	DenyForbidden DenyReason = "forbidden"
	// DenyTenantMismatch: authenticated and sufficiently privileged, but
	// acting outside the principal's own organization.
	DenyTenantMismatch DenyReason = "tenant_mismatch"
)

// Requirement states what an operation demands of a principal: either a
// named capability or a minimum role. Exactly one side should be set; an
// empty requirement is never satisfied.
type Requirement struct {
	Capability  Capability
	MinimumRole Role
}

// RequireCapability builds a fine-grained capability requirement.
func RequireCapability(c Capability) Requirement {
	return Requirement{Capability: c}
}

// RequireMinimumRole builds a coarse seniority requirement.
func RequireMinimumRole(r Role) Requirement {
	return Requirement{MinimumRole: r}
}

// SatisfiedBy evaluates the requirement against a role.
func (r Requirement) SatisfiedBy(role Role) bool {
	if r.Capability != "" {
		return role.HasCapability(r.Capability)
	}
	if r.MinimumRole != "" {
		return role.AtLeast(r.MinimumRole)
	}
	return false
}

func (r Requirement) String() string {
	if r.Capability != "" {
		return "capability:" + string(r.Capability)
	}
	if r.MinimumRole != "" {
		return "min_role:" + string(r.MinimumRole)
	}
	return "none"
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	// Principal is set on Allow.
	Principal *User
}

// Outcome returns a label suitable for audit metadata and metrics.
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return string(d.Reason)
}

// Gateway composes session validation, the capability model and tenant
// isolation into a single access decision. Every organization-scoped
// operation must pass through Authorize with the target organization id;
// the boundary is enforced here, not assumed elsewhere.
type Gateway struct {
	store    Store
	sessions *SessionService
	audit    *AuditService
}

// NewGateway constructs a Gateway.
func NewGateway(store Store, sessions *SessionService, audit *AuditService) (*Gateway, error) {
	if store == nil || sessions == nil || audit == nil {
		return nil, errors.New("auth: store, sessions and audit are required")
	}
	return &Gateway{store: store, sessions: sessions, audit: audit}, nil
}

// Authorize resolves the token to a principal and evaluates the requirement,
// optionally scoped to a target organization. targetOrgID may be empty for
// operations without a tenant scope. Every call, regardless of outcome,
// produces one audit entry capturing the decision.
func (g *Gateway) Authorize(ctx context.Context, token string, req Requirement, targetOrgID string) (Decision, error) {
	session, err := g.sessions.Validate(ctx, token)
	if err != nil {
		return Decision{}, err
	}

	var principal *User
	if session != nil {
		principal, err = g.store.Users(ctx).Find(ctx, session.UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Decision{}, err
		}
	}

	var decision Decision
	switch {
	case principal == nil || !principal.Active:
		decision = Decision{Reason: DenyUnauthenticated}
	case !req.SatisfiedBy(principal.Role):
		decision = Decision{Reason: DenyForbidden}
	case targetOrgID != "" && targetOrgID != principal.OrganizationID:
		decision = Decision{Reason: DenyTenantMismatch}
	default:
		decision = Decision{Allowed: true, Principal: principal}
	}

	entry := AuditEntry{
		Action:   "auth.authorize",
		Resource: "authorization",
		Metadata: map[string]string{
			"requirement": req.String(),
			"outcome":     decision.Outcome(),
		},
		Client: ClientMetaFromContext(ctx),
	}
	if targetOrgID != "" {
		entry.Metadata["target_organization_id"] = targetOrgID
	}
	if principal != nil {
		entry.ActorID = principal.ID
		entry.OrganizationID = principal.OrganizationID
	}
	if _, err := g.audit.Record(ctx, entry); err != nil {
		return Decision{}, err
	}

	obs.AuthorizeDecision(decision.Outcome())
	return decision, nil
}

// Require is a convenience wrapper around Authorize that maps a denial to
// the matching sentinel error and returns the principal on success.
func (g *Gateway) Require(ctx context.Context, token string, req Requirement, targetOrgID string) (*User, error) {
	decision, err := g.Authorize(ctx, token, req, targetOrgID)
	if err != nil {
		return nil, err
	}
	if decision.Allowed {
		return decision.Principal, nil
	}
	switch decision.Reason {
	case DenyForbidden:
		return nil, ErrForbidden
	case DenyTenantMismatch:
		return nil, ErrTenantMismatch
	default:
		return nil, ErrUnauthenticated
	}
}
