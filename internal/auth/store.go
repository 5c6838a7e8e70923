package auth

import (
	"context"
	"time"
)

// Store describes the persistence collaborator for the authorization core.
// Implementations must enforce uniqueness (organization slug, user email,
// session token) at the storage layer so concurrent creations cannot both
// pass an application-level pre-check.
type Store interface {
	Organizations(ctx context.Context) OrganizationStore
	Users(ctx context.Context) UserStore
	Sessions(ctx context.Context) SessionStore
	Audit(ctx context.Context) AuditStore
}

// OrganizationStore manages tenants. Create returns ErrConflict when the
// slug is already taken.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error)
	Delete(ctx context.Context, id string) error
}

// UserStore manages principals. Create returns ErrConflict when the email is
// already taken.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListByOrg(ctx context.Context, orgID string) ([]*User, error)
	CountByOrg(ctx context.Context, orgID string) (int, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore manages session records. Create returns ErrConflict on a
// token collision; sessions are never physically deleted.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	ListExpired(ctx context.Context, cutoff time.Time) ([]*Session, error)
	Deactivate(ctx context.Context, id string) error
}

// AuditStore appends immutable entries and serves the pre-declared lookup
// indexes. List results are ordered newest first and bounded by limit.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	ListByOrganization(ctx context.Context, orgID string, limit int) ([]*AuditEntry, error)
	ListByActor(ctx context.Context, actorID string, limit int) ([]*AuditEntry, error)
	ListRecent(ctx context.Context, limit int) ([]*AuditEntry, error)
}
