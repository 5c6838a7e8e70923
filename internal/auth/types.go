package auth

import "time"

// Organization is the tenant boundary. Principals and resources belong to
// exactly one organization.
type Organization struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	Description string               `json:"description,omitempty"`
	Settings    OrganizationSettings `json:"settings"`
	Active      bool                 `json:"active"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// OrganizationSettings controls tenant-local registration policy.
// DefaultRole never holds RoleAdmin; Directory validation rejects it.
type OrganizationSettings struct {
	AllowSelfRegistration bool `json:"allow_self_registration"`
	DefaultRole           Role `json:"default_role"`
	// MaxUsers caps principals in the organization; zero means no cap.
	MaxUsers int `json:"max_users,omitempty"`
}

// User is a principal acting on behalf of an organization. The organization
// reference is immutable after creation.
type User struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	Active         bool       `json:"active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Session is a time-bounded, revocable proof of authentication. The token is
// the sole lookup key; expiry is enforced lazily at validation time.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Active    bool       `json:"active"`
	Client    ClientMeta `json:"client,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ClientMeta carries request origin details recorded alongside sessions and
// audit entries.
type ClientMeta struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AuditEntry records one security-relevant action. Entries are write-once:
// no component updates or deletes them.
type AuditEntry struct {
	ID             string            `json:"id"`
	ActorID        string            `json:"actor_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Action         string            `json:"action"`
	Resource       string            `json:"resource"`
	ResourceID     string            `json:"resource_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Client         ClientMeta        `json:"client,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AuditFilter narrows audit queries. When both OrganizationID and ActorID
// are set the organization is the primary lookup and the actor is applied
// as a secondary filter.
type AuditFilter struct {
	OrganizationID string
	ActorID        string
	Action         string
}

// OrganizationUpdate patches mutable organization fields.
type OrganizationUpdate struct {
	Name        *string
	Description *string
	Settings    *OrganizationSettings
	Active      *bool
}

// UserUpdate patches mutable user fields. The organization reference is not
// part of the update surface: cross-tenant migration is unsupported.
type UserUpdate struct {
	Name   *string
	Role   *Role
	Active *bool
}
