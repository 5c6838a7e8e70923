package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Directory manages organizations and principals: the administrative surface
// of the tenant model. Uniqueness of slugs and emails is enforced by the
// store's constraints; Directory only normalizes and validates input.
type Directory struct {
	store    Store
	sessions *SessionService
}

// NewDirectory constructs a Directory. The session service is used to revoke
// sessions when a principal is deactivated.
func NewDirectory(store Store, sessions *SessionService) (*Directory, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if sessions == nil {
		return nil, errors.New("auth: session service is required")
	}
	return &Directory{store: store, sessions: sessions}, nil
}

// UserListFilter narrows ListUsers results.
type UserListFilter struct {
	Role   Role
	Active *bool
}

func defaultSettings() OrganizationSettings {
	return OrganizationSettings{
		AllowSelfRegistration: false,
		DefaultRole:           RoleUser,
	}
}

func validateSettings(settings OrganizationSettings) error {
	switch settings.DefaultRole {
	case RoleViewer, RoleUser, RoleManager:
	default:
		// Admin is never handed out as a default role.
		return fmt.Errorf("%w: unsupported default role %q", ErrInvalidInput, settings.DefaultRole)
	}
	if settings.MaxUsers < 0 {
		return fmt.Errorf("%w: max_users must not be negative", ErrInvalidInput)
	}
	return nil
}

func validSlug(slug string) bool {
	if slug == "" {
		return false
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return slug[0] != '-' && slug[len(slug)-1] != '-'
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}

// CreateOrganization registers a tenant. The slug must be globally unique;
// the store surfaces a taken slug as ErrConflict.
func (d *Directory) CreateOrganization(ctx context.Context, name, slug, description string, settings *OrganizationSettings) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	slug = strings.TrimSpace(strings.ToLower(slug))
	if !validSlug(slug) {
		return nil, fmt.Errorf("%w: slug must be lowercase letters, digits and hyphens", ErrInvalidInput)
	}

	effective := defaultSettings()
	if settings != nil {
		effective = *settings
	}
	if err := validateSettings(effective); err != nil {
		return nil, err
	}

	org := &Organization{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(description),
		Settings:    effective,
		Active:      true,
	}
	if err := d.store.Organizations(ctx).Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// GetOrganization loads a tenant by id.
func (d *Directory) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return d.store.Organizations(ctx).Find(ctx, id)
}

// GetOrganizationBySlug loads a tenant by its unique slug.
func (d *Directory) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	return d.store.Organizations(ctx).FindBySlug(ctx, slug)
}

// ListOrganizations returns tenants, optionally only active ones.
func (d *Directory) ListOrganizations(ctx context.Context, activeOnly bool) ([]*Organization, error) {
	orgs, err := d.store.Organizations(ctx).List(ctx)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return orgs, nil
	}
	filtered := make([]*Organization, 0, len(orgs))
	for _, org := range orgs {
		if org.Active {
			filtered = append(filtered, org)
		}
	}
	return filtered, nil
}

// UpdateOrganization patches mutable tenant fields.
func (d *Directory) UpdateOrganization(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
		}
		upd.Name = &trimmed
	}
	if upd.Settings != nil {
		if err := validateSettings(*upd.Settings); err != nil {
			return nil, err
		}
	}
	return d.store.Organizations(ctx).Update(ctx, id, upd)
}

// DeleteOrganization removes an empty tenant. It refuses with ErrConflict
// while principals still belong to the organization.
func (d *Directory) DeleteOrganization(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	count, err := d.store.Users(ctx).CountByOrg(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: organization still has principals", ErrConflict)
	}
	return d.store.Organizations(ctx).Delete(ctx, id)
}

// CreateUser registers a principal in an organization. The email must be
// globally unique; a duplicate surfaces from the store as ErrConflict.
func (d *Directory) CreateUser(ctx context.Context, orgID, name, email string, role Role) (*User, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	org, err := d.store.Organizations(ctx).Find(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.Active {
		return nil, fmt.Errorf("%w: organization is inactive", ErrInvalidInput)
	}
	if err := d.checkUserCap(ctx, org); err != nil {
		return nil, err
	}

	user := &User{
		OrganizationID: org.ID,
		Name:           name,
		Email:          email,
		Role:           role,
		Active:         true,
	}
	if err := d.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates a principal through tenant self-registration. It is
// allowed only when the organization's settings permit it; the new principal
// receives the organization's default role.
func (d *Directory) Register(ctx context.Context, orgSlug, name, email string) (*User, error) {
	org, err := d.GetOrganizationBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if !org.Active || !org.Settings.AllowSelfRegistration {
		return nil, fmt.Errorf("%w: self-registration is disabled", ErrForbidden)
	}
	role := org.Settings.DefaultRole
	if !role.Valid() {
		role = RoleUser
	}
	return d.CreateUser(ctx, org.ID, name, email, role)
}

// GetUser loads a principal by id.
func (d *Directory) GetUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return d.store.Users(ctx).Find(ctx, id)
}

// GetUserByEmail loads a principal by their unique email.
func (d *Directory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return d.store.Users(ctx).FindByEmail(ctx, email)
}

// ListUsers returns the organization's principals, optionally narrowed by
// role and active flag.
func (d *Directory) ListUsers(ctx context.Context, orgID string, filter UserListFilter) ([]*User, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	users, err := d.store.Users(ctx).ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	result := make([]*User, 0, len(users))
	for _, user := range users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		result = append(result, user)
	}
	return result, nil
}

// UpdateUser patches mutable principal fields. The organization reference is
// immutable; there is no cross-tenant migration.
func (d *Directory) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &trimmed
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
	}
	return d.store.Users(ctx).Update(ctx, id, upd)
}

// DeactivateUser retires a principal and revokes all their sessions. The
// record stays in place; the core never physically deletes principals.
func (d *Directory) DeactivateUser(ctx context.Context, id string) (*User, error) {
	inactive := false
	user, err := d.UpdateUser(ctx, id, UserUpdate{Active: &inactive})
	if err != nil {
		return nil, err
	}
	if _, err := d.sessions.RevokeAll(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (d *Directory) checkUserCap(ctx context.Context, org *Organization) error {
	if org.Settings.MaxUsers <= 0 {
		return nil
	}
	count, err := d.store.Users(ctx).CountByOrg(ctx, org.ID)
	if err != nil {
		return err
	}
	if count >= org.Settings.MaxUsers {
		return fmt.Errorf("%w: organization principal limit reached", ErrConflict)
	}
	return nil
}
