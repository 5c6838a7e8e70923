// Package memory provides an in-process Store with the same constraint
// behavior as the Postgres implementation: unique organization slugs, user
// emails and session tokens are enforced atomically under one lock, so
// concurrent creations cannot both pass a pre-check.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/ids"
)

// Store implements auth.Store in memory. Intended for tests and development.
type Store struct {
	mu sync.RWMutex

	orgs       map[string]*auth.Organization
	orgsBySlug map[string]string

	users        map[string]*auth.User
	usersByEmail map[string]string

	sessions        map[string]*auth.Session
	sessionsByToken map[string]string

	audit []*auth.AuditEntry
}

var _ auth.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		orgs:            make(map[string]*auth.Organization),
		orgsBySlug:      make(map[string]string),
		users:           make(map[string]*auth.User),
		usersByEmail:    make(map[string]string),
		sessions:        make(map[string]*auth.Session),
		sessionsByToken: make(map[string]string),
	}
}

func (s *Store) Organizations(ctx context.Context) auth.OrganizationStore { return &orgStore{s} }
func (s *Store) Users(ctx context.Context) auth.UserStore                 { return &userStore{s} }
func (s *Store) Sessions(ctx context.Context) auth.SessionStore           { return &sessionStore{s} }
func (s *Store) Audit(ctx context.Context) auth.AuditStore                { return &auditStore{s} }

// Organization store -------------------------------------------------------

type orgStore struct{ s *Store }

func (o *orgStore) Create(ctx context.Context, org *auth.Organization) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, taken := o.s.orgsBySlug[org.Slug]; taken {
		return fmt.Errorf("%w: slug %q is taken", auth.ErrConflict, org.Slug)
	}
	if org.ID == "" {
		org.ID = ids.New()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	stored := *org
	o.s.orgs[org.ID] = &stored
	o.s.orgsBySlug[org.Slug] = org.ID
	return nil
}

func (o *orgStore) Find(ctx context.Context, id string) (*auth.Organization, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	org, ok := o.s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *org
	return &out, nil
}

func (o *orgStore) FindBySlug(ctx context.Context, slug string) (*auth.Organization, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	id, ok := o.s.orgsBySlug[slug]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *o.s.orgs[id]
	return &out, nil
}

func (o *orgStore) List(ctx context.Context) ([]*auth.Organization, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	result := make([]*auth.Organization, 0, len(o.s.orgs))
	for _, org := range o.s.orgs {
		out := *org
		result = append(result, &out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (o *orgStore) Update(ctx context.Context, id string, upd auth.OrganizationUpdate) (*auth.Organization, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	org, ok := o.s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		org.Name = *upd.Name
	}
	if upd.Description != nil {
		org.Description = *upd.Description
	}
	if upd.Settings != nil {
		org.Settings = *upd.Settings
	}
	if upd.Active != nil {
		org.Active = *upd.Active
	}
	org.UpdatedAt = time.Now().UTC()
	out := *org
	return &out, nil
}

func (o *orgStore) Delete(ctx context.Context, id string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	org, ok := o.s.orgs[id]
	if !ok {
		return auth.ErrNotFound
	}
	delete(o.s.orgsBySlug, org.Slug)
	delete(o.s.orgs, id)
	return nil
}

// User store ---------------------------------------------------------------

type userStore struct{ s *Store }

func (u *userStore) Create(ctx context.Context, user *auth.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, taken := u.s.usersByEmail[user.Email]; taken {
		return fmt.Errorf("%w: email %q is taken", auth.ErrConflict, user.Email)
	}
	if user.ID == "" {
		user.ID = ids.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	stored := *user
	u.s.users[user.ID] = &stored
	u.s.usersByEmail[user.Email] = user.ID
	return nil
}

func (u *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (u *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.usersByEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *u.s.users[id]
	return &out, nil
}

func (u *userStore) ListByOrg(ctx context.Context, orgID string) ([]*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	var result []*auth.User
	for _, user := range u.s.users {
		if user.OrganizationID != orgID {
			continue
		}
		out := *user
		result = append(result, &out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (u *userStore) CountByOrg(ctx context.Context, orgID string) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	count := 0
	for _, user := range u.s.users {
		if user.OrganizationID == orgID {
			count++
		}
	}
	return count, nil
}

func (u *userStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.Active != nil {
		user.Active = *upd.Active
	}
	user.UpdatedAt = time.Now().UTC()
	out := *user
	return &out, nil
}

func (u *userStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	stamp := at.UTC()
	user.LastLoginAt = &stamp
	user.UpdatedAt = stamp
	return nil
}

// Session store ------------------------------------------------------------

type sessionStore struct{ s *Store }

func (st *sessionStore) Create(ctx context.Context, session *auth.Session) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, taken := st.s.sessionsByToken[session.Token]; taken {
		return fmt.Errorf("%w: token collision", auth.ErrConflict)
	}
	if session.ID == "" {
		session.ID = ids.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	stored := *session
	st.s.sessions[session.ID] = &stored
	st.s.sessionsByToken[session.Token] = session.ID
	return nil
}

func (st *sessionStore) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	id, ok := st.s.sessionsByToken[token]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *st.s.sessions[id]
	return &out, nil
}

func (st *sessionStore) ListByUser(ctx context.Context, userID string) ([]*auth.Session, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var result []*auth.Session
	for _, session := range st.s.sessions {
		if session.UserID != userID {
			continue
		}
		out := *session
		result = append(result, &out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (st *sessionStore) ListExpired(ctx context.Context, cutoff time.Time) ([]*auth.Session, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var result []*auth.Session
	for _, session := range st.s.sessions {
		if !session.ExpiresAt.Before(cutoff) {
			continue
		}
		out := *session
		result = append(result, &out)
	}
	return result, nil
}

func (st *sessionStore) Deactivate(ctx context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	session, ok := st.s.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	session.Active = false
	return nil
}

// Audit store --------------------------------------------------------------

type auditStore struct{ s *Store }

func (a *auditStore) Append(ctx context.Context, entry *auth.AuditEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry
	stored.Metadata = copyMeta(entry.Metadata)
	a.s.audit = append(a.s.audit, &stored)
	return nil
}

func (a *auditStore) ListByOrganization(ctx context.Context, orgID string, limit int) ([]*auth.AuditEntry, error) {
	return a.list(func(e *auth.AuditEntry) bool { return e.OrganizationID == orgID }, limit)
}

func (a *auditStore) ListByActor(ctx context.Context, actorID string, limit int) ([]*auth.AuditEntry, error) {
	return a.list(func(e *auth.AuditEntry) bool { return e.ActorID == actorID }, limit)
}

func (a *auditStore) ListRecent(ctx context.Context, limit int) ([]*auth.AuditEntry, error) {
	return a.list(func(*auth.AuditEntry) bool { return true }, limit)
}

func (a *auditStore) list(match func(*auth.AuditEntry) bool, limit int) ([]*auth.AuditEntry, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var result []*auth.AuditEntry
	// Entries are appended in arrival order; walk backwards for newest first.
	for i := len(a.s.audit) - 1; i >= 0 && len(result) < limit; i-- {
		entry := a.s.audit[i]
		if !match(entry) {
			continue
		}
		out := *entry
		out.Metadata = copyMeta(entry.Metadata)
		result = append(result, &out)
	}
	return result, nil
}

func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
