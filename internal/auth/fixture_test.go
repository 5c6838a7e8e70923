package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/store/memory"
)

// fakeClock is a settable time source shared between services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seqTokens yields predictable session tokens.
func seqTokens(prefix string) auth.TokenSource {
	n := 0
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n), nil
	}
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	sessions *auth.SessionService
	audit    *auth.AuditService
	gateway  *auth.Gateway
	dir      *auth.Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	sessions, err := auth.NewSessionService(store,
		auth.WithClock(clock.Now),
		auth.WithTokenSource(seqTokens("tok")),
	)
	if err != nil {
		t.Fatalf("NewSessionService: %v", err)
	}
	audit, err := auth.NewAuditService(store, auth.WithAuditClock(clock.Now))
	if err != nil {
		t.Fatalf("NewAuditService: %v", err)
	}
	gateway, err := auth.NewGateway(store, sessions, audit)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	dir, err := auth.NewDirectory(store, sessions)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	return &fixture{store: store, clock: clock, sessions: sessions, audit: audit, gateway: gateway, dir: dir}
}

func (f *fixture) org(t *testing.T, name, slug string, settings *auth.OrganizationSettings) *auth.Organization {
	t.Helper()
	org, err := f.dir.CreateOrganization(context.Background(), name, slug, "", settings)
	if err != nil {
		t.Fatalf("CreateOrganization(%s): %v", slug, err)
	}
	return org
}

func (f *fixture) user(t *testing.T, orgID, name, email string, role auth.Role) *auth.User {
	t.Helper()
	user, err := f.dir.CreateUser(context.Background(), orgID, name, email, role)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

func (f *fixture) session(t *testing.T, userID string) *auth.Session {
	t.Helper()
	session, err := f.sessions.Create(context.Background(), userID, auth.ClientMeta{})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	return session
}
