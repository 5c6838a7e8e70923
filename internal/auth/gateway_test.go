package auth_test

import (
	"context"
	"errors"
	"testing"

	"taskdesk.org/internal/auth"
)

func TestGatewayAuthorizeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.org(t, "Acme", "acme", nil)
	alice := f.user(t, org.ID, "Alice", "alice@acme.test", auth.RoleManager)
	session := f.session(t, alice.ID)

	decision, err := f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapWriteTasks), org.ID)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("manager should be allowed write_tasks, denied with %s", decision.Reason)
	}
	if decision.Principal == nil || decision.Principal.ID != alice.ID {
		t.Fatalf("decision principal = %+v", decision.Principal)
	}

	decision, err = f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapAdminPanel), org.ID)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != auth.DenyForbidden {
		t.Fatalf("manager should be forbidden admin_panel, got %+v", decision)
	}

	if _, err := f.sessions.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	decision, err = f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapWriteTasks), org.ID)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != auth.DenyUnauthenticated {
		t.Fatalf("revoked session should be unauthenticated, got %+v", decision)
	}
}

func TestGatewayTenantMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme", "acme", nil)
	globex := f.org(t, "Globex", "globex", nil)
	admin := f.user(t, acme.ID, "Root", "root@acme.test", auth.RoleAdmin)
	session := f.session(t, admin.ID)

	// Even an admin cannot cross the organization boundary.
	decision, err := f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapReadTasks), globex.ID)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != auth.DenyTenantMismatch {
		t.Fatalf("expected tenant mismatch, got %+v", decision)
	}

	// Capability failure is reported before the tenant check.
	viewer := f.user(t, acme.ID, "Eve", "eve@acme.test", auth.RoleViewer)
	vs := f.session(t, viewer.ID)
	decision, err = f.gateway.Authorize(ctx, vs.Token, auth.RequireCapability(auth.CapWriteTasks), globex.ID)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Reason != auth.DenyForbidden {
		t.Fatalf("capability check should run first, got %s", decision.Reason)
	}
}

func TestGatewayInactivePrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.org(t, "Acme", "acme", nil)
	alice := f.user(t, org.ID, "Alice", "alice@acme.test", auth.RoleAdmin)
	session := f.session(t, alice.ID)

	inactive := false
	if _, err := f.dir.UpdateUser(ctx, alice.ID, auth.UserUpdate{Active: &inactive}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	decision, err := f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapReadTasks), org.ID)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != auth.DenyUnauthenticated {
		t.Fatalf("inactive principal should be unauthenticated, got %+v", decision)
	}
}

func TestGatewayMinimumRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.org(t, "Acme", "acme", nil)
	user := f.user(t, org.ID, "Bob", "bob@acme.test", auth.RoleUser)
	session := f.session(t, user.ID)

	decision, err := f.gateway.Authorize(ctx, session.Token, auth.RequireMinimumRole(auth.RoleViewer), "")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("user should satisfy a viewer threshold, got %s", decision.Reason)
	}

	decision, err = f.gateway.Authorize(ctx, session.Token, auth.RequireMinimumRole(auth.RoleAdmin), "")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != auth.DenyForbidden {
		t.Fatalf("user should not satisfy an admin threshold, got %+v", decision)
	}
}

func TestGatewayAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.org(t, "Acme", "acme", nil)
	alice := f.user(t, org.ID, "Alice", "alice@acme.test", auth.RoleViewer)
	session := f.session(t, alice.ID)

	if _, err := f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapReadTasks), org.ID); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	f.clock.Advance(1)
	if _, err := f.gateway.Authorize(ctx, session.Token, auth.RequireCapability(auth.CapAdminPanel), org.ID); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	f.clock.Advance(1)
	// A denial with no resolvable principal is recorded too, without actor.
	if _, err := f.gateway.Authorize(ctx, "bogus", auth.RequireCapability(auth.CapReadTasks), org.ID); err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	entries, err := f.audit.Query(ctx, auth.AuditFilter{Action: "auth.authorize"}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d authorize entries, want one per call", len(entries))
	}
	if entries[0].ActorID != "" {
		t.Fatalf("anonymous denial should carry no actor, got %q", entries[0].ActorID)
	}
	if entries[0].Metadata["outcome"] != "unauthenticated" {
		t.Fatalf("outcome = %q", entries[0].Metadata["outcome"])
	}
	if entries[1].Metadata["outcome"] != "forbidden" || entries[1].ActorID != alice.ID {
		t.Fatalf("forbidden entry = %+v", entries[1])
	}
	if entries[2].Metadata["outcome"] != "allow" {
		t.Fatalf("outcome = %q", entries[2].Metadata["outcome"])
	}
	if entries[2].Metadata["requirement"] != "capability:read_tasks" {
		t.Fatalf("requirement = %q", entries[2].Metadata["requirement"])
	}
}

func TestGatewayRequireMapsSentinels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme", "acme", nil)
	globex := f.org(t, "Globex", "globex", nil)
	alice := f.user(t, acme.ID, "Alice", "alice@acme.test", auth.RoleViewer)
	session := f.session(t, alice.ID)

	if _, err := f.gateway.Require(ctx, "", auth.RequireCapability(auth.CapReadTasks), ""); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.gateway.Require(ctx, session.Token, auth.RequireCapability(auth.CapWriteTasks), ""); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.gateway.Require(ctx, session.Token, auth.RequireCapability(auth.CapReadTasks), globex.ID); !errors.Is(err, auth.ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
	principal, err := f.gateway.Require(ctx, session.Token, auth.RequireCapability(auth.CapReadTasks), acme.ID)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if principal.ID != alice.ID {
		t.Fatalf("principal = %+v", principal)
	}
}
