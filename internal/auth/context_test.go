package auth

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("empty context should carry no principal")
	}
	user := &User{ID: "u1", Role: RoleManager}
	ctx = ContextWithPrincipal(ctx, user)
	got, ok := PrincipalFromContext(ctx)
	if !ok || got.ID != "u1" {
		t.Fatalf("principal = %+v, ok=%v", got, ok)
	}

	if _, ok := TokenFromContext(ctx); ok {
		t.Fatal("no token was attached yet")
	}
	ctx = ContextWithToken(ctx, "tok")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "tok" {
		t.Fatalf("token = %q, ok=%v", token, ok)
	}
	if same := ContextWithToken(ctx, ""); same != ctx {
		t.Fatal("empty token should leave the context untouched")
	}

	meta := ClientMeta{IP: "10.0.0.1", UserAgent: "curl"}
	ctx = ContextWithClientMeta(ctx, meta)
	if got := ClientMetaFromContext(ctx); got != meta {
		t.Fatalf("client meta = %+v", got)
	}
	if got := ClientMetaFromContext(context.Background()); got != (ClientMeta{}) {
		t.Fatalf("expected zero meta, got %+v", got)
	}
}
