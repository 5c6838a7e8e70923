package auth

import "context"

type principalContextKey struct{}
type tokenContextKey struct{}
type clientMetaContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal *User) context.Context {
	if principal == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*User)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithToken stores the raw session token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the session token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextWithClientMeta attaches request origin details to the context so
// session creation and audit entries can record them.
func ContextWithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	if meta == (ClientMeta{}) {
		return ctx
	}
	return context.WithValue(ctx, clientMetaContextKey{}, meta)
}

// ClientMetaFromContext returns the request origin details, zero when absent.
func ClientMetaFromContext(ctx context.Context) ClientMeta {
	if ctx == nil {
		return ClientMeta{}
	}
	v, _ := ctx.Value(clientMetaContextKey{}).(ClientMeta)
	return v
}
