package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"taskdesk.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withToken extracts the bearer token into the context. Validation is
// deliberately left to the handlers: every protected operation goes through
// Gateway.Authorize so the decision is evaluated and audited per operation.
func (a *API) withToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
			r = r.WithContext(auth.ContextWithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth runs the full authorization path for the current request and
// writes the HTTP error on denial. targetOrgID may be empty for operations
// without a tenant scope.
func (a *API) requireAuth(w http.ResponseWriter, r *http.Request, req auth.Requirement, targetOrgID string) (*auth.User, bool) {
	token, _ := auth.TokenFromContext(r.Context())
	principal, err := a.gateway.Require(r.Context(), token, req, targetOrgID)
	if err != nil {
		handleAuthError(w, r, err)
		return nil, false
	}
	return principal, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
