package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/obs"
)

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *auth.User `json:"user"`
}

type registerRequest struct {
	OrganizationSlug string `json:"organization_slug"`
	Name             string `json:"name"`
	Email            string `json:"email"`
}

// handleSessions serves POST (login) and DELETE (logout everywhere) on
// /v1/auth/sessions.
func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleLogin(w, r)
	case http.MethodDelete:
		a.handleLogoutAll(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
	}
}

// handleLogin mints a session for an already-authenticated principal.
// Credential verification happens upstream of this core; an unknown or
// inactive principal is refused without detail.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.directory.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) || errors.Is(err, auth.ErrInvalidInput) {
			writeError(w, r, http.StatusUnauthorized, "login refused")
			return
		}
		handleAuthError(w, r, err)
		return
	}
	if !user.Active {
		writeError(w, r, http.StatusUnauthorized, "login refused")
		return
	}

	session, err := a.sessions.Create(r.Context(), user.ID, auth.ClientMetaFromContext(r.Context()))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	a.recordAudit(r, user, "auth.login", "session", session.ID, nil)
	writeJSON(w, http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

// handleCurrentSession serves GET (introspect) and DELETE (logout) on
// /v1/auth/sessions/current.
func (a *API) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		principal, ok := a.requireAuth(w, r, auth.RequireMinimumRole(auth.RoleViewer), "")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         principal,
			"capabilities": auth.Capabilities(principal.Role),
		})
	case http.MethodDelete:
		token, ok := auth.TokenFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		sessionID, err := a.sessions.Revoke(r.Context(), token)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if sessionID != "" {
			a.recordAudit(r, nil, "auth.logout", "session", sessionID, nil)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleLogoutAll revokes every active session of the calling principal.
func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requireAuth(w, r, auth.RequireMinimumRole(auth.RoleViewer), "")
	if !ok {
		return
	}
	count, err := a.sessions.RevokeAll(r.Context(), principal.ID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.recordAudit(r, principal, "auth.logout_all", "session", "", map[string]string{
		"revoked": strconv.Itoa(count),
	})
	writeJSON(w, http.StatusOK, map[string]any{"revoked": count})
}

// handleRegister creates a principal through tenant self-registration.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.directory.Register(r.Context(), req.OrganizationSlug, req.Name, req.Email)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.recordAudit(r, user, "auth.register", "user", user.ID, nil)
	writeJSON(w, http.StatusCreated, user)
}

// handlePruneSessions deactivates expired sessions. Maintenance is gated on
// the system configuration capability.
func (a *API) handlePruneSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapSystemConfig), "")
	if !ok {
		return
	}
	count, err := a.sessions.PruneExpired(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.recordAudit(r, principal, "auth.sessions.prune", "session", "", map[string]string{
		"pruned": strconv.Itoa(count),
	})
	writeJSON(w, http.StatusOK, map[string]any{"pruned": count})
}

// recordAudit appends an audit entry for a handler-level action. Failures
// are logged, not surfaced: the primary operation already succeeded.
func (a *API) recordAudit(r *http.Request, actor *auth.User, action, resource, resourceID string, metadata map[string]string) {
	entry := auth.AuditEntry{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Metadata:   metadata,
		Client:     auth.ClientMetaFromContext(r.Context()),
	}
	if actor != nil {
		entry.ActorID = actor.ID
		entry.OrganizationID = actor.OrganizationID
	}
	if _, err := a.audit.Record(r.Context(), entry); err != nil {
		obs.LogEvent("audit_record_failed", map[string]any{
			"action": action,
			"error":  err.Error(),
		})
	}
}
