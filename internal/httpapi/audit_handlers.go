package httpapi

import (
	"net/http"

	"taskdesk.org/internal/auth"
)

const (
	defaultAuditPageSize = 100
	maxAuditPageSize     = 1000
)

// handleAuditQuery serves GET /v1/audit. When no organization is named the
// query is scoped to the caller's own tenant.
func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q := r.URL.Query()
	filter := auth.AuditFilter{
		OrganizationID: q.Get("organization_id"),
		ActorID:        q.Get("actor_id"),
		Action:         q.Get("action"),
	}

	principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapReadAuditLogs), filter.OrganizationID)
	if !ok {
		return
	}
	// Without an explicit organization the query is pinned to the caller's
	// own tenant, so an actor filter cannot reach across the boundary.
	if filter.OrganizationID == "" {
		filter.OrganizationID = principal.OrganizationID
	}

	limit, err := parseLimit(q.Get("limit"), defaultAuditPageSize, maxAuditPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := a.audit.Query(r.Context(), filter, limit)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
