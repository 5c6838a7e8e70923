package httpapi

import (
	"net/http"
	"strings"

	"taskdesk.org/internal/auth"
)

type createOrganizationRequest struct {
	Name        string                     `json:"name"`
	Slug        string                     `json:"slug"`
	Description string                     `json:"description"`
	Settings    *auth.OrganizationSettings `json:"settings"`
}

type updateOrganizationRequest struct {
	Name        *string                    `json:"name"`
	Description *string                    `json:"description"`
	Settings    *auth.OrganizationSettings `json:"settings"`
	Active      *bool                      `json:"active"`
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

// handleOrganizations serves the /v1/organizations collection.
func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapWriteOrganizations), "")
		if !ok {
			return
		}
		var req createOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.directory.CreateOrganization(r.Context(), req.Name, req.Slug, req.Description, req.Settings)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.recordAudit(r, principal, "organization.create", "organization", org.ID, map[string]string{"slug": org.Slug})
		writeJSON(w, http.StatusCreated, org)
	case http.MethodGet:
		if _, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapReadOrganizations), ""); !ok {
			return
		}
		activeOnly := r.URL.Query().Get("active") == "true"
		orgs, err := a.directory.ListOrganizations(r.Context(), activeOnly)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

// handleOrganizationScoped serves /v1/organizations/{id} and
// /v1/organizations/{id}/users.
func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		a.handleOrganizationResource(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "users":
		a.handleOrganizationUsers(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// handleOrganizationResource serves the organization record itself. Managing
// tenants is a platform operation: the boundary check guards data inside an
// organization (principals, audit entries), not the tenant roster, and an
// empty organization has no members left who could delete it.
func (a *API) handleOrganizationResource(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapReadOrganizations), ""); !ok {
			return
		}
		org, err := a.directory.GetOrganization(r.Context(), orgID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodPatch:
		principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapWriteOrganizations), "")
		if !ok {
			return
		}
		var req updateOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.directory.UpdateOrganization(r.Context(), orgID, auth.OrganizationUpdate{
			Name:        req.Name,
			Description: req.Description,
			Settings:    req.Settings,
			Active:      req.Active,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.recordAudit(r, principal, "organization.update", "organization", org.ID, nil)
		writeJSON(w, http.StatusOK, org)
	case http.MethodDelete:
		principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapDeleteOrganizations), "")
		if !ok {
			return
		}
		if err := a.directory.DeleteOrganization(r.Context(), orgID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.recordAudit(r, principal, "organization.delete", "organization", orgID, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleOrganizationUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodPost:
		principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapWriteUsers), orgID)
		if !ok {
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := auth.ParseRole(req.Role)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		user, err := a.directory.CreateUser(r.Context(), orgID, req.Name, req.Email, role)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.recordAudit(r, principal, "user.create", "user", user.ID, map[string]string{"role": string(user.Role)})
		writeJSON(w, http.StatusCreated, user)
	case http.MethodGet:
		if _, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapReadUsers), orgID); !ok {
			return
		}
		filter := auth.UserListFilter{Role: auth.Role(r.URL.Query().Get("role"))}
		if raw := r.URL.Query().Get("active"); raw != "" {
			active := raw == "true"
			filter.Active = &active
		}
		users, err := a.directory.ListUsers(r.Context(), orgID, filter)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

// handleUserResource serves /v1/users/{id}. The target user is loaded first
// so the tenant boundary is enforced against their organization.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		http.NotFound(w, r)
		return
	}

	target, err := a.directory.GetUser(r.Context(), userID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapReadUsers), target.OrganizationID); !ok {
			return
		}
		writeJSON(w, http.StatusOK, target)
	case http.MethodPatch:
		principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapWriteUsers), target.OrganizationID)
		if !ok {
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd := auth.UserUpdate{Name: req.Name, Active: req.Active}
		if req.Role != nil {
			role, err := auth.ParseRole(*req.Role)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			upd.Role = &role
		}
		user, err := a.directory.UpdateUser(r.Context(), userID, upd)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.recordAudit(r, principal, "user.update", "user", user.ID, nil)
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		principal, ok := a.requireAuth(w, r, auth.RequireCapability(auth.CapDeleteUsers), target.OrganizationID)
		if !ok {
			return
		}
		user, err := a.directory.DeactivateUser(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.recordAudit(r, principal, "user.deactivate", "user", user.ID, nil)
		writeJSON(w, http.StatusOK, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
