package handlers

import (
	"net/http"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/api/problem"
	"github.com/eventify-org/server/internal/audit"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/eventify-org/server/internal/validation"
)

// AdminUsersHandler serves account management. Role changes and deletions
// are written to the audit log, failures included.
type AdminUsersHandler struct {
	users UserService
	audit *audit.Logger
	env   string
}

func NewAdminUsersHandler(svc UserService, auditLog *audit.Logger, env string) *AdminUsersHandler {
	return &AdminUsersHandler{users: svc, audit: auditLog, env: env}
}

type roleRequest struct {
	Role string `json:"role"`
}

// List handles GET /api/v1/admin/users?role=&search=&page=&limit=.
func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := pagination.Parse(query)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	filter := users.ListFilter{Search: query.Get("search")}
	if raw := query.Get("role"); raw != "" {
		role, ok := auth.ParseRole(raw)
		if !ok {
			problem.FromError(w, r, validation.NewError("role", "must be one of: attendee, organizer, admin"), h.env)
			return
		}
		filter.Role = role
	}

	result, err := h.users.List(r.Context(), principal(r), filter, page)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	data := make([]userResponse, 0, len(result.Users))
	for i := range result.Users {
		data = append(data, newUserResponse(&result.Users[i]))
	}
	writeJSON(w, http.StatusOK, pageResponse[userResponse]{
		Data:       data,
		Pagination: pagination.NewMeta(page, result.Total),
	})
}

// UpdateRole handles PUT /api/v1/admin/users/{id}/role.
func (h *AdminUsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", users.ErrNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	user, err := h.users.UpdateRole(r.Context(), principal(r), id, req.Role)
	h.audit.LogFromRequest(r, "admin.user.role", "user", id, err, map[string]string{"role": req.Role})
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Delete handles DELETE /api/v1/admin/users/{id}.
func (h *AdminUsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", users.ErrNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	err = h.users.Delete(r.Context(), principal(r), id)
	h.audit.LogFromRequest(r, "admin.user.delete", "user", id, err, nil)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
