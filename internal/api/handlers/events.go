package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/api/problem"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/eventify-org/server/internal/validation"
)

type EventService interface {
	List(ctx context.Context, filters events.Filters, page pagination.Page) (events.ListResult, error)
	Search(ctx context.Context, query string, limit int) ([]events.Event, error)
	Get(ctx context.Context, id string) (*events.Event, error)
	Create(ctx context.Context, actor auth.Principal, params events.CreateParams) (*events.Event, error)
	Update(ctx context.Context, id string, actor auth.Principal, params events.UpdateParams) (*events.Event, error)
	Delete(ctx context.Context, id string, actor auth.Principal) error
}

type EventsHandler struct {
	events EventService
	env    string
}

func NewEventsHandler(svc EventService, env string) *EventsHandler {
	return &EventsHandler{events: svc, env: env}
}

// List handles GET /api/v1/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, err := events.ParseFilters(query)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	page, err := pagination.Parse(query)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	result, err := h.events.List(r.Context(), filters, page)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse[eventResponse]{
		Data:       newEventResponses(result.Events),
		Pagination: pagination.NewMeta(page, result.Total),
	})
}

// Search handles GET /api/v1/events/search?q=&limit=.
func (h *EventsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			problem.FromError(w, r, validation.NewError("limit", "must be a positive integer"), h.env)
			return
		}
		limit = parsed
	}
	found, err := h.events.Search(r.Context(), query.Get("q"), limit)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	data := newEventResponses(found)
	writeJSON(w, http.StatusOK, listResponse[eventResponse]{Data: data, Count: len(data)})
}

// Get handles GET /api/v1/events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", events.ErrNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(event))
}

// Create handles POST /api/v1/events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req events.CreateParams
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	event, err := h.events.Create(r.Context(), principal(r), req)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	w.Header().Set("Location", "/api/v1/events/"+event.ID)
	writeJSON(w, http.StatusCreated, newEventResponse(event))
}

// Update handles PUT /api/v1/events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", events.ErrNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	var req events.UpdateParams
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	event, err := h.events.Update(r.Context(), id, principal(r), req)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(event))
}

// Delete handles DELETE /api/v1/events/{id}.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", events.ErrNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if err := h.events.Delete(r.Context(), id, principal(r)); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
