package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/eventify-org/server/internal/api/problem"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/validation"
)

type RegistrationEngine interface {
	Register(ctx context.Context, userID, eventID string) (*registrations.Registration, error)
	Unregister(ctx context.Context, userID, eventID string) error
	ListMine(ctx context.Context, userID string, opts registrations.ListOptions) ([]registrations.Registration, error)
	ListForEvent(ctx context.Context, eventID string, requester auth.Principal, opts registrations.ListOptions) ([]registrations.Registration, error)
	CheckIn(ctx context.Context, eventID, ticket string, requester auth.Principal) (*registrations.Registration, error)
}

type RegistrationsHandler struct {
	engine RegistrationEngine
	env    string
}

func NewRegistrationsHandler(engine RegistrationEngine, env string) *RegistrationsHandler {
	return &RegistrationsHandler{engine: engine, env: env}
}

type checkInRequest struct {
	TicketNumber string `json:"ticketNumber"`
}

// Register handles POST /api/v1/registrations/{eventId}.
func (h *RegistrationsHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId", registrations.ErrEventNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	reg, err := h.engine.Register(r.Context(), principal(r).UserID, eventID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, newRegistrationResponse(reg))
}

// Unregister handles DELETE /api/v1/registrations/{eventId}.
func (h *RegistrationsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId", registrations.ErrEventNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if err := h.engine.Unregister(r.Context(), principal(r).UserID, eventID); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "registration cancelled"})
}

// ListMine handles GET /api/v1/registrations/my.
func (h *RegistrationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListMine(r.Context(), principal(r).UserID, listOptions(r))
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	data := newRegistrationResponses(list)
	writeJSON(w, http.StatusOK, listResponse[registrationResponse]{Data: data, Count: len(data)})
}

// ListForEvent handles GET /api/v1/registrations/event/{eventId}.
func (h *RegistrationsHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId", registrations.ErrEventNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	list, err := h.engine.ListForEvent(r.Context(), eventID, principal(r), listOptions(r))
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	data := newRegistrationResponses(list)
	writeJSON(w, http.StatusOK, listResponse[registrationResponse]{Data: data, Count: len(data)})
}

// CheckIn handles POST /api/v1/registrations/event/{eventId}/checkin.
func (h *RegistrationsHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId", registrations.ErrEventNotFound)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	ticket := strings.ToUpper(strings.TrimSpace(req.TicketNumber))
	if ticket == "" {
		problem.FromError(w, r, validation.NewError("ticketNumber", "is required"), h.env)
		return
	}
	reg, err := h.engine.CheckIn(r.Context(), eventID, ticket, principal(r))
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newRegistrationResponse(reg))
}

// listOptions reads include=cancelled; active registrations are the default.
func listOptions(r *http.Request) registrations.ListOptions {
	for _, value := range strings.Split(r.URL.Query().Get("include"), ",") {
		if strings.EqualFold(strings.TrimSpace(value), "cancelled") {
			return registrations.ListOptions{IncludeCancelled: true}
		}
	}
	return registrations.ListOptions{}
}
