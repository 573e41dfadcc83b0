package handlers

import (
	"time"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/domain/users"
)

type userResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Bio              string    `json:"bio,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	ProfilePicture   string    `json:"profilePicture,omitempty"`
	EventsCreated    []string  `json:"eventsCreated"`
	EventsRegistered []string  `json:"eventsRegistered"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newUserResponse(u *users.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             string(u.Role),
		Bio:              u.Bio,
		Phone:            u.Phone,
		ProfilePicture:   u.ProfilePicture,
		EventsCreated:    nonNil(u.EventsCreated),
		EventsRegistered: nonNil(u.EventsRegistered),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      userResponse `json:"user"`
}

type organizerResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type eventResponse struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	Date            string             `json:"date"`
	Time            string             `json:"time"`
	Location        string             `json:"location"`
	Latitude        *float64           `json:"latitude,omitempty"`
	Longitude       *float64           `json:"longitude,omitempty"`
	ImageURL        string             `json:"imageUrl,omitempty"`
	Capacity        int                `json:"capacity"`
	RegisteredCount int                `json:"registeredCount"`
	AvailableSeats  int                `json:"availableSeats"`
	OrganizerID     string             `json:"organizerId"`
	Organizer       *organizerResponse `json:"organizer,omitempty"`
	Attendees       []string           `json:"attendees"`
	Price           float64            `json:"price"`
	Tags            []string           `json:"tags"`
	Requirements    string             `json:"requirements,omitempty"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func newEventResponse(e *events.Event) eventResponse {
	resp := eventResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Date:            e.Date.Format(time.DateOnly),
		Time:            e.Time,
		Location:        e.Location,
		Latitude:        e.Latitude,
		Longitude:       e.Longitude,
		ImageURL:        e.ImageURL,
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
		AvailableSeats:  e.AvailableSeats(),
		OrganizerID:     e.OrganizerID,
		Attendees:       nonNil(e.AttendeeIDs),
		Price:           e.Price,
		Tags:            nonNil(e.Tags),
		Requirements:    e.Requirements,
		Status:          e.State,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.Organizer != nil {
		resp.Organizer = &organizerResponse{
			ID:             e.Organizer.ID,
			Name:           e.Organizer.Name,
			Email:          e.Organizer.Email,
			ProfilePicture: e.Organizer.ProfilePicture,
		}
	}
	return resp
}

func newEventResponses(list []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(list))
	for i := range list {
		out = append(out, newEventResponse(&list[i]))
	}
	return out
}

type registrationEvent struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Location        string `json:"location"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Capacity        int    `json:"capacity"`
	RegisteredCount int    `json:"registeredCount"`
}

type registrationUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type registrationResponse struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId"`
	EventID      string             `json:"eventId"`
	Status       string             `json:"status"`
	TicketNumber string             `json:"ticketNumber"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	CancelledAt  *time.Time         `json:"cancelledAt,omitempty"`
	Event        *registrationEvent `json:"event,omitempty"`
	User         *registrationUser  `json:"user,omitempty"`
}

func newRegistrationResponse(reg *registrations.Registration) registrationResponse {
	resp := registrationResponse{
		ID:           reg.ID,
		UserID:       reg.UserID,
		EventID:      reg.EventID,
		Status:       string(reg.Status),
		TicketNumber: reg.TicketNumber,
		CreatedAt:    reg.CreatedAt,
		UpdatedAt:    reg.UpdatedAt,
		CancelledAt:  reg.CancelledAt,
	}
	if ev := reg.Event; ev != nil {
		resp.Event = &registrationEvent{
			ID:              ev.ID,
			Title:           ev.Title,
			Description:     ev.Description,
			Date:            ev.Date.Format(time.DateOnly),
			Time:            ev.Time,
			Location:        ev.Location,
			ImageURL:        ev.ImageURL,
			Capacity:        ev.Capacity,
			RegisteredCount: ev.RegisteredCount,
		}
	}
	if u := reg.User; u != nil {
		resp.User = &registrationUser{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Phone:          u.Phone,
			ProfilePicture: u.ProfilePicture,
		}
	}
	return resp
}

func newRegistrationResponses(list []registrations.Registration) []registrationResponse {
	out := make([]registrationResponse, 0, len(list))
	for i := range list {
		out = append(out, newRegistrationResponse(&list[i]))
	}
	return out
}

type pageResponse[T any] struct {
	Data       []T             `json:"data"`
	Pagination pagination.Meta `json:"pagination"`
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
