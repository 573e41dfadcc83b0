package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/calendar"
	"github.com/eventify-org/server/internal/domain/ids"
	"github.com/eventify-org/server/internal/sanitize"
	"github.com/eventify-org/server/internal/validation"
	"github.com/rs/zerolog"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Service is the event lifecycle manager and the read-only listing facade.
type Service struct {
	repo      Repository
	purger    Purger
	calendar  calendar.Calendar
	validator *validation.Validator
	logger    zerolog.Logger
}

func NewService(repo Repository, purger Purger, cal calendar.Calendar, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		purger:    purger,
		calendar:  cal,
		validator: validation.New(),
		logger:    logger.With().Str("component", "events").Logger(),
	}
}

// CanMutate reports whether actor may change or delete the event: the
// organizer of record or any admin.
func CanMutate(actor auth.Principal, event *Event) bool {
	if event == nil || actor.IsZero() {
		return false
	}
	return actor.IsAdmin() || actor.UserID == event.OrganizerID
}

type CreateParams struct {
	Title        string   `json:"title" validate:"required,max=100"`
	Description  string   `json:"description" validate:"required,max=2000"`
	Category     string   `json:"category" validate:"omitempty,oneof=conference workshop seminar networking concert sports other"`
	Date         string   `json:"date" validate:"required,isodate"`
	Time         string   `json:"time" validate:"required,clock"`
	Location     string   `json:"location" validate:"required,max=200"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
	ImageURL     string   `json:"imageUrl" validate:"omitempty,weburl"`
	Capacity     int      `json:"capacity" validate:"gte=1"`
	Price        float64  `json:"price" validate:"gte=0"`
	Tags         []string `json:"tags" validate:"max=20,dive,max=40"`
	Requirements string   `json:"requirements" validate:"max=1000"`
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, params CreateParams) (*Event, error) {
	if !actor.HasRole(auth.RoleOrganizer, auth.RoleAdmin) {
		return nil, ErrNotAuthorized
	}

	params.Title = sanitize.Text(params.Title)
	params.Description = sanitize.HTML(params.Description)
	params.Location = sanitize.Text(params.Location)
	params.Requirements = sanitize.HTML(params.Requirements)
	params.Tags = sanitize.TextSlice(params.Tags)
	params.Category = strings.ToLower(strings.TrimSpace(params.Category))
	params.ImageURL = strings.TrimSpace(params.ImageURL)
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	date, _ := time.Parse(time.DateOnly, params.Date)
	category := params.Category
	if category == "" {
		category = CategoryOther
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	event, err := s.repo.Create(ctx, Event{
		ID:           id,
		Title:        params.Title,
		Description:  params.Description,
		Category:     category,
		Date:         date,
		Time:         params.Time,
		Location:     params.Location,
		Latitude:     params.Latitude,
		Longitude:    params.Longitude,
		ImageURL:     params.ImageURL,
		Capacity:     params.Capacity,
		OrganizerID:  actor.UserID,
		AttendeeIDs:  []string{},
		Price:        params.Price,
		Tags:         params.Tags,
		Requirements: params.Requirements,
		State:        StateUpcoming,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("organizer_id", event.OrganizerID).
		Int("capacity", event.Capacity).
		Msg("event created")
	return event, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, ids.Normalize(id))
}

type UpdateParams struct {
	Title        *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Description  *string   `json:"description" validate:"omitempty,min=1,max=2000"`
	Category     *string   `json:"category" validate:"omitempty,oneof=conference workshop seminar networking concert sports other"`
	Date         *string   `json:"date" validate:"omitempty,isodate"`
	Time         *string   `json:"time" validate:"omitempty,clock"`
	Location     *string   `json:"location" validate:"omitempty,min=1,max=200"`
	Latitude     *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64  `json:"longitude" validate:"omitempty,longitude"`
	ImageURL     *string   `json:"imageUrl" validate:"omitempty,weburl"`
	Capacity     *int      `json:"capacity" validate:"omitempty,gte=1"`
	Price        *float64  `json:"price" validate:"omitempty,gte=0"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	Requirements *string   `json:"requirements" validate:"omitempty,max=1000"`
	State        *string   `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

func (s *Service) Update(ctx context.Context, id string, actor auth.Principal, params UpdateParams) (*Event, error) {
	id = ids.Normalize(id)
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutate(actor, current) {
		return nil, ErrNotAuthorized
	}

	patch, err := s.buildPatch(params)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrCapacityBelowRegistered) {
			return nil, validation.NewError("capacity", "must not be below the number of registered attendees")
		}
		return nil, err
	}

	s.logger.Info().
		Str("event_id", id).
		Str("actor_id", actor.UserID).
		Msg("event updated")
	return updated, nil
}

func (s *Service) buildPatch(params UpdateParams) (Patch, error) {
	clean := func(value *string, fn func(string) string) *string {
		if value == nil {
			return nil
		}
		out := fn(*value)
		return &out
	}
	params.Title = clean(params.Title, sanitize.Text)
	params.Description = clean(params.Description, sanitize.HTML)
	params.Location = clean(params.Location, sanitize.Text)
	params.Requirements = clean(params.Requirements, sanitize.HTML)
	params.Category = clean(params.Category, func(v string) string { return strings.ToLower(strings.TrimSpace(v)) })
	params.State = clean(params.State, func(v string) string { return strings.ToLower(strings.TrimSpace(v)) })
	params.ImageURL = clean(params.ImageURL, strings.TrimSpace)

	verr := &validation.Error{}
	for field, value := range map[string]*string{"title": params.Title, "description": params.Description, "location": params.Location} {
		if value != nil && *value == "" {
			verr.Add(field, "must not be empty")
		}
	}
	if err := verr.OrNil(); err != nil {
		return Patch{}, err
	}
	if err := s.validator.Struct(params); err != nil {
		return Patch{}, err
	}

	patch := Patch{
		Title:        params.Title,
		Description:  params.Description,
		Category:     params.Category,
		Time:         params.Time,
		Location:     params.Location,
		Latitude:     params.Latitude,
		Longitude:    params.Longitude,
		ImageURL:     params.ImageURL,
		Capacity:     params.Capacity,
		Price:        params.Price,
		Requirements: params.Requirements,
		State:        params.State,
	}
	if params.Date != nil {
		date, _ := time.Parse(time.DateOnly, *params.Date)
		patch.Date = &date
	}
	if params.Tags != nil {
		patch.Tags = sanitize.TextSlice(*params.Tags)
		if patch.Tags == nil {
			patch.Tags = []string{}
		}
		patch.TagsSet = true
	}
	return patch, nil
}

// Delete removes the event after its registrations and back-references, in
// one transaction owned by the registration engine.
func (s *Service) Delete(ctx context.Context, id string, actor auth.Principal) error {
	id = ids.Normalize(id)
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanMutate(actor, current) {
		return ErrNotAuthorized
	}
	if err := s.purger.PurgeEvent(ctx, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("event_id", id).
		Str("actor_id", actor.UserID).
		Int("registered_count", current.RegisteredCount).
		Msg("event deleted")
	return nil
}

// List returns one page of events. Total and page come from the same query.
func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) (ListResult, error) {
	if filters.When == "" {
		filters.When = WhenAll
	}
	filters.Today = s.calendar.Today()
	return s.repo.List(ctx, filters, page)
}

// Search ranks events by full-text relevance over title and description.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validation.NewError("q", "is required")
	}
	if len(query) > 200 {
		return nil, validation.NewError("q", "must be at most 200 characters")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return s.repo.Search(ctx, query, limit)
}
