package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/ids"
	"github.com/eventify-org/server/internal/sanitize"
	"github.com/eventify-org/server/internal/validation"
	"github.com/rs/zerolog"
)

type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Service handles accounts: signup, login, profile and admin management.
type Service struct {
	repo      Repository
	purger    Purger
	hasher    Hasher
	validator *validation.Validator
	logger    zerolog.Logger
}

func NewService(repo Repository, purger Purger, hasher Hasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		purger:    purger,
		hasher:    hasher,
		validator: validation.New(),
		logger:    logger.With().Str("component", "users").Logger(),
	}
}

type SignupParams struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=attendee organizer"`
}

// Signup creates an account. Self-service accounts may be attendees or
// organizers; admins are created through the CLI or promoted by another admin.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*User, error) {
	params.Name = sanitize.Text(params.Name)
	params.Email = normalizeEmail(params.Email)
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	role := auth.RoleAttendee
	if params.Role != "" {
		role = auth.NormalizeRole(params.Role)
	}
	return s.create(ctx, params.Name, params.Email, params.Password, role)
}

// CreateAdmin bootstraps an administrator account.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*User, error) {
	params := SignupParams{Name: sanitize.Text(name), Email: normalizeEmail(email), Password: password}
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	return s.create(ctx, params.Name, params.Email, params.Password, auth.RoleAdmin)
}

func (s *Service) create(ctx context.Context, name, email, password string, role auth.Role) (*User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("user account created")
	return user, nil
}

// Authenticate verifies credentials. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Debug().Str("user_id", user.ID).Msg("password mismatch")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

type ProfileParams struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=50"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Bio            *string `json:"bio" validate:"omitempty,max=500"`
	Phone          *string `json:"phone" validate:"omitempty,max=20"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,weburl"`
}

func (s *Service) UpdateProfile(ctx context.Context, id string, params ProfileParams) (*User, error) {
	if params.Name != nil {
		params.Name = ptr(sanitize.Text(*params.Name))
		if *params.Name == "" {
			return nil, validation.NewError("name", "is required")
		}
	}
	if params.Email != nil {
		params.Email = ptr(normalizeEmail(*params.Email))
	}
	if params.Bio != nil {
		params.Bio = ptr(sanitize.HTML(*params.Bio))
	}
	if params.Phone != nil {
		params.Phone = ptr(strings.TrimSpace(*params.Phone))
	}
	if params.ProfilePicture != nil {
		params.ProfilePicture = ptr(strings.TrimSpace(*params.ProfilePicture))
	}
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	user, err := s.repo.UpdateProfile(ctx, id, ProfileUpdate(params))
	if err != nil {
		return nil, err
	}
	return user, nil
}

type PasswordParams struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

func (s *Service) ChangePassword(ctx context.Context, id string, params PasswordParams) error {
	if err := s.validator.Struct(params); err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, params.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}
	hash, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("password changed")
	return nil
}

func (s *Service) UpdateRole(ctx context.Context, actor auth.Principal, id string, role string) (*User, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	parsed, ok := auth.ParseRole(role)
	if !ok {
		return nil, validation.NewError("role", "must be one of: attendee, organizer, admin")
	}
	user, err := s.repo.UpdateRole(ctx, id, parsed)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", id).
		Str("role", string(parsed)).
		Str("actor_id", actor.UserID).
		Msg("user role updated")
	return user, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, filter ListFilter, page pagination.Page) (ListResult, error) {
	if !actor.IsAdmin() {
		return ListResult{}, ErrNotAuthorized
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter, page)
}

// Delete removes a user account and cascades through events they organize
// and registrations they hold. Admins may delete themselves but not other
// admins.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == auth.RoleAdmin && target.ID != actor.UserID {
		return ErrProtectedAdmin
	}
	if err := s.purger.PurgeUser(ctx, target.ID); err != nil {
		return err
	}
	s.logger.Info().
		Str("user_id", target.ID).
		Str("actor_id", actor.UserID).
		Int("events_created", len(target.EventsCreated)).
		Msg("user deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ptr[T any](v T) *T {
	return &v
}
