package users

import (
	"context"
	"errors"
	"time"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/auth"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrProtectedAdmin     = errors.New("admin accounts cannot be deleted by another admin")
)

type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             auth.Role
	Bio              string
	Phone            string
	ProfilePicture   string
	EventsCreated    []string
	EventsRegistered []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

type CreateParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
}

// ProfileUpdate holds the optional profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name           *string
	Email          *string
	Bio            *string
	Phone          *string
	ProfilePicture *string
}

type ListFilter struct {
	Role   auth.Role
	Search string
}

type ListResult struct {
	Users []User
	Total int
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role auth.Role) (*User, error)
	List(ctx context.Context, filter ListFilter, page pagination.Page) (ListResult, error)
}

// Purger removes a user together with everything that references it.
type Purger interface {
	PurgeUser(ctx context.Context, userID string) error
}
