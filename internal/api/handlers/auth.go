package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/api/problem"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/users"
)

// UserService is the account surface the auth and admin handlers need.
type UserService interface {
	Signup(ctx context.Context, params users.SignupParams) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
	Get(ctx context.Context, id string) (*users.User, error)
	UpdateProfile(ctx context.Context, id string, params users.ProfileParams) (*users.User, error)
	ChangePassword(ctx context.Context, id string, params users.PasswordParams) error
	UpdateRole(ctx context.Context, actor auth.Principal, id string, role string) (*users.User, error)
	List(ctx context.Context, actor auth.Principal, filter users.ListFilter, page pagination.Page) (users.ListResult, error)
	Delete(ctx context.Context, actor auth.Principal, id string) error
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Generate(userID string, role auth.Role) (string, error)
	Expiry() time.Duration
}

type AuthHandler struct {
	users  UserService
	tokens TokenIssuer
	env    string
}

func NewAuthHandler(svc UserService, tokens TokenIssuer, env string) *AuthHandler {
	return &AuthHandler{users: svc, tokens: tokens, env: env}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req users.SignupParams
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	user, err := h.users.Signup(r.Context(), req)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), principal(r).UserID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// UpdateProfile handles PUT /api/v1/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req users.ProfileParams
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), principal(r).UserID, req)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// ChangePassword handles PUT /api/v1/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req users.PasswordParams
	if err := decodeJSON(r, &req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if err := h.users.ChangePassword(r.Context(), principal(r).UserID, req); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *users.User) {
	token, err := h.tokens.Generate(user.ID, user.Role)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresIn: int64(h.tokens.Expiry().Seconds()),
		User:      newUserResponse(user),
	})
}
