package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/eventify-org/server/internal/api/problem"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/users"
)

// TokenValidator parses bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserLookup loads the account behind a token so that deleted users are
// rejected and role changes apply without waiting for the token to expire.
type UserLookup interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// Authenticator guards routes with bearer-token authentication.
type Authenticator struct {
	tokens TokenValidator
	users  UserLookup
	env    string
}

func NewAuthenticator(tokens TokenValidator, lookup UserLookup, env string) *Authenticator {
	return &Authenticator{tokens: tokens, users: lookup, env: env}
}

// RequireUser rejects requests without a valid token and stores the
// caller's principal in the request context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.principal(r)
		if err != nil {
			problem.FromError(w, r, err, a.env)
			return
		}
		logger := LoggerFromContext(r.Context()).With().Str("user_id", principal.UserID).Logger()
		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = logger.WithContext(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole wraps RequireUser and additionally demands one of roles.
func (a *Authenticator) RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := auth.PrincipalFrom(r.Context())
			if !principal.HasRole(roles...) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden",
					errors.New("insufficient role"), a.env,
					problem.WithDetail("your role does not permit this action"))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func (a *Authenticator) principal(r *http.Request) (auth.Principal, error) {
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return auth.Principal{}, err
	}
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	principal := claims.Principal()
	if a.users == nil {
		return principal, nil
	}
	user, err := a.users.Get(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return auth.Principal{}, auth.ErrInvalidToken
		}
		return auth.Principal{}, err
	}
	return user.Principal(), nil
}
