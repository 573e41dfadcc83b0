package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/eventify-org/server/internal/storage"
	"github.com/eventify-org/server/internal/validation"
	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// TypeBase prefixes every problem type URI.
const TypeBase = "https://eventify.dev/problems/"

const (
	TypeInvalidFields     = TypeBase + "invalid-fields"
	TypeUnauthenticated   = TypeBase + "unauthenticated"
	TypeForbidden         = TypeBase + "forbidden"
	TypeNotFound          = TypeBase + "not-found"
	TypeAlreadyRegistered = TypeBase + "already-registered"
	TypeEventFull         = TypeBase + "event-full"
	TypeEventExpired      = TypeBase + "event-expired"
	TypeEmailTaken        = TypeBase + "email-taken"
	TypeRateLimited       = TypeBase + "rate-limited"
	TypeUnavailable       = TypeBase + "unavailable"
	TypeInternal          = TypeBase + "internal"
)

type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithInstance(instance string) Option {
	return func(p *ProblemDetails) {
		p.Instance = instance
	}
}

func WithErrors(errs map[string]string) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	problem := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	for _, opt := range opts {
		opt(&problem)
	}

	if problem.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			problem.Detail = err.Error()
		} else {
			problem.Detail = http.StatusText(status)
		}
	}

	if problem.Instance == "" && r != nil {
		problem.Instance = r.URL.Path
	}

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= 500 {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	WriteProblem(w, problem)
}

func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	payload, err := json.Marshal(problem)
	if err != nil {
		fallback := fmt.Sprintf("{\"type\":\"about:blank\",\"title\":\"%s\",\"status\":500}", http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}

// Retry-After values in seconds for transient storage failures.
const (
	retryAfterConflict    = 1
	retryAfterUnavailable = 5
)

// FromError translates a domain or storage error into a problem response.
// Client errors carry the error text as detail in every environment; their
// messages are fixed sentinels and leak nothing.
func FromError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		Write(w, r, http.StatusBadRequest, TypeInvalidFields, "Invalid fields", err, env,
			WithDetail("one or more fields are invalid"), WithErrors(verr.Fields))

	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, users.ErrInvalidCredentials):
		Write(w, r, http.StatusUnauthorized, TypeUnauthenticated, "Unauthenticated", err, env, WithDetail(err.Error()))

	case errors.Is(err, registrations.ErrNotAuthorized),
		errors.Is(err, events.ErrNotAuthorized),
		errors.Is(err, users.ErrNotAuthorized),
		errors.Is(err, users.ErrProtectedAdmin):
		Write(w, r, http.StatusForbidden, TypeForbidden, "Forbidden", err, env, WithDetail(err.Error()))

	case errors.Is(err, registrations.ErrNotFound),
		errors.Is(err, events.ErrNotFound),
		errors.Is(err, users.ErrNotFound):
		Write(w, r, http.StatusNotFound, TypeNotFound, "Not found", err, env, WithDetail(err.Error()))

	case errors.Is(err, registrations.ErrAlreadyRegistered):
		Write(w, r, http.StatusConflict, TypeAlreadyRegistered, "Already registered", err, env, WithDetail(err.Error()))

	case errors.Is(err, registrations.ErrEventFull):
		Write(w, r, http.StatusConflict, TypeEventFull, "Event full", err, env, WithDetail(err.Error()))

	case errors.Is(err, registrations.ErrEventExpired):
		Write(w, r, http.StatusBadRequest, TypeEventExpired, "Event expired", err, env, WithDetail(err.Error()))

	case errors.Is(err, users.ErrEmailTaken):
		Write(w, r, http.StatusConflict, TypeEmailTaken, "Email taken", err, env, WithDetail(err.Error()))

	case errors.Is(err, storage.ErrConflict):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterConflict))
		Write(w, r, http.StatusServiceUnavailable, TypeUnavailable, "Concurrent update", err, env,
			WithDetail("the request conflicted with a concurrent update, retry shortly"))

	case errors.Is(err, storage.ErrUnavailable):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterUnavailable))
		Write(w, r, http.StatusServiceUnavailable, TypeUnavailable, "Service unavailable", err, env)

	default:
		Write(w, r, http.StatusInternalServerError, TypeInternal, "Internal error", err, env)
	}
}
