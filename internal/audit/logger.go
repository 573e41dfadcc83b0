// Package audit records privileged account operations as structured log
// entries, separate from the request log.
package audit

import (
	"net/http"
	"time"

	"github.com/eventify-org/server/internal/auth"
	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one audited operation.
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	ActorID      string            `json:"actor_id"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Status       string            `json:"status"`
	Details      map[string]string `json:"details,omitempty"`
}

type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

// Log writes the entry. A nil Logger discards it.
func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	l.write(l.logger, entry)
}

func (l *Logger) write(logger zerolog.Logger, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	details := zerolog.Dict()
	for k, v := range entry.Details {
		details = details.Str(k, v)
	}

	logger.Info().
		Dict("audit", zerolog.Dict().
			Time("timestamp", entry.Timestamp).
			Str("action", entry.Action).
			Str("actor_id", entry.ActorID).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("status", entry.Status).
			Dict("details", details)).
		Msg(entry.Action)
}

// LogFromRequest fills the actor from the authenticated principal and
// writes through the request logger so the entry carries the request id.
func (l *Logger) LogFromRequest(r *http.Request, action, resourceType, resourceID string, err error, details map[string]string) {
	if l == nil {
		return
	}
	actor := "unknown"
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		actor = p.UserID
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		if details == nil {
			details = map[string]string{}
		}
		details["error"] = err.Error()
	}

	logger := l.logger
	if ctxLogger := zerolog.Ctx(r.Context()); ctxLogger.GetLevel() != zerolog.Disabled {
		logger = ctxLogger.With().Str("component", "audit").Logger()
	}
	l.write(logger, Entry{
		Action:       action,
		ActorID:      actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       status,
		Details:      details,
	})
}
