package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/ids"
	"github.com/eventify-org/server/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON object from the body. Malformed input is
// reported as a field error on "body".
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return validation.NewError("body", "request body too large")
		case errors.Is(err, io.EOF):
			return validation.NewError("body", "request body is required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return validation.NewError(typeErr.Field, "has the wrong type")
		default:
			return validation.NewError("body", "malformed JSON")
		}
	}
	if dec.More() {
		return validation.NewError("body", "must contain a single JSON object")
	}
	return nil
}

// pathID reads an identifier path segment. Values that cannot be ULIDs are
// reported as not found without touching storage.
func pathID(r *http.Request, name string, notFound error) (string, error) {
	value := strings.TrimSpace(r.PathValue(name))
	if !ids.IsULID(value) {
		return "", notFound
	}
	return ids.Normalize(value), nil
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

type messageResponse struct {
	Message string `json:"message"`
}
