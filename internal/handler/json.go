// Package handler contains the JSON HTTP handlers for the AidNexus API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/session"
)

// maxJSONBody bounds request bodies that are not file uploads.
const maxJSONBody = 1 << 20

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	const op = "handler.decode"

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return domain.Errorf(domain.EUNSUPPORTED, op, "Request body must be JSON")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case errors.Is(err, io.EOF):
		return domain.Invalid(op, "Request body is required")
	case errors.As(err, &tooLarge):
		return domain.Errorf(domain.ETOOLARGE, op, "Request body is too large")
	default:
		return domain.Wrap(err, domain.EINVALID, op, "Request body is not valid JSON")
	}
}

// recordID parses the {id} path value.
func recordID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.record_id", "Invalid record ID")
	}
	return id, nil
}

// sessionID returns the request's session. Routes are mounted behind the
// session middleware, so a missing ID is a wiring bug.
func sessionID(r *http.Request, logger *slog.Logger) (string, error) {
	id := session.IDFromRequest(r)
	if id == "" {
		logger.Error("handler called without session", "path", r.URL.Path)
		return "", domain.Internal(nil, "handler.session", "session missing")
	}
	return id, nil
}
