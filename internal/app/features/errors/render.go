// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/clanforge/clanhub/internal/app/system/limits"
)

// ErrBody is returned by DecodeJSON for any unreadable request body.
var ErrBody = errors.New("request body is not valid JSON")

type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write responds with {"error": msg}.
func Write(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{Error: msg})
}

// Unauthorized is the response for a missing identity.
func Unauthorized(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "Please sign in to continue."
	}
	Write(w, http.StatusUnauthorized, msg)
}

// Forbidden responds 403 with msg.
func Forbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "You don't have permission to do that."
	}
	Write(w, http.StatusForbidden, msg)
}

// NotFound responds 404 with msg.
func NotFound(w http.ResponseWriter, msg string) {
	Write(w, http.StatusNotFound, msg)
}

// BadRequest responds 400 with msg. Use for validation failures that need
// no logging.
func BadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, msg)
}

// Conflict responds 409 with msg.
func Conflict(w http.ResponseWriter, msg string) {
	Write(w, http.StatusConflict, msg)
}

// DecodeJSON reads one JSON object from the request body into dst.
// Unknown fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrBody
	}
	return nil
}
