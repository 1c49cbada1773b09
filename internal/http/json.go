package httpx

// Package httpx exposes the server-side HTTP surface of the subsystem: the
// provisioning endpoint, the profile update endpoint, and push-event
// ingestion.

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/agrilink/sessiongate/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteError writes the endpoint's JSON error envelope.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, map[string]any{"ok": false, "error": message})
}

// WriteAppError maps an application error onto the HTTP status taxonomy and
// writes the error envelope.
func WriteAppError(w http.ResponseWriter, err error) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		WriteError(w, http.StatusBadRequest, err.Error())
	case apperrors.ErrCodeNotFound:
		WriteError(w, http.StatusNotFound, err.Error())
	case apperrors.ErrCodeConflict:
		WriteError(w, http.StatusConflict, err.Error())
	case apperrors.ErrCodeTimeout, apperrors.ErrCodeTransient:
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		// Configuration and provisioning failures are internal concerns; the
		// caller only needs to know the request did not succeed.
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
