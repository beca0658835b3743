package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
)

// maxBodyBytes bounds request bodies; receipt references are opaque strings,
// never inline image payloads.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// writeError maps domain errors onto HTTP statuses. Validation failures are
// the caller's fault, missing records are 404, exhausted commit retries are
// 409, everything else is a 500 with the detail kept out of the body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
		msg = err.Error()
	case isValidationError(err):
		status = http.StatusBadRequest
		msg = err.Error()
	default:
		slog.Error("Request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidType,
		core.ErrInvalidDate,
		core.ErrEmptyCategory,
		core.ErrEmptyName,
		core.ErrInvalidFrequency,
		core.ErrInvalidDayOfMonth,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// decodeJSON parses the request body into v, rejecting unknown fields so
// client typos fail loudly instead of silently dropping data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
