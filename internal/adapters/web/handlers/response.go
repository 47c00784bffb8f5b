package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Default().Warn("failed to encode response", "error", err)
	}
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func respondList(w http.ResponseWriter, message string, data any, count int) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data, Count: &count})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes err with its mapped status. Server errors are logged.
func respondErr(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
		respondError(w, status, msg+": "+err.Error())
		return
	}
	respondError(w, status, err.Error())
}

// queryInt parses an optional integer query parameter and enforces
// [min, max]. A max of 0 means unbounded.
func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, raw, domain.ErrOutOfRange)
	}
	if v < min || (max > 0 && v > max) {
		return 0, domain.NewValidationError(name, raw, domain.ErrOutOfRange)
	}
	return v, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "", fmt.Errorf("%w: %v", domain.ErrInvalidBody, err))
	}
	return nil
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}
