package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/negotiation"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response failed", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// serviceError maps negotiation service errors to HTTP responses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, negotiation.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, negotiation.ErrForbidden):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, negotiation.ErrInvalidState):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, negotiation.ErrBadInput):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
