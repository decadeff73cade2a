package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged with full technical detail server-side, correlated by
// request ID, and returned to clients as a small JSON envelope with an
// appropriate status code derived from the domain error.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/viaurbana/frota/internal/catalog"
	"github.com/viaurbana/frota/internal/fleet"
	"github.com/viaurbana/frota/internal/report"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError logs the technical error and writes the mapped status and a
// sanitized message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// mapError translates domain errors into HTTP status codes and messages
// safe to show a client.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, fleet.ErrInvalidForm):
		// Validation messages are written for the submitter.
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrNoValidSheet):
		return http.StatusUnprocessableEntity, "the spreadsheet has no readable sheet"
	case errors.Is(err, catalog.ErrNoValidVehicles):
		return http.StatusUnprocessableEntity, "the spreadsheet contains no valid vehicle rows"
	case errors.Is(err, catalog.ErrVehicleNotFound):
		return http.StatusNotFound, "vehicle not found"
	case errors.Is(err, report.ErrUnavailable):
		return http.StatusServiceUnavailable, "report generation is not configured"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
