package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses for the JSON
// endpoints. HTML pages surface the same errors inline instead.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var unauthorized *domain.ErrUnauthorized
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen
	var backendStatus *domain.ErrBackendStatus
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &backendStatus):
		logger.Warn("backend rejected request",
			zap.Int("status", backendStatus.Status),
			zap.String("message", backendStatus.Message),
		)
		writeError(w, backendStatus.Status, backendStatus.Message)
	case errors.As(err, &external):
		logger.Error("backend unreachable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "freight backend unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// userMessage converts a session-layer error into text safe to render
// inline on a form. Backend rejection messages pass through verbatim;
// infrastructure failures collapse to a generic line.
func userMessage(err error) string {
	var unauthorized *domain.ErrUnauthorized
	var validation *domain.ErrValidation
	var backendStatus *domain.ErrBackendStatus

	switch {
	case errors.As(err, &unauthorized):
		return unauthorized.Message
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &backendStatus):
		return backendStatus.Message
	default:
		return "The service is temporarily unavailable. Please try again."
	}
}
