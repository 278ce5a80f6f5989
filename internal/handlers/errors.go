package handlers

import (
	"errors"
	"net/http"

	"questTracker/internal/logger"
	"questTracker/internal/service"

	"go.uber.org/zap"
)

// handleBusinessError answers with the mapped status when err carries a
// BusinessError and reports whether it did.
func handleBusinessError(w http.ResponseWriter, r *http.Request, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}
	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Business error",
		zap.String("error_code", businessErr.Code),
		zap.String("message", businessErr.Message),
		zap.Int("http_status", statusCode),
		zap.String("client_ip", r.RemoteAddr))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeNoSelection:
		return http.StatusConflict
	case service.CodeMissingFile:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// handleError answers business errors with their mapped status and anything
// else with 500.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, r, err) {
		return
	}
	logger.Error("HTTP: Service error", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, err.Error())
}
