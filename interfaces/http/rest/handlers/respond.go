package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	pkgerrors "refdata-backend/pkg/errors"
)

// statusForError maps a typed application error to an HTTP status
func statusForError(err error) int {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case pkgerrors.ErrorTypeValidation, pkgerrors.ErrorTypeMove:
		return http.StatusBadRequest
	case pkgerrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case pkgerrors.ErrorTypeAlreadyExists, pkgerrors.ErrorTypeConcurrent, pkgerrors.ErrorTypeLinked:
		return http.StatusConflict
	case pkgerrors.ErrorTypeNoOp:
		return http.StatusUnprocessableEntity
	case pkgerrors.ErrorTypePrecondition:
		return http.StatusPreconditionFailed
	case pkgerrors.ErrorTypeRemoved:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusForError(err)
	body := map[string]interface{}{
		"error":   true,
		"message": err.Error(),
		"code":    status,
	}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		body["type"] = string(appErr.Type)
		body["message"] = appErr.Message
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	respondJSON(w, logger, status, body)
}

func respondMessage(w http.ResponseWriter, logger *zap.Logger, message string) {
	respondJSON(w, logger, http.StatusOK, map[string]string{"message": message})
}
