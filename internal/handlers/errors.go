package handlers

import (
	"errors"
	"net/http"

	"todoTracker/internal/logger"
	"todoTracker/internal/service"

	"go.uber.org/zap"
)

// handleServiceError отвечает клиенту по ошибке сервиса: бизнес-ошибки с их кодом, остальное - 500
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("error_code", businessErr.Code),
			zap.String("path", r.URL.Path),
			zap.Int("http_status", statusCode))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err, zap.String("path", r.URL.Path))
	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeVersionConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
