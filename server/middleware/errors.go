package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	apperrors "github.com/SupernovaIndustries/supernova-management-software-sub006/server/errors"
)

var (
	globalErrorMetrics *apperrors.ErrorMetricsCollector
	errorMetricsOnce   sync.Once
)

// GetErrorMetrics возвращает глобальный сборщик метрик ошибок
func GetErrorMetrics() *apperrors.ErrorMetricsCollector {
	errorMetricsOnce.Do(func() {
		globalErrorMetrics = apperrors.NewErrorMetricsCollector()
	})
	return globalErrorMetrics
}

// HTTPError интерфейс для ошибок с HTTP статусом и сообщением
// Используется для избежания циклических зависимостей
type HTTPError interface {
	error
	StatusCode() int
	UserMessage() string
	GetContext() string
	Unwrap() error
}

// ErrorResponse структура ответа об ошибке
type ErrorResponse struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteGinError записывает JSON ошибку и логирует её
func WriteGinError(c *gin.Context, statusCode int, message string) {
	reqID := GetRequestIDFromGin(c)
	slog.Error("HTTP error",
		"error", message,
		"status_code", statusCode,
		"request_id", reqID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Error: true, Message: message, RequestID: reqID})
}

// HandleGinError обрабатывает ошибку и возвращает JSON ответ
// Поддерживает HTTPError интерфейс для правильной обработки статус кодов и сообщений
func HandleGinError(c *gin.Context, err error) {
	reqID := GetRequestIDFromGin(c)
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}

	var statusCode int
	var message string
	var appErr *apperrors.AppError

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		statusCode = httpErr.StatusCode()
		message = httpErr.UserMessage()

		if errors.As(err, &appErr) {
			GetErrorMetrics().RecordError(appErr, endpoint, reqID)
		}

		slog.Error("HTTP error",
			"error", httpErr.Unwrap(),
			"user_message", message,
			"context", httpErr.GetContext(),
			"status_code", statusCode,
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"

		appErr = apperrors.NewInternalError("unhandled error", err)
		GetErrorMetrics().RecordError(appErr, endpoint, reqID)

		slog.Error("HTTP error",
			"error", err,
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
	}

	c.AbortWithStatusJSON(statusCode, ErrorResponse{Error: true, Message: message, RequestID: reqID})
}
