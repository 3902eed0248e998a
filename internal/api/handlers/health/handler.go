package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/SupernovaIndustries/supernova-management-software-sub006/server/errors"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/handlers"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/middleware"
)

// Pinger проверка доступности зависимости
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler liveness проверка
type Handler struct {
	db      Pinger
	version string
	started time.Time
}

// NewHandler создает обработчик. db может быть nil.
func NewHandler(db Pinger, version string) *Handler {
	return &Handler{db: db, version: version, started: time.Now()}
}

// Response ответ /health
type Response struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version,omitempty"`
	Database      string                 `json:"database"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Errors        apperrors.ErrorMetrics `json:"errors"`
}

// HandleHealth возвращает состояние сервиса
// @Summary Проверка состояния
// @Tags system
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (h *Handler) HandleHealth(c *gin.Context) {
	resp := Response{
		Status:        "ok",
		Version:       h.version,
		Database:      "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Errors:        middleware.GetErrorMetrics().GetMetrics(),
	}

	code := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	handlers.SendJSONResponse(c, code, resp)
}
