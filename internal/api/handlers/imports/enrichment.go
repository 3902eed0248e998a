package imports

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/handlers"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/middleware"
)

// EnrichmentRequest тело POST /enrichment/jobs. Пустое тело означает все компоненты.
type EnrichmentRequest struct {
	UserID       string  `json:"user_id"`
	CategoryID   *int64  `json:"category_id,omitempty"`
	ComponentIDs []int64 `json:"component_ids,omitempty"`
	Limit        int     `json:"limit,omitempty"`
}

// HandleSubmitEnrichment ставит обогащение техническими атрибутами в очередь
// @Summary Запустить обогащение по даташитам
// @Tags enrichment
// @Accept json
// @Produce json
// @Param request body EnrichmentRequest false "Отбор компонентов"
// @Success 202 {object} JobAcceptedResponse
// @Failure 400 {object} ErrorResponse
// @Router /enrichment/jobs [post]
func (h *Handler) HandleSubmitEnrichment(c *gin.Context) {
	var req EnrichmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		handlers.SendJSONError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Limit < 0 {
		handlers.SendJSONError(c, http.StatusBadRequest, "limit must not be negative")
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetHeader("X-User-ID")
	}

	jobID, err := h.service.SubmitEnrichment(c.Request.Context(), req.UserID, domain.EnrichmentFilter{
		CategoryID:   req.CategoryID,
		ComponentIDs: req.ComponentIDs,
		Limit:        req.Limit,
	})
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "submit enrichment"))
		return
	}

	server.LogEnrichmentSubmitted(c.Request.Context(), jobID, req.UserID)
	handlers.SendJSONResponse(c, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}
