package imports

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/handlers"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/middleware"
)

// MappingsResponse активные сопоставления поставщика
type MappingsResponse struct {
	SupplierID string                `json:"supplier_id"`
	Mappings   []domain.FieldMapping `json:"mappings"`
}

// MappingInput одно сопоставление в запросе на замену
type MappingInput struct {
	Field  string `json:"field" binding:"required"`
	Column string `json:"column"`
}

// ReplaceMappingsRequest тело PUT /mappings/{supplier}
type ReplaceMappingsRequest struct {
	Mappings []MappingInput `json:"mappings" binding:"required"`
}

// DetectMappingResponse результат определения сопоставления
type DetectMappingResponse struct {
	Mapping *importer.Mapping `json:"mapping"`
}

// HandleDetectMapping определяет сопоставление колонок по образцу файла
// @Summary Определить сопоставление колонок
// @Description Читает заголовок образца, сопоставляет колонки с каноническими полями и сохраняет полное сопоставление
// @Tags mappings
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Образец выгрузки"
// @Param supplier_id formData string true "Идентификатор поставщика"
// @Success 200 {object} DetectMappingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Обязательные поля не найдены"
// @Router /mappings/detect [post]
func (h *Handler) HandleDetectMapping(c *gin.Context) {
	supplierID := strings.TrimSpace(c.PostForm("supplier_id"))
	if supplierID == "" {
		handlers.SendJSONError(c, http.StatusBadRequest, "supplier_id is required")
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		handlers.SendJSONError(c, http.StatusBadRequest, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		handlers.SendJSONError(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	defer file.Close()

	mapping, err := h.service.DetectMapping(c.Request.Context(), supplierID, fileHeader.Filename, file)
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "detect mapping"))
		return
	}

	server.LogMappingDetected(c.Request.Context(), supplierID, len(mapping.Columns), string(mapping.Source))
	handlers.SendJSONResponse(c, http.StatusOK, DetectMappingResponse{Mapping: mapping})
}

// HandleGetMappings возвращает активные сопоставления поставщика
// @Summary Сопоставления поставщика
// @Tags mappings
// @Produce json
// @Param supplier path string true "Идентификатор поставщика"
// @Success 200 {object} MappingsResponse
// @Failure 500 {object} ErrorResponse
// @Router /mappings/{supplier} [get]
func (h *Handler) HandleGetMappings(c *gin.Context) {
	supplierID := c.Param("supplier")
	mappings, err := h.service.GetMappings(c.Request.Context(), supplierID)
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "get mappings"))
		return
	}
	handlers.SendJSONResponse(c, http.StatusOK, MappingsResponse{SupplierID: supplierID, Mappings: mappings})
}

// HandlePutMappings заменяет активные сопоставления поставщика
// @Summary Заменить сопоставления поставщика
// @Tags mappings
// @Accept json
// @Produce json
// @Param supplier path string true "Идентификатор поставщика"
// @Param request body ReplaceMappingsRequest true "Новые сопоставления"
// @Success 200 {object} MappingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Поле указано дважды"
// @Router /mappings/{supplier} [put]
func (h *Handler) HandlePutMappings(c *gin.Context) {
	var req ReplaceMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.SendJSONError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	supplierID := c.Param("supplier")
	mappings := make([]domain.FieldMapping, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		mappings = append(mappings, domain.FieldMapping{Field: m.Field, Column: m.Column})
	}

	saved, err := h.service.PutMappings(c.Request.Context(), supplierID, mappings)
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "replace mappings"))
		return
	}

	server.LogMappingsReplaced(c.Request.Context(), supplierID, len(saved))
	handlers.SendJSONResponse(c, http.StatusOK, MappingsResponse{SupplierID: supplierID, Mappings: saved})
}
