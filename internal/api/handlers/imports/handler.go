package imports

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
	app "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/application/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/handlers"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/middleware"
)

// ImportService операции use case, которые нужны HTTP слою
type ImportService interface {
	Submit(ctx context.Context, req app.SubmitImportRequest) (string, error)
	SubmitEnrichment(ctx context.Context, userID string, filter domain.EnrichmentFilter) (string, error)
	GetJob(ctx context.Context, id string) (*domain.ImportJob, error)
	GetProgress(ctx context.Context, id string) (*progress.Record, error)
	GetLogs(ctx context.Context, id string) ([]progress.LogEntry, error)
	RecentJobs(ctx context.Context) ([]app.JobOverview, error)
	DetectMapping(ctx context.Context, supplierID, fileName string, r io.Reader) (*importer.Mapping, error)
	GetMappings(ctx context.Context, supplierID string) ([]domain.FieldMapping, error)
	PutMappings(ctx context.Context, supplierID string, mappings []domain.FieldMapping) ([]domain.FieldMapping, error)
}

// Handler HTTP обработчик импорта выгрузок поставщиков
type Handler struct {
	service ImportService
}

// NewHandler создает обработчик
func NewHandler(service ImportService) *Handler {
	return &Handler{service: service}
}

// ErrorResponse структура ошибки
type ErrorResponse = handlers.ErrorResponse

// JobAcceptedResponse ответ на постановку задачи в очередь
type JobAcceptedResponse struct {
	JobID string `json:"job_id"`
}

// ProgressResponse последний снимок прогресса. progress равен null, если снимка нет.
type ProgressResponse struct {
	Progress *progress.Record `json:"progress"`
}

// LogsResponse журнал задачи
type LogsResponse struct {
	JobID string              `json:"job_id"`
	Logs  []progress.LogEntry `json:"logs"`
}

// RecentJobsResponse недавние задачи
type RecentJobsResponse struct {
	Jobs []app.JobOverview `json:"jobs"`
}

const invoiceDateLayout = "2006-01-02"

// HandleSubmitImport ставит импорт выгрузки в очередь
// @Summary Загрузить выгрузку поставщика
// @Description Сохраняет файл, ставит задачу импорта в очередь и сразу возвращает идентификатор задачи
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV или XLSX выгрузка"
// @Param supplier_id formData string true "Идентификатор поставщика"
// @Param user_id formData string false "Пользователь"
// @Param mapping formData string false "JSON: поле → колонка"
// @Param invoice_number formData string false "Номер счета"
// @Param invoice_date formData string false "Дата счета YYYY-MM-DD"
// @Param invoice_total formData string false "Сумма счета"
// @Param project_id formData string false "Проект"
// @Success 202 {object} JobAcceptedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /imports [post]
func (h *Handler) HandleSubmitImport(c *gin.Context) {
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

	var override map[string]string
	if raw := strings.TrimSpace(c.PostForm("mapping")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &override); err != nil {
			handlers.SendJSONError(c, http.StatusBadRequest, "mapping must be a JSON object of field to column")
			return
		}
	}

	invoice, msg := invoiceFromForm(c)
	if msg != "" {
		handlers.SendJSONError(c, http.StatusBadRequest, msg)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handlers.SendJSONError(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	defer file.Close()

	jobID, err := h.service.Submit(c.Request.Context(), app.SubmitImportRequest{
		UserID:          userID(c),
		SupplierID:      supplierID,
		FileName:        fileHeader.Filename,
		File:            file,
		MappingOverride: override,
		Invoice:         invoice,
	})
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "submit import"))
		return
	}

	server.LogImportSubmitted(c.Request.Context(), jobID, supplierID, fileHeader.Filename)
	handlers.SendJSONResponse(c, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}

// HandleGetJob возвращает задачу
// @Summary Получить задачу импорта
// @Tags imports
// @Produce json
// @Param id path string true "Идентификатор задачи"
// @Success 200 {object} supplierimport.ImportJob
// @Failure 404 {object} ErrorResponse
// @Router /imports/{id} [get]
func (h *Handler) HandleGetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "get job"))
		return
	}
	handlers.SendJSONResponse(c, http.StatusOK, job)
}

// HandleGetProgress возвращает последний снимок прогресса
// @Summary Прогресс задачи
// @Description Для неизвестной задачи возвращает {"progress": null}
// @Tags imports
// @Produce json
// @Param id path string true "Идентификатор задачи"
// @Success 200 {object} ProgressResponse
// @Failure 500 {object} ErrorResponse
// @Router /imports/{id}/progress [get]
func (h *Handler) HandleGetProgress(c *gin.Context) {
	rec, err := h.service.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "get progress"))
		return
	}
	handlers.SendJSONResponse(c, http.StatusOK, ProgressResponse{Progress: rec})
}

// HandleGetLogs возвращает журнал задачи
// @Summary Журнал задачи
// @Description Записи в порядке добавления. Для неизвестной задачи список пустой.
// @Tags imports
// @Produce json
// @Param id path string true "Идентификатор задачи"
// @Success 200 {object} LogsResponse
// @Failure 500 {object} ErrorResponse
// @Router /imports/{id}/logs [get]
func (h *Handler) HandleGetLogs(c *gin.Context) {
	id := c.Param("id")
	logs, err := h.service.GetLogs(c.Request.Context(), id)
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "get logs"))
		return
	}
	handlers.SendJSONResponse(c, http.StatusOK, LogsResponse{JobID: id, Logs: logs})
}

// HandleRecentJobs возвращает недавние задачи со снимками прогресса
// @Summary Недавние задачи
// @Tags jobs
// @Produce json
// @Success 200 {object} RecentJobsResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs/recent [get]
func (h *Handler) HandleRecentJobs(c *gin.Context) {
	jobs, err := h.service.RecentJobs(c.Request.Context())
	if err != nil {
		middleware.HandleGinError(c, toAppError(err, "list recent jobs"))
		return
	}
	handlers.SendJSONResponse(c, http.StatusOK, RecentJobsResponse{Jobs: jobs})
}

// invoiceFromForm собирает ссылку на счет. Пустой номер означает отсутствие счета.
func invoiceFromForm(c *gin.Context) (*domain.InvoiceRef, string) {
	number := strings.TrimSpace(c.PostForm("invoice_number"))
	if number == "" {
		return nil, ""
	}
	inv := &domain.InvoiceRef{
		Number:    number,
		ProjectID: strings.TrimSpace(c.PostForm("project_id")),
	}
	if raw := strings.TrimSpace(c.PostForm("invoice_date")); raw != "" {
		d, err := time.Parse(invoiceDateLayout, raw)
		if err != nil {
			return nil, "invoice_date must be YYYY-MM-DD"
		}
		inv.Date = &d
	}
	if raw := strings.TrimSpace(c.PostForm("invoice_total")); raw != "" {
		total, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, "invoice_total must be a decimal number"
		}
		inv.Total = &total
	}
	return inv, ""
}

// userID берет пользователя из формы или заголовка X-User-ID
func userID(c *gin.Context) string {
	if id := strings.TrimSpace(c.PostForm("user_id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}
