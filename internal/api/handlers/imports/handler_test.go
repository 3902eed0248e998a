package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
	app "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/application/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Submit(ctx context.Context, req app.SubmitImportRequest) (string, error) {
	if req.File != nil {
		body, _ := io.ReadAll(req.File)
		req.File = nil
		args := m.Called(req, string(body))
		return args.String(0), args.Error(1)
	}
	args := m.Called(req, "")
	return args.String(0), args.Error(1)
}

func (m *mockService) SubmitEnrichment(ctx context.Context, userID string, filter domain.EnrichmentFilter) (string, error) {
	args := m.Called(userID, filter)
	return args.String(0), args.Error(1)
}

func (m *mockService) GetJob(ctx context.Context, id string) (*domain.ImportJob, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*domain.ImportJob)
	return job, args.Error(1)
}

func (m *mockService) GetProgress(ctx context.Context, id string) (*progress.Record, error) {
	args := m.Called(id)
	rec, _ := args.Get(0).(*progress.Record)
	return rec, args.Error(1)
}

func (m *mockService) GetLogs(ctx context.Context, id string) ([]progress.LogEntry, error) {
	args := m.Called(id)
	logs, _ := args.Get(0).([]progress.LogEntry)
	return logs, args.Error(1)
}

func (m *mockService) RecentJobs(ctx context.Context) ([]app.JobOverview, error) {
	args := m.Called()
	jobs, _ := args.Get(0).([]app.JobOverview)
	return jobs, args.Error(1)
}

func (m *mockService) DetectMapping(ctx context.Context, supplierID, fileName string, r io.Reader) (*importer.Mapping, error) {
	args := m.Called(supplierID, fileName)
	mapping, _ := args.Get(0).(*importer.Mapping)
	return mapping, args.Error(1)
}

func (m *mockService) GetMappings(ctx context.Context, supplierID string) ([]domain.FieldMapping, error) {
	args := m.Called(supplierID)
	mappings, _ := args.Get(0).([]domain.FieldMapping)
	return mappings, args.Error(1)
}

func (m *mockService) PutMappings(ctx context.Context, supplierID string, mappings []domain.FieldMapping) ([]domain.FieldMapping, error) {
	args := m.Called(supplierID, mappings)
	saved, _ := args.Get(0).([]domain.FieldMapping)
	return saved, args.Error(1)
}

func setupRouter(svc ImportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc)
	api := r.Group("/api")
	api.POST("/imports", h.HandleSubmitImport)
	api.GET("/imports/:id", h.HandleGetJob)
	api.GET("/imports/:id/progress", h.HandleGetProgress)
	api.GET("/imports/:id/logs", h.HandleGetLogs)
	api.GET("/jobs/recent", h.HandleRecentJobs)
	api.POST("/mappings/detect", h.HandleDetectMapping)
	api.GET("/mappings/:supplier", h.HandleGetMappings)
	api.PUT("/mappings/:supplier", h.HandlePutMappings)
	api.POST("/enrichment/jobs", h.HandleSubmitEnrichment)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(r *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHandleSubmitImport_Accepted(t *testing.T) {
	svc := new(mockService)
	csv := "Mouser No:,Mfr. No:,Order Qty.\n81-GRM188,GRM188R71H104KA93D,100\n"
	svc.On("Submit", mock.MatchedBy(func(req app.SubmitImportRequest) bool {
		return req.SupplierID == "mouser" &&
			req.UserID == "u-1" &&
			req.FileName == "order.csv" &&
			req.MappingOverride["unit_price"] == "Price (USD)" &&
			req.Invoice != nil && req.Invoice.Number == "INV-2024-001" &&
			req.Invoice.Date != nil && req.Invoice.Date.Format("2006-01-02") == "2024-03-15" &&
			req.Invoice.Total != nil && req.Invoice.Total.String() == "123.45"
	}), csv).Return("job-1", nil)

	body, ct := multipartBody(t, map[string]string{
		"supplier_id":    "mouser",
		"user_id":        "u-1",
		"mapping":        `{"unit_price":"Price (USD)"}`,
		"invoice_number": "INV-2024-001",
		"invoice_date":   "2024-03-15",
		"invoice_total":  "123.45",
	}, "order.csv", csv)

	w := doRequest(setupRouter(svc), http.MethodPost, "/api/imports", body, ct)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp JobAcceptedResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "job-1", resp.JobID)
	svc.AssertExpectations(t)
}

func TestHandleSubmitImport_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		fileName string
		wantMsg  string
	}{
		{"missing supplier", map[string]string{}, "order.csv", "supplier_id is required"},
		{"missing file", map[string]string{"supplier_id": "mouser"}, "", "file is required"},
		{"bad mapping json", map[string]string{"supplier_id": "mouser", "mapping": "[1,2]"}, "order.csv", "mapping must be a JSON object of field to column"},
		{"bad invoice date", map[string]string{"supplier_id": "mouser", "invoice_number": "1", "invoice_date": "15/03/2024"}, "order.csv", "invoice_date must be YYYY-MM-DD"},
		{"bad invoice total", map[string]string{"supplier_id": "mouser", "invoice_number": "1", "invoice_total": "abc"}, "order.csv", "invoice_total must be a decimal number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			body, ct := multipartBody(t, tt.fields, tt.fileName, "a,b\n1,2\n")

			w := doRequest(setupRouter(svc), http.MethodPost, "/api/imports", body, ct)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.True(t, resp.Error)
			assert.Equal(t, tt.wantMsg, resp.Message)
			svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleSubmitImport_UnsupportedFormat(t *testing.T) {
	svc := new(mockService)
	svc.On("Submit", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: order.pdf", domain.ErrUnsupportedFormat))

	body, ct := multipartBody(t, map[string]string{"supplier_id": "mouser"}, "order.pdf", "%PDF")
	w := doRequest(setupRouter(svc), http.MethodPost, "/api/imports", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Contains(t, resp.Message, "unsupported source file format")
}

func TestHandleGetJob(t *testing.T) {
	svc := new(mockService)
	svc.On("GetJob", "job-1").Return(&domain.ImportJob{ID: "job-1", Status: domain.JobStatusCompleted}, nil)
	svc.On("GetJob", "missing").Return(nil, fmt.Errorf("failed to get job: %w", domain.ErrJobNotFound))
	router := setupRouter(svc)

	w := doRequest(router, http.MethodGet, "/api/imports/job-1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var job domain.ImportJob
	decodeBody(t, w, &job)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)

	w = doRequest(router, http.MethodGet, "/api/imports/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "import job not found", resp.Message)
}

func TestHandleGetProgress_AbsentIsNull(t *testing.T) {
	svc := new(mockService)
	svc.On("GetProgress", "unknown").Return(nil, nil)

	w := doRequest(setupRouter(svc), http.MethodGet, "/api/imports/unknown/progress", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"progress": null}`, w.Body.String())
}

func TestHandleGetProgress(t *testing.T) {
	svc := new(mockService)
	svc.On("GetProgress", "job-1").Return(&progress.Record{
		JobID: "job-1", Current: 5, Total: 10, Percentage: 50, Status: progress.StatusProcessing,
	}, nil)

	w := doRequest(setupRouter(svc), http.MethodGet, "/api/imports/job-1/progress", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ProgressResponse
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.Progress)
	assert.Equal(t, 50.0, resp.Progress.Percentage)
	assert.Equal(t, progress.StatusProcessing, resp.Progress.Status)
}

func TestHandleGetLogs(t *testing.T) {
	svc := new(mockService)
	svc.On("GetLogs", "job-1").Return([]progress.LogEntry{
		{Message: "Import started: order.csv (supplier mouser)"},
		{Message: "Read 3 rows (csv, ,)"},
	}, nil)
	svc.On("GetLogs", "unknown").Return([]progress.LogEntry{}, nil)
	router := setupRouter(svc)

	w := doRequest(router, http.MethodGet, "/api/imports/job-1/logs", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var resp LogsResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "Import started: order.csv (supplier mouser)", resp.Logs[0].Message)

	w = doRequest(router, http.MethodGet, "/api/imports/unknown/logs", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"logs":[]`)
}

func TestHandleRecentJobs(t *testing.T) {
	svc := new(mockService)
	svc.On("RecentJobs").Return([]app.JobOverview{
		{JobID: "job-2", Progress: &progress.Record{JobID: "job-2", Status: progress.StatusQueued}},
		{JobID: "job-1"},
	}, nil)

	w := doRequest(setupRouter(svc), http.MethodGet, "/api/jobs/recent", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp RecentJobsResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "job-2", resp.Jobs[0].JobID)
	assert.Nil(t, resp.Jobs[1].Progress)
}

func TestHandleDetectMapping(t *testing.T) {
	tests := []struct {
		name       string
		mapping    *importer.Mapping
		err        error
		wantStatus int
	}{
		{
			name: "complete",
			mapping: &importer.Mapping{
				SupplierID: "mouser",
				Source:     importer.MappingDetected,
				Columns: map[string]importer.ColumnRef{
					domain.FieldManufacturerPartNumber: {Name: "Mfr. No:", Index: 1},
				},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "incomplete",
			err:        &domain.MappingIncompleteError{SupplierID: "acme", Missing: []string{domain.FieldManufacturerPartNumber}},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("DetectMapping", "mouser", "sample.csv").Return(tt.mapping, tt.err)

			body, ct := multipartBody(t, map[string]string{"supplier_id": "mouser"}, "sample.csv", "Mfr. No:\nX\n")
			w := doRequest(setupRouter(svc), http.MethodPost, "/api/mappings/detect", body, ct)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnprocessableEntity {
				assert.Contains(t, w.Body.String(), "manufacturer_part_number")
			}
		})
	}
}

func TestHandleGetMappings(t *testing.T) {
	svc := new(mockService)
	svc.On("GetMappings", "mouser").Return([]domain.FieldMapping{
		{SupplierID: "mouser", Field: domain.FieldManufacturerPartNumber, Column: "Mfr. No:", Active: true},
	}, nil)

	w := doRequest(setupRouter(svc), http.MethodGet, "/api/mappings/mouser", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp MappingsResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "mouser", resp.SupplierID)
	require.Len(t, resp.Mappings, 1)
	assert.Equal(t, "Mfr. No:", resp.Mappings[0].Column)
}

func TestHandlePutMappings(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"ok", `{"mappings":[{"field":"manufacturer_part_number","column":"MPN"}]}`, nil, http.StatusOK},
		{"invalid json", `{"mappings":`, nil, http.StatusBadRequest},
		{"unknown field", `{"mappings":[{"field":"colour","column":"C"}]}`, fmt.Errorf("%w: colour", domain.ErrInvalidMappingField), http.StatusBadRequest},
		{"duplicate field", `{"mappings":[{"field":"description","column":"A"},{"field":"description","column":"B"}]}`, fmt.Errorf("%w: description", domain.ErrDuplicateMapping), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			saved := []domain.FieldMapping{{SupplierID: "acme", Field: domain.FieldManufacturerPartNumber, Column: "MPN", Active: true}}
			if tt.err != nil {
				saved = nil
			}
			svc.On("PutMappings", "acme", mock.Anything).Return(saved, tt.err)

			w := doRequest(setupRouter(svc), http.MethodPut, "/api/mappings/acme", strings.NewReader(tt.body), "application/json")

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.name == "invalid json" {
				svc.AssertNotCalled(t, "PutMappings", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandleSubmitEnrichment(t *testing.T) {
	categoryID := int64(3)
	tests := []struct {
		name       string
		body       string
		filter     domain.EnrichmentFilter
		wantStatus int
	}{
		{"empty body", "", domain.EnrichmentFilter{}, http.StatusAccepted},
		{"with filter", `{"user_id":"u-1","category_id":3,"limit":10}`, domain.EnrichmentFilter{CategoryID: &categoryID, Limit: 10}, http.StatusAccepted},
		{"negative limit", `{"limit":-1}`, domain.EnrichmentFilter{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("SubmitEnrichment", mock.Anything, tt.filter).Return("enrich-1", nil)

			w := doRequest(setupRouter(svc), http.MethodPost, "/api/enrichment/jobs", strings.NewReader(tt.body), "application/json")

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusAccepted {
				var resp JobAcceptedResponse
				decodeBody(t, w, &resp)
				assert.Equal(t, "enrich-1", resp.JobID)
			}
		})
	}
}
