package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/api/handlers/health"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/api/handlers/imports"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/handlers"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/middleware"
)

// Options параметры построения роутера
type Options struct {
	CORSOrigin  string
	SwaggerHost string
	Logger      *slog.Logger
}

// NewRouter создает Gin роутер со всеми маршрутами приложения
func NewRouter(importHandler *imports.Handler, healthHandler *health.Handler, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.GinRequestIDMiddleware(),
		middleware.GinLoggerMiddleware(opts.Logger),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(opts.CORSOrigin),
		middleware.GinGzipMiddleware(),
	)

	router.GET("/health", healthHandler.HandleHealth)
	handlers.RegisterSwaggerRoutes(router, opts.SwaggerHost)

	api := router.Group("/api")
	RegisterImportRoutes(api, importHandler)

	return router
}

// RegisterImportRoutes регистрирует маршруты импорта, сопоставлений и обогащения
func RegisterImportRoutes(api *gin.RouterGroup, h *imports.Handler) {
	importsGroup := api.Group("/imports")
	{
		importsGroup.POST("", h.HandleSubmitImport)
		importsGroup.GET("/:id", h.HandleGetJob)
		importsGroup.GET("/:id/progress", h.HandleGetProgress)
		importsGroup.GET("/:id/logs", h.HandleGetLogs)
	}

	api.GET("/jobs/recent", h.HandleRecentJobs)

	mappingsGroup := api.Group("/mappings")
	{
		mappingsGroup.POST("/detect", h.HandleDetectMapping)
		mappingsGroup.GET("/:supplier", h.HandleGetMappings)
		mappingsGroup.PUT("/:supplier", h.HandlePutMappings)
	}

	api.POST("/enrichment/jobs", h.HandleSubmitEnrichment)
}
