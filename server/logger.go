package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/server/middleware"
)

var (
	// Logger глобальный структурированный логгер
	Logger *slog.Logger
)

func init() {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// SetLogger заменяет глобальный логгер (например, fanout из конфигурации)
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// LogError логирует ошибку с контекстом из запроса
func LogError(ctx context.Context, err error, msg string, attrs ...any) {
	reqID := middleware.GetRequestID(ctx)
	attrs = append(attrs, "error", err, "request_id", reqID)
	Logger.Error(msg, attrs...)
}

// LogErrorf логирует ошибку с форматированным сообщением
func LogErrorf(ctx context.Context, err error, format string, args ...any) {
	LogError(ctx, err, fmt.Sprintf(format, args...))
}

// LogWarn логирует предупреждение
func LogWarn(ctx context.Context, msg string, attrs ...any) {
	reqID := middleware.GetRequestID(ctx)
	attrs = append(attrs, "request_id", reqID)
	Logger.Warn(msg, attrs...)
}

// LogInfo логирует информационное сообщение
func LogInfo(ctx context.Context, msg string, attrs ...any) {
	reqID := middleware.GetRequestID(ctx)
	attrs = append(attrs, "request_id", reqID)
	Logger.Info(msg, attrs...)
}

// LogDebug логирует отладочное сообщение
func LogDebug(ctx context.Context, msg string, attrs ...any) {
	reqID := middleware.GetRequestID(ctx)
	attrs = append(attrs, "request_id", reqID)
	Logger.Debug(msg, attrs...)
}

// LogDuration логирует продолжительность выполнения операции
func LogDuration(ctx context.Context, operation string, duration time.Duration, attrs ...any) {
	reqID := middleware.GetRequestID(ctx)
	attrs = append(attrs, "request_id", reqID, "duration_ms", duration.Milliseconds())
	Logger.Info(operation+" completed", attrs...)
}

// --- Специализированные функции логирования для импорта ---

// LogImportSubmitted логирует постановку импорта в очередь
func LogImportSubmitted(ctx context.Context, jobID, supplierID, fileName string) {
	LogInfo(ctx, "Import submitted",
		"job_id", jobID,
		"supplier_id", supplierID,
		"file_name", fileName,
	)
}

// LogEnrichmentSubmitted логирует постановку обогащения в очередь
func LogEnrichmentSubmitted(ctx context.Context, jobID, userID string) {
	LogInfo(ctx, "Datasheet enrichment submitted",
		"job_id", jobID,
		"user_id", userID,
	)
}

// LogMappingDetected логирует результат определения сопоставления колонок
func LogMappingDetected(ctx context.Context, supplierID string, fields int, source string) {
	LogInfo(ctx, "Column mapping detected",
		"supplier_id", supplierID,
		"fields", fields,
		"source", source,
	)
}

// LogMappingsReplaced логирует замену сопоставлений поставщика
func LogMappingsReplaced(ctx context.Context, supplierID string, count int) {
	LogInfo(ctx, "Column mappings replaced",
		"supplier_id", supplierID,
		"count", count,
	)
}

// LogJobFinished логирует итог синхронного выполнения задачи
func LogJobFinished(ctx context.Context, jobID, status string, imported, updated, skipped, failed int, duration time.Duration) {
	LogInfo(ctx, "Job finished",
		"job_id", jobID,
		"status", status,
		"imported", imported,
		"updated", updated,
		"skipped", skipped,
		"failed", failed,
		"duration_ms", duration.Milliseconds(),
	)
}
