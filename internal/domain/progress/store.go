package progress

import (
	"context"
	"encoding/json"
	"time"
)

// Статусы в записи прогресса совпадают со статусами задачи
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Record последний известный снимок выполнения задачи
type Record struct {
	JobID      string          `json:"job_id"`
	Kind       string          `json:"kind"`
	Current    int             `json:"current"`
	Total      int             `json:"total"`
	Percentage float64         `json:"percentage"`
	Message    string          `json:"message"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LogEntry одна неизменяемая строка журнала задачи
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Store канал прогресса и журнала. Для каждой задачи ровно один писатель.
type Store interface {
	WriteProgress(ctx context.Context, rec Record) error
	AppendLog(ctx context.Context, jobID, message string) error
	// ReadProgress возвращает nil без ошибки для неизвестной задачи
	ReadProgress(ctx context.Context, jobID string) (*Record, error)
	ReadLogs(ctx context.Context, jobID string) ([]LogEntry, error)
	RegisterRecentJob(ctx context.Context, jobID string) error
	// RecentJobs возвращает идентификаторы, новые первыми
	RecentJobs(ctx context.Context) ([]string, error)
}

// Percentage считает процент выполнения с округлением до десятых
func Percentage(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	p := float64(current) / float64(total) * 100
	return float64(int(p*10)) / 10
}
