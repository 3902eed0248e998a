package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
)

// TestMemoryStore_ProgressRoundTrip проверяет запись и чтение снимка прогресса
func TestMemoryStore_ProgressRoundTrip(t *testing.T) {
	store := NewMemoryStore(Config{TTL: time.Hour})
	defer store.Close()
	ctx := context.Background()

	rec, err := store.ReadProgress(ctx, "missing")
	if err != nil {
		t.Fatalf("ReadProgress() error = %v", err)
	}
	if rec != nil {
		t.Errorf("ReadProgress() for unknown job = %+v, want nil", rec)
	}

	_ = store.WriteProgress(ctx, domain.Record{JobID: "job-1", Current: 1, Total: 4, Status: domain.StatusProcessing})
	_ = store.WriteProgress(ctx, domain.Record{JobID: "job-1", Current: 2, Total: 4, Status: domain.StatusProcessing})

	rec, err = store.ReadProgress(ctx, "job-1")
	if err != nil {
		t.Fatalf("ReadProgress() error = %v", err)
	}
	if rec == nil || rec.Current != 2 {
		t.Fatalf("ReadProgress() = %+v, want current 2", rec)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be filled")
	}
}

// TestMemoryStore_LogCap проверяет вытеснение самых старых строк журнала
func TestMemoryStore_LogCap(t *testing.T) {
	store := NewMemoryStore(Config{TTL: time.Hour, MaxLogEntries: 3})
	defer store.Close()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_ = store.AppendLog(ctx, "job-1", fmt.Sprintf("line %d", i))
	}

	logs, err := store.ReadLogs(ctx, "job-1")
	if err != nil {
		t.Fatalf("ReadLogs() error = %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("ReadLogs() len = %d, want 3", len(logs))
	}
	if logs[0].Message != "line 3" || logs[2].Message != "line 5" {
		t.Errorf("ReadLogs() = %v, want lines 3..5 in order", logs)
	}

	empty, _ := store.ReadLogs(ctx, "other")
	if empty == nil || len(empty) != 0 {
		t.Errorf("ReadLogs() for unknown job = %v, want empty slice", empty)
	}
}

// TestMemoryStore_Expiry проверяет TTL записей
func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(Config{TTL: time.Minute})
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	_ = store.WriteProgress(ctx, domain.Record{JobID: "job-1", Status: domain.StatusCompleted})
	_ = store.AppendLog(ctx, "job-1", "done")

	store.now = func() time.Time { return base.Add(2 * time.Minute) }

	if rec, _ := store.ReadProgress(ctx, "job-1"); rec != nil {
		t.Errorf("expired record should not be returned, got %+v", rec)
	}
	if logs, _ := store.ReadLogs(ctx, "job-1"); len(logs) != 0 {
		t.Errorf("expired logs should not be returned, got %v", logs)
	}

	store.cleanup()
	if len(store.records) != 0 || len(store.logs) != 0 {
		t.Error("cleanup() should drop expired entries")
	}
}

// TestMemoryStore_RecentJobs проверяет порядок, дедупликацию и ограничение списка
func TestMemoryStore_RecentJobs(t *testing.T) {
	store := NewMemoryStore(Config{TTL: time.Hour, RecentJobsLimit: 3})
	defer store.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "a", "d"} {
		_ = store.RegisterRecentJob(ctx, id)
	}

	got, _ := store.RecentJobs(ctx)
	want := []string{"d", "a", "c"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("RecentJobs() = %v, want %v", got, want)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		current, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 10, 0},
		{5, 10, 50},
		{1, 3, 33.3},
		{10, 10, 100},
		{12, 10, 100},
	}

	for _, tt := range tests {
		if got := domain.Percentage(tt.current, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.current, tt.total, got, tt.want)
		}
	}
}
