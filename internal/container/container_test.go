package container

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/application/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/config"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.GetDefaults()
	cfg.DatabasePath = filepath.Join(dir, "inventory.db")
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.Currency.Source = "static"
	cfg.Currency.StaticRates = map[string]float64{"usd": 0.9213}
	cfg.Enrichment.ScraperEnabled = false
	cfg.Worker.PollInterval = 10 * time.Millisecond
	cfg.Worker.ReaperInterval = time.Second
	return cfg
}

func TestNewContainer_ProcessesQueuedImport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Progress.Backend = "sqlite"
	cfg.Progress.Path = filepath.Join(t.TempDir(), "progress.db")

	c, err := NewContainer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	c.StartBackground(ctx)
	t.Cleanup(func() {
		cancel()
		c.WaitBackground()
	})

	csv := "Mfr. #,Description,Order Qty.,Price (USD)\nGRM188R71H104KA93D,CAP CER 0.1UF 50V X7R 0603,100,$0.10\n"
	jobID, err := c.UseCase.Submit(ctx, app.SubmitImportRequest{
		UserID:     "user-1",
		SupplierID: "mouser",
		FileName:   "order.csv",
		File:       strings.NewReader(csv),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := c.UseCase.GetJob(ctx, jobID)
		return err == nil && job.Status.IsTerminal()
	}, 10*time.Second, 20*time.Millisecond)

	job, err := c.UseCase.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status, job.Error)
	assert.Equal(t, 1, job.Counters.Imported)

	rec, err := c.UseCase.GetProgress(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 100.0, rec.Percentage)
}

func TestNewContainer_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enrichment.Schedule = "every day"

	_, err := NewContainer(cfg, nil)
	assert.Error(t, err)
}

func TestNewContainer_ClassifierFallsBackToRules(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.Provider = "openai"

	c, err := NewContainer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Classifier)
	assert.Nil(t, c.Scheduler)
}
