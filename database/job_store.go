package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// JobStore долговременная очередь задач импорта и обогащения.
// Переходы: queued → processing → completed | failed, из терминальных статусов переходов нет.
type JobStore struct {
	db  *sql.DB
	now func() time.Time
}

const jobColumns = `id, kind, user_id, supplier_id, source_key, source_name, invoice, mapping_override,
	enrichment_filter, status, imported, updated, skipped, failed, details, error, attempts, max_attempts,
	lease_expires_at, heartbeat_at, created_at, started_at, finished_at`

func scanJob(row rowScanner) (*supplierimport.ImportJob, error) {
	var (
		job        supplierimport.ImportJob
		kind       string
		status     string
		invoice    sql.NullString
		override   sql.NullString
		filter     sql.NullString
		details    sql.NullString
		leaseUntil sql.NullString
		heartbeat  sql.NullString
		createdAt  string
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	err := row.Scan(&job.ID, &kind, &job.UserID, &job.SupplierID, &job.Source.Key, &job.Source.Name,
		&invoice, &override, &filter, &status,
		&job.Counters.Imported, &job.Counters.Updated, &job.Counters.Skipped, &job.Counters.Failed,
		&details, &job.Error, &job.Attempts, &job.MaxAttempts,
		&leaseUntil, &heartbeat, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	job.Kind = supplierimport.JobKind(kind)
	job.Status = supplierimport.JobStatus(status)

	if err := decodeJSON(invoice, &job.Invoice); err != nil {
		return nil, err
	}
	if err := decodeJSON(override, &job.MappingOverride); err != nil {
		return nil, err
	}
	if err := decodeJSON(filter, &job.EnrichmentFilter); err != nil {
		return nil, err
	}
	if err := decodeJSON(details, &job.Details); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	for _, t := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&job.LeaseExpiresAt, leaseUntil},
		{&job.HeartbeatAt, heartbeat},
		{&job.StartedAt, startedAt},
		{&job.FinishedAt, finishedAt},
	} {
		if *t.dst, err = parseNullTime(t.src); err != nil {
			return nil, err
		}
	}
	return &job, nil
}

func decodeJSON(ns sql.NullString, dst any) error {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(ns.String), dst); err != nil {
		return fmt.Errorf("failed to decode job column: %w", err)
	}
	return nil
}

func encodeJSON(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Create сохраняет новую задачу в статусе queued
func (s *JobStore) Create(ctx context.Context, job *supplierimport.ImportJob) error {
	if job.Status == "" {
		job.Status = supplierimport.JobStatusQueued
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 1
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now()
	}

	invoice, err := encodeJSON(job.Invoice, job.Invoice == nil)
	if err != nil {
		return fmt.Errorf("failed to encode invoice: %w", err)
	}
	override, err := encodeJSON(job.MappingOverride, len(job.MappingOverride) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode mapping override: %w", err)
	}
	filter, err := encodeJSON(job.EnrichmentFilter, job.EnrichmentFilter == nil)
	if err != nil {
		return fmt.Errorf("failed to encode enrichment filter: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO import_jobs (id, kind, user_id, supplier_id, source_key, source_name, invoice,
			mapping_override, enrichment_filter, status, max_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Kind), job.UserID, job.SupplierID, job.Source.Key, job.Source.Name,
		invoice, override, filter, string(job.Status), job.MaxAttempts, formatTime(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	return nil
}

// Get возвращает задачу по идентификатору
func (s *JobStore) Get(ctx context.Context, id string) (*supplierimport.ImportJob, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, supplierimport.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

// ClaimNext атомарно переводит самую старую queued задачу в processing с арендой.
// Возвращает nil без ошибки, если очередь пуста.
func (s *JobStore) ClaimNext(ctx context.Context, lease time.Duration) (*supplierimport.ImportJob, error) {
	now := s.now()
	job, err := scanJob(s.db.QueryRowContext(ctx, `
		UPDATE import_jobs
		SET status = 'processing', attempts = attempts + 1, started_at = ?, heartbeat_at = ?, lease_expires_at = ?
		WHERE id = (
			SELECT id FROM import_jobs
			WHERE status = 'queued' AND attempts < max_attempts
			ORDER BY created_at, id
			LIMIT 1
		) AND status = 'queued'
		RETURNING `+jobColumns,
		formatTime(now), formatTime(now), formatTime(now.Add(lease))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// Claim переводит конкретную queued задачу в processing.
// Для задачи в другом статусе возвращает ErrJobNotClaimable или ErrJobTerminal.
func (s *JobStore) Claim(ctx context.Context, id string, lease time.Duration) (*supplierimport.ImportJob, error) {
	now := s.now()
	job, err := scanJob(s.db.QueryRowContext(ctx, `
		UPDATE import_jobs
		SET status = 'processing', attempts = attempts + 1, started_at = ?, heartbeat_at = ?, lease_expires_at = ?
		WHERE id = ? AND status = 'queued' AND attempts < max_attempts
		RETURNING `+jobColumns,
		formatTime(now), formatTime(now), formatTime(now.Add(lease)), id))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status.IsTerminal() {
			return nil, supplierimport.ErrJobTerminal
		}
		return nil, supplierimport.ErrJobNotClaimable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", id, err)
	}
	return job, nil
}

// Heartbeat продлевает аренду задачи в статусе processing
func (s *JobStore) Heartbeat(ctx context.Context, id string, lease time.Duration) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs SET heartbeat_at = ?, lease_expires_at = ?
		WHERE id = ? AND status = 'processing'`,
		formatTime(now), formatTime(now.Add(lease)), id)
	if err != nil {
		return fmt.Errorf("failed to heartbeat job %s: %w", id, err)
	}
	return s.requireTransition(ctx, res, id)
}

// UpdateCounters сохраняет промежуточные счетчики
func (s *JobStore) UpdateCounters(ctx context.Context, id string, counters supplierimport.JobCounters) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs SET imported = ?, updated = ?, skipped = ?, failed = ?
		WHERE id = ? AND status = 'processing'`,
		counters.Imported, counters.Updated, counters.Skipped, counters.Failed, id)
	if err != nil {
		return fmt.Errorf("failed to update counters for job %s: %w", id, err)
	}
	return s.requireTransition(ctx, res, id)
}

// Complete переводит задачу в completed
func (s *JobStore) Complete(ctx context.Context, id string, counters supplierimport.JobCounters, details []supplierimport.RowDetail) error {
	encoded, err := encodeJSON(details, len(details) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode job details: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = 'completed', imported = ?, updated = ?, skipped = ?, failed = ?, details = ?,
			finished_at = ?, lease_expires_at = NULL
		WHERE id = ? AND status = 'processing'`,
		counters.Imported, counters.Updated, counters.Skipped, counters.Failed, encoded,
		formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return s.requireTransition(ctx, res, id)
}

// Fail переводит задачу в failed с сообщением об ошибке
func (s *JobStore) Fail(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs SET status = 'failed', error = ?, finished_at = ?, lease_expires_at = NULL
		WHERE id = ? AND status IN ('queued', 'processing')`,
		reason, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	return s.requireTransition(ctx, res, id)
}

// FailExpired переводит в failed задачи, чья аренда истекла до now
func (s *JobStore) FailExpired(ctx context.Context, now time.Time, reason string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE import_jobs SET status = 'failed', error = ?, finished_at = ?, lease_expires_at = NULL
		WHERE status = 'processing' AND lease_expires_at IS NOT NULL AND lease_expires_at < ?
		RETURNING id`,
		reason, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to expire jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListRecent возвращает последние задачи, новые первыми
func (s *JobStore) ListRecent(ctx context.Context, limit int) ([]*supplierimport.ImportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM import_jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*supplierimport.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// requireTransition отличает отсутствующую задачу от задачи в неподходящем статусе
func (s *JobStore) requireTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM import_jobs WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return supplierimport.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read job %s: %w", id, err)
	}
	if supplierimport.JobStatus(status).IsTerminal() {
		return supplierimport.ErrJobTerminal
	}
	return supplierimport.ErrJobNotClaimable
}
