package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skaul-dev/billextract/constants"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/entity"
)

// JobOutcome carries the terminal state of an extraction job.
type JobOutcome struct {
	Pages        int
	ItemCount    int
	Usage        entity.TokenUsage
	ResultJSON   json.RawMessage
	ErrorMessage string
}

type JobRepository interface {
	Create(ctx context.Context, source, engine string) (*entity.ExtractionJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	FinishOK(ctx context.Context, id uuid.UUID, out JobOutcome) error
	FinishFailed(ctx context.Context, id uuid.UUID, message string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractionJob, error)
	List(ctx context.Context, limit int) ([]*entity.ExtractionJob, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

func (r *jobRepo) Create(ctx context.Context, source, engine string) (*entity.ExtractionJob, error) {
	job := &entity.ExtractionJob{
		ID:        uuid.New(),
		Source:    source,
		Engine:    engine,
		Status:    string(constants.JobStatusQueued),
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extraction_jobs (id, source, engine, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID.String(), job.Source, job.Engine, job.Status, job.StartedAt)
	if err != nil {
		r.log.Error("job.create.failed", "source", source, "error", err)
		return nil, fmt.Errorf("create job: %w", err)
	}
	r.log.Info("job.created", "job_id", job.ID, "engine", engine)
	return job, nil
}

func (r *jobRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extraction_jobs SET status = ? WHERE id = ?`,
		string(constants.JobStatusRunning), id.String())
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

func (r *jobRepo) FinishOK(ctx context.Context, id uuid.UUID, out JobOutcome) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extraction_jobs
		 SET status = ?, pages = ?, item_count = ?, total_tokens = ?, input_tokens = ?,
		     output_tokens = ?, result_json = ?, finished_at = ?
		 WHERE id = ?`,
		string(constants.JobStatusOK), out.Pages, out.ItemCount,
		out.Usage.TotalTokens, out.Usage.InputTokens, out.Usage.OutputTokens,
		string(out.ResultJSON), time.Now().UTC(), id.String())
	if err != nil {
		r.log.Error("job.finish_ok.failed", "job_id", id, "error", err)
		return fmt.Errorf("finish job: %w", err)
	}
	r.log.Info("job.finished", "job_id", id, "pages", out.Pages, "items", out.ItemCount)
	return nil
}

func (r *jobRepo) FinishFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extraction_jobs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusFailed), message, time.Now().UTC(), id.String())
	if err != nil {
		r.log.Error("job.finish_failed.failed", "job_id", id, "error", err)
		return fmt.Errorf("fail job: %w", err)
	}
	r.log.Warn("job.failed", "job_id", id, "error", message)
	return nil
}

const jobColumns = `id, source, engine, status, pages, item_count, total_tokens,
	input_tokens, output_tokens, result_json, error_message, started_at, finished_at`

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractionJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM extraction_jobs WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context, limit int) ([]*entity.ExtractionJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM extraction_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.log.Warn("job.list.close_failed", "error", err)
		}
	}()

	var jobs []*entity.ExtractionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM extraction_jobs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info("job.pruned", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.ExtractionJob, error) {
	var (
		job        entity.ExtractionJob
		idStr      string
		resultJSON sql.NullString
		errMsg     sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(&idStr, &job.Source, &job.Engine, &job.Status,
		&job.Pages, &job.ItemCount, &job.TotalTokens, &job.InputTokens,
		&job.OutputTokens, &resultJSON, &errMsg, &job.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", idStr, err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		job.ResultJSON = json.RawMessage(resultJSON.String)
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return &job, nil
}
