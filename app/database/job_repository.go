package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRepositoryImpl handles database operations for harvest jobs
type JobRepositoryImpl struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepositoryImpl {
	return &JobRepositoryImpl{db: db}
}

func (r *JobRepositoryImpl) CreateJob(sourceName, sourceURL, metadataPrefix string) (*HarvestJob, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO harvest_jobs (id, source_name, source_url, metadata_prefix, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sourceName, sourceURL, metadataPrefix, JobStatusNew, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return &HarvestJob{
		ID:             id,
		SourceName:     sourceName,
		SourceURL:      sourceURL,
		MetadataPrefix: metadataPrefix,
		Status:         JobStatusNew,
		CreatedAt:      now,
	}, nil
}

const jobColumns = `id, source_name, source_url, metadata_prefix, status,
       gather_started_at, gather_finished_at, finished_at, created_at`

func scanJob(row interface{ Scan(...any) error }) (*HarvestJob, error) {
	var job HarvestJob
	err := row.Scan(
		&job.ID, &job.SourceName, &job.SourceURL, &job.MetadataPrefix, &job.Status,
		&job.GatherStartedAt, &job.GatherFinishedAt, &job.FinishedAt, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepositoryImpl) GetJob(id string) (*HarvestJob, error) {
	job, err := scanJob(r.db.QueryRow(`
		SELECT `+jobColumns+` FROM harvest_jobs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *JobRepositoryImpl) ListJobs(limit int) ([]HarvestJob, error) {
	rows, err := r.db.Query(`
		SELECT `+jobColumns+` FROM harvest_jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []HarvestJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

// GetLastJob returns the newest job for a source, nil when the source has
// never been harvested.
func (r *JobRepositoryImpl) GetLastJob(sourceName string) (*HarvestJob, error) {
	job, err := scanJob(r.db.QueryRow(`
		SELECT `+jobColumns+` FROM harvest_jobs
		WHERE source_name = ?
		ORDER BY created_at DESC LIMIT 1
	`, sourceName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last job: %w", err)
	}
	return job, nil
}

// GetPreviousJobSummary returns a summary of the newest prior job of the
// source whose gather phase finished, excluding the given job. Returns
// nil when no such job exists.
func (r *JobRepositoryImpl) GetPreviousJobSummary(sourceName, excludeJobID string) (*PreviousJobSummary, error) {
	var jobID string
	var finished time.Time
	err := r.db.QueryRow(`
		SELECT id, gather_finished_at FROM harvest_jobs
		WHERE source_name = ? AND id != ? AND gather_finished_at IS NOT NULL
		ORDER BY gather_finished_at DESC LIMIT 1
	`, sourceName, excludeJobID).Scan(&jobID, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous job: %w", err)
	}

	summary := &PreviousJobSummary{GatherFinishedAt: finished}

	err = r.db.QueryRow(`
		SELECT COUNT(*) FROM harvest_errors WHERE job_id = ? AND stage = ?
	`, jobID, StageGather).Scan(&summary.GatherErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to count gather errors: %w", err)
	}

	err = r.db.QueryRow(`
		SELECT COUNT(*) FROM harvest_objects WHERE job_id = ?
	`, jobID).Scan(&summary.ObjectCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count objects: %w", err)
	}

	return summary, nil
}

func (r *JobRepositoryImpl) MarkGatherStarted(jobID string) error {
	_, err := r.db.Exec(`
		UPDATE harvest_jobs SET status = ?, gather_started_at = ? WHERE id = ?
	`, JobStatusRunning, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark gather started: %w", err)
	}
	return nil
}

func (r *JobRepositoryImpl) MarkGatherFinished(jobID string) error {
	_, err := r.db.Exec(`
		UPDATE harvest_jobs SET gather_finished_at = ? WHERE id = ?
	`, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark gather finished: %w", err)
	}
	return nil
}

// MarkFinished records job completion. Callers must only invoke this once
// every object of the job reached a terminal state.
func (r *JobRepositoryImpl) MarkFinished(jobID, status string) error {
	_, err := r.db.Exec(`
		UPDATE harvest_jobs SET status = ?, finished_at = ? WHERE id = ? AND finished_at IS NULL
	`, status, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job finished: %w", err)
	}
	return nil
}

// AddError records a job-level error.
func (r *JobRepositoryImpl) AddError(jobID, stage, message string) error {
	_, err := r.db.Exec(`
		INSERT INTO harvest_errors (job_id, stage, message) VALUES (?, ?, ?)
	`, jobID, stage, message)
	if err != nil {
		return fmt.Errorf("failed to record job error: %w", err)
	}
	return nil
}

func (r *JobRepositoryImpl) GetErrors(jobID string) ([]HarvestError, error) {
	rows, err := r.db.Query(`
		SELECT id, job_id, object_id, stage, message, created_at
		FROM harvest_errors WHERE job_id = ? ORDER BY id
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job errors: %w", err)
	}
	defer rows.Close()

	var errs []HarvestError
	for rows.Next() {
		var e HarvestError
		if err := rows.Scan(&e.ID, &e.JobID, &e.ObjectID, &e.Stage, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		errs = append(errs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating error rows: %w", err)
	}
	return errs, nil
}

func (r *JobRepositoryImpl) GetJobCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM harvest_jobs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get job count: %w", err)
	}
	return count, nil
}
