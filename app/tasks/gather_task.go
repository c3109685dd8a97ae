package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/harvest"
)

type GatherTask struct {
	Task
	Job       *database.HarvestJob
	scheduler *Scheduler
}

func NewGatherTask(job *database.HarvestJob, scheduler *Scheduler) *GatherTask {
	return &GatherTask{
		Task:      NewTask(TaskTypeGather, job.SourceName),
		Job:       job,
		scheduler: scheduler,
	}
}

func (t *GatherTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s := t.scheduler

	previous, err := s.jobRepo.GetPreviousJobSummary(t.Job.SourceName, t.Job.ID)
	if err != nil {
		return fmt.Errorf("failed to load previous job summary: %w", err)
	}

	ids, err := s.coordinator.Gather(ctx, t.Job, previous)
	if err != nil {
		// endpoint and empty-result conditions are recorded on the job;
		// retrying the task would only duplicate them
		if errors.Is(err, harvest.ErrEndpoint) || errors.Is(err, harvest.ErrEmptyResult) {
			if finishErr := s.jobRepo.MarkFinished(t.Job.ID, database.JobStatusErrored); finishErr != nil {
				slog.Error("Failed to mark job errored", "job", t.Job.ID, "error", finishErr)
			}
			slog.Warn("Gather aborted", "job", t.Job.ID, "source", t.Job.SourceName, "error", err)
			return nil
		}
		return err
	}

	queued := 0
	for _, id := range ids {
		obj, err := s.objectRepo.GetObject(id)
		if err != nil || obj == nil {
			slog.Warn("Failed to load created object, skipping", "object", id, "error", err)
			continue
		}
		if err := s.EnqueueTask(NewFetchTask(t.Job, obj, s)); err != nil {
			slog.Warn("Failed to enqueue fetch task", "object", id, "error", err)
			continue
		}
		queued++
	}

	if queued == 0 {
		s.finalizeJob(t.Job.ID)
	}

	slog.Info("Task completed",
		"type", "Gather",
		"source", t.Job.SourceName,
		"duration", t.GetDuration(),
		"objects", len(ids),
		"queued", queued)

	return nil
}
