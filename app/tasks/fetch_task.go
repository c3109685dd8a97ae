package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/harvest"
)

type FetchTask struct {
	Task
	Job       *database.HarvestJob
	Object    *database.HarvestObject
	scheduler *Scheduler
}

func NewFetchTask(job *database.HarvestJob, object *database.HarvestObject, scheduler *Scheduler) *FetchTask {
	return &FetchTask{
		Task:      NewTask(TaskTypeFetch, job.SourceName),
		Job:       job,
		Object:    object,
		scheduler: scheduler,
	}
}

func (t *FetchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s := t.scheduler

	if err := s.fetcher.Fetch(ctx, t.Job, t.Object); err != nil {
		// fetch failures are terminal for the object; the job may still
		// complete through its siblings
		if errors.Is(err, harvest.ErrFetch) || errors.Is(err, harvest.ErrInvalidInput) {
			s.finalizeJob(t.Job.ID)
			return nil
		}
		return err
	}

	object, err := s.objectRepo.GetObject(t.Object.ID)
	if err != nil || object == nil {
		slog.Warn("Failed to reload fetched object", "object", t.Object.ID, "error", err)
		return err
	}

	if err := s.EnqueueTask(NewImportTask(t.Job, object, s)); err != nil {
		return err
	}

	slog.Debug("Task completed",
		"type", "Fetch",
		"source", t.Job.SourceName,
		"duration", t.GetDuration(),
		"guid", t.Object.GUID)

	return nil
}
