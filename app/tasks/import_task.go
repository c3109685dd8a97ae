package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

type ImportTask struct {
	Task
	Job       *database.HarvestJob
	Object    *database.HarvestObject
	scheduler *Scheduler
}

func NewImportTask(job *database.HarvestJob, object *database.HarvestObject, scheduler *Scheduler) *ImportTask {
	return &ImportTask{
		Task:      NewTask(TaskTypeImport, job.SourceName),
		Job:       job,
		Object:    object,
		scheduler: scheduler,
	}
}

func (t *ImportTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s := t.scheduler

	if t.Object == nil || t.Object.Content == nil || *t.Object.Content == "" {
		// nothing to import and nothing to mark; recorded for audit
		if t.Object != nil {
			t.fail(fmt.Errorf("no content to import"))
		}
		s.finalizeJob(t.Job.ID)
		return nil
	}

	record, err := oaipmh.ParseMetadata([]byte(*t.Object.Content))
	if err != nil {
		t.fail(fmt.Errorf("failed to parse metadata: %w", err))
		s.finalizeJob(t.Job.ID)
		return nil
	}

	draft, err := s.normalizer.Run(t.Object.GUID, record)
	if err != nil {
		t.fail(fmt.Errorf("failed to normalize record: %w", err))
		s.finalizeJob(t.Job.ID)
		return nil
	}

	if err := s.datasetRepo.Upsert(draft, t.Job.SourceURL); err != nil {
		return fmt.Errorf("failed to persist dataset %s: %w", draft.ID, err)
	}

	if err := s.objectRepo.MarkImported(t.Object.ID, draft.ID); err != nil {
		return err
	}
	s.finalizeJob(t.Job.ID)

	slog.Info("Task completed",
		"type", "Import",
		"source", t.Job.SourceName,
		"duration", t.GetDuration(),
		"guid", t.Object.GUID,
		"dataset", draft.ID,
		"tags", len(draft.Tags),
		"extras", len(draft.Extras))

	return nil
}

// fail records the import failure and moves the object to its terminal
// error state.
func (t *ImportTask) fail(cause error) {
	s := t.scheduler
	if err := s.objectRepo.AddError(t.Job.ID, t.Object.ID, database.StageImport, cause.Error()); err != nil {
		slog.Error("Failed to record import error", "object", t.Object.ID, "error", err)
	}
	if err := s.objectRepo.MarkErrored(t.Object.ID); err != nil {
		slog.Error("Failed to mark object errored", "object", t.Object.ID, "error", err)
	}
	slog.Warn("Import failed", "guid", t.Object.GUID, "error", cause)
}
