package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

// ArchiveStore keeps a copy of fetched payloads outside the database.
type ArchiveStore interface {
	Put(name, content string) error
}

// Fetcher runs the fetch stage: it retrieves the raw metadata payload
// for one pending harvest object.
type Fetcher struct {
	client  oaipmh.ClientInterface
	objects database.ObjectRepository
	archive ArchiveStore
}

func NewFetcher(client oaipmh.ClientInterface, objects database.ObjectRepository, archive ArchiveStore) *Fetcher {
	return &Fetcher{
		client:  client,
		objects: objects,
		archive: archive,
	}
}

// Fetch retrieves the record behind the object's guid and stores it as
// the object's content. On any retrieval failure the object is errored
// and its siblings are unaffected.
func (f *Fetcher) Fetch(ctx context.Context, job *database.HarvestJob, obj *database.HarvestObject) error {
	if obj == nil || obj.GUID == "" {
		return fmt.Errorf("%w: no harvest object", ErrInvalidInput)
	}

	record, err := f.client.GetRecord(ctx, job.SourceURL, obj.GUID, job.MetadataPrefix)
	if err == nil && record.Header.Deleted() {
		err = fmt.Errorf("record is deleted")
	}
	if err == nil && record.Metadata == "" {
		err = fmt.Errorf("record has no metadata payload")
	}
	if err != nil {
		f.fail(job.ID, obj.ID, err)
		return fmt.Errorf("%w for %s: %s", ErrFetch, obj.GUID, err)
	}

	if err := f.objects.MarkFetched(obj.ID, record.Metadata); err != nil {
		return err
	}

	if f.archive != nil {
		if err := f.archive.Put(obj.GUID, record.Metadata); err != nil {
			slog.Warn("Failed to archive record", "guid", obj.GUID, "error", err)
		}
	}

	slog.Debug("Record fetched", "guid", obj.GUID, "bytes", len(record.Metadata))
	return nil
}

func (f *Fetcher) fail(jobID, objectID string, cause error) {
	if err := f.objects.AddError(jobID, objectID, database.StageFetch, cause.Error()); err != nil {
		slog.Error("Failed to record object error", "object", objectID, "error", err)
	}
	if err := f.objects.MarkErrored(objectID); err != nil {
		slog.Error("Failed to mark object errored", "object", objectID, "error", err)
	}
}
