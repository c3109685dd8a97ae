package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinzhu/now"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

// Coordinator runs the gather stage: it enumerates remote identifiers
// for a job and turns each one into a pending harvest object.
type Coordinator struct {
	client  oaipmh.ClientInterface
	jobs    database.JobRepository
	objects database.ObjectRepository
}

func NewCoordinator(client oaipmh.ClientInterface, jobs database.JobRepository, objects database.ObjectRepository) *Coordinator {
	return &Coordinator{
		client:  client,
		jobs:    jobs,
		objects: objects,
	}
}

// Gather lists all identifiers of the job's source and creates one
// pending object per identifier. Returns the created object ids.
//
// previous describes the newest prior job of the same source whose
// gather phase completed, or nil when there is none. A clean previous
// job marks this run as an incremental resync: the baseline is logged,
// but without a verified modified-since capability on the remote side
// the full listing is still requested and idempotent upsert downstream
// does the deduplication.
func (c *Coordinator) Gather(ctx context.Context, job *database.HarvestJob, previous *database.PreviousJobSummary) ([]string, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job is nil", ErrInvalidInput)
	}

	if err := c.jobs.MarkGatherStarted(job.ID); err != nil {
		return nil, err
	}

	c.logEndpointInfo(ctx, job)

	if previous.Clean() {
		baseline := now.With(previous.GatherFinishedAt).BeginningOfDay()
		slog.Info("Incremental resync", "source", job.SourceName, "baseline", baseline.Format("2006-01-02"))
	} else {
		slog.Info("Full harvest", "source", job.SourceName)
	}

	headers, err := c.client.ListIdentifiers(ctx, job.SourceURL, job.MetadataPrefix, "")
	if err != nil {
		c.recordJobError(job.ID, fmt.Sprintf("identifier listing failed: %s", err))
		return nil, fmt.Errorf("%w: %s", ErrEndpoint, err)
	}

	if len(headers) == 0 {
		c.recordJobError(job.ID, "no packages received")
		return nil, fmt.Errorf("%w for %s", ErrEmptyResult, job.SourceURL)
	}

	var ids []string
	for _, header := range headers {
		if header.Deleted() {
			slog.Debug("Skipping deleted record", "guid", header.Identifier)
			continue
		}
		id, err := c.objects.CreateObject(job.ID, header.Identifier)
		if err != nil {
			c.recordJobError(job.ID, fmt.Sprintf("failed to create object for %s: %s", header.Identifier, err))
			continue
		}
		ids = append(ids, id)
	}

	if err := c.jobs.MarkGatherFinished(job.ID); err != nil {
		return ids, err
	}

	slog.Info("Gather finished", "source", job.SourceName, "objects", len(ids))
	return ids, nil
}

// logEndpointInfo surfaces the remote endpoint's advertised formats and
// sets. Failures here are informational only; the listing call decides
// whether the endpoint is usable.
func (c *Coordinator) logEndpointInfo(ctx context.Context, job *database.HarvestJob) {
	identify, err := c.client.Identify(ctx, job.SourceURL)
	if err != nil {
		slog.Debug("Failed to identify endpoint", "source", job.SourceName, "error", err)
	} else {
		slog.Info("Endpoint identified", "source", job.SourceName, "repository", identify.Name, "granularity", identify.Granularity)
	}

	formats, err := c.client.ListMetadataFormats(ctx, job.SourceURL)
	if err != nil {
		slog.Debug("Failed to list metadata formats", "source", job.SourceName, "error", err)
	} else {
		advertised := false
		for _, format := range formats {
			if format.Prefix == job.MetadataPrefix {
				advertised = true
				break
			}
		}
		if !advertised {
			slog.Warn("Metadata prefix not advertised by endpoint", "source", job.SourceName, "prefix", job.MetadataPrefix)
		}
		slog.Debug("Metadata formats listed", "source", job.SourceName, "count", len(formats))
	}

	sets, err := c.client.ListSets(ctx, job.SourceURL)
	if err != nil {
		slog.Debug("Failed to list sets", "source", job.SourceName, "error", err)
	} else {
		slog.Debug("Sets listed", "source", job.SourceName, "count", len(sets))
	}
}

func (c *Coordinator) recordJobError(jobID, message string) {
	if err := c.jobs.AddError(jobID, database.StageGather, message); err != nil {
		slog.Error("Failed to record job error", "job", jobID, "error", err)
	}
}
