package database

import (
	"github.com/lysyi3m/oai-harvest/app/normalize"
)

type JobRepository interface {
	CreateJob(sourceName, sourceURL, metadataPrefix string) (*HarvestJob, error)
	GetJob(id string) (*HarvestJob, error)
	ListJobs(limit int) ([]HarvestJob, error)
	GetLastJob(sourceName string) (*HarvestJob, error)
	GetPreviousJobSummary(sourceName, excludeJobID string) (*PreviousJobSummary, error)
	GetJobCount() (int, error)

	MarkGatherStarted(jobID string) error
	MarkGatherFinished(jobID string) error
	MarkFinished(jobID, status string) error

	AddError(jobID, stage, message string) error
	GetErrors(jobID string) ([]HarvestError, error)
}

type ObjectRepository interface {
	CreateObject(jobID, guid string) (string, error)
	GetObject(id string) (*HarvestObject, error)
	GetObjectsByJob(jobID string) ([]HarvestObject, error)

	MarkFetched(id, content string) error
	MarkImported(id, datasetID string) error
	MarkErrored(id string) error

	AddError(jobID, objectID, stage, message string) error
	CountActive(jobID string) (int, error)
	GetStateCounts() (map[string]int, error)
}

type DatasetRepository interface {
	Upsert(draft *normalize.Draft, sourceURL string) error
	Get(id string) (*Dataset, error)
	GetDatasetCount() (int, error)
}

var _ JobRepository = (*JobRepositoryImpl)(nil)
var _ ObjectRepository = (*ObjectRepositoryImpl)(nil)
var _ DatasetRepository = (*DatasetRepositoryImpl)(nil)
