package api

import (
	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/harvest"
	"github.com/lysyi3m/oai-harvest/app/tasks"
)

type Handler struct {
	jobRepo     database.JobRepository
	objectRepo  database.ObjectRepository
	datasetRepo database.DatasetRepository
	sourceCache *harvest.SourceCache
	scheduler   tasks.TaskSchedulerInterface
}
