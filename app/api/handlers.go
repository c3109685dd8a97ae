package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/harvest"
	"github.com/lysyi3m/oai-harvest/app/tasks"
)

func NewHandler(sourceCache *harvest.SourceCache, jobRepo database.JobRepository,
	objectRepo database.ObjectRepository, datasetRepo database.DatasetRepository,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		jobRepo:     jobRepo,
		objectRepo:  objectRepo,
		datasetRepo: datasetRepo,
		sourceCache: sourceCache,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if jobCount, err := h.jobRepo.GetJobCount(); err == nil {
		health["jobs"] = jobCount
	}

	health["loaded_sources"] = h.sourceCache.GetSourceCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if jobCount, err := h.jobRepo.GetJobCount(); err == nil {
		stats["jobs"] = jobCount
	}
	if datasetCount, err := h.datasetRepo.GetDatasetCount(); err == nil {
		stats["datasets"] = datasetCount
	}
	if counts, err := h.objectRepo.GetStateCounts(); err == nil {
		stats["objects"] = counts
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources := make([]map[string]interface{}, 0)

	for _, source := range h.sourceCache.GetEnabledSources() {
		info := map[string]interface{}{
			"name":             source.Name,
			"url":              source.URL,
			"metadata_prefix":  source.Settings.MetadataPrefix,
			"harvest_interval": (time.Duration(source.Settings.HarvestInterval) * time.Second).String(),
		}

		if job, err := h.jobRepo.GetLastJob(source.Name); err == nil && job != nil {
			info["last_job_id"] = job.ID
			info["last_job_status"] = job.Status
			info["last_job_created_at"] = job.CreatedAt
		}

		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (h *Handler) APITriggerHarvest(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if _, err := h.sourceCache.GetSource(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	if err := h.scheduler.EnqueueHarvest(name); err != nil {
		slog.Error("Failed to enqueue harvest", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue harvest"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"source": name, "status": "queued"})
}

func (h *Handler) APIListJobs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := h.jobRepo.ListJobs(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_jobs", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) APIGetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.jobRepo.GetJob(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_job", "job", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	objects, err := h.objectRepo.GetObjectsByJob(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_objects", "job", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	jobErrors, err := h.jobRepo.GetErrors(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_errors", "job", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	states := make(map[string]int)
	for _, obj := range objects {
		states[obj.State]++
	}

	c.JSON(http.StatusOK, gin.H{
		"job":     job,
		"objects": states,
		"errors":  jobErrors,
	})
}

func (h *Handler) APIGetDataset(c *gin.Context) {
	id := c.Param("id")

	dataset, err := h.datasetRepo.Get(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_dataset", "dataset", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if dataset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		return
	}

	c.JSON(http.StatusOK, dataset)
}
