package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/oai-harvest/app/cfg"
	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/harvest"
	"github.com/lysyi3m/oai-harvest/app/normalize"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sourceCache *harvest.SourceCache
	jobRepo     database.JobRepository
	objectRepo  database.ObjectRepository
	datasetRepo database.DatasetRepository
	coordinator *harvest.Coordinator
	fetcher     *harvest.Fetcher
	normalizer  *normalize.Normalizer
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(sourceCache *harvest.SourceCache, jobRepo database.JobRepository,
	objectRepo database.ObjectRepository, datasetRepo database.DatasetRepository,
	coordinator *harvest.Coordinator, fetcher *harvest.Fetcher, normalizer *normalize.Normalizer) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceCache: sourceCache,
		jobRepo:     jobRepo,
		objectRepo:  objectRepo,
		datasetRepo: datasetRepo,
		coordinator: coordinator,
		fetcher:     fetcher,
		normalizer:  normalizer,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 1000),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueHarvests()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueHarvests()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueHarvest creates a new job for the source and queues its gather
// stage. Fetch and import tasks are fanned out by the stages themselves.
func (s *Scheduler) EnqueueHarvest(sourceName string) error {
	source, err := s.sourceCache.GetSource(sourceName)
	if err != nil {
		return err
	}

	job, err := s.jobRepo.CreateJob(source.Name, source.URL, source.Settings.MetadataPrefix)
	if err != nil {
		return fmt.Errorf("failed to create job for %s: %w", sourceName, err)
	}

	if err := s.EnqueueTask(NewGatherTask(job, s)); err != nil {
		return err
	}

	slog.Info("Harvest queued", "source", sourceName, "job", job.ID)
	return nil
}

func (s *Scheduler) enqueueDueHarvests() {
	sources := s.sourceCache.GetEnabledSources()
	if len(sources) == 0 {
		slog.Debug("No enabled sources found")
		return
	}

	for _, source := range sources {
		lastJob, err := s.jobRepo.GetLastJob(source.Name)
		if err != nil {
			slog.Warn("Failed to get last job, skipping", "source", source.Name, "error", err)
			continue
		}

		if lastJob != nil {
			if lastJob.FinishedAt == nil {
				slog.Debug("Previous job still running", "source", source.Name, "job", lastJob.ID)
				continue
			}
			due := lastJob.CreatedAt.Add(time.Duration(source.Settings.HarvestInterval) * time.Second)
			if time.Now().UTC().Before(due) {
				slog.Debug("Source not due for harvest yet", "source", source.Name, "due", due)
				continue
			}
		}

		if err := s.EnqueueHarvest(source.Name); err != nil {
			slog.Warn("Failed to enqueue harvest", "source", source.Name, "error", err)
		}
	}
}

// finalizeJob closes the job once no object remains in a non-terminal
// state. Safe to call after every terminal object transition.
func (s *Scheduler) finalizeJob(jobID string) {
	active, err := s.objectRepo.CountActive(jobID)
	if err != nil {
		slog.Error("Failed to count active objects", "job", jobID, "error", err)
		return
	}
	if active > 0 {
		return
	}

	if err := s.jobRepo.MarkFinished(jobID, database.JobStatusFinished); err != nil {
		slog.Error("Failed to finish job", "job", jobID, "error", err)
		return
	}
	slog.Info("Job finished", "job", jobID)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
