package tasks

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and the API to manage
// background harvest processing.
// Example usage:
//
//	scheduler := NewScheduler(sourceCache, jobRepo, objectRepo, datasetRepo, coordinator, fetcher, normalizer)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueHarvest("arxiv")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueHarvest(sourceName string) error
}
