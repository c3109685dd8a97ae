package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

// fakeClient implements oaipmh.ClientInterface for pipeline tests.
type fakeClient struct {
	headers    []oaipmh.Header
	listErr    error
	records    map[string]*oaipmh.RawRecord
	getErr     error
	getCalls   int
	formats    []oaipmh.MetadataFormat
	formatsErr error
}

var _ oaipmh.ClientInterface = (*fakeClient)(nil)

func (c *fakeClient) Identify(ctx context.Context, endpoint string) (*oaipmh.Identify, error) {
	return &oaipmh.Identify{Name: "fake"}, nil
}

func (c *fakeClient) ListMetadataFormats(ctx context.Context, endpoint string) ([]oaipmh.MetadataFormat, error) {
	if c.formatsErr != nil {
		return nil, c.formatsErr
	}
	return c.formats, nil
}

func (c *fakeClient) ListSets(ctx context.Context, endpoint string) ([]oaipmh.Set, error) {
	return nil, nil
}

func (c *fakeClient) ListIdentifiers(ctx context.Context, endpoint, prefix, from string) ([]oaipmh.Header, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.headers, nil
}

func (c *fakeClient) GetRecord(ctx context.Context, endpoint, identifier, prefix string) (*oaipmh.RawRecord, error) {
	c.getCalls++
	if c.getErr != nil {
		return nil, c.getErr
	}
	record, ok := c.records[identifier]
	if !ok {
		return nil, errors.New("idDoesNotExist")
	}
	return record, nil
}

// fakeJobRepo implements database.JobRepository in memory.
type fakeJobRepo struct {
	job            database.HarvestJob
	errors         []database.HarvestError
	gatherStarted  bool
	gatherFinished bool
}

var _ database.JobRepository = (*fakeJobRepo)(nil)

func (r *fakeJobRepo) CreateJob(sourceName, sourceURL, metadataPrefix string) (*database.HarvestJob, error) {
	return &r.job, nil
}

func (r *fakeJobRepo) GetJob(id string) (*database.HarvestJob, error)       { return &r.job, nil }
func (r *fakeJobRepo) ListJobs(limit int) ([]database.HarvestJob, error)    { return nil, nil }
func (r *fakeJobRepo) GetLastJob(name string) (*database.HarvestJob, error) { return nil, nil }
func (r *fakeJobRepo) GetJobCount() (int, error)                            { return 1, nil }

func (r *fakeJobRepo) GetPreviousJobSummary(sourceName, excludeJobID string) (*database.PreviousJobSummary, error) {
	return nil, nil
}

func (r *fakeJobRepo) MarkGatherStarted(jobID string) error {
	r.gatherStarted = true
	return nil
}

func (r *fakeJobRepo) MarkGatherFinished(jobID string) error {
	r.gatherFinished = true
	return nil
}

func (r *fakeJobRepo) MarkFinished(jobID, status string) error {
	r.job.Status = status
	return nil
}

func (r *fakeJobRepo) AddError(jobID, stage, message string) error {
	r.errors = append(r.errors, database.HarvestError{JobID: jobID, Stage: stage, Message: message})
	return nil
}

func (r *fakeJobRepo) GetErrors(jobID string) ([]database.HarvestError, error) {
	return r.errors, nil
}

// fakeObjectRepo implements database.ObjectRepository in memory.
type fakeObjectRepo struct {
	objects   map[string]*database.HarvestObject
	errors    []database.HarvestError
	createErr map[string]error // guid -> error
	seq       int
}

var _ database.ObjectRepository = (*fakeObjectRepo)(nil)

func newFakeObjectRepo() *fakeObjectRepo {
	return &fakeObjectRepo{objects: make(map[string]*database.HarvestObject)}
}

func (r *fakeObjectRepo) CreateObject(jobID, guid string) (string, error) {
	if err := r.createErr[guid]; err != nil {
		return "", err
	}
	r.seq++
	id := fmt.Sprintf("obj-%d", r.seq)
	r.objects[id] = &database.HarvestObject{
		ID: id, JobID: jobID, GUID: guid, State: database.ObjectStatePending,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return id, nil
}

func (r *fakeObjectRepo) GetObject(id string) (*database.HarvestObject, error) {
	return r.objects[id], nil
}

func (r *fakeObjectRepo) GetObjectsByJob(jobID string) ([]database.HarvestObject, error) {
	var objects []database.HarvestObject
	for _, obj := range r.objects {
		objects = append(objects, *obj)
	}
	return objects, nil
}

func (r *fakeObjectRepo) MarkFetched(id, content string) error {
	obj := r.objects[id]
	if obj == nil || obj.State != database.ObjectStatePending {
		return errors.New("invalid state transition")
	}
	obj.State = database.ObjectStateFetched
	obj.Content = &content
	return nil
}

func (r *fakeObjectRepo) MarkImported(id, datasetID string) error {
	obj := r.objects[id]
	if obj == nil || obj.State != database.ObjectStateFetched {
		return errors.New("invalid state transition")
	}
	obj.State = database.ObjectStateImported
	obj.DatasetID = &datasetID
	return nil
}

func (r *fakeObjectRepo) MarkErrored(id string) error {
	obj := r.objects[id]
	if obj == nil || obj.State == database.ObjectStateImported || obj.State == database.ObjectStateErrored {
		return errors.New("invalid state transition")
	}
	obj.State = database.ObjectStateErrored
	return nil
}

func (r *fakeObjectRepo) AddError(jobID, objectID, stage, message string) error {
	r.errors = append(r.errors, database.HarvestError{
		JobID: jobID, ObjectID: &objectID, Stage: stage, Message: message,
	})
	return nil
}

func (r *fakeObjectRepo) CountActive(jobID string) (int, error) {
	count := 0
	for _, obj := range r.objects {
		if obj.State == database.ObjectStatePending || obj.State == database.ObjectStateFetched {
			count++
		}
	}
	return count, nil
}

func (r *fakeObjectRepo) GetStateCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, obj := range r.objects {
		counts[obj.State]++
	}
	return counts, nil
}
