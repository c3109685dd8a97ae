package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

func testJob() *database.HarvestJob {
	return &database.HarvestJob{
		ID:             "job-1",
		SourceName:     "arxiv",
		SourceURL:      "https://export.arxiv.org/oai2",
		MetadataPrefix: "oai_dc",
		Status:         database.JobStatusNew,
	}
}

func TestGatherCreatesObjects(t *testing.T) {
	client := &fakeClient{
		headers: []oaipmh.Header{
			{Identifier: "oai:arxiv.org:1"},
			{Identifier: "oai:arxiv.org:2"},
			{Identifier: "oai:arxiv.org:3"},
		},
	}
	jobs := &fakeJobRepo{job: *testJob()}
	objects := newFakeObjectRepo()
	coordinator := NewCoordinator(client, jobs, objects)

	ids, err := coordinator.Gather(context.Background(), testJob(), nil)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("Expected 3 object ids, got: %d", len(ids))
	}
	if !jobs.gatherStarted || !jobs.gatherFinished {
		t.Error("Expected gather start and finish to be recorded")
	}
	for _, id := range ids {
		obj, _ := objects.GetObject(id)
		if obj.State != database.ObjectStatePending {
			t.Errorf("Expected pending object, got: %q", obj.State)
		}
	}
}

func TestGatherSkipsDeletedRecords(t *testing.T) {
	client := &fakeClient{
		headers: []oaipmh.Header{
			{Identifier: "oai:arxiv.org:1"},
			{Identifier: "oai:arxiv.org:2", Status: "deleted"},
		},
	}
	jobs := &fakeJobRepo{job: *testJob()}
	coordinator := NewCoordinator(client, jobs, newFakeObjectRepo())

	ids, err := coordinator.Gather(context.Background(), testJob(), nil)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Expected 1 object id, got: %d", len(ids))
	}
}

func TestGatherEndpointError(t *testing.T) {
	client := &fakeClient{listErr: errors.New("connection refused")}
	jobs := &fakeJobRepo{job: *testJob()}
	coordinator := NewCoordinator(client, jobs, newFakeObjectRepo())

	ids, err := coordinator.Gather(context.Background(), testJob(), nil)
	if !errors.Is(err, ErrEndpoint) {
		t.Errorf("Expected ErrEndpoint, got: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no objects, got: %d", len(ids))
	}
	if len(jobs.errors) != 1 || jobs.errors[0].Stage != database.StageGather {
		t.Errorf("Expected one gather error, got: %v", jobs.errors)
	}
}

func TestGatherEmptyResult(t *testing.T) {
	client := &fakeClient{}
	jobs := &fakeJobRepo{job: *testJob()}
	coordinator := NewCoordinator(client, jobs, newFakeObjectRepo())

	_, err := coordinator.Gather(context.Background(), testJob(), nil)
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("Expected ErrEmptyResult, got: %v", err)
	}
	if len(jobs.errors) != 1 {
		t.Fatalf("Expected exactly one job error, got: %d", len(jobs.errors))
	}
	if jobs.errors[0].Message != "no packages received" {
		t.Errorf("Expected 'no packages received', got: %q", jobs.errors[0].Message)
	}
}

func TestGatherPartialCreateFailures(t *testing.T) {
	client := &fakeClient{
		headers: []oaipmh.Header{
			{Identifier: "oai:arxiv.org:1"},
			{Identifier: "oai:arxiv.org:2"},
			{Identifier: "oai:arxiv.org:3"},
		},
	}
	jobs := &fakeJobRepo{job: *testJob()}
	objects := newFakeObjectRepo()
	objects.createErr = map[string]error{"oai:arxiv.org:2": errors.New("constraint violation")}
	coordinator := NewCoordinator(client, jobs, objects)

	ids, err := coordinator.Gather(context.Background(), testJob(), nil)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 object ids, got: %d", len(ids))
	}
	if len(jobs.errors) != 1 {
		t.Errorf("Expected 1 job error for the failed creation, got: %d", len(jobs.errors))
	}
}

func TestGatherWithCleanPreviousJob(t *testing.T) {
	client := &fakeClient{headers: []oaipmh.Header{{Identifier: "oai:arxiv.org:1"}}}
	jobs := &fakeJobRepo{job: *testJob()}
	coordinator := NewCoordinator(client, jobs, newFakeObjectRepo())

	previous := &database.PreviousJobSummary{
		GatherFinishedAt: time.Now().Add(-24 * time.Hour),
		ObjectCount:      10,
	}
	// a clean baseline still yields the full listing
	ids, err := coordinator.Gather(context.Background(), testJob(), previous)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Expected 1 object id, got: %d", len(ids))
	}
}

func TestGatherNilJob(t *testing.T) {
	coordinator := NewCoordinator(&fakeClient{}, &fakeJobRepo{}, newFakeObjectRepo())

	_, err := coordinator.Gather(context.Background(), nil, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got: %v", err)
	}
}
