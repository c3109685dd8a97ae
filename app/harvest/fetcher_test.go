package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

type fakeArchive struct {
	entries map[string]string
	putErr  error
}

func (a *fakeArchive) Put(name, content string) error {
	if a.putErr != nil {
		return a.putErr
	}
	if a.entries == nil {
		a.entries = make(map[string]string)
	}
	a.entries[name] = content
	return nil
}

func TestFetchStoresContent(t *testing.T) {
	client := &fakeClient{
		records: map[string]*oaipmh.RawRecord{
			"oai:arxiv.org:1": {Metadata: "<oai_dc:dc/>"},
		},
	}
	objects := newFakeObjectRepo()
	id, _ := objects.CreateObject("job-1", "oai:arxiv.org:1")
	archive := &fakeArchive{}
	fetcher := NewFetcher(client, objects, archive)

	obj, _ := objects.GetObject(id)
	if err := fetcher.Fetch(context.Background(), testJob(), obj); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	obj, _ = objects.GetObject(id)
	if obj.State != database.ObjectStateFetched {
		t.Errorf("Expected state %q, got: %q", database.ObjectStateFetched, obj.State)
	}
	if obj.Content == nil || *obj.Content != "<oai_dc:dc/>" {
		t.Error("Expected raw content to be stored")
	}
	if archive.entries["oai:arxiv.org:1"] != "<oai_dc:dc/>" {
		t.Error("Expected record to be archived")
	}
}

func TestFetchFailureErrorsObject(t *testing.T) {
	client := &fakeClient{getErr: errors.New("connection refused")}
	objects := newFakeObjectRepo()
	id, _ := objects.CreateObject("job-1", "oai:arxiv.org:1")
	fetcher := NewFetcher(client, objects, nil)

	obj, _ := objects.GetObject(id)
	err := fetcher.Fetch(context.Background(), testJob(), obj)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("Expected ErrFetch, got: %v", err)
	}

	obj, _ = objects.GetObject(id)
	if obj.State != database.ObjectStateErrored {
		t.Errorf("Expected state %q, got: %q", database.ObjectStateErrored, obj.State)
	}
	if len(objects.errors) != 1 || objects.errors[0].Stage != database.StageFetch {
		t.Errorf("Expected one fetch error, got: %v", objects.errors)
	}
}

func TestFetchDeletedRecordErrors(t *testing.T) {
	client := &fakeClient{
		records: map[string]*oaipmh.RawRecord{
			"oai:arxiv.org:1": {
				Header:   oaipmh.Header{Identifier: "oai:arxiv.org:1", Status: "deleted"},
				Metadata: "",
			},
		},
	}
	objects := newFakeObjectRepo()
	id, _ := objects.CreateObject("job-1", "oai:arxiv.org:1")
	fetcher := NewFetcher(client, objects, nil)

	obj, _ := objects.GetObject(id)
	if err := fetcher.Fetch(context.Background(), testJob(), obj); !errors.Is(err, ErrFetch) {
		t.Errorf("Expected ErrFetch, got: %v", err)
	}
}

func TestFetchNilObject(t *testing.T) {
	client := &fakeClient{}
	fetcher := NewFetcher(client, newFakeObjectRepo(), nil)

	err := fetcher.Fetch(context.Background(), testJob(), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got: %v", err)
	}
	if client.getCalls != 0 {
		t.Errorf("Expected no network calls, got: %d", client.getCalls)
	}
}

func TestFetchArchiveFailureIsNotFatal(t *testing.T) {
	client := &fakeClient{
		records: map[string]*oaipmh.RawRecord{
			"oai:arxiv.org:1": {Metadata: "<oai_dc:dc/>"},
		},
	}
	objects := newFakeObjectRepo()
	id, _ := objects.CreateObject("job-1", "oai:arxiv.org:1")
	archive := &fakeArchive{putErr: errors.New("disk full")}
	fetcher := NewFetcher(client, objects, archive)

	obj, _ := objects.GetObject(id)
	if err := fetcher.Fetch(context.Background(), testJob(), obj); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	obj, _ = objects.GetObject(id)
	if obj.State != database.ObjectStateFetched {
		t.Errorf("Expected state %q, got: %q", database.ObjectStateFetched, obj.State)
	}
}
