package database

import (
	"time"
)

// Lifecycle states of a HarvestObject. Transitions only move forward:
// pending → fetched → imported, with errored reachable from pending and
// fetched. No state is revisited within a job; a retry is a future job
// re-discovering the same guid.
const (
	ObjectStatePending  = "pending"
	ObjectStateFetched  = "fetched"
	ObjectStateImported = "imported"
	ObjectStateErrored  = "errored"
)

// Job status values.
const (
	JobStatusNew      = "new"
	JobStatusRunning  = "running"
	JobStatusFinished = "finished"
	JobStatusErrored  = "errored"
)

// Pipeline stages recorded on harvest errors.
const (
	StageGather = "gather"
	StageFetch  = "fetch"
	StageImport = "import"
)

// HarvestJob is one run against one source. Jobs are never deleted, only
// superseded by later jobs for the same source.
type HarvestJob struct {
	ID               string
	SourceName       string
	SourceURL        string
	MetadataPrefix   string
	Status           string
	GatherStartedAt  *time.Time
	GatherFinishedAt *time.Time
	FinishedAt       *time.Time // set only after all objects reach a terminal state
	CreatedAt        time.Time
}

// HarvestObject is one remote record, identified by its OAI-PMH
// identifier. Objects persist independently of their job for audit.
type HarvestObject struct {
	ID        string
	JobID     string
	GUID      string
	State     string
	Content   *string // raw metadata payload, nil until fetched
	DatasetID *string // persisted record id, nil until imported
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HarvestError is one recorded job- or object-level error.
type HarvestError struct {
	ID        int64
	JobID     string
	ObjectID  *string // nil for job-level (gather) errors
	Stage     string
	Message   string
	CreatedAt time.Time
}

// PreviousJobSummary describes the newest prior job of a source whose
// gather phase completed. Passed to the Coordinator as an explicit input
// instead of ambient state.
type PreviousJobSummary struct {
	GatherFinishedAt time.Time
	GatherErrors     int
	ObjectCount      int
}

// Clean reports whether the prior run qualifies as a baseline for an
// incremental resync.
func (s *PreviousJobSummary) Clean() bool {
	return s != nil && s.GatherErrors == 0 && s.ObjectCount > 0
}

// Dataset is a persisted normalized record.
type Dataset struct {
	ID              string
	Title           string
	Language        string
	LicenseID       string
	MaintainerEmail string
	Notes           string
	Version         string
	SourceURL       string
	Tags            []string
	Extras          []DatasetExtra
	Resources       []DatasetResource
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DatasetExtra is one key/value entry of a dataset's extras map.
type DatasetExtra struct {
	Key   string
	Value string
}

// DatasetResource is one stored resource descriptor.
type DatasetResource struct {
	ID     string
	URL    string
	Name   string
	Format string
	Size   string
	Hash   string
	Extra  string
	State  string // active or deleted
}
