package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObjectRepositoryImpl handles database operations for harvest objects
type ObjectRepositoryImpl struct {
	db *DB
}

func NewObjectRepository(db *DB) *ObjectRepositoryImpl {
	return &ObjectRepositoryImpl{db: db}
}

func (r *ObjectRepositoryImpl) CreateObject(jobID, guid string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO harvest_objects (id, job_id, guid, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, jobID, guid, ObjectStatePending, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create object for %s: %w", guid, err)
	}
	return id, nil
}

const objectColumns = `id, job_id, guid, state, content, dataset_id, created_at, updated_at`

func scanObject(row interface{ Scan(...any) error }) (*HarvestObject, error) {
	var obj HarvestObject
	err := row.Scan(
		&obj.ID, &obj.JobID, &obj.GUID, &obj.State,
		&obj.Content, &obj.DatasetID, &obj.CreatedAt, &obj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (r *ObjectRepositoryImpl) GetObject(id string) (*HarvestObject, error) {
	obj, err := scanObject(r.db.QueryRow(`
		SELECT `+objectColumns+` FROM harvest_objects WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

func (r *ObjectRepositoryImpl) GetObjectsByJob(jobID string) ([]HarvestObject, error) {
	rows, err := r.db.Query(`
		SELECT `+objectColumns+` FROM harvest_objects WHERE job_id = ? ORDER BY created_at
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get objects: %w", err)
	}
	defer rows.Close()

	var objects []HarvestObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		objects = append(objects, *obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating object rows: %w", err)
	}
	return objects, nil
}

// transition moves an object between states, enforcing forward-only
// transitions at the storage level.
func (r *ObjectRepositoryImpl) transition(id, toState, setClause string, args ...any) error {
	var fromStates []any
	switch toState {
	case ObjectStateFetched:
		fromStates = []any{ObjectStatePending}
	case ObjectStateImported:
		fromStates = []any{ObjectStateFetched}
	case ObjectStateErrored:
		fromStates = []any{ObjectStatePending, ObjectStateFetched}
	default:
		return fmt.Errorf("unknown object state %q", toState)
	}

	query := `UPDATE harvest_objects SET state = ?, updated_at = ?` + setClause + ` WHERE id = ? AND state IN (?`
	for i := 1; i < len(fromStates); i++ {
		query += ", ?"
	}
	query += ")"

	params := append([]any{toState, time.Now().UTC()}, args...)
	params = append(params, id)
	params = append(params, fromStates...)

	result, err := r.db.Exec(query, params...)
	if err != nil {
		return fmt.Errorf("failed to transition object to %s: %w", toState, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transition result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invalid state transition to %s for object %s", toState, id)
	}
	return nil
}

// MarkFetched stores the raw metadata payload and transitions the object
// from pending to fetched.
func (r *ObjectRepositoryImpl) MarkFetched(id, content string) error {
	return r.transition(id, ObjectStateFetched, ", content = ?", content)
}

// MarkImported links the persisted dataset and transitions the object
// from fetched to imported.
func (r *ObjectRepositoryImpl) MarkImported(id, datasetID string) error {
	return r.transition(id, ObjectStateImported, ", dataset_id = ?", datasetID)
}

// MarkErrored transitions the object to its terminal error state.
func (r *ObjectRepositoryImpl) MarkErrored(id string) error {
	return r.transition(id, ObjectStateErrored, "")
}

// AddError records an object-level error.
func (r *ObjectRepositoryImpl) AddError(jobID, objectID, stage, message string) error {
	_, err := r.db.Exec(`
		INSERT INTO harvest_errors (job_id, object_id, stage, message) VALUES (?, ?, ?, ?)
	`, jobID, objectID, stage, message)
	if err != nil {
		return fmt.Errorf("failed to record object error: %w", err)
	}
	return nil
}

// CountActive returns the number of objects of a job that have not yet
// reached a terminal state.
func (r *ObjectRepositoryImpl) CountActive(jobID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM harvest_objects
		WHERE job_id = ? AND state IN (?, ?)
	`, jobID, ObjectStatePending, ObjectStateFetched).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active objects: %w", err)
	}
	return count, nil
}

// GetStateCounts returns the number of objects per state across all jobs.
func (r *ObjectRepositoryImpl) GetStateCounts() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT state, COUNT(*) FROM harvest_objects GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count objects by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[state] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating state counts: %w", err)
	}
	return counts, nil
}
