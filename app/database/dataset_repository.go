package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/oai-harvest/app/normalize"
)

// DatasetRepositoryImpl handles database operations for normalized datasets
type DatasetRepositoryImpl struct {
	db *DB
}

func NewDatasetRepository(db *DB) *DatasetRepositoryImpl {
	return &DatasetRepositoryImpl{db: db}
}

// Upsert persists a normalized draft. The dataset row and its tags and
// extras are replaced wholesale; resources belonging to earlier imports
// of the same record are kept but marked deleted.
func (r *DatasetRepositoryImpl) Upsert(draft *normalize.Draft, sourceURL string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	_, err = tx.Exec(`
		INSERT INTO datasets (id, title, language, license_id, maintainer_email, notes, version, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			language = excluded.language,
			license_id = excluded.license_id,
			maintainer_email = excluded.maintainer_email,
			notes = excluded.notes,
			version = excluded.version,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at
	`, draft.ID, draft.Title, draft.Language, draft.LicenseID,
		draft.MaintainerEmail, draft.Notes, draft.Version, sourceURL, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert dataset %s: %w", draft.ID, err)
	}

	if _, err = tx.Exec(`DELETE FROM dataset_tags WHERE dataset_id = ?`, draft.ID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range draft.Tags {
		if _, err = tx.Exec(`
			INSERT INTO dataset_tags (dataset_id, tag) VALUES (?, ?)
		`, draft.ID, tag); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", tag, err)
		}
	}

	if _, err = tx.Exec(`DELETE FROM dataset_extras WHERE dataset_id = ?`, draft.ID); err != nil {
		return fmt.Errorf("failed to clear extras: %w", err)
	}
	for i, extra := range draft.Extras {
		if _, err = tx.Exec(`
			INSERT INTO dataset_extras (dataset_id, key, value, position) VALUES (?, ?, ?, ?)
		`, draft.ID, extra.Key, extra.Value, i); err != nil {
			return fmt.Errorf("failed to insert extra %q: %w", extra.Key, err)
		}
	}

	if _, err = tx.Exec(`
		UPDATE dataset_resources SET state = 'deleted' WHERE dataset_id = ? AND state = 'active'
	`, draft.ID); err != nil {
		return fmt.Errorf("failed to retire resources: %w", err)
	}
	for _, res := range draft.Resources {
		if _, err = tx.Exec(`
			INSERT INTO dataset_resources (id, dataset_id, url, name, format, size, hash, extra, state, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'active', ?)
		`, uuid.NewString(), draft.ID, res.URL, res.Name, res.Format,
			res.Size, res.Hash, res.Extra, now); err != nil {
			return fmt.Errorf("failed to insert resource %s: %w", res.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset %s: %w", draft.ID, err)
	}
	return nil
}

func (r *DatasetRepositoryImpl) Get(id string) (*Dataset, error) {
	var ds Dataset
	err := r.db.QueryRow(`
		SELECT id, title, language, license_id, maintainer_email, notes, version, source_url, created_at, updated_at
		FROM datasets WHERE id = ?
	`, id).Scan(
		&ds.ID, &ds.Title, &ds.Language, &ds.LicenseID, &ds.MaintainerEmail,
		&ds.Notes, &ds.Version, &ds.SourceURL, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	if ds.Tags, err = r.getTags(id); err != nil {
		return nil, err
	}
	if ds.Extras, err = r.getExtras(id); err != nil {
		return nil, err
	}
	if ds.Resources, err = r.getResources(id); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (r *DatasetRepositoryImpl) getTags(datasetID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT tag FROM dataset_tags WHERE dataset_id = ? ORDER BY rowid
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *DatasetRepositoryImpl) getExtras(datasetID string) ([]DatasetExtra, error) {
	rows, err := r.db.Query(`
		SELECT key, value FROM dataset_extras WHERE dataset_id = ? ORDER BY position
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get extras: %w", err)
	}
	defer rows.Close()

	var extras []DatasetExtra
	for rows.Next() {
		var extra DatasetExtra
		if err := rows.Scan(&extra.Key, &extra.Value); err != nil {
			return nil, fmt.Errorf("failed to scan extra: %w", err)
		}
		extras = append(extras, extra)
	}
	return extras, rows.Err()
}

func (r *DatasetRepositoryImpl) getResources(datasetID string) ([]DatasetResource, error) {
	rows, err := r.db.Query(`
		SELECT id, url, name, format, size, hash, extra, state
		FROM dataset_resources WHERE dataset_id = ? ORDER BY created_at, id
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	defer rows.Close()

	var resources []DatasetResource
	for rows.Next() {
		var res DatasetResource
		if err := rows.Scan(&res.ID, &res.URL, &res.Name, &res.Format,
			&res.Size, &res.Hash, &res.Extra, &res.State); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

func (r *DatasetRepositoryImpl) GetDatasetCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM datasets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count datasets: %w", err)
	}
	return count, nil
}
