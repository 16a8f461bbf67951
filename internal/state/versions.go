package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prepflow-labs/prepflow/pkg/core"
)

const versionColumns = `version_id, dataset_id, version_number, content_hash, schema_hash,
	file_size, file_path, num_rows, num_columns, columns, parent_version_id,
	transformation_lineage_id, is_base_version, is_pinned, access_count,
	last_accessed_at, used_in_training, created_by, description, created_at`

// InsertVersion persists a new dataset version document.
func (s *SQLiteStore) InsertVersion(v *core.DatasetVersion) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	columnsJSON, err := serializeJSON(v.Columns)
	if err != nil {
		return err
	}
	trainingJSON, err := serializeJSON(v.UsedInTraining)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO dataset_versions (`+versionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, v.DatasetID, v.VersionNumber, v.ContentHash, v.SchemaHash,
		v.FileSize, v.FilePath, v.NumRows, v.NumColumns, columnsJSON,
		nullableString(v.ParentVersionID), nullableString(v.TransformationLineageID),
		boolToInt(v.IsBaseVersion), boolToInt(v.IsPinned), v.AccessCount,
		v.LastAccessedAt, trainingJSON, nullableString(v.CreatedBy),
		nullableString(v.Description), v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

// SaveVersion updates an existing version document.
func (s *SQLiteStore) SaveVersion(v *core.DatasetVersion) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	columnsJSON, err := serializeJSON(v.Columns)
	if err != nil {
		return err
	}
	trainingJSON, err := serializeJSON(v.UsedInTraining)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(
		`UPDATE dataset_versions SET
			content_hash = ?, schema_hash = ?, file_size = ?, file_path = ?,
			num_rows = ?, num_columns = ?, columns = ?,
			transformation_lineage_id = ?, is_pinned = ?, access_count = ?,
			last_accessed_at = ?, used_in_training = ?, description = ?
		 WHERE version_id = ?`,
		v.ContentHash, v.SchemaHash, v.FileSize, v.FilePath,
		v.NumRows, v.NumColumns, columnsJSON,
		nullableString(v.TransformationLineageID), boolToInt(v.IsPinned), v.AccessCount,
		v.LastAccessedAt, trainingJSON, nullableString(v.Description),
		v.VersionID,
	)
	if err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("version not found: %s", v.VersionID)
	}
	return nil
}

// GetVersionByID retrieves a version by id.
// Returns (nil, nil) when the version does not exist.
func (s *SQLiteStore) GetVersionByID(id string) (*core.DatasetVersion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT `+versionColumns+` FROM dataset_versions WHERE version_id = ?`, id)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// FindBaseVersion retrieves the dataset's base version.
// Returns (nil, nil) when the dataset has no base version yet.
func (s *SQLiteStore) FindBaseVersion(datasetID string) (*core.DatasetVersion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT `+versionColumns+` FROM dataset_versions
		 WHERE dataset_id = ? AND is_base_version = 1`, datasetID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find base version: %w", err)
	}
	return v, nil
}

// FindVersionByContentHash retrieves a version of the dataset with
// byte-identical content. Returns (nil, nil) when none exists.
func (s *SQLiteStore) FindVersionByContentHash(datasetID, contentHash string) (*core.DatasetVersion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT `+versionColumns+` FROM dataset_versions
		 WHERE dataset_id = ? AND content_hash = ?
		 ORDER BY version_number LIMIT 1`, datasetID, contentHash)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find version by content hash: %w", err)
	}
	return v, nil
}

// ListVersions retrieves a dataset's versions sorted by version number
// descending, with optional owner filter and pagination. limit <= 0
// returns all.
func (s *SQLiteStore) ListVersions(datasetID, createdBy string, limit, skip int) ([]*core.DatasetVersion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := `SELECT ` + versionColumns + ` FROM dataset_versions WHERE dataset_id = ?`
	args := []any{datasetID}
	if createdBy != "" {
		query += ` AND created_by = ?`
		args = append(args, createdBy)
	}
	query += ` ORDER BY version_number DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, skip)
	} else if skip > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, skip)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*core.DatasetVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// MaxVersionNumber returns the highest version number for a dataset,
// 0 when the dataset has no versions.
func (s *SQLiteStore) MaxVersionNumber(datasetID string) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	var max sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(version_number) FROM dataset_versions WHERE dataset_id = ?`,
		datasetID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max version number: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// TouchVersionAccess increments the access counter and stamps the access
// time.
func (s *SQLiteStore) TouchVersionAccess(id string, at time.Time) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(
		`UPDATE dataset_versions
		 SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE version_id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch version access: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("version not found: %s", id)
	}
	return nil
}

// DeleteVersion removes a version document.
func (s *SQLiteStore) DeleteVersion(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM dataset_versions WHERE version_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("version not found: %s", id)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*core.DatasetVersion, error) {
	v := &core.DatasetVersion{}
	var (
		columnsJSON, trainingJSON              string
		parentID, lineageID, createdBy, descr  sql.NullString
		isBase, isPinned                       int64
		lastAccessedAt                         sql.NullTime
	)

	err := row.Scan(
		&v.VersionID, &v.DatasetID, &v.VersionNumber, &v.ContentHash, &v.SchemaHash,
		&v.FileSize, &v.FilePath, &v.NumRows, &v.NumColumns, &columnsJSON,
		&parentID, &lineageID, &isBase, &isPinned, &v.AccessCount,
		&lastAccessedAt, &trainingJSON, &createdBy, &descr, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := deserializeJSON(columnsJSON, &v.Columns); err != nil {
		return nil, err
	}
	if err := deserializeJSON(trainingJSON, &v.UsedInTraining); err != nil {
		return nil, err
	}
	v.ParentVersionID = parentID.String
	v.TransformationLineageID = lineageID.String
	v.IsBaseVersion = isBase == 1
	v.IsPinned = isPinned == 1
	v.CreatedBy = createdBy.String
	v.Description = descr.String
	if lastAccessedAt.Valid {
		v.LastAccessedAt = &lastAccessedAt.Time
	}
	return v, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
