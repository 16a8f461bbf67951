package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/prepflow-labs/prepflow/pkg/core"
)

const lineageColumns = `lineage_id, dataset_id, parent_version_id, child_version_id, steps,
	rows_before, rows_after, columns_before, columns_after, data_loss_percentage,
	total_execution_ms, is_reproducible, is_validated, validation_status,
	validation_errors, created_at, completed_at`

// InsertLineage persists a new lineage edge.
func (s *SQLiteStore) InsertLineage(l *core.TransformationLineage) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	stepsJSON, err := serializeJSON(l.Steps)
	if err != nil {
		return err
	}
	errorsJSON, err := serializeJSON(l.ValidationErrors)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO transformation_lineage (`+lineageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.LineageID, l.DatasetID, l.ParentVersionID, l.ChildVersionID, stepsJSON,
		l.RowsBefore, l.RowsAfter, l.ColumnsBefore, l.ColumnsAfter, l.DataLossPercentage,
		l.TotalExecutionMS, boolToInt(l.IsReproducible), boolToInt(l.IsValidated),
		nullableString(string(l.ValidationStatus)), errorsJSON, l.CreatedAt, l.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lineage: %w", err)
	}
	return nil
}

// GetLineageByID retrieves a lineage edge by id.
// Returns (nil, nil) when it does not exist.
func (s *SQLiteStore) GetLineageByID(id string) (*core.TransformationLineage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT `+lineageColumns+` FROM transformation_lineage WHERE lineage_id = ?`, id)
	l, err := scanLineage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lineage: %w", err)
	}
	return l, nil
}

// GetLineageByChild retrieves every lineage edge pointing at a child
// version. Deduplicated transformation paths can produce several.
func (s *SQLiteStore) GetLineageByChild(childVersionID string) ([]*core.TransformationLineage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT `+lineageColumns+` FROM transformation_lineage
		 WHERE child_version_id = ? ORDER BY created_at`, childVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lineage by child: %w", err)
	}
	defer rows.Close()

	var lineages []*core.TransformationLineage
	for rows.Next() {
		l, err := scanLineage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lineage: %w", err)
		}
		lineages = append(lineages, l)
	}
	return lineages, rows.Err()
}

// DeleteLineageByChild removes all lineage edges pointing at a child
// version. Deleting zero edges is not an error.
func (s *SQLiteStore) DeleteLineageByChild(childVersionID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`DELETE FROM transformation_lineage WHERE child_version_id = ?`, childVersionID)
	if err != nil {
		return fmt.Errorf("failed to delete lineage: %w", err)
	}
	return nil
}

func scanLineage(row scanner) (*core.TransformationLineage, error) {
	l := &core.TransformationLineage{}
	var (
		stepsJSON, errorsJSON      string
		validationStatus           sql.NullString
		isReproducible, isValidated int64
		completedAt                sql.NullTime
	)

	err := row.Scan(
		&l.LineageID, &l.DatasetID, &l.ParentVersionID, &l.ChildVersionID, &stepsJSON,
		&l.RowsBefore, &l.RowsAfter, &l.ColumnsBefore, &l.ColumnsAfter, &l.DataLossPercentage,
		&l.TotalExecutionMS, &isReproducible, &isValidated, &validationStatus,
		&errorsJSON, &l.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := deserializeJSON(stepsJSON, &l.Steps); err != nil {
		return nil, err
	}
	if err := deserializeJSON(errorsJSON, &l.ValidationErrors); err != nil {
		return nil, err
	}
	l.IsReproducible = isReproducible == 1
	l.IsValidated = isValidated == 1
	l.ValidationStatus = core.ValidationStatus(validationStatus.String)
	if completedAt.Valid {
		l.CompletedAt = &completedAt.Time
	}
	return l, nil
}
