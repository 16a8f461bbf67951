package core

import "time"

// ValidationStatus describes the outcome of lineage validation.
type ValidationStatus string

// Validation status constants.
const (
	ValidationStatusNone   ValidationStatus = ""
	ValidationStatusPassed ValidationStatus = "passed"
	ValidationStatusFailed ValidationStatus = "failed"
)

// DatasetVersion is an immutable snapshot of a dataset's content and metadata.
// The raw file bytes live in the blob store at FilePath; the version only
// references them.
type DatasetVersion struct {
	VersionID     string
	DatasetID     string
	VersionNumber int

	// ContentHash is the SHA-256 of the file bytes, used for deduplication.
	ContentHash string
	// SchemaHash is an order-independent digest of column name/dtype pairs.
	SchemaHash string

	FileSize   int64
	FilePath   string
	NumRows    int
	NumColumns int
	Columns    []string

	// ParentVersionID is empty for the base version.
	ParentVersionID string
	// TransformationLineageID is empty unless this version was produced
	// by a transformation.
	TransformationLineageID string

	IsBaseVersion bool
	IsPinned      bool

	AccessCount    int64
	LastAccessedAt *time.Time

	// UsedInTraining holds training job IDs; a non-empty list protects
	// the version from retention cleanup.
	UsedInTraining []string

	CreatedBy   string
	Description string
	CreatedAt   time.Time
}

// LineageStep records one transformation applied on the path between two
// versions.
type LineageStep struct {
	StepType        string
	Parameters      map[string]any
	AffectedColumns []string
	RowsAffected    int
	ExecutionMS     int64
}

// TransformationLineage is a directed edge in the version graph describing
// how a child version was produced from its parent.
type TransformationLineage struct {
	LineageID       string
	DatasetID       string
	ParentVersionID string
	ChildVersionID  string

	Steps []LineageStep

	RowsBefore    int
	RowsAfter     int
	ColumnsBefore int
	ColumnsAfter  int

	DataLossPercentage float64
	TotalExecutionMS   int64

	IsReproducible   bool
	IsValidated      bool
	ValidationStatus ValidationStatus
	ValidationErrors []string

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// CalculateDataLoss returns the percentage of rows removed relative to
// RowsBefore. Returns 0 when RowsBefore is 0.
func (l *TransformationLineage) CalculateDataLoss() float64 {
	if l.RowsBefore == 0 {
		return 0
	}
	return float64(l.RowsBefore-l.RowsAfter) / float64(l.RowsBefore) * 100
}

// MarkCompleted sets CompletedAt and recomputes DataLossPercentage.
func (l *TransformationLineage) MarkCompleted() {
	now := time.Now().UTC()
	l.CompletedAt = &now
	l.DataLossPercentage = l.CalculateDataLoss()
}

// MarkValidationPassed records a successful validation.
func (l *TransformationLineage) MarkValidationPassed() {
	l.IsValidated = true
	l.ValidationStatus = ValidationStatusPassed
	l.ValidationErrors = nil
}

// MarkValidationFailed records validation errors and transitions the
// lineage to the failed state.
func (l *TransformationLineage) MarkValidationFailed(errs []string) {
	l.IsValidated = true
	l.ValidationStatus = ValidationStatusFailed
	l.ValidationErrors = errs
}

// VersionComparison is the computed diff between two versions of the same
// dataset. It is never persisted.
type VersionComparison struct {
	Version1ID string
	Version2ID string

	RowsDiff       int
	ColumnsDiff    int
	ColumnsAdded   []string
	ColumnsRemoved []string

	SchemaIdentical bool

	// ContentSimilarity is hash-based: 100.0 when the content hashes
	// match, 0.0 otherwise. It is not a fuzzy metric.
	ContentSimilarity float64

	// LineagePath holds the lineage IDs connecting the two versions when
	// one is an ancestor of the other, oldest first. Empty for siblings
	// or unrelated branches.
	LineagePath         []string
	TransformationCount int
}

// DatasetMeta carries the upstream-provided metadata for the in-memory
// table being versioned. The versioning service reads these fields; it
// does not compute them.
type DatasetMeta struct {
	DatasetID  string
	FileName   string
	NumRows    int
	NumColumns int
	Columns    []string

	// Schema maps column name to inferred dtype.
	Schema map[string]string
}
