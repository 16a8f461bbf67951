package version

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prepflow-labs/prepflow/pkg/core"
)

// cleanupDeleteWorkers bounds concurrent blob deletions during cleanup.
const cleanupDeleteWorkers = 4

// Service maintains the version graph for datasets. Every mutating method
// either creates exactly one new DatasetVersion plus at most one
// TransformationLineage, or returns an existing version (deduplication).
type Service struct {
	store  core.Store
	blobs  core.BlobStore
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a versioning service. A nil logger discards output.
func NewService(store core.Store, blobs core.BlobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// blobPath builds the storage path for a version's content.
func blobPath(userID, datasetID string, versionNumber int, fileName string) string {
	return path.Join("datasets", userID, datasetID, fmt.Sprintf("v%d", versionNumber), fileName)
}

// CreateBaseVersion mints version 1 of a dataset from the uploaded bytes.
// Fails with core.ErrBaseVersionExists if the dataset already has a base
// version; there is at most one, ever.
func (s *Service) CreateBaseVersion(ctx context.Context, meta *core.DatasetMeta, content []byte, userID, description string) (*core.DatasetVersion, error) {
	existing, err := s.store.FindBaseVersion(meta.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for base version: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("dataset %s: %w", meta.DatasetID, core.ErrBaseVersionExists)
	}

	filePath := blobPath(userID, meta.DatasetID, 1, meta.FileName)
	location, err := s.blobs.Put(filePath, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store base version content: %w", err)
	}

	v := &core.DatasetVersion{
		VersionID:     s.newID(),
		DatasetID:     meta.DatasetID,
		VersionNumber: 1,
		ContentHash:   ComputeContentHash(content),
		SchemaHash:    ComputeSchemaHash(meta.Columns, meta.Schema),
		FileSize:      int64(len(content)),
		FilePath:      location,
		NumRows:       meta.NumRows,
		NumColumns:    meta.NumColumns,
		Columns:       meta.Columns,
		IsBaseVersion: true,
		CreatedBy:     userID,
		Description:   description,
		CreatedAt:     s.now(),
	}
	if err := s.store.InsertVersion(v); err != nil {
		return nil, fmt.Errorf("failed to persist base version: %w", err)
	}

	s.logger.Info("base version created",
		"dataset_id", meta.DatasetID, "version_id", v.VersionID, "rows", v.NumRows)
	return v, nil
}

// CreateTransformationVersion mints a derived version from transformed
// bytes. When content with an identical hash already exists for the
// dataset, the existing version is reused and no new version is created,
// but a new lineage edge is still recorded so the graph remembers that
// this transformation path was taken.
func (s *Service) CreateTransformationVersion(ctx context.Context, parentVersionID string, content []byte, steps []core.LineageStep, meta *core.DatasetMeta, userID, description string) (*core.DatasetVersion, *core.TransformationLineage, error) {
	parent, err := s.store.GetVersionByID(parentVersionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load parent version: %w", err)
	}
	if parent == nil {
		return nil, nil, fmt.Errorf("parent version %s: %w", parentVersionID, core.ErrVersionNotFound)
	}

	contentHash := ComputeContentHash(content)

	existing, err := s.store.FindVersionByContentHash(parent.DatasetID, contentHash)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check for duplicate content: %w", err)
	}
	if existing != nil {
		// Identical bytes already versioned: reuse the version, still
		// record the lineage edge.
		lineage := s.buildLineage(parent, existing, steps)
		if err := s.store.InsertLineage(lineage); err != nil {
			return nil, nil, fmt.Errorf("failed to persist lineage: %w", err)
		}
		s.logger.Info("transformation produced existing content, version reused",
			"dataset_id", parent.DatasetID, "version_id", existing.VersionID, "lineage_id", lineage.LineageID)
		return existing, lineage, nil
	}

	maxNumber, err := s.store.MaxVersionNumber(parent.DatasetID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to determine next version number: %w", err)
	}
	number := maxNumber + 1

	filePath := blobPath(userID, parent.DatasetID, number, meta.FileName)
	location, err := s.blobs.Put(filePath, content)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store version content: %w", err)
	}

	v := &core.DatasetVersion{
		VersionID:       s.newID(),
		DatasetID:       parent.DatasetID,
		VersionNumber:   number,
		ContentHash:     contentHash,
		SchemaHash:      ComputeSchemaHash(meta.Columns, meta.Schema),
		FileSize:        int64(len(content)),
		FilePath:        location,
		NumRows:         meta.NumRows,
		NumColumns:      meta.NumColumns,
		Columns:         meta.Columns,
		ParentVersionID: parent.VersionID,
		CreatedBy:       userID,
		Description:     description,
		CreatedAt:       s.now(),
	}

	lineage := s.buildLineage(parent, v, steps)
	v.TransformationLineageID = lineage.LineageID

	if err := s.store.InsertVersion(v); err != nil {
		return nil, nil, fmt.Errorf("failed to persist version: %w", err)
	}
	if err := s.store.InsertLineage(lineage); err != nil {
		return nil, nil, fmt.Errorf("failed to persist lineage: %w", err)
	}

	s.logger.Info("transformation version created",
		"dataset_id", parent.DatasetID,
		"version_id", v.VersionID,
		"version_number", v.VersionNumber,
		"data_loss_pct", lineage.DataLossPercentage)
	return v, lineage, nil
}

// buildLineage assembles the lineage edge between parent and child,
// summing step execution times and completing the record.
func (s *Service) buildLineage(parent, child *core.DatasetVersion, steps []core.LineageStep) *core.TransformationLineage {
	l := &core.TransformationLineage{
		LineageID:       s.newID(),
		DatasetID:       parent.DatasetID,
		ParentVersionID: parent.VersionID,
		ChildVersionID:  child.VersionID,
		Steps:           steps,
		RowsBefore:      parent.NumRows,
		RowsAfter:       child.NumRows,
		ColumnsBefore:   parent.NumColumns,
		ColumnsAfter:    child.NumColumns,
		IsReproducible:  true,
		CreatedAt:       s.now(),
	}
	for _, step := range steps {
		l.TotalExecutionMS += step.ExecutionMS
	}
	l.MarkCompleted()
	return l
}

// GetVersion fetches a version by id, returning nil when absent. With
// markAccessed the access counter and timestamp are updated and persisted.
func (s *Service) GetVersion(ctx context.Context, versionID string, markAccessed bool) (*core.DatasetVersion, error) {
	v, err := s.store.GetVersionByID(versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	if markAccessed {
		at := s.now()
		if err := s.store.TouchVersionAccess(v.VersionID, at); err != nil {
			return nil, fmt.Errorf("failed to record version access: %w", err)
		}
		v.AccessCount++
		v.LastAccessedAt = &at
	}
	return v, nil
}

// GetVersionContent resolves the version (marking it accessed) and
// fetches its bytes from the blob store.
func (s *Service) GetVersionContent(ctx context.Context, versionID string) ([]byte, error) {
	v, err := s.GetVersion(ctx, versionID, true)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("version %s: %w", versionID, core.ErrVersionNotFound)
	}
	content, err := s.blobs.Get(v.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch version content: %w", err)
	}
	return content, nil
}

// ListVersions returns a dataset's versions, most recent version number
// first, with optional owner filtering and pagination.
func (s *Service) ListVersions(ctx context.Context, datasetID, userID string, limit, skip int) ([]*core.DatasetVersion, error) {
	versions, err := s.store.ListVersions(datasetID, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

// GetLineageChain walks parent pointers from the given version back to
// the base version, returning the lineage edges in chronological order
// (oldest transformation first).
func (s *Service) GetLineageChain(ctx context.Context, versionID string) ([]*core.TransformationLineage, error) {
	v, err := s.store.GetVersionByID(versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("version %s: %w", versionID, core.ErrVersionNotFound)
	}

	var chain []*core.TransformationLineage
	for v != nil && v.TransformationLineageID != "" {
		l, err := s.store.GetLineageByID(v.TransformationLineageID)
		if err != nil {
			return nil, fmt.Errorf("failed to get lineage: %w", err)
		}
		if l == nil {
			break
		}
		// Prepend: the walk is backward, the output is chronological.
		chain = append([]*core.TransformationLineage{l}, chain...)

		if v.ParentVersionID == "" {
			break
		}
		v, err = s.store.GetVersionByID(v.ParentVersionID)
		if err != nil {
			return nil, fmt.Errorf("failed to walk parent version: %w", err)
		}
	}
	return chain, nil
}

// PinVersion exempts a version from retention cleanup.
func (s *Service) PinVersion(ctx context.Context, versionID string) error {
	return s.setPinned(versionID, true)
}

// UnpinVersion removes the cleanup exemption.
func (s *Service) UnpinVersion(ctx context.Context, versionID string) error {
	return s.setPinned(versionID, false)
}

func (s *Service) setPinned(versionID string, pinned bool) error {
	v, err := s.store.GetVersionByID(versionID)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if v == nil {
		return fmt.Errorf("version %s: %w", versionID, core.ErrVersionNotFound)
	}
	v.IsPinned = pinned
	if err := s.store.SaveVersion(v); err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}
	return nil
}

// CleanupOldVersions deletes versions past the retention window. A
// version survives if it is pinned, is the base version, is among the
// keepCount most recent, was created after the retention cutoff, or is
// referenced by training jobs. Blob deletion failures are logged and
// tolerated; the document is removed regardless. Returns the number of
// versions deleted.
func (s *Service) CleanupOldVersions(ctx context.Context, datasetID string, retentionDays, keepCount int) (int, error) {
	versions, err := s.store.ListVersions(datasetID, "", 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list versions: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	var doomed []*core.DatasetVersion
	for i, v := range versions {
		switch {
		case v.IsPinned:
		case v.IsBaseVersion:
		case i < keepCount: // versions are sorted newest first
		case v.CreatedAt.After(cutoff):
		case len(v.UsedInTraining) > 0:
		default:
			doomed = append(doomed, v)
		}
	}

	// Blob deletes are best-effort and concurrent; failures never abort
	// the cleanup.
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(cleanupDeleteWorkers)
	for _, v := range doomed {
		g.Go(func() error {
			if err := s.blobs.Delete(v.FilePath); err != nil {
				s.logger.Warn("failed to delete version blob",
					"version_id", v.VersionID, "path", v.FilePath, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	deleted := 0
	for _, v := range doomed {
		if err := s.store.DeleteLineageByChild(v.VersionID); err != nil {
			s.logger.Warn("failed to delete lineage for version", "version_id", v.VersionID, "error", err)
		}
		if err := s.store.DeleteVersion(v.VersionID); err != nil {
			s.logger.Warn("failed to delete version document", "version_id", v.VersionID, "error", err)
			continue
		}
		deleted++
	}

	s.logger.Info("cleanup completed", "dataset_id", datasetID, "deleted", deleted)
	return deleted, nil
}
