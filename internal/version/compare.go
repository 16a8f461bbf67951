package version

import (
	"context"
	"fmt"
	"sort"

	"github.com/prepflow-labs/prepflow/pkg/core"
)

// CompareVersions computes the diff between two versions of the same
// dataset. Content similarity is binary hash equality (100.0 or 0.0),
// not a fuzzy metric. The lineage path is best-effort: it is only found
// when one version is a direct ancestor of the other; siblings and
// unrelated branches yield an empty path.
func (s *Service) CompareVersions(ctx context.Context, v1ID, v2ID string) (*core.VersionComparison, error) {
	v1, err := s.store.GetVersionByID(v1ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if v1 == nil {
		return nil, fmt.Errorf("version %s: %w", v1ID, core.ErrVersionNotFound)
	}
	v2, err := s.store.GetVersionByID(v2ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if v2 == nil {
		return nil, fmt.Errorf("version %s: %w", v2ID, core.ErrVersionNotFound)
	}
	if v1.DatasetID != v2.DatasetID {
		return nil, core.ErrDatasetMismatch
	}

	cmp := &core.VersionComparison{
		Version1ID:     v1.VersionID,
		Version2ID:     v2.VersionID,
		RowsDiff:       v2.NumRows - v1.NumRows,
		ColumnsDiff:    v2.NumColumns - v1.NumColumns,
		ColumnsAdded:   columnDiff(v2.Columns, v1.Columns),
		ColumnsRemoved: columnDiff(v1.Columns, v2.Columns),
	}

	cmp.SchemaIdentical = v1.SchemaHash == v2.SchemaHash && sameColumns(v1.Columns, v2.Columns)
	if v1.ContentHash == v2.ContentHash {
		cmp.ContentSimilarity = 100.0
	}

	path, err := s.lineagePath(ctx, v1, v2)
	if err != nil {
		return nil, err
	}
	cmp.LineagePath = path
	cmp.TransformationCount = len(path)

	return cmp, nil
}

// lineagePath finds the lineage edges between two versions when one's
// chain is a prefix of the other's, the suffix being the path. Anything
// else returns an empty path.
func (s *Service) lineagePath(ctx context.Context, v1, v2 *core.DatasetVersion) ([]string, error) {
	c1, err := s.GetLineageChain(ctx, v1.VersionID)
	if err != nil {
		return nil, err
	}
	c2, err := s.GetLineageChain(ctx, v2.VersionID)
	if err != nil {
		return nil, err
	}

	shorter, longer := c1, c2
	if len(c2) < len(c1) {
		shorter, longer = c2, c1
	}
	for i := range shorter {
		if shorter[i].LineageID != longer[i].LineageID {
			return nil, nil
		}
	}

	path := make([]string, 0, len(longer)-len(shorter))
	for _, l := range longer[len(shorter):] {
		path = append(path, l.LineageID)
	}
	return path, nil
}

// columnDiff returns the names present in a but not in b, sorted.
func columnDiff(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, c := range b {
		inB[c] = struct{}{}
	}
	var diff []string
	for _, c := range a {
		if _, ok := inB[c]; !ok {
			diff = append(diff, c)
		}
	}
	sort.Strings(diff)
	return diff
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
