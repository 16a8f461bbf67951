// Package version implements the content-addressed dataset version graph:
// base and derived versions, transformation lineage edges, comparison,
// pinning, and retention cleanup.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ComputeContentHash returns the SHA-256 hex digest of the raw file bytes.
func ComputeContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ComputeSchemaHash returns a deterministic, order-independent digest of
// the column name/dtype pairs. Shuffling the column list does not change
// the hash.
func ComputeSchemaHash(columns []string, schema map[string]string) string {
	pairs := make([]string, 0, len(columns))
	for _, col := range columns {
		pairs = append(pairs, col+":"+schema[col])
	}
	sort.Strings(pairs)

	sum := sha256.Sum256([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(sum[:])
}
