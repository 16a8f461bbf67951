// Package transform implements the transformation engine: a closed set of
// named, parameterized table operations with a validate, preview, apply
// protocol and data-loss safety checks.
package transform

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies a transformation. The set is closed: dispatch is a
// switch over these constants, not a runtime-mutable registry.
type Type string

// Built-in transformation types.
const (
	TypeRemoveDuplicates Type = "remove_duplicates"
	TypeTrimWhitespace   Type = "trim_whitespace"
	TypeDropMissing      Type = "drop_missing"
	TypeFillMissing      Type = "fill_missing"
	TypeScale            Type = "scale"
	TypeEncode           Type = "encode"
	TypeCoerceTypes      Type = "coerce_types"
)

// AllTypes lists every built-in transformation type.
func AllTypes() []Type {
	return []Type{
		TypeRemoveDuplicates,
		TypeTrimWhitespace,
		TypeDropMissing,
		TypeFillMissing,
		TypeScale,
		TypeEncode,
		TypeCoerceTypes,
	}
}

// Valid reports whether t is a known transformation type.
func (t Type) Valid() bool {
	switch t {
	case TypeRemoveDuplicates, TypeTrimWhitespace, TypeDropMissing,
		TypeFillMissing, TypeScale, TypeEncode, TypeCoerceTypes:
		return true
	}
	return false
}

// RequiresColumns reports whether the type needs an explicit column target.
// fill_missing and encode operate on named columns only; the rest default
// to all columns of an applicable dtype.
func (t Type) RequiresColumns() bool {
	return t == TypeFillMissing || t == TypeEncode
}

// Step is the immutable description of one requested operation.
type Step struct {
	ID         string
	Type       Type
	Columns    []string
	Parameters map[string]any

	AppliedAt        time.Time
	IsValid          bool
	ValidationErrors []string

	// Outcome fields, filled after apply.
	RowsAffected       int
	DataLossPercentage float64
}

// NewStep constructs a step, rejecting unknown types and missing column
// targets for types that require one.
func NewStep(typ Type, columns []string, params map[string]any) (*Step, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown transformation type: %s", typ)
	}
	if typ.RequiresColumns() && len(columns) == 0 {
		return nil, fmt.Errorf("transformation %s requires at least one column", typ)
	}
	if params == nil {
		params = map[string]any{}
	}
	return &Step{
		ID:         uuid.New().String(),
		Type:       typ,
		Columns:    columns,
		Parameters: params,
		IsValid:    true,
	}, nil
}
