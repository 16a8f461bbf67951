package transform

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// Transformation is one self-contained table operation. Implementations
// validate their own parameters at construction; Apply and Preview are
// pure and never mutate the input table.
type Transformation interface {
	Type() Type

	// Apply transforms the full table, returning a new table.
	Apply(t *table.Table) (*table.Table, error)

	// Preview applies the same logic to the first n rows only.
	Preview(t *table.Table, n int) (*table.Table, error)

	// AffectedColumns returns the columns the transformation would touch
	// if applied to t now.
	AffectedColumns(t *table.Table) []string

	// ValidateData checks data-dependent preconditions, distinct from
	// parameter validation. A non-nil error carries the reason.
	ValidateData(t *table.Table) error
}

// ParamError reports a malformed or out-of-range transformation parameter.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// DataError reports a data-dependent precondition failure.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return e.Reason
}

// New constructs the transformation for a step, running parameter
// validation. The type set is closed; an unknown type is rejected here
// and nowhere registers dynamically.
func New(step *Step) (Transformation, error) {
	switch step.Type {
	case TypeRemoveDuplicates:
		return newRemoveDuplicates(step.Columns, step.Parameters)
	case TypeTrimWhitespace:
		return newTrimWhitespace(step.Columns, step.Parameters)
	case TypeDropMissing:
		return newDropMissing(step.Parameters)
	case TypeFillMissing:
		return newFillMissing(step.Columns, step.Parameters)
	case TypeScale:
		return newScale(step.Columns, step.Parameters)
	case TypeEncode:
		return newEncode(step.Columns, step.Parameters)
	case TypeCoerceTypes:
		return newCoerceTypes(step.Parameters)
	default:
		return nil, fmt.Errorf("unknown transformation type: %s", step.Type)
	}
}

// decodeParams decodes an open parameter map into a typed struct.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "param",
	})
	if err != nil {
		return fmt.Errorf("failed to build parameter decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return &ParamError{Field: "parameters", Reason: err.Error()}
	}
	return nil
}

// missingColumns returns the requested column names absent from the table.
func missingColumns(t *table.Table, columns []string) []string {
	var missing []string
	for _, name := range columns {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
