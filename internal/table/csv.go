package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// missingMarkers are the raw CSV values treated as missing on read.
var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"null": {},
	"NULL": {},
}

// ReadCSV parses CSV data into a table. The first record is the header.
// Column dtypes are inferred from the non-missing values: int if every
// value parses as an integer, float if every value parses as a number,
// bool if every value is true/false, otherwise string.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = false

	header, err := cr.Read()
	if err == io.EOF {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	raw := make([][]string, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		for i := range header {
			raw[i] = append(raw[i], record[i])
		}
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		cells := make([]Cell, len(raw[i]))
		for row, v := range raw[i] {
			if _, miss := missingMarkers[v]; miss {
				cells[row] = Cell{Null: true}
			} else {
				cells[row] = Cell{Value: v}
			}
		}
		cols[i] = Column{Name: name, Type: inferDType(cells), Cells: cells}
	}

	return New(cols)
}

// ReadCSVBytes parses CSV content held in memory.
func ReadCSVBytes(data []byte) (*Table, error) {
	return ReadCSV(bytes.NewReader(data))
}

// WriteCSV serializes the table as CSV with a header row. Missing values
// are written as empty fields.
func WriteCSV(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, t.NumColumns())
	for row := 0; row < t.NumRows(); row++ {
		for i := 0; i < t.NumColumns(); i++ {
			cell := t.ColumnAt(i).Cells[row]
			if cell.Null {
				record[i] = ""
			} else {
				record[i] = cell.Value
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVBytes serializes the table to a byte slice.
func WriteCSVBytes(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(t, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inferDType picks the narrowest dtype that fits all non-missing cells.
// Columns with no observed values default to string.
func inferDType(cells []Cell) DType {
	seen := false
	isInt, isFloat, isBool := true, true, true
	for _, c := range cells {
		if c.Null {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(c.Value, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(c.Value) {
			case "true", "false":
			default:
				isBool = false
			}
		}
	}
	if !seen {
		return DTypeString
	}
	switch {
	case isInt:
		return DTypeInt
	case isFloat:
		return DTypeFloat
	case isBool:
		return DTypeBool
	default:
		return DTypeString
	}
}
