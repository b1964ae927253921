package refdata

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"dlscan/internal"
)

// LoadFile reads a CSV or XLSX reference table. The identifier column is
// always kept as a string; the other columns are typed per column.
func LoadFile(path, idColumn, sheet string) (*Dataset, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, blob, idColumn, sheet)
}

// Parse decodes a table whose format is given by the extension of name.
func Parse(name string, blob []byte, idColumn, sheet string) (*Dataset, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(bytes.NewReader(blob))
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(blob, sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return FromRows(rows, idColumn, name)
}

// FromRows builds a dataset from a header row followed by data rows.
func FromRows(rows [][]string, idColumn, source string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s (empty table)", ErrMissingIdentifierColumn, idColumn)
	}

	header := make([]string, len(rows[0]))
	idIdx := -1
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if header[i] == idColumn && idIdx < 0 {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingIdentifierColumn, idColumn)
	}

	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				cells[i] = strings.TrimSpace(row[i])
			}
		}
		body = append(body, cells)
	}

	columns := make([]internal.Column, len(header))
	for i, name := range header {
		kind := internal.ColumnString
		if i != idIdx {
			kind = inferKind(body, i)
		}
		columns[i] = internal.Column{Name: name, Kind: kind}
	}

	records := make([]internal.ReferenceRecord, 0, len(body))
	for _, cells := range body {
		rec := internal.ReferenceRecord{
			Identifier: cells[idIdx],
			Attributes: make(map[string]any, len(header)-1),
		}
		for i, col := range columns {
			if i == idIdx || col.Name == "" {
				continue
			}
			rec.Attributes[col.Name] = ParseValue(col.Kind, cells[i])
		}
		records = append(records, rec)
	}

	return NewDataset(idColumn, columns, records, source), nil
}

// ParseValue converts a raw cell to the Go value used for kind. Empty numeric
// cells become nil.
func ParseValue(kind internal.ColumnKind, raw string) any {
	switch kind {
	case internal.ColumnInteger:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
		return nil
	case internal.ColumnFloat:
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
		return nil
	default:
		return raw
	}
}

func inferKind(body [][]string, col int) internal.ColumnKind {
	seen := false
	allInt := true
	for _, cells := range body {
		v := cells[col]
		if v == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			continue
		}
		allInt = false
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return internal.ColumnString
		}
	}
	if !seen {
		return internal.ColumnString
	}
	if allInt {
		return internal.ColumnInteger
	}
	return internal.ColumnFloat
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func readXLSX(content []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	return f.GetRows(sheet)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
