package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV reads a header-first CSV stream into a table. Header names are
// trimmed and must be unique. Short rows are padded with nulls; cells go
// through ParseCell so null tokens and numbers arrive typed.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	seen := map[string]bool{}
	for i, c := range header {
		name := strings.TrimSpace(c)
		if name == "" {
			return nil, fmt.Errorf("empty column name at position %d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		cols[i] = name
	}

	t := New(cols...)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) > len(cols) {
			return nil, fmt.Errorf("row %d has %d fields, want at most %d", line, len(rec), len(cols))
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				row[c] = ParseCell(rec[i])
			}
		}
		t.AppendRow(row)
	}
	return t, nil
}

// WriteCSV writes the table with a header row. Null cells become empty
// fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.cols))
	for _, r := range t.rows {
		for i, c := range t.cols {
			rec[i] = csvCell(r[c])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
