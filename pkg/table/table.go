// Package table implements the ordered row/column data model the rest of the
// pipeline operates on: shape normalization for collaborator input, cell
// parsing with a shared null vocabulary, schema inference, and the pure
// transformation operations exposed to synthesized programs.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Row is one record: column name to scalar cell. Cell values are always one
// of nil, int64, float64, bool, or string.
type Row map[string]any

// Table is an ordered sequence of rows over named columns. Column order is
// part of the table identity. Operations never mutate their receiver.
type Table struct {
	cols []string
	rows []Row
}

// New returns an empty table with the given column order.
func New(cols ...string) *Table {
	t := &Table{cols: make([]string, len(cols))}
	copy(t.cols, cols)
	return t
}

// FromParts builds a table from an explicit column order plus records.
// Missing cells become nil; keys outside cols are dropped.
func FromParts(cols []string, rows []Row) *Table {
	t := New(cols...)
	for _, r := range rows {
		t.AppendRow(r)
	}
	return t
}

// FromRecords builds a table from a record sequence. Map iteration order is
// not stable, so columns are ordered alphabetically for determinism; callers
// that know the real order should use FromParts.
func FromRecords(rows []Row) *Table {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return FromParts(cols, rows)
}

// FromRecord builds a single-row table, columns ordered alphabetically.
func FromRecord(row Row) *Table {
	return FromRecords([]Row{row})
}

// FromText wraps free text into a one-row, one-column table so that text
// extractions (PDF, word processor documents) flow through the same pipeline.
func FromText(text string) *Table {
	t := New("raw_text")
	t.AppendRow(Row{"raw_text": text})
	return t
}

// Normalize accepts any collaborator-supplied shape (record sequence, single
// record, raw text, or an existing table) and returns a table.
func Normalize(v any) (*Table, error) {
	switch x := v.(type) {
	case *Table:
		return x.Clone(), nil
	case []Row:
		return FromRecords(x), nil
	case []map[string]any:
		rows := make([]Row, len(x))
		for i, r := range x {
			rows[i] = Row(r)
		}
		return FromRecords(rows), nil
	case Row:
		return FromRecord(x), nil
	case map[string]any:
		return FromRecord(Row(x)), nil
	case string:
		return FromText(x), nil
	default:
		return nil, fmt.Errorf("unsupported input shape %T", v)
	}
}

// AppendRow adds one row, normalized to the table's columns.
func (t *Table) AppendRow(r Row) {
	row := make(Row, len(t.cols))
	for _, c := range t.cols {
		if v, ok := r[c]; ok {
			row[c] = v
		} else {
			row[c] = nil
		}
	}
	t.rows = append(t.rows, row)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether name is a column of the table.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.cols {
		if c == name {
			return true
		}
	}
	return false
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Records returns a deep copy of all rows. Callers may mutate the result
// freely without affecting the table.
func (t *Table) Records() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// At returns a copy of row i.
func (t *Table) At(i int) Row {
	cp := make(Row, len(t.rows[i]))
	for k, v := range t.rows[i] {
		cp[k] = v
	}
	return cp
}

// Head returns a new table with at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	return FromParts(t.cols, t.rows[:n])
}

// Clone returns a deep copy. Synthesized programs always run against a clone
// so a failed execution can never corrupt the caller's table.
func (t *Table) Clone() *Table {
	return FromParts(t.cols, t.rows)
}

// Equal reports deep equality including column order and cell types:
// int64(1) and float64(1) are different cells.
func (t *Table) Equal(o *Table) bool {
	if o == nil || len(t.cols) != len(o.cols) || len(t.rows) != len(o.rows) {
		return false
	}
	for i, c := range t.cols {
		if o.cols[i] != c {
			return false
		}
	}
	for i, r := range t.rows {
		for _, c := range t.cols {
			if r[c] != o.rows[i][c] {
				return false
			}
		}
	}
	return true
}

// IsNullToken reports whether a raw text cell means "missing". The vocabulary
// covers the spellings seen in real uploads: empty, whitespace, null/none/nan
// variants, n/a, and dash runs.
func IsNullToken(s string) bool {
	if s == "" || s == " " {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "nan", "n/a", "na", "-", "--", "---":
		return true
	}
	return false
}

// ParseCell converts one raw text cell into a typed cell: nil for null
// tokens, then int64, float64, bool, otherwise the string unchanged.
func ParseCell(s string) any {
	if IsNullToken(s) {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// CellText renders a cell for display contexts (prompt samples, logs).
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
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

type tableJSON struct {
	Columns []string          `json:"columns"`
	Rows    []json.RawMessage `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [...]} with
// cell fidelity: whole-valued floats keep a decimal point so int64 and
// float64 survive a round trip.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"columns":`)
	cols, err := json.Marshal(t.cols)
	if err != nil {
		return nil, err
	}
	buf.Write(cols)
	buf.WriteString(`,"rows":[`)
	for i, r := range t.rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range t.cols {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCellJSON(&buf, r[c]); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

func writeCellJSON(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if x == float64(int64(x)) {
			buf.WriteString(strconv.FormatFloat(x, 'f', 1, 64))
		} else {
			buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	default:
		return fmt.Errorf("unsupported cell type %T", v)
	}
	return nil
}

// UnmarshalJSON decodes the MarshalJSON form. Numbers without a decimal point
// or exponent become int64, everything else float64.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := New(raw.Columns...)
	for _, rowRaw := range raw.Rows {
		dec := json.NewDecoder(bytes.NewReader(rowRaw))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return err
		}
		row := make(Row, len(m))
		for k, v := range m {
			cell, err := cellFromJSON(v)
			if err != nil {
				return err
			}
			row[k] = cell
		}
		out.AppendRow(row)
	}
	*t = *out
	return nil
}

func cellFromJSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			return x.Int64()
		}
		return x.Float64()
	default:
		return nil, fmt.Errorf("unsupported cell JSON %T", v)
	}
}
