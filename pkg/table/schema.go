package table

import (
	"strings"

	"github.com/araddon/dateparse"
)

// Field is one schema entry: a column name and a free-form type label.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is an ordered column/type snapshot. It is taken once per table and
// only consulted afterwards, never mutated by the pipeline.
type Schema []Field

// String renders "Name: type, Name: type" for prompt context and logs.
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + ": " + f.Type
	}
	return strings.Join(parts, ", ")
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// Schema infers a type label per column: integer, float, boolean, datetime,
// or text. A column is datetime only when every non-null cell is a string
// that carries a date separator and parses as a date; bare numbers like
// "2020" stay numeric.
func (t *Table) Schema() Schema {
	out := make(Schema, 0, len(t.cols))
	for _, c := range t.cols {
		out = append(out, Field{Name: c, Type: t.columnType(c)})
	}
	return out
}

func (t *Table) columnType(col string) string {
	var ints, floats, bools, strs, datish, nonNull int
	for _, r := range t.rows {
		switch v := r[col].(type) {
		case nil:
			continue
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case string:
			strs++
			if looksLikeDate(v) {
				datish++
			}
		}
		nonNull++
	}
	switch {
	case nonNull == 0:
		return "text"
	case bools == nonNull:
		return "boolean"
	case ints+floats == nonNull && floats > 0:
		return "float"
	case ints == nonNull:
		return "integer"
	case strs == nonNull && datish == nonNull:
		return "datetime"
	default:
		return "text"
	}
}

func looksLikeDate(s string) bool {
	if !strings.ContainsAny(s, "-/:") {
		return false
	}
	_, err := dateparse.ParseAny(strings.TrimSpace(s))
	return err == nil
}
