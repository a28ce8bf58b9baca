package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// The operations below are the full method surface reachable from synthesized
// programs. Every operation returns a new table; receivers are never mutated,
// which is what makes the engine's copy-in/copy-out contract cheap to honor.

func (t *Table) requireColumns(cols []string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return fmt.Errorf("unknown column %q", c)
		}
	}
	return nil
}

// targets resolves an optional column restriction: empty means all columns.
func (t *Table) targets(cols []string) ([]string, error) {
	if len(cols) == 0 {
		return t.Columns(), nil
	}
	if err := t.requireColumns(cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// DropNulls removes rows with a nil cell in any of the given columns, or in
// any column at all when none are given.
func (t *Table) DropNulls(cols ...string) (*Table, error) {
	target, err := t.targets(cols)
	if err != nil {
		return nil, err
	}
	out := New(t.cols...)
	for _, r := range t.rows {
		keep := true
		for _, c := range target {
			if r[c] == nil {
				keep = false
				break
			}
		}
		if keep {
			out.AppendRow(r)
		}
	}
	return out, nil
}

// FillNulls replaces nil cells with a constant value in the given columns
// (all columns when none are given).
func (t *Table) FillNulls(value any, cols ...string) (*Table, error) {
	target, err := t.targets(cols)
	if err != nil {
		return nil, err
	}
	return t.mapCells(target, func(v any) any {
		if v == nil {
			return value
		}
		return v
	}), nil
}

// FillMean replaces nil cells in one numeric column with the column mean.
func (t *Table) FillMean(col string) (*Table, error) {
	m, err := t.columnMean(col)
	if err != nil {
		return nil, err
	}
	return t.FillNulls(m, col)
}

// FillMedian replaces nil cells in one numeric column with the column median.
func (t *Table) FillMedian(col string) (*Table, error) {
	vals, err := t.numericColumn(col)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values", col)
	}
	sort.Float64s(vals)
	var med float64
	if n := len(vals); n%2 == 1 {
		med = vals[n/2]
	} else {
		med = (vals[n/2-1] + vals[n/2]) / 2
	}
	return t.FillNulls(med, col)
}

// FillForward carries the last non-null value downward in the given columns
// (all columns when none are given). Leading nulls stay null.
func (t *Table) FillForward(cols ...string) (*Table, error) {
	target, err := t.targets(cols)
	if err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, c := range target {
		var last any
		for _, r := range out.rows {
			if r[c] != nil {
				last = r[c]
			} else if last != nil {
				r[c] = last
			}
		}
	}
	return out, nil
}

// DropDuplicates keeps the first occurrence of each distinct row, or of each
// distinct value in the given column. Row order is otherwise preserved.
func (t *Table) DropDuplicates(cols ...string) (*Table, error) {
	target, err := t.targets(cols)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := New(t.cols...)
	for _, r := range t.rows {
		key := fingerprint(r, target)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.AppendRow(r)
	}
	return out, nil
}

// fingerprint is a type-tagged row key so int64(1), float64(1), "1", and true
// never collide.
func fingerprint(r Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		switch v := r[c].(type) {
		case nil:
			parts[i] = "_"
		case int64:
			parts[i] = "i:" + strconv.FormatInt(v, 10)
		case float64:
			parts[i] = "f:" + strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			parts[i] = "b:" + strconv.FormatBool(v)
		case string:
			parts[i] = "s:" + v
		default:
			parts[i] = fmt.Sprintf("x:%v", v)
		}
	}
	return strings.Join(parts, "\x1f")
}

// TrimSpace trims surrounding whitespace on string cells.
func (t *Table) TrimSpace(cols ...string) (*Table, error) {
	return t.mapStrings(cols, strings.TrimSpace)
}

// ToLower lower-cases string cells.
func (t *Table) ToLower(cols ...string) (*Table, error) {
	return t.mapStrings(cols, strings.ToLower)
}

// ToUpper upper-cases string cells.
func (t *Table) ToUpper(cols ...string) (*Table, error) {
	return t.mapStrings(cols, strings.ToUpper)
}

// ToTitle title-cases string cells ("JOHN doe" becomes "John Doe").
func (t *Table) ToTitle(cols ...string) (*Table, error) {
	caser := cases.Title(language.English)
	return t.mapStrings(cols, caser.String)
}

func (t *Table) mapStrings(cols []string, fn func(string) string) (*Table, error) {
	target, err := t.targets(cols)
	if err != nil {
		return nil, err
	}
	return t.mapCells(target, func(v any) any {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	}), nil
}

func (t *Table) mapCells(cols []string, fn func(any) any) *Table {
	out := t.Clone()
	for _, r := range out.rows {
		for _, c := range cols {
			r[c] = fn(r[c])
		}
	}
	return out
}

// Select keeps only the given columns, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("select needs at least one column")
	}
	if err := t.requireColumns(cols); err != nil {
		return nil, err
	}
	return FromParts(cols, t.rows), nil
}

// DropColumns removes the given columns.
func (t *Table) DropColumns(cols ...string) (*Table, error) {
	if err := t.requireColumns(cols); err != nil {
		return nil, err
	}
	drop := map[string]bool{}
	for _, c := range cols {
		drop[c] = true
	}
	var keep []string
	for _, c := range t.cols {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return FromParts(keep, t.rows), nil
}

// Rename changes one column name in place, keeping column order.
func (t *Table) Rename(oldName, newName string) (*Table, error) {
	if !t.HasColumn(oldName) {
		return nil, fmt.Errorf("unknown column %q", oldName)
	}
	if newName == "" {
		return nil, fmt.Errorf("new column name is empty")
	}
	if newName != oldName && t.HasColumn(newName) {
		return nil, fmt.Errorf("column %q already exists", newName)
	}
	cols := t.Columns()
	for i, c := range cols {
		if c == oldName {
			cols[i] = newName
		}
	}
	out := New(cols...)
	for _, r := range t.rows {
		cp := make(Row, len(r))
		for k, v := range r {
			if k == oldName {
				cp[newName] = v
			} else {
				cp[k] = v
			}
		}
		out.AppendRow(cp)
	}
	return out, nil
}

// SortBy sorts rows by one column. The sort is stable; equal keys keep their
// input order, so sorting twice by the same key is a no-op. Nulls sort last
// in both directions; numbers order before strings before booleans.
func (t *Table) SortBy(col string, ascending bool) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	out := t.Clone()
	sort.SliceStable(out.rows, func(i, j int) bool {
		vi, vj := out.rows[i][col], out.rows[j][col]
		if vi == nil || vj == nil {
			return vj == nil && vi != nil
		}
		c := compareCells(vi, vj)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return out, nil
}

func cellRank(v any) int {
	switch v.(type) {
	case int64, float64:
		return 0
	case string:
		return 1
	case bool:
		return 2
	default:
		return 3
	}
}

func compareCells(a, b any) int {
	ra, rb := cellRank(a), cellRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		fa, _ := cellFloat(a)
		fb, _ := cellFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		return strings.Compare(a.(string), b.(string))
	case 2:
		ba, bb := a.(bool), b.(bool)
		switch {
		case !ba && bb:
			return -1
		case ba && !bb:
			return 1
		}
		return 0
	}
	return 0
}

// FilterCmp keeps rows whose cell in col is numeric and satisfies
// `cell op threshold`. Supported operators: > >= < <= ==. Rows with null or
// non-numeric cells are dropped.
func (t *Table) FilterCmp(col, op string, threshold float64) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	var cmp func(float64) bool
	switch op {
	case ">":
		cmp = func(f float64) bool { return f > threshold }
	case ">=":
		cmp = func(f float64) bool { return f >= threshold }
	case "<":
		cmp = func(f float64) bool { return f < threshold }
	case "<=":
		cmp = func(f float64) bool { return f <= threshold }
	case "==":
		cmp = func(f float64) bool { return f == threshold }
	default:
		return nil, fmt.Errorf("unsupported comparison %q", op)
	}
	out := New(t.cols...)
	for _, r := range t.rows {
		if f, ok := cellFloat(r[col]); ok && cmp(f) {
			out.AppendRow(r)
		}
	}
	return out, nil
}

// ExtractYear adds (or replaces) an integer column "<col>_Year" parsed from
// date-like string cells; unparseable cells yield null.
func (t *Table) ExtractYear(col string) (*Table, error) {
	return t.extractDatePart(col, col+"_Year", func(y, _ int) int64 { return int64(y) })
}

// ExtractMonth adds (or replaces) an integer column "<col>_Month" parsed from
// date-like string cells; unparseable cells yield null.
func (t *Table) ExtractMonth(col string) (*Table, error) {
	return t.extractDatePart(col, col+"_Month", func(_, m int) int64 { return int64(m) })
}

func (t *Table) extractDatePart(col, newCol string, pick func(year, month int) int64) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	values := make([]any, len(t.rows))
	for i, r := range t.rows {
		s, ok := r[col].(string)
		if !ok {
			continue
		}
		when, err := dateparse.ParseAny(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		values[i] = pick(when.Year(), int(when.Month()))
	}
	return t.SetColumn(newCol, values)
}

// GroupBy aggregates rows by the values of groupCol. fn is one of
// sum | mean | count; sum and mean need a numeric valueCol and keep its name,
// count ignores valueCol and emits a "Count" column. Groups appear in first
// occurrence order.
func (t *Table) GroupBy(groupCol, fn, valueCol string) (*Table, error) {
	if !t.HasColumn(groupCol) {
		return nil, fmt.Errorf("unknown column %q", groupCol)
	}
	fn = strings.ToLower(strings.TrimSpace(fn))
	outCol := "Count"
	if fn != "count" {
		if valueCol == "" {
			return nil, fmt.Errorf("%s aggregation needs a value column", fn)
		}
		if !t.HasColumn(valueCol) {
			return nil, fmt.Errorf("unknown column %q", valueCol)
		}
		outCol = valueCol
	}

	type bucket struct {
		key    any
		sum    float64
		count  int64 // rows in group
		numFor int64 // numeric cells aggregated
		allInt bool
	}
	var order []string
	buckets := map[string]*bucket{}
	for _, r := range t.rows {
		k := fingerprint(r, []string{groupCol})
		b, ok := buckets[k]
		if !ok {
			b = &bucket{key: r[groupCol], allInt: true}
			buckets[k] = b
			order = append(order, k)
		}
		b.count++
		if fn == "count" {
			continue
		}
		if f, numeric := cellFloat(r[valueCol]); numeric {
			b.sum += f
			b.numFor++
			if _, isInt := r[valueCol].(int64); !isInt {
				b.allInt = false
			}
		}
	}

	out := New(groupCol, outCol)
	for _, k := range order {
		b := buckets[k]
		row := Row{groupCol: b.key}
		switch fn {
		case "count":
			row[outCol] = b.count
		case "sum":
			if b.allInt {
				row[outCol] = int64(b.sum)
			} else {
				row[outCol] = b.sum
			}
		case "mean":
			if b.numFor == 0 {
				row[outCol] = nil
			} else {
				row[outCol] = b.sum / float64(b.numFor)
			}
		default:
			return nil, fmt.Errorf("unsupported aggregation %q", fn)
		}
		out.AppendRow(row)
	}
	return out, nil
}

// Column returns the cell values of one column, top to bottom.
func (t *Table) Column(name string) ([]any, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out, nil
}

// SetColumn returns a table with the named column set to values (added at the
// end when new). len(values) must equal the row count.
func (t *Table) SetColumn(name string, values []any) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.rows))
	}
	out := t.Clone()
	if !out.HasColumn(name) {
		out.cols = append(out.cols, name)
	}
	for i, r := range out.rows {
		r[name] = values[i]
	}
	return out, nil
}

// SetColumnScalar broadcasts one value into every row of the named column.
func (t *Table) SetColumnScalar(name string, v any) *Table {
	values := make([]any, len(t.rows))
	for i := range values {
		values[i] = v
	}
	out, _ := t.SetColumn(name, values)
	return out
}

func cellFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func (t *Table) numericColumn(col string) ([]float64, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	var out []float64
	for _, r := range t.rows {
		if f, ok := cellFloat(r[col]); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *Table) columnMean(col string) (float64, error) {
	vals, err := t.numericColumn(col)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("column %q has no numeric values", col)
	}
	var sum float64
	for _, f := range vals {
		sum += f
	}
	return sum / float64(len(vals)), nil
}
