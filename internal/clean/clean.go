// Package clean repairs freshly uploaded tables with deterministic
// per-field heuristics. The column name picks the heuristic; cells are
// only reformatted or nulled, never invented.
package clean

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shpitdev/reshape/pkg/table"
	"github.com/shpitdev/reshape/pkg/worker"
)

// Category names a heuristic family for stats reporting.
type Category string

const (
	CategoryEmail    Category = "email"
	CategoryPhone    Category = "phone"
	CategoryDate     Category = "date"
	CategoryName     Category = "name"
	CategoryCurrency Category = "currency"
	CategoryGeneric  Category = "generic"
)

// categoryHints maps column-name substrings to a category. Order
// matters: the first family with a hit wins.
var categoryHints = []struct {
	cat   Category
	hints []string
}{
	{CategoryEmail, []string{"email", "mail", "e-mail"}},
	{CategoryPhone, []string{"phone", "tel", "mobile", "cell"}},
	{CategoryDate, []string{"date", "time", "dob", "birth", "created", "updated"}},
	{CategoryName, []string{"name", "first", "last"}},
	{CategoryCurrency, []string{"price", "amount", "cost", "salary", "revenue", "total"}},
}

// CategoryFor picks the heuristic family for a column name.
func CategoryFor(column string) Category {
	lowered := strings.ToLower(column)
	for _, h := range categoryHints {
		for _, hint := range h.hints {
			if strings.Contains(lowered, hint) {
				return h.cat
			}
		}
	}
	return CategoryGeneric
}

// Stats summarizes one cleaning pass.
type Stats struct {
	Rows    int              `json:"rows"`
	Changed map[Category]int `json:"changed"`
	Nulled  int              `json:"nulled"`
}

// Apply cleans every cell of t and returns the repaired copy. Rows are
// processed concurrently on the given number of workers (0 uses the
// pool default). The receiver is never mutated.
func Apply(ctx context.Context, t *table.Table, workers int) (*table.Table, Stats, error) {
	cols := t.Columns()
	trimmed := trimmedColumns(cols)
	cats := make([]Category, len(cols))
	for i, c := range trimmed {
		cats[i] = CategoryFor(c)
	}

	type rowResult struct {
		row     table.Row
		changed map[Category]int
		nulled  int
	}
	results, err := worker.ProcessAll(ctx, t.Records(),
		func(_ context.Context, r table.Row) (rowResult, error) {
			res := rowResult{row: make(table.Row, len(cols)), changed: map[Category]int{}}
			for i, c := range cols {
				v := r[c]
				cleaned := CleanValue(v, cats[i])
				res.row[trimmed[i]] = cleaned
				switch {
				case cleaned == nil && v != nil:
					res.nulled++
				case cleaned != v:
					res.changed[cats[i]]++
				}
			}
			return res, nil
		},
		worker.Options{Workers: workers})
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Rows: len(results), Changed: map[Category]int{}}
	rows := make([]table.Row, len(results))
	for i, r := range results {
		rows[i] = r.Output.row
		stats.Nulled += r.Output.nulled
		for cat, n := range r.Output.changed {
			stats.Changed[cat] += n
		}
	}
	return table.FromParts(trimmed, rows), stats, nil
}

// trimmedColumns strips surrounding whitespace from column names,
// keeping the raw name when trimming would collide or empty it.
func trimmedColumns(cols []string) []string {
	counts := make(map[string]int, len(cols))
	for _, c := range cols {
		counts[strings.TrimSpace(c)]++
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		tc := strings.TrimSpace(c)
		if tc != "" && counts[tc] == 1 {
			out[i] = tc
		} else {
			out[i] = c
		}
	}
	return out
}

// CleanValue repairs a single cell. Numbers and booleans pass through
// untouched; null tokens become nil; strings go through the category's
// heuristic.
func CleanValue(v any, cat Category) any {
	switch x := v.(type) {
	case nil, int64, float64, bool:
		return x
	case string:
		if table.IsNullToken(x) {
			return nil
		}
		s := strings.TrimSpace(x)
		switch cat {
		case CategoryEmail:
			return cleanEmail(s)
		case CategoryPhone:
			return cleanPhone(s)
		case CategoryDate:
			return cleanDate(s)
		case CategoryName:
			return cleanName(s)
		case CategoryCurrency:
			return cleanCurrency(s)
		default:
			return collapseSpaces(s)
		}
	default:
		return v
	}
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	nonDigitRe = regexp.MustCompile(`\D`)
	nameCharRe = regexp.MustCompile(`[^\p{L}\p{N}\s'-]`)
)

// domainRepairs fixes the provider typos that dominate real uploads.
var domainRepairs = map[string]string{
	"gmial.com":   "gmail.com",
	"gamil.com":   "gmail.com",
	"gmai.com":    "gmail.com",
	"hotmial.com": "hotmail.com",
	"yaho.com":    "yahoo.com",
	"outlok.com":  "outlook.com",
}

// cleanEmail lowercases, strips whitespace, and repairs doubled
// separators and known domain typos. Anything still missing an @ or a
// dot is nulled rather than kept broken.
func cleanEmail(s string) any {
	s = spaceRe.ReplaceAllString(strings.ToLower(s), "")
	s = strings.ReplaceAll(s, "..", ".")
	s = strings.ReplaceAll(s, "@@", "@")
	if at := strings.LastIndex(s, "@"); at >= 0 {
		if fixed, ok := domainRepairs[s[at+1:]]; ok {
			s = s[:at+1] + fixed
		}
	}
	if !strings.Contains(s, "@") || !strings.Contains(s, ".") {
		return nil
	}
	return s
}

// cleanPhone keeps digits only and formats the two North American
// shapes. Other lengths keep their digits; no digits at all nulls the
// cell.
func cleanPhone(s string) any {
	digits := nonDigitRe.ReplaceAllString(s, "")
	switch {
	case len(digits) == 10:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	case len(digits) == 11 && digits[0] == '1':
		return "+1 (" + digits[1:4] + ") " + digits[4:7] + "-" + digits[7:]
	case digits == "":
		return nil
	default:
		return digits
	}
}

// cleanDate normalizes anything dateparse understands to 2006-01-02.
// Unparseable strings stay as they are.
func cleanDate(s string) any {
	when, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}
	return when.Format("2006-01-02")
}

func cleanName(s string) any {
	s = collapseSpaces(nameCharRe.ReplaceAllString(s, ""))
	return cases.Title(language.English).String(s)
}

// cleanCurrency strips currency symbols and thousands separators and
// rounds to cents. Strings that still do not parse stay as they are.
func cleanCurrency(s string) any {
	stripped := strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "").Replace(s)
	f, err := strconv.ParseFloat(strings.TrimSpace(stripped), 64)
	if err != nil {
		return s
	}
	return math.Round(f*100) / 100
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
