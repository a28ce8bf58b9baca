package synth

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shpitdev/reshape/pkg/table"
)

// Input is what a rule sees: the raw instruction, a lowercased copy for
// phrase matching, and the table schema for resolving column mentions.
type Input struct {
	Instruction string
	Lowered     string
	Schema      table.Schema
}

// Rule is one deterministic synthesis pattern. It fires when any of its
// trigger phrases appears in the lowered instruction; Emit returns the
// statements the rule contributes, or nil to abstain even when triggered
// (for example when no column resolves).
type Rule struct {
	Name     string
	Triggers []string
	Emit     func(Input) []string
}

func (r Rule) triggered(lowered string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(lowered, t) {
			return true
		}
	}
	return false
}

// Synthesize runs every rule in priority order and joins the statements
// of those that fire. An instruction matching no rule yields an empty
// program, which the engine treats as a no-op. Unresolvable intents are
// omitted rather than reported; this synthesizer never errors.
func Synthesize(instruction string, schema table.Schema) string {
	in := Input{
		Instruction: instruction,
		Lowered:     strings.ToLower(instruction),
		Schema:      schema,
	}
	var stmts []string
	for _, r := range Rules() {
		if !r.triggered(in.Lowered) {
			continue
		}
		stmts = append(stmts, r.Emit(in)...)
	}
	return strings.Join(stmts, "\n")
}

var renameRe = regexp.MustCompile(`(?i)rename\s+(?:column\s+)?(\w+)\s+to\s+(\w+)`)

// cmpWords rewrites comparison phrases to symbols before threshold
// extraction. Longer phrases are listed before their prefixes so
// "greater than or equal to" does not stop at "greater than".
var cmpWords = strings.NewReplacer(
	"greater than or equal to", ">=",
	"less than or equal to", "<=",
	"at least", ">=",
	"at most", "<=",
	"greater than", ">",
	"more than", ">",
	"fewer than", "<",
	"less than", "<",
	"above", ">",
	"below", "<",
	"equal to", "==",
	"equals", "==",
)

// cmpPatterns are tried in order and the first hit wins. The compound
// operators come before their single-symbol prefixes; otherwise ">= 30"
// would never match because ">" requires digits right after it.
var cmpPatterns = []struct {
	op string
	re *regexp.Regexp
}{
	{">=", regexp.MustCompile(`>=\s*(-?\d+(?:\.\d+)?)`)},
	{"<=", regexp.MustCompile(`<=\s*(-?\d+(?:\.\d+)?)`)},
	{">", regexp.MustCompile(`>\s*(-?\d+(?:\.\d+)?)`)},
	{"<", regexp.MustCompile(`<\s*(-?\d+(?:\.\d+)?)`)},
	{"==", regexp.MustCompile(`==?\s*(-?\d+(?:\.\d+)?)`)},
}

// Rules returns the intent rules in priority order. Callers get a fresh
// slice each time.
func Rules() []Rule {
	return []Rule{
		{
			Name:     "nulls",
			Triggers: []string{"null", "missing", "nan"},
			Emit: func(in Input) []string {
				col := firstColumnIn(in.Schema, in.Lowered)
				if strings.Contains(in.Lowered, "fill") {
					return []string{fillStatement(in.Lowered, col)}
				}
				if col != "" {
					return []string{fmt.Sprintf("df = df.dropNulls(%q)", col)}
				}
				return []string{"df = df.dropNulls()"}
			},
		},
		{
			Name:     "duplicates",
			Triggers: []string{"duplicate", "dedup"},
			Emit: func(in Input) []string {
				if col := firstColumnIn(in.Schema, in.Lowered); col != "" {
					return []string{fmt.Sprintf("df = df.dropDuplicates(%q)", col)}
				}
				return []string{"df = df.dropDuplicates()"}
			},
		},
		columnMethodRule("lowercase", "toLower", "lowercase", "lower case"),
		columnMethodRule("uppercase", "toUpper", "uppercase", "upper case"),
		columnMethodRule("titlecase", "toTitle", "title case", "titlecase", "capitalize"),
		columnMethodRule("trim", "trimSpace", "trim", "whitespace", "strip spaces"),
		{
			Name:     "select",
			Triggers: []string{"keep only", "select only", "only keep", "only columns"},
			Emit: func(in Input) []string {
				cols := columnsIn(in.Schema, in.Lowered)
				if len(cols) == 0 {
					return nil
				}
				return []string{fmt.Sprintf("df = df.select(%s)", quoteList(cols))}
			},
		},
		{
			Name:     "dropColumns",
			Triggers: []string{"drop column", "remove column", "delete column"},
			Emit: func(in Input) []string {
				cols := columnsIn(in.Schema, in.Lowered)
				if len(cols) == 0 {
					return nil
				}
				return []string{fmt.Sprintf("df = df.dropColumns(%s)", quoteList(cols))}
			},
		},
		{
			Name:     "rename",
			Triggers: []string{"rename"},
			Emit: func(in Input) []string {
				m := renameRe.FindStringSubmatch(in.Instruction)
				if m == nil {
					return nil
				}
				old := resolveColumn(in.Schema, m[1])
				if old == "" {
					return nil
				}
				// The new name keeps the casing the user typed.
				return []string{fmt.Sprintf("df = df.rename(%q, %q)", old, m[2])}
			},
		},
		{
			Name:     "sort",
			Triggers: []string{"sort", "order by"},
			Emit: func(in Input) []string {
				col := firstColumnIn(in.Schema, in.Lowered)
				if col == "" {
					return nil
				}
				if strings.Contains(in.Lowered, "desc") || strings.Contains(in.Lowered, "high to low") {
					return []string{fmt.Sprintf("df = df.sort(%q, false)", col)}
				}
				return []string{fmt.Sprintf("df = df.sort(%q)", col)}
			},
		},
		{
			Name: "filter",
			Triggers: []string{
				"filter", "where", "greater than", "less than", "more than",
				"at least", "at most", "above", "below", ">", "<",
			},
			Emit: func(in Input) []string {
				col := firstColumnIn(in.Schema, in.Lowered)
				if col == "" {
					return nil
				}
				norm := cmpWords.Replace(in.Lowered)
				for _, p := range cmpPatterns {
					if m := p.re.FindStringSubmatch(norm); m != nil {
						return []string{fmt.Sprintf("df = df.filter(%q, %q, %s)", col, p.op, m[1])}
					}
				}
				return nil
			},
		},
		{
			Name:     "year",
			Triggers: []string{"extract year", "get year", "add year", "year from"},
			Emit: func(in Input) []string {
				col := firstColumnIn(in.Schema, in.Lowered)
				if col == "" {
					return nil
				}
				return []string{fmt.Sprintf("df = df.extractYear(%q)", col)}
			},
		},
		{
			Name:     "month",
			Triggers: []string{"extract month", "get month", "add month", "month from"},
			Emit: func(in Input) []string {
				col := firstColumnIn(in.Schema, in.Lowered)
				if col == "" {
					return nil
				}
				return []string{fmt.Sprintf("df = df.extractMonth(%q)", col)}
			},
		},
		{
			Name: "groupBy",
			Triggers: []string{
				"group by", "grouped by", "aggregate", "count by",
				"sum by", "average by", "mean by", "per ",
			},
			Emit: func(in Input) []string {
				cols := columnsByMention(in.Schema, in.Lowered)
				if len(cols) == 0 {
					return nil
				}
				fn := "count"
				switch {
				case strings.Contains(in.Lowered, "sum") || strings.Contains(in.Lowered, "total"):
					fn = "sum"
				case strings.Contains(in.Lowered, "mean") || strings.Contains(in.Lowered, "average") || strings.Contains(in.Lowered, "avg"):
					fn = "mean"
				}
				// "average salary per city" mentions the value column
				// first and the group column after by/per.
				group := cols[len(cols)-1]
				if fn == "count" {
					return []string{fmt.Sprintf("df = df.groupBy(%q, \"count\")", group)}
				}
				if len(cols) < 2 {
					return nil
				}
				return []string{fmt.Sprintf("df = df.groupBy(%q, %q, %q)", group, fn, cols[0])}
			},
		},
		{
			Name:     "regression",
			Triggers: []string{"predict", "regression", "forecast", "estimate"},
			Emit:     emitRegression,
		},
	}
}

// columnMethodRule builds a rule that applies one table method to the
// matched column, or to every text column when none matches.
func columnMethodRule(name, method string, triggers ...string) Rule {
	return Rule{
		Name:     name,
		Triggers: triggers,
		Emit: func(in Input) []string {
			if col := firstColumnIn(in.Schema, in.Lowered); col != "" {
				return []string{fmt.Sprintf("df = df.%s(%q)", method, col)}
			}
			return []string{fmt.Sprintf("df = df.%s()", method)}
		},
	}
}

// fillStatement picks the requested fill strategy. Mean and median need
// a resolved column; without one the forward fill is the default.
func fillStatement(lowered, col string) string {
	var onlyCol string
	if col != "" {
		onlyCol = fmt.Sprintf(", %q", col)
	}
	switch {
	case strings.Contains(lowered, "zero") || strings.Contains(lowered, " 0"):
		return "df = df.fillNulls(0" + onlyCol + ")"
	case strings.Contains(lowered, "empty"):
		return `df = df.fillNulls(""` + onlyCol + ")"
	case col != "" && strings.Contains(lowered, "median"):
		return fmt.Sprintf("df = df.fillMedian(%q)", col)
	case col != "" && (strings.Contains(lowered, "mean") || strings.Contains(lowered, "average")):
		return fmt.Sprintf("df = df.fillMean(%q)", col)
	case col != "":
		return fmt.Sprintf("df = df.fillForward(%q)", col)
	default:
		return "df = df.fillForward()"
	}
}

// emitRegression handles "predict <target> using <features>". Both sides
// of the split must resolve to schema columns or nothing is emitted.
func emitRegression(in Input) []string {
	left, right, ok := strings.Cut(in.Lowered, " using ")
	if !ok {
		return nil
	}
	target := firstColumnIn(in.Schema, left)
	if target == "" {
		return nil
	}
	var features []string
	for _, f := range in.Schema {
		if f.Name != target && strings.Contains(right, strings.ToLower(f.Name)) {
			features = append(features, f.Name)
		}
	}
	if len(features) == 0 {
		return nil
	}
	trainCols := append([]string{target}, features...)
	return []string{
		fmt.Sprintf("train = df.dropNulls(%s)", quoteList(trainCols)),
		"split = trainTestSplit(train, 0.2, 42)",
		fmt.Sprintf(`model = linearRegression(split["train"], %q, [%s])`, target, quoteList(features)),
		fmt.Sprintf("df = model.predictInto(df, %q)", target+"_Predicted"),
		fmt.Sprintf(`result = {"model": model.name(), "target": %q, "features": [%s], "r2_score": round(model.score(split["test"]), 4)}`,
			target, quoteList(features)),
	}
}

// firstColumnIn returns the first schema column whose lowercased name
// appears in the text, or "" when none does.
func firstColumnIn(schema table.Schema, lowered string) string {
	for _, f := range schema {
		if strings.Contains(lowered, strings.ToLower(f.Name)) {
			return f.Name
		}
	}
	return ""
}

// columnsIn returns every mentioned schema column, in schema order.
func columnsIn(schema table.Schema, lowered string) []string {
	var cols []string
	for _, f := range schema {
		if strings.Contains(lowered, strings.ToLower(f.Name)) {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// columnsByMention returns every mentioned schema column, ordered by
// where the mention starts in the text.
func columnsByMention(schema table.Schema, lowered string) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, f := range schema {
		if i := strings.Index(lowered, strings.ToLower(f.Name)); i >= 0 {
			hits = append(hits, hit{f.Name, i})
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })
	cols := make([]string, len(hits))
	for i, h := range hits {
		cols[i] = h.name
	}
	return cols
}

// resolveColumn matches a bare name against the schema without case.
func resolveColumn(schema table.Schema, name string) string {
	for _, f := range schema {
		if strings.EqualFold(f.Name, name) {
			return f.Name
		}
	}
	return ""
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
