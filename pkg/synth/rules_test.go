package synth

import (
	"strings"
	"testing"

	"github.com/shpitdev/reshape/pkg/table"
)

func demoSchema() table.Schema {
	return table.Schema{
		{Name: "Name", Type: "text"},
		{Name: "Age", Type: "integer"},
		{Name: "City", Type: "text"},
		{Name: "Salary", Type: "float"},
		{Name: "Hired", Type: "datetime"},
	}
}

func TestSynthesizeScenarios(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		instruction string
		want        string
	}{
		{"drop nulls scoped", "drop nulls in Age", `df = df.dropNulls("Age")`},
		{"drop nulls whole table", "remove null rows", "df = df.dropNulls()"},
		{"case insensitive matching", "DROP NULLS IN AGE", `df = df.dropNulls("Age")`},
		{"dedup whole row", "remove duplicates", "df = df.dropDuplicates()"},
		{"dedup by column", "remove duplicate City entries", `df = df.dropDuplicates("City")`},
		{"fill zero", "fill missing Age with zero", `df = df.fillNulls(0, "Age")`},
		{"fill empty string", "fill missing City with empty string", `df = df.fillNulls("", "City")`},
		{"fill mean", "fill missing values with the mean of Salary", `df = df.fillMean("Salary")`},
		{"fill median", "fill null Salary with the median", `df = df.fillMedian("Salary")`},
		{"fill default forward", "fill nulls", "df = df.fillForward()"},
		{"fill forward scoped", "fill missing Salary values", `df = df.fillForward("Salary")`},
		{"lowercase all text", "make everything lowercase", "df = df.toLower()"},
		{"uppercase column", "uppercase the City column", `df = df.toUpper("City")`},
		{"title case column", "title case the Name column", `df = df.toTitle("Name")`},
		{"trim column", "trim whitespace from Name", `df = df.trimSpace("Name")`},
		{"select columns", "keep only Name and Salary", `df = df.select("Name", "Salary")`},
		{"drop columns", "drop column Hired", `df = df.dropColumns("Hired")`},
		{"rename keeps new casing", "rename Salary to Pay", `df = df.rename("Salary", "Pay")`},
		{"sort ascending", "sort by Age", `df = df.sort("Age")`},
		{"sort descending", "sort by Salary descending", `df = df.sort("Salary", false)`},
		{"sort high to low", "order by Salary high to low", `df = df.sort("Salary", false)`},
		{"filter greater", "filter rows where Age > 30", `df = df.filter("Age", ">", 30)`},
		{"filter at least", "keep rows where Salary is at least 50000", `df = df.filter("Salary", ">=", 50000)`},
		{"filter at most", "keep rows where Age is at most 65", `df = df.filter("Age", "<=", 65)`},
		{"filter long phrase", "rows where Salary is greater than or equal to 1000", `df = df.filter("Salary", ">=", 1000)`},
		{"filter equals", "filter rows where Age equals 30", `df = df.filter("Age", "==", 30)`},
		{"filter decimal", "filter where Salary > 99.5", `df = df.filter("Salary", ">", 99.5)`},
		{"null drop beats filter", "remove rows where Age is null", `df = df.dropNulls("Age")`},
		{"extract year", "extract year from Hired", `df = df.extractYear("Hired")`},
		{"extract month", "add month from Hired", `df = df.extractMonth("Hired")`},
		{"group count", "count by City", `df = df.groupBy("City", "count")`},
		{"group mean", "average Salary per City", `df = df.groupBy("City", "mean", "Salary")`},
		{"group sum", "total Salary by City, grouped by City", `df = df.groupBy("City", "sum", "Salary")`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Synthesize(tc.instruction, demoSchema())
			if got != tc.want {
				t.Fatalf("Synthesize(%q):\ngot  %q\nwant %q", tc.instruction, got, tc.want)
			}
		})
	}
}

func TestSynthesizeEmptyWhenNothingMatches(t *testing.T) {
	t.Parallel()

	for _, instruction := range []string{
		"",
		"hello world",
		"make it pop",
		"predict Age",                // no "using" clause
		"predict Bonus using Salary", // target not in schema
		"predict Age using Bonus",    // no feature resolves
		"rename Salary",              // no "old to new" phrase
		"sort it",                    // no column mentioned
		"filter rows where Age is null and nothing else",
	} {
		got := Synthesize(instruction, demoSchema())
		if instruction == "filter rows where Age is null and nothing else" {
			// The null rule still fires; only the filter abstains.
			if got != `df = df.dropNulls("Age")` {
				t.Fatalf("Synthesize(%q) = %q", instruction, got)
			}
			continue
		}
		if got != "" {
			t.Fatalf("Synthesize(%q) = %q, want empty program", instruction, got)
		}
	}
}

func TestSynthesizeRegressionTemplate(t *testing.T) {
	t.Parallel()

	got := Synthesize("predict Age using Salary", demoSchema())
	want := strings.Join([]string{
		`train = df.dropNulls("Age", "Salary")`,
		`split = trainTestSplit(train, 0.2, 42)`,
		`model = linearRegression(split["train"], "Age", ["Salary"])`,
		`df = model.predictInto(df, "Age_Predicted")`,
		`result = {"model": model.name(), "target": "Age", "features": ["Salary"], "r2_score": round(model.score(split["test"]), 4)}`,
	}, "\n")
	if got != want {
		t.Fatalf("regression template:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSynthesizeRegressionMultiFeature(t *testing.T) {
	t.Parallel()

	got := Synthesize("predict Salary using Age and City", demoSchema())
	if !strings.Contains(got, `linearRegression(split["train"], "Salary", ["Age", "City"])`) {
		t.Fatalf("multi-feature regression:\n%s", got)
	}
	if !strings.Contains(got, `df = model.predictInto(df, "Salary_Predicted")`) {
		t.Fatalf("missing prediction column statement:\n%s", got)
	}
}

func TestSynthesizeCombinesRulesInPriorityOrder(t *testing.T) {
	t.Parallel()

	got := Synthesize("drop nulls and sort by Age", demoSchema())
	want := "df = df.dropNulls(\"Age\")\ndf = df.sort(\"Age\")"
	if got != want {
		t.Fatalf("combined rules:\ngot  %q\nwant %q", got, want)
	}
}

func TestRulesReturnsFreshSlice(t *testing.T) {
	t.Parallel()

	a := Rules()
	a[0] = Rule{}
	b := Rules()
	if b[0].Name != "nulls" {
		t.Fatalf("Rules() shares state across calls: %#v", b[0])
	}
}
