package interp

import (
	"reflect"
	"testing"

	"github.com/shpitdev/reshape/pkg/table"
)

func TestArithmeticAndComparison(t *testing.T) {
	t.Parallel()

	cases := []struct {
		src  string
		want any
	}{
		{"result = 2 + 3 * 4", int64(14)},
		{"result = (2 + 3) * 4", int64(20)},
		{"result = 7 / 2", float64(3.5)},
		{"result = 6 / 3", float64(2)},
		{"result = 7 % 3", int64(1)},
		{"result = 7.5 % 2", float64(1.5)},
		{"result = -4 + 1", int64(-3)},
		{"result = 2.5 * 2", float64(5)},
		{"result = 1 + 0.5", float64(1.5)},
		{`result = "a" + "b"`, "ab"},
		{"result = 1 == 1.0", true},
		{"result = 1 != 2", true},
		{`result = "a" == "a"`, true},
		{"result = null == null", true},
		{"result = 3 > 2 and 1 <= 1", true},
		{"result = false or true", true},
		{"result = !false", true},
		{"result = !null", true},
		{`result = "abc" < "abd"`, true},
		{"result = [1, 2] == [1, 2.0]", true},
		{`result = {"a": 1} == {"a": 1.0}`, true},
	}
	for _, tc := range cases {
		if got := scalar(t, tc.src); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s = %#v, want %#v", tc.src, got, tc.want)
		}
	}
}

func TestOperatorErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		src    string
		substr string
	}{
		{"result = 1 / 0", "division by zero"},
		{"result = 5 % 0", "division by zero"},
		{"result = 1 and true", "operator and needs booleans"},
		{"result = !1", "operator ! needs a boolean"},
		{`result = "a" - "b"`, "unknown operator - for strings"},
		{`result = 1 + "a"`, "type mismatch: INTEGER + STRING"},
	}
	for _, tc := range cases {
		wantError(t, table.New("x"), tc.src, tc.substr)
	}
}

func TestIndexing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		src  string
		want any
	}{
		{"xs = [10, 20, 30]\nresult = xs[1]", int64(20)},
		{"xs = [10, 20, 30]\nresult = xs[-1]", int64(30)},
		{`m = {"a": 1}` + "\n" + `result = m["a"]`, int64(1)},
	}
	for _, tc := range cases {
		if got := scalar(t, tc.src); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s = %#v, want %#v", tc.src, got, tc.want)
		}
	}

	_, result := run(t, people(), `result = df["Age"]`)
	want := []any{int64(30), nil, int64(30), int64(41)}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("column = %#v, want %#v", result, want)
	}

	if _, result := run(t, people(), `result = df["Age"][-1]`); result != int64(41) {
		t.Fatalf("chained index = %#v, want 41", result)
	}

	wantError(t, table.New("x"), "xs = [1]\nresult = xs[5]", "out of range")
	wantError(t, table.New("x"), `m = {"a": 1}`+"\n"+`result = m["b"]`, `unknown key "b"`)
	wantError(t, people(), "result = df[0]", "table index must be a column name")
}

func TestIndexAssignment(t *testing.T) {
	t.Parallel()

	_, result := run(t, table.New("x"), "xs = [1, 2]\nxs[0] = 9\nresult = xs")
	if want := []any{int64(9), int64(2)}; !reflect.DeepEqual(result, want) {
		t.Fatalf("list = %#v, want %#v", result, want)
	}

	_, result = run(t, table.New("x"), "m = {}\nm[\"k\"] = 2\nresult = m[\"k\"]")
	if result != int64(2) {
		t.Fatalf("map value = %#v, want 2", result)
	}

	// Assigning a column rebinds the table variable: the new column must
	// be visible through df afterwards.
	_, result = run(t, people(), "df[\"AgeCopy\"] = df[\"Age\"]\nresult = df[\"AgeCopy\"]")
	if want := []any{int64(30), nil, int64(30), int64(41)}; !reflect.DeepEqual(result, want) {
		t.Fatalf("copied column = %#v, want %#v", result, want)
	}

	_, result = run(t, people(), "df[\"Flag\"] = true\nresult = df[\"Flag\"]")
	if want := []any{true, true, true, true}; !reflect.DeepEqual(result, want) {
		t.Fatalf("broadcast column = %#v, want %#v", result, want)
	}

	wantError(t, people(), `df["Bad"] = [1]`, "1 values for 4 rows")
	wantError(t, table.New("x"), "v = 5\nv[0] = 1", "cannot assign into INTEGER")
}

func TestTableMethodChain(t *testing.T) {
	t.Parallel()

	_, result := run(t, people(), `result = df.trimSpace("Name").toLower("Name").dropDuplicates().rowCount()`)
	if result != int64(3) {
		t.Fatalf("rowCount = %#v, want 3", result)
	}

	_, result = run(t, people(), `result = df.sort("Age", false).column("Age")`)
	if want := []any{int64(41), int64(30), int64(30), nil}; !reflect.DeepEqual(result, want) {
		t.Fatalf("sorted column = %#v, want %#v", result, want)
	}

	if _, result := run(t, people(), `result = df.filter("Age", ">", 30).rowCount()`); result != int64(1) {
		t.Fatalf("filtered rows = %#v, want 1", result)
	}

	_, result = run(t, people(), `result = df.groupBy("City", "count").column("Count")`)
	if want := []any{int64(2), int64(1), int64(1)}; !reflect.DeepEqual(result, want) {
		t.Fatalf("counts = %#v, want %#v", result, want)
	}

	if _, result := run(t, people(), "result = df.head(2).rowCount()"); result != int64(2) {
		t.Fatalf("head rows = %#v, want 2", result)
	}

	_, result = run(t, people(), "result = df.columns()")
	if want := []any{"Name", "Age", "City"}; !reflect.DeepEqual(result, want) {
		t.Fatalf("columns = %#v, want %#v", result, want)
	}
}

func TestStringMethods(t *testing.T) {
	t.Parallel()

	cases := []struct {
		src  string
		want any
	}{
		{`result = " Ab ".trim().toUpper()`, "AB"},
		{`result = "JOHN doe".toTitle()`, "John Doe"},
		{`result = "a,b,c".split(",")`, []any{"a", "b", "c"}},
		{`result = "aaa".replace("a", "b")`, "bbb"},
		{`result = "héllo".length()`, int64(5)},
		{`result = "hello".includes("ell")`, true},
		{`result = "hello".includes("xyz")`, false},
	}
	for _, tc := range cases {
		if got := scalar(t, tc.src); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s = %#v, want %#v", tc.src, got, tc.want)
		}
	}

	wantError(t, table.New("x"), `result = "x".explode()`, `unknown method "explode" for string`)
	wantError(t, table.New("x"), "v = 5\nresult = v.toUpper()", "INTEGER has no methods")
}
