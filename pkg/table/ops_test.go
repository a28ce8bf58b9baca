package table

import (
	"testing"
)

func rowsOf(t *testing.T, tbl *Table) []Row {
	t.Helper()
	return tbl.Records()
}

func TestDropNullsScoped(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"Age", "Name"}, []Row{
		{"Age": int64(30), "Name": "Al"},
		{"Age": nil, "Name": "Bo"},
	})
	got, err := tbl.DropNulls("Age")
	if err != nil {
		t.Fatalf("DropNulls: %v", err)
	}
	if got.RowCount() != 1 {
		t.Fatalf("rows = %d, want 1", got.RowCount())
	}
	if r := got.At(0); r["Age"] != int64(30) || r["Name"] != "Al" {
		t.Fatalf("kept row = %#v", r)
	}
	// The scoped drop must not look at other columns.
	tbl2 := FromParts([]string{"Age", "Name"}, []Row{{"Age": int64(1), "Name": nil}})
	got2, err := tbl2.DropNulls("Age")
	if err != nil {
		t.Fatalf("DropNulls: %v", err)
	}
	if got2.RowCount() != 1 {
		t.Fatal("null in an unscoped column dropped the row")
	}
}

func TestDropDuplicatesKeepsFirst(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"A"}, []Row{{"A": int64(1)}, {"A": int64(1)}, {"A": int64(2)}})
	got, err := tbl.DropDuplicates()
	if err != nil {
		t.Fatalf("DropDuplicates: %v", err)
	}
	want := FromParts([]string{"A"}, []Row{{"A": int64(1)}, {"A": int64(2)}})
	if !got.Equal(want) {
		t.Fatalf("rows = %#v", rowsOf(t, got))
	}

	// Idempotent: running it on its own output changes nothing.
	again, err := got.DropDuplicates()
	if err != nil {
		t.Fatalf("DropDuplicates: %v", err)
	}
	if !again.Equal(got) {
		t.Fatal("duplicate removal is not idempotent")
	}
}

func TestDropDuplicatesTypeTagged(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"A"}, []Row{{"A": int64(1)}, {"A": "1"}, {"A": float64(1)}, {"A": true}})
	got, err := tbl.DropDuplicates()
	if err != nil {
		t.Fatalf("DropDuplicates: %v", err)
	}
	if got.RowCount() != 4 {
		t.Fatalf("rows = %d, want 4 (distinct types must not collide)", got.RowCount())
	}
}

func TestDropDuplicatesSingleColumn(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"Email", "N"}, []Row{
		{"Email": "a@x.com", "N": int64(1)},
		{"Email": "a@x.com", "N": int64(2)},
		{"Email": "b@x.com", "N": int64(3)},
	})
	got, err := tbl.DropDuplicates("Email")
	if err != nil {
		t.Fatalf("DropDuplicates: %v", err)
	}
	if got.RowCount() != 2 || got.At(0)["N"] != int64(1) {
		t.Fatalf("rows = %#v", rowsOf(t, got))
	}
}

func TestFillVariants(t *testing.T) {
	t.Parallel()

	base := FromParts([]string{"v"}, []Row{
		{"v": int64(2)}, {"v": nil}, {"v": int64(4)}, {"v": nil},
	})

	t.Run("constant", func(t *testing.T) {
		t.Parallel()
		got, err := base.FillNulls(int64(0), "v")
		if err != nil {
			t.Fatalf("FillNulls: %v", err)
		}
		if got.At(1)["v"] != int64(0) || got.At(3)["v"] != int64(0) {
			t.Fatalf("rows = %#v", rowsOf(t, got))
		}
	})

	t.Run("mean", func(t *testing.T) {
		t.Parallel()
		got, err := base.FillMean("v")
		if err != nil {
			t.Fatalf("FillMean: %v", err)
		}
		if got.At(1)["v"] != float64(3) {
			t.Fatalf("mean fill = %#v, want 3", got.At(1)["v"])
		}
	})

	t.Run("median", func(t *testing.T) {
		t.Parallel()
		tbl := FromParts([]string{"v"}, []Row{
			{"v": int64(1)}, {"v": int64(2)}, {"v": int64(10)}, {"v": nil},
		})
		got, err := tbl.FillMedian("v")
		if err != nil {
			t.Fatalf("FillMedian: %v", err)
		}
		if got.At(3)["v"] != float64(2) {
			t.Fatalf("median fill = %#v, want 2", got.At(3)["v"])
		}
	})

	t.Run("forward", func(t *testing.T) {
		t.Parallel()
		tbl := FromParts([]string{"v"}, []Row{
			{"v": nil}, {"v": int64(7)}, {"v": nil}, {"v": nil},
		})
		got, err := tbl.FillForward("v")
		if err != nil {
			t.Fatalf("FillForward: %v", err)
		}
		if got.At(0)["v"] != nil {
			t.Fatal("leading null must stay null")
		}
		if got.At(2)["v"] != int64(7) || got.At(3)["v"] != int64(7) {
			t.Fatalf("rows = %#v", rowsOf(t, got))
		}
	})

	t.Run("mean of non-numeric column fails", func(t *testing.T) {
		t.Parallel()
		tbl := FromParts([]string{"v"}, []Row{{"v": "x"}, {"v": nil}})
		if _, err := tbl.FillMean("v"); err == nil {
			t.Fatal("want error for non-numeric mean")
		}
	})
}

func TestTrimSpaceIdempotent(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"s", "n"}, []Row{{"s": "  hi  ", "n": int64(1)}})
	once, err := tbl.TrimSpace()
	if err != nil {
		t.Fatalf("TrimSpace: %v", err)
	}
	if once.At(0)["s"] != "hi" || once.At(0)["n"] != int64(1) {
		t.Fatalf("rows = %#v", rowsOf(t, once))
	}
	twice, err := once.TrimSpace()
	if err != nil {
		t.Fatalf("TrimSpace: %v", err)
	}
	if !twice.Equal(once) {
		t.Fatal("trim is not idempotent")
	}
}

func TestCaseOps(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"name"}, []Row{{"name": "jOHN dOE"}})
	lower, err := tbl.ToLower("name")
	if err != nil {
		t.Fatalf("ToLower: %v", err)
	}
	if lower.At(0)["name"] != "john doe" {
		t.Fatalf("lower = %#v", lower.At(0)["name"])
	}
	upper, err := tbl.ToUpper("name")
	if err != nil {
		t.Fatalf("ToUpper: %v", err)
	}
	if upper.At(0)["name"] != "JOHN DOE" {
		t.Fatalf("upper = %#v", upper.At(0)["name"])
	}
	title, err := tbl.ToTitle("name")
	if err != nil {
		t.Fatalf("ToTitle: %v", err)
	}
	if title.At(0)["name"] != "John Doe" {
		t.Fatalf("title = %#v", title.At(0)["name"])
	}
}

func TestSelectDropRename(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"a", "b", "c"}, []Row{{"a": int64(1), "b": int64(2), "c": int64(3)}})

	sel, err := tbl.Select("c", "a")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if cols := sel.Columns(); len(cols) != 2 || cols[0] != "c" || cols[1] != "a" {
		t.Fatalf("columns = %v", cols)
	}

	dropped, err := tbl.DropColumns("b")
	if err != nil {
		t.Fatalf("DropColumns: %v", err)
	}
	if dropped.HasColumn("b") {
		t.Fatal("column b survived DropColumns")
	}

	renamed, err := tbl.Rename("a", "alpha")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if cols := renamed.Columns(); cols[0] != "alpha" {
		t.Fatalf("columns = %v", cols)
	}
	if renamed.At(0)["alpha"] != int64(1) {
		t.Fatalf("renamed cell = %#v", renamed.At(0)["alpha"])
	}

	if _, err := tbl.Rename("missing", "x"); err == nil {
		t.Fatal("want error for unknown column")
	}
	if _, err := tbl.Rename("a", "b"); err == nil {
		t.Fatal("want error for rename onto existing column")
	}
}

func TestSortByStableAndNullsLast(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"v", "tag"}, []Row{
		{"v": int64(2), "tag": "first2"},
		{"v": nil, "tag": "null"},
		{"v": int64(1), "tag": "one"},
		{"v": int64(2), "tag": "second2"},
	})
	asc, err := tbl.SortBy("v", true)
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	wantTags := []string{"one", "first2", "second2", "null"}
	for i, want := range wantTags {
		if got := asc.At(i)["tag"]; got != want {
			t.Fatalf("asc order[%d] = %v, want %v", i, got, want)
		}
	}

	desc, err := tbl.SortBy("v", false)
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	wantTags = []string{"first2", "second2", "one", "null"}
	for i, want := range wantTags {
		if got := desc.At(i)["tag"]; got != want {
			t.Fatalf("desc order[%d] = %v, want %v", i, got, want)
		}
	}

	// Sorting the sorted table again by the same key is a no-op.
	again, err := asc.SortBy("v", true)
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	if !again.Equal(asc) {
		t.Fatal("second sort by the same key changed the table")
	}
}

func TestFilterCmp(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"age"}, []Row{
		{"age": int64(25)}, {"age": int64(30)}, {"age": int64(35)}, {"age": nil}, {"age": "n"},
	})
	cases := []struct {
		op        string
		threshold float64
		want      int
	}{
		{">", 30, 1},
		{">=", 30, 2},
		{"<", 30, 1},
		{"<=", 30, 2},
		{"==", 30, 1},
	}
	for _, tc := range cases {
		got, err := tbl.FilterCmp("age", tc.op, tc.threshold)
		if err != nil {
			t.Fatalf("FilterCmp(%q): %v", tc.op, err)
		}
		if got.RowCount() != tc.want {
			t.Errorf("FilterCmp(%q, %v) rows = %d, want %d", tc.op, tc.threshold, got.RowCount(), tc.want)
		}
	}
	if _, err := tbl.FilterCmp("age", "!=", 1); err == nil {
		t.Fatal("want error for unsupported operator")
	}
}

func TestExtractYearMonth(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"when"}, []Row{
		{"when": "2021-03-05"},
		{"when": "07/14/2019"},
		{"when": "not a date"},
		{"when": nil},
	})
	got, err := tbl.ExtractYear("when")
	if err != nil {
		t.Fatalf("ExtractYear: %v", err)
	}
	if !got.HasColumn("when_Year") {
		t.Fatalf("columns = %v", got.Columns())
	}
	if got.At(0)["when_Year"] != int64(2021) || got.At(1)["when_Year"] != int64(2019) {
		t.Fatalf("years = %#v, %#v", got.At(0)["when_Year"], got.At(1)["when_Year"])
	}
	if got.At(2)["when_Year"] != nil || got.At(3)["when_Year"] != nil {
		t.Fatal("unparseable cells must yield null")
	}

	got, err = tbl.ExtractMonth("when")
	if err != nil {
		t.Fatalf("ExtractMonth: %v", err)
	}
	if got.At(1)["when_Month"] != int64(7) {
		t.Fatalf("month = %#v, want 7", got.At(1)["when_Month"])
	}
}

func TestGroupBy(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"city", "salary"}, []Row{
		{"city": "NY", "salary": int64(100)},
		{"city": "SF", "salary": int64(200)},
		{"city": "NY", "salary": int64(50)},
	})

	t.Run("sum", func(t *testing.T) {
		t.Parallel()
		got, err := tbl.GroupBy("city", "sum", "salary")
		if err != nil {
			t.Fatalf("GroupBy: %v", err)
		}
		want := FromParts([]string{"city", "salary"}, []Row{
			{"city": "NY", "salary": int64(150)},
			{"city": "SF", "salary": int64(200)},
		})
		if !got.Equal(want) {
			t.Fatalf("rows = %#v", rowsOf(t, got))
		}
	})

	t.Run("mean", func(t *testing.T) {
		t.Parallel()
		got, err := tbl.GroupBy("city", "mean", "salary")
		if err != nil {
			t.Fatalf("GroupBy: %v", err)
		}
		if got.At(0)["salary"] != float64(75) {
			t.Fatalf("mean = %#v, want 75", got.At(0)["salary"])
		}
	})

	t.Run("count", func(t *testing.T) {
		t.Parallel()
		got, err := tbl.GroupBy("city", "count", "")
		if err != nil {
			t.Fatalf("GroupBy: %v", err)
		}
		if !got.HasColumn("Count") || got.At(0)["Count"] != int64(2) {
			t.Fatalf("rows = %#v", rowsOf(t, got))
		}
	})

	t.Run("sum needs value column", func(t *testing.T) {
		t.Parallel()
		if _, err := tbl.GroupBy("city", "sum", ""); err == nil {
			t.Fatal("want error for sum without value column")
		}
	})
}

func TestSetColumn(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"a"}, []Row{{"a": int64(1)}, {"a": int64(2)}})
	got, err := tbl.SetColumn("b", []any{"x", "y"})
	if err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if cols := got.Columns(); len(cols) != 2 || cols[1] != "b" {
		t.Fatalf("columns = %v", cols)
	}
	if _, err := tbl.SetColumn("b", []any{"only one"}); err == nil {
		t.Fatal("want error for length mismatch")
	}

	scalar := tbl.SetColumnScalar("flag", true)
	if scalar.At(1)["flag"] != true {
		t.Fatalf("broadcast cell = %#v", scalar.At(1)["flag"])
	}
}

func TestOpsDoNotMutateReceiver(t *testing.T) {
	t.Parallel()

	tbl := FromParts([]string{"v", "s"}, []Row{
		{"v": int64(2), "s": " x "}, {"v": nil, "s": " x "}, {"v": int64(2), "s": "y"},
	})
	snapshot := tbl.Clone()

	if _, err := tbl.DropNulls(); err != nil {
		t.Fatalf("DropNulls: %v", err)
	}
	if _, err := tbl.TrimSpace(); err != nil {
		t.Fatalf("TrimSpace: %v", err)
	}
	if _, err := tbl.DropDuplicates(); err != nil {
		t.Fatalf("DropDuplicates: %v", err)
	}
	if _, err := tbl.SortBy("v", true); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	if _, err := tbl.FillForward("v"); err != nil {
		t.Fatalf("FillForward: %v", err)
	}
	if !tbl.Equal(snapshot) {
		t.Fatal("an operation mutated its receiver")
	}
}
