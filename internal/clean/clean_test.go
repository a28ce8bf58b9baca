package clean

import (
	"context"
	"reflect"
	"testing"

	"github.com/shpitdev/reshape/pkg/table"
)

func TestCategoryFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		column string
		want   Category
	}{
		{"Email_Address", CategoryEmail},
		{"work e-mail", CategoryEmail},
		{"Phone", CategoryPhone},
		{"mobile_number", CategoryPhone},
		{"Signup Date", CategoryDate},
		{"DOB", CategoryDate},
		{"created_at", CategoryDate},
		{"Full Name", CategoryName},
		{"first", CategoryName},
		{"Salary", CategoryCurrency},
		{"total_revenue", CategoryCurrency},
		{"Notes", CategoryGeneric},
		{"City", CategoryGeneric},
	}
	for _, tc := range cases {
		if got := CategoryFor(tc.column); got != tc.want {
			t.Fatalf("CategoryFor(%q) = %q, want %q", tc.column, got, tc.want)
		}
	}
}

func TestCategoryForPrefersEarlierFamilies(t *testing.T) {
	t.Parallel()
	// "updated_email" hits both the email and date vocabularies; the
	// email family is checked first.
	if got := CategoryFor("updated_email"); got != CategoryEmail {
		t.Fatalf("CategoryFor(updated_email) = %q, want %q", got, CategoryEmail)
	}
}

func TestCleanValueEmail(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{" John.Doe@Example.COM ", "john.doe@example.com"},
		{"a@@b..com", "a@b.com"},
		{"bob @ example.com", "bob@example.com"},
		{"sara@gmial.com", "sara@gmail.com"},
		{"not-an-email", nil},
	}
	for _, tc := range cases {
		if got := CleanValue(tc.in, CategoryEmail); got != tc.want {
			t.Fatalf("CleanValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestCleanValuePhone(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{"555-123-4567", "(555) 123-4567"},
		{"(555) 123 4567", "(555) 123-4567"},
		{"1 555 123 4567", "+1 (555) 123-4567"},
		{"+44 20 7946 0958", "442079460958"},
		{"ext.", nil},
	}
	for _, tc := range cases {
		if got := CleanValue(tc.in, CategoryPhone); got != tc.want {
			t.Fatalf("CleanValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestCleanValueDate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{"03/15/2021", "2021-03-15"},
		{"March 15, 2021", "2021-03-15"},
		{"2021-03-15", "2021-03-15"},
		{"not a date", "not a date"},
	}
	for _, tc := range cases {
		if got := CleanValue(tc.in, CategoryDate); got != tc.want {
			t.Fatalf("CleanValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestCleanValueName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{"  john   SMITH ", "John Smith"},
		{"ana@ maria", "Ana Maria"},
		{"josé silva", "José Silva"},
	}
	for _, tc := range cases {
		if got := CleanValue(tc.in, CategoryName); got != tc.want {
			t.Fatalf("CleanValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestCleanValueCurrency(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{"$1,234.567", 1234.57},
		{"€99", 99.0},
		{"1.2.3", "1.2.3"},
	}
	for _, tc := range cases {
		if got := CleanValue(tc.in, CategoryCurrency); got != tc.want {
			t.Fatalf("CleanValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestCleanValuePassesNonStringsThrough(t *testing.T) {
	t.Parallel()
	for _, v := range []any{nil, int64(5), 2.5, true} {
		if got := CleanValue(v, CategoryEmail); got != v {
			t.Fatalf("CleanValue(%#v) = %#v, want unchanged", v, got)
		}
	}
}

func TestCleanValueNullTokens(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"N/A", " ", "--", "none"} {
		if got := CleanValue(s, CategoryGeneric); got != nil {
			t.Fatalf("CleanValue(%q) = %#v, want nil", s, got)
		}
	}
}

func TestApply(t *testing.T) {
	t.Parallel()
	src := table.FromParts(
		[]string{" Email ", "Phone", "Full Name", "Signup Date", "Salary", "Notes"},
		[]table.Row{
			{
				" Email ":     "JOHN.DOE@EXAMPLE.COM ",
				"Phone":       "555-123-4567",
				"Full Name":   "  john   smith",
				"Signup Date": "03/15/2021",
				"Salary":      "$1,200",
				"Notes":       " hello  world ",
			},
			{
				" Email ":     "n/a",
				"Phone":       nil,
				"Full Name":   "Ana",
				"Signup Date": "2021-03-15",
				"Salary":      int64(900),
				"Notes":       "ok",
			},
		})

	got, stats, err := Apply(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	wantCols := []string{"Email", "Phone", "Full Name", "Signup Date", "Salary", "Notes"}
	if !reflect.DeepEqual(got.Columns(), wantCols) {
		t.Fatalf("columns = %#v, want %#v", got.Columns(), wantCols)
	}

	first := got.At(0)
	if first["Email"] != "john.doe@example.com" {
		t.Fatalf("email = %#v", first["Email"])
	}
	if first["Phone"] != "(555) 123-4567" {
		t.Fatalf("phone = %#v", first["Phone"])
	}
	if first["Full Name"] != "John Smith" {
		t.Fatalf("name = %#v", first["Full Name"])
	}
	if first["Signup Date"] != "2021-03-15" {
		t.Fatalf("date = %#v", first["Signup Date"])
	}
	if first["Salary"] != 1200.0 {
		t.Fatalf("salary = %#v", first["Salary"])
	}
	if first["Notes"] != "hello world" {
		t.Fatalf("notes = %#v", first["Notes"])
	}

	second := got.At(1)
	if second["Email"] != nil {
		t.Fatalf("null token should become nil, got %#v", second["Email"])
	}
	if second["Salary"] != int64(900) {
		t.Fatalf("numeric cell should pass through, got %#v", second["Salary"])
	}

	if stats.Rows != 2 || stats.Nulled != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	wantChanged := map[Category]int{
		CategoryEmail:    1,
		CategoryPhone:    1,
		CategoryName:     1,
		CategoryDate:     1,
		CategoryCurrency: 1,
		CategoryGeneric:  1,
	}
	if !reflect.DeepEqual(stats.Changed, wantChanged) {
		t.Fatalf("changed = %#v, want %#v", stats.Changed, wantChanged)
	}

	// The source table is never mutated.
	if src.At(0)[" Email "] != "JOHN.DOE@EXAMPLE.COM " {
		t.Fatalf("source mutated: %#v", src.At(0)[" Email "])
	}
}

func TestApplyEmptyTable(t *testing.T) {
	t.Parallel()
	src := table.New("A", "B")
	got, stats, err := Apply(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.RowCount() != 0 || stats.Rows != 0 {
		t.Fatalf("rows = %d, stats = %+v", got.RowCount(), stats)
	}
}

func TestApplyCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := table.FromParts([]string{"A"}, []table.Row{{"A": "x"}})
	if _, _, err := Apply(ctx, src, 1); err == nil {
		t.Fatal("expected a context error")
	}
}
