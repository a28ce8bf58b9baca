package synth

import (
	"errors"
	"strings"
	"testing"

	"github.com/shpitdev/reshape/pkg/table"
)

func TestFormatSchema(t *testing.T) {
	t.Parallel()

	schema := table.Schema{
		{Name: "Name", Type: "text"},
		{Name: "Age", Type: "integer"},
	}
	want := "- Name: text\n- Age: integer"
	if got := FormatSchema(schema); got != want {
		t.Fatalf("FormatSchema = %q, want %q", got, want)
	}
}

func TestFormatSample(t *testing.T) {
	t.Parallel()

	schema := table.Schema{
		{Name: "Name", Type: "text"},
		{Name: "Age", Type: "integer"},
	}
	rows := []table.Row{
		{"Name": "Al", "Age": int64(30)},
		{"Name": "Bo", "Age": nil},
	}
	got := strings.Split(FormatSample(schema, rows), "\n")
	want := []string{
		"Name | Age",
		strings.Repeat("-", len("Name | Age")),
		"Al | 30",
		"Bo | null",
	}
	if len(got) != len(want) {
		t.Fatalf("line count = %d, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormatSampleCapsRows(t *testing.T) {
	t.Parallel()

	schema := table.Schema{{Name: "N", Type: "integer"}}
	rows := make([]table.Row, 7)
	for i := range rows {
		rows[i] = table.Row{"N": int64(i)}
	}
	got := strings.Split(FormatSample(schema, rows), "\n")
	if len(got) != 2+SampleRows {
		t.Fatalf("line count = %d, want %d", len(got), 2+SampleRows)
	}
}

func TestFormatSampleTruncatesCells(t *testing.T) {
	t.Parallel()

	schema := table.Schema{{Name: "Text", Type: "text"}}
	rows := []table.Row{{"Text": strings.Repeat("x", 25)}}
	got := strings.Split(FormatSample(schema, rows), "\n")
	if want := strings.Repeat("x", 20); got[2] != want {
		t.Fatalf("cell = %q, want %q", got[2], want)
	}
}

func TestFormatSampleEmpty(t *testing.T) {
	t.Parallel()

	if got := FormatSample(table.Schema{{Name: "A", Type: "text"}}, nil); got != "No sample data available" {
		t.Fatalf("FormatSample(empty) = %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	req := Request{
		Schema:      table.Schema{{Name: "Age", Type: "integer"}},
		Sample:      []table.Row{{"Age": int64(30)}},
		Instruction: "  drop nulls  ",
	}
	prompt := BuildPrompt(req)

	for _, section := range []string{
		"DATASET SCHEMA:\n- Age: integer",
		"SAMPLE DATA (first rows):",
		"USER REQUEST:\ndrop nulls",
	} {
		if !strings.Contains(prompt, section) {
			t.Fatalf("prompt missing %q:\n%s", section, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "CODE:") {
		t.Fatalf("prompt must end with the completion cue:\n%s", prompt)
	}
	// The language surface the engine actually binds must be advertised.
	for _, name := range []string{"dropNulls", "trainTestSplit", "linearRegression", "result"} {
		if !strings.Contains(prompt, name) {
			t.Fatalf("prompt does not mention %q", name)
		}
	}
}

func TestGenerationError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &GenerationError{Err: cause}
	if got := err.Error(); got != "code generation failed: boom" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("GenerationError must unwrap to its cause")
	}
}
