// Package synth turns a natural-language instruction into candidate code
// for the execution engine. Two synthesizers exist: a generative one
// backed by Gemini and a deterministic rule set used as fallback. The
// Controller in this package picks between them and runs every candidate
// through the validator before handing it to a human.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/shpitdev/reshape/pkg/table"
)

const (
	// SampleRows is how many rows the prompt shows.
	SampleRows = 5

	// MaxSampleRows caps the rows a Request may carry.
	MaxSampleRows = 10

	// cellRunes is the rendered width limit per sample cell.
	cellRunes = 20
)

// Request is the input to a generative synthesis call.
type Request struct {
	Schema      table.Schema
	Sample      []table.Row
	Instruction string
}

// Generator produces candidate code from a request. Implementations may
// call remote models; the controller treats any error as the signal to
// fall back to the rule synthesizer.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerationError reports a failed or unusable generative call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// FormatSchema renders "- Name: type" lines for prompt context.
func FormatSchema(schema table.Schema) string {
	lines := make([]string, len(schema))
	for i, f := range schema {
		lines[i] = fmt.Sprintf("- %s: %s", f.Name, f.Type)
	}
	return strings.Join(lines, "\n")
}

// FormatSample renders a pipe-separated preview of at most SampleRows
// rows, each cell truncated to a fixed width.
func FormatSample(schema table.Schema, rows []table.Row) string {
	if len(rows) == 0 {
		return "No sample data available"
	}
	headers := schema.Names()
	lines := []string{strings.Join(headers, " | ")}
	lines = append(lines, strings.Repeat("-", len(lines[0])))
	n := len(rows)
	if n > SampleRows {
		n = SampleRows
	}
	for _, r := range rows[:n] {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = truncateCell(table.CellText(r[h]))
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

func truncateCell(s string) string {
	r := []rune(s)
	if len(r) <= cellRunes {
		return s
	}
	return string(r[:cellRunes])
}

// promptHeader teaches the model the transformation language. It mirrors
// exactly what the execution engine binds; anything else fails at run
// time, so the examples matter more than the rules.
const promptHeader = `You are a code generator for a small table-transformation language.

A table named df already exists. The user describes what they want done
to it; you reply with statements in this language, one per line.

THE LANGUAGE:
- Statements: name = expression, df["Col"] = list-or-scalar, or a bare
  expression. Lines starting with # are comments.
- No imports, no loops, no function definitions.
- Table methods (each returns a new table): dropNulls, fillNulls,
  fillMean, fillMedian, fillForward, dropDuplicates, trimSpace, toLower,
  toUpper, toTitle, select, dropColumns, rename, sort, filter,
  extractYear, extractMonth, groupBy, column, columns, rowCount, head.
- Free functions: len, min, max, sum, abs, round, sorted, enumerate,
  zip, typeOf, isNull, isNumber, isText, str, int, float,
  trainTestSplit(table, 0.2, 42), linearRegression(table, target,
  features).
- Store the transformed table back in df; put any scalar or map answer
  in result.

STRICT RULES:
- df already exists with the data. Never read or write files, never use
  the network.
- Return ONLY code. No markdown. No explanations.

EXAMPLES:

User: "Predict BMI using Glucose"
Code:
train = df.dropNulls("BMI", "Glucose")
split = trainTestSplit(train, 0.2, 42)
model = linearRegression(split["train"], "BMI", ["Glucose"])
df = model.predictInto(df, "BMI_Predicted")
result = {"model": model.name(), "target": "BMI", "features": ["Glucose"], "r2_score": round(model.score(split["test"]), 4)}

User: "Remove rows where Age is null"
Code:
df = df.dropNulls("Age")

User: "Keep only columns: Name, Age, Salary"
Code:
df = df.select("Name", "Age", "Salary")`

// BuildPrompt assembles the full generation prompt for a request.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(`%s

DATASET SCHEMA:
%s

SAMPLE DATA (first rows):
%s

USER REQUEST:
%s

CODE:`, promptHeader, FormatSchema(req.Schema), FormatSample(req.Schema, req.Sample), strings.TrimSpace(req.Instruction))
}
