package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/reshape/pkg/sanitize"
	"github.com/shpitdev/reshape/pkg/synth"
)

const peopleCSV = "Name,Age\nAlice,30\nBob,\nCara,25\n"

type fixedGenerator struct {
	code string
}

func (f *fixedGenerator) Generate(context.Context, synth.Request) (string, error) {
	return f.code, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func writeInput(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestRunLocalPlanOnly(t *testing.T) {
	t.Parallel()

	in := writeInput(t, "people.csv", peopleCSV)
	var stdout bytes.Buffer
	err := RunLocal(context.Background(), Options{
		InputPath:   in,
		Instruction: "remove rows where Age is null",
		Logger:      quietLogger(),
		Stdout:      &stdout,
	})
	if err != nil {
		t.Fatalf("RunLocal: %v", err)
	}
	want := "# source: rules\ndf = df.dropNulls(\"Age\")\n"
	if stdout.String() != want {
		t.Fatalf("printed plan = %q, want %q", stdout.String(), want)
	}
}

func TestRunLocalApplyWritesOutput(t *testing.T) {
	t.Parallel()

	in := writeInput(t, "people.csv", peopleCSV)
	out := filepath.Join(t.TempDir(), "out.csv")
	err := RunLocal(context.Background(), Options{
		InputPath:   in,
		Instruction: "remove rows where Age is null",
		OutputPath:  out,
		Apply:       true,
		Logger:      quietLogger(),
		Stdout:      io.Discard,
	})
	if err != nil {
		t.Fatalf("RunLocal: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "Name,Age\nAlice,30\nCara,25\n"; string(got) != want {
		t.Fatalf("output CSV = %q, want %q", got, want)
	}
}

func TestRunLocalWritesResultJSON(t *testing.T) {
	t.Parallel()

	in := writeInput(t, "people.csv", peopleCSV)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	res := filepath.Join(dir, "result.json")
	gen := &fixedGenerator{code: "result = df.rowCount()"}
	var stdout bytes.Buffer
	err := RunLocal(context.Background(), Options{
		InputPath:   in,
		Instruction: "how many rows are there",
		OutputPath:  out,
		ResultPath:  res,
		Apply:       true,
		Controller:  synth.NewController(gen, nil, quietLogger()),
		Logger:      quietLogger(),
		Stdout:      &stdout,
	})
	if err != nil {
		t.Fatalf("RunLocal: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "# source: model\n") {
		t.Fatalf("printed plan = %q, want model source", stdout.String())
	}
	got, err := os.ReadFile(res)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if want := "3\n"; string(got) != want {
		t.Fatalf("result JSON = %q, want %q", got, want)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) != peopleCSV {
		t.Fatalf("output CSV = %q, %v; want input unchanged", data, err)
	}
}

func TestRunLocalSkipsResultFileWithoutResult(t *testing.T) {
	t.Parallel()

	in := writeInput(t, "people.csv", peopleCSV)
	dir := t.TempDir()
	res := filepath.Join(dir, "result.json")
	err := RunLocal(context.Background(), Options{
		InputPath:   in,
		Instruction: "remove rows where Age is null",
		OutputPath:  filepath.Join(dir, "out.csv"),
		ResultPath:  res,
		Apply:       true,
		Logger:      quietLogger(),
		Stdout:      io.Discard,
	})
	if err != nil {
		t.Fatalf("RunLocal: %v", err)
	}
	if _, err := os.Stat(res); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("result file should not exist, stat err = %v", err)
	}
}

func TestRunLocalCleansBeforePlanning(t *testing.T) {
	t.Parallel()

	in := writeInput(t, "contacts.csv", "Name,Email\nalice,ALICE @EXAMPLE.COM\n")
	out := filepath.Join(t.TempDir(), "out.csv")
	err := RunLocal(context.Background(), Options{
		InputPath:   in,
		Instruction: "tidy the contact list",
		OutputPath:  out,
		Apply:       true,
		Clean:       true,
		Logger:      quietLogger(),
		Stdout:      io.Discard,
	})
	if err != nil {
		t.Fatalf("RunLocal: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "Name,Email\nAlice,alice@example.com\n"; string(got) != want {
		t.Fatalf("output CSV = %q, want %q", got, want)
	}
}

func TestRunLocalSurfacesRejectedPlan(t *testing.T) {
	t.Parallel()

	in := writeInput(t, "people.csv", peopleCSV)
	err := RunLocal(context.Background(), Options{
		InputPath:   in,
		Instruction: "drop nulls",
		Validator:   sanitize.New("dropnulls"),
		Logger:      quietLogger(),
		Stdout:      io.Discard,
	})
	var verr *sanitize.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Token != "dropnulls" {
		t.Fatalf("token = %q", verr.Token)
	}
}

func TestRunLocalOptionValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"missing input", Options{Instruction: "x"}, "input path"},
		{"missing instruction", Options{InputPath: "in.csv"}, "instruction"},
		{"apply without output", Options{InputPath: "in.csv", Instruction: "x", Apply: true}, "output path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RunLocal(context.Background(), tc.opts)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestRunLocalMissingInputFile(t *testing.T) {
	t.Parallel()

	err := RunLocal(context.Background(), Options{
		InputPath:   filepath.Join(t.TempDir(), "absent.csv"),
		Instruction: "drop nulls",
		Logger:      quietLogger(),
		Stdout:      io.Discard,
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
