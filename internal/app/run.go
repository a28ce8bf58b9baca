// Package app orchestrates the one-shot local run behind the CLI:
// parse a file, plan a transformation, and optionally apply it.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shpitdev/reshape/internal/clean"
	"github.com/shpitdev/reshape/internal/ingest"
	"github.com/shpitdev/reshape/pkg/sanitize"
	"github.com/shpitdev/reshape/pkg/script/interp"
	"github.com/shpitdev/reshape/pkg/synth"
	"github.com/shpitdev/reshape/pkg/table"
)

// Options configures a local run. Controller, Validator, Logger and
// Stdout are optional; RunLocal fills in fallback-only, builtin-denylist
// defaults so `reshape local` works with no API key at all.
type Options struct {
	InputPath   string
	Instruction string

	// OutputPath receives the transformed table as CSV when Apply is set.
	OutputPath string

	// ResultPath, when non-empty, receives the program's scalar or map
	// result as JSON. Only written when Apply is set and the program
	// produced a result.
	ResultPath string

	// Apply executes the plan. Without it the run stops after printing
	// the code, which is the audit posture: someone reads it first.
	Apply bool

	Clean        bool
	CleanWorkers int

	Controller *synth.Controller
	Validator  *sanitize.Validator
	Logger     *log.Logger

	// Stdout is where the plan is printed. Defaults to os.Stdout.
	Stdout io.Writer
}

// RunLocal reads a local input file, plans a transformation for the
// instruction, prints the plan, and with Apply set executes it and
// writes the output CSV.
func RunLocal(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.InputPath) == "" {
		return errors.New("input path is required")
	}
	if strings.TrimSpace(opts.Instruction) == "" {
		return errors.New("instruction is required")
	}
	if opts.Apply && strings.TrimSpace(opts.OutputPath) == "" {
		return errors.New("apply requires an output path")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	validator := opts.Validator
	if validator == nil {
		validator = sanitize.New()
	}
	controller := opts.Controller
	if controller == nil {
		controller = synth.NewController(nil, validator, logger)
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	logf := func(format string, args ...any) {
		prefix := make([]any, 0, len(args)+1)
		prefix = append(prefix, runID)
		prefix = append(prefix, args...)
		logger.Printf("run=%s "+format, prefix...)
	}
	runStart := time.Now()
	logf(
		"local run start: input=%s instruction=%q apply=%t clean=%t output=%s",
		opts.InputPath,
		opts.Instruction,
		opts.Apply,
		opts.Clean,
		opts.OutputPath,
	)

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return err
	}
	parsed, err := ingest.Parse(filepath.Base(opts.InputPath), data)
	if err != nil {
		return err
	}
	tbl, err := parsed.Normalize()
	if err != nil {
		return err
	}
	logf("parsed input: rows=%d cols=%d", tbl.RowCount(), len(tbl.Columns()))

	if opts.Clean {
		cleaned, stats, err := clean.Apply(ctx, tbl, opts.CleanWorkers)
		if err != nil {
			return err
		}
		tbl = cleaned
		changed := 0
		for _, n := range stats.Changed {
			changed += n
		}
		logf("cleaning pass: rows=%d changed=%d nulled=%d", stats.Rows, changed, stats.Nulled)
	}

	planStart := time.Now()
	plan, err := controller.Plan(ctx, synth.Request{
		Schema:      tbl.Schema(),
		Sample:      tbl.Head(synth.SampleRows).Records(),
		Instruction: opts.Instruction,
	})
	if err != nil {
		return err
	}
	logf("plan ready: source=%s bytes=%d duration=%s", plan.Source, len(plan.Code), time.Since(planStart).Round(time.Millisecond))

	// The printed form is itself a valid program: the source marker is a
	// comment line, so the output can be piped back into execution.
	if _, err := fmt.Fprintf(stdout, "# source: %s\n%s\n", plan.Source, plan.Code); err != nil {
		return err
	}

	if !opts.Apply {
		logf("plan only, not executed; rerun with -apply to execute")
		return nil
	}

	// Execution re-validates no matter who produced the code.
	accepted, err := validator.Validate(plan.Code)
	if err != nil {
		return err
	}
	execStart := time.Now()
	out, result, err := interp.Execute(tbl, accepted)
	if err != nil {
		return err
	}
	logf("executed: rows=%d cols=%d duration=%s", out.RowCount(), len(out.Columns()), time.Since(execStart).Round(time.Millisecond))

	outF, err := os.Create(opts.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()
	if err := table.WriteCSV(outF, out); err != nil {
		return err
	}
	if err := outF.Close(); err != nil {
		return err
	}
	logf("wrote output: path=%s rows=%d", opts.OutputPath, out.RowCount())

	if strings.TrimSpace(opts.ResultPath) != "" {
		if result == nil {
			logf("program produced no result; %s not written", opts.ResultPath)
		} else {
			buf, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(opts.ResultPath, append(buf, '\n'), 0o644); err != nil {
				return err
			}
			logf("wrote result: path=%s", opts.ResultPath)
		}
	}

	logf("local run complete: totalDuration=%s", time.Since(runStart).Round(time.Millisecond))
	return nil
}
