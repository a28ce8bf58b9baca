package synth

import (
	"context"
	"log"
	"os"

	"github.com/shpitdev/reshape/pkg/sanitize"
)

// Source tells reviewers which synthesizer produced a plan.
type Source string

const (
	SourceModel Source = "model"
	SourceRules Source = "rules"
)

// Plan is accepted code awaiting review. The controller never executes
// a plan; execution is a separate request against the session.
type Plan struct {
	Code   string `json:"code"`
	Source Source `json:"source"`
}

// Controller runs the synthesis state machine: generate when a generator
// is configured, validate, and fall back to the rule synthesizer when
// generation fails or its output is rejected. Fallback output goes
// through the same validator; a rejection there is surfaced, not
// retried.
type Controller struct {
	gen       Generator
	validator *sanitize.Validator
	logger    *log.Logger
}

// NewController wires a controller. gen may be nil, which disables
// generation and makes every plan come from the rules. A nil validator
// gets the builtin denylist; a nil logger logs to stdout.
func NewController(gen Generator, validator *sanitize.Validator, logger *log.Logger) *Controller {
	if validator == nil {
		validator = sanitize.New()
	}
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &Controller{gen: gen, validator: validator, logger: logger}
}

// Plan produces validated code for the instruction. Samples beyond
// MaxSampleRows are clamped before any generator sees them. The
// returned plan has not been executed; callers show it to a human
// first.
func (c *Controller) Plan(ctx context.Context, req Request) (Plan, error) {
	if len(req.Sample) > MaxSampleRows {
		req.Sample = req.Sample[:MaxSampleRows]
	}
	if c.gen != nil {
		code, err := c.gen.Generate(ctx, req)
		if err == nil {
			accepted, verr := c.validator.Validate(code)
			if verr == nil {
				return Plan{Code: accepted, Source: SourceModel}, nil
			}
			c.logger.Printf("synth: generated code rejected, using rules: %v", verr)
		} else {
			if ctx.Err() != nil {
				return Plan{}, ctx.Err()
			}
			c.logger.Printf("synth: generation failed, using rules: %v", err)
		}
	}

	code := Synthesize(req.Instruction, req.Schema)
	accepted, err := c.validator.Validate(code)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Code: accepted, Source: SourceRules}, nil
}
