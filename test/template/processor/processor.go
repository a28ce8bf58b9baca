// Package processor is a minimal example of embedding the reshape kit
// in another program: one plain-language instruction applied to tables
// through the synthesize, validate, execute chain.
package processor

import (
	"context"

	"github.com/shpitdev/reshape/pkg/sanitize"
	"github.com/shpitdev/reshape/pkg/script/interp"
	"github.com/shpitdev/reshape/pkg/synth"
	"github.com/shpitdev/reshape/pkg/table"
)

// Processor applies one instruction to any table handed to it. Code is
// synthesized per table because it depends on the table's schema.
type Processor struct {
	instruction string
	validator   *sanitize.Validator
}

func New(instruction string) *Processor {
	return &Processor{instruction: instruction, validator: sanitize.New()}
}

func (p *Processor) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	code := synth.Synthesize(p.instruction, tbl.Schema())
	accepted, err := p.validator.Validate(code)
	if err != nil {
		return nil, err
	}
	out, _, err := interp.Execute(tbl, accepted)
	if err != nil {
		return nil, err
	}
	return out, nil
}
