package template

import (
	"context"
	"testing"

	"github.com/shpitdev/reshape/pkg/table"
	"github.com/shpitdev/reshape/pkg/worker"
	"github.com/shpitdev/reshape/test/template/processor"
)

func TestTemplateComposesWithWorkerKit(t *testing.T) {
	t.Parallel()

	tables := []*table.Table{
		table.FromParts([]string{"Email"}, []table.Row{
			{"Email": "a@x.test"},
			{"Email": "a@x.test"},
			{"Email": "b@x.test"},
		}),
	}

	p := processor.New("remove duplicate rows")
	out, err := worker.ProcessAll(context.Background(), tables, p.Process, worker.Options{Workers: 1})
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if len(out) != 1 || out[0].Err != nil {
		t.Fatalf("unexpected results: %#v", out)
	}
	if got := out[0].Output.RowCount(); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
}
