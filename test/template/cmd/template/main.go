package main

import (
	"context"
	"fmt"

	"github.com/shpitdev/reshape/pkg/table"
	"github.com/shpitdev/reshape/pkg/worker"
	"github.com/shpitdev/reshape/test/template/processor"
)

func main() {
	tables := []*table.Table{
		table.FromParts([]string{"Name", "Age"}, []table.Row{
			{"Name": "Alice", "Age": int64(30)},
			{"Name": "Bob", "Age": nil},
		}),
	}

	p := processor.New("remove rows where Age is null")
	out, err := worker.ProcessAll(context.Background(), tables, p.Process, worker.Options{Workers: 1})
	if err != nil {
		panic(err)
	}
	fmt.Println(out[0].Output.RowCount())
}
