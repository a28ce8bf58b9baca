package interp

import "github.com/shpitdev/reshape/pkg/table"

// tableMethods is the full method surface of table values. Every method
// returns a new table; receivers are never mutated, so a failed program
// cannot leave a half-transformed table behind.
var tableMethods = methodRegistry{
	"dropNulls":      {fn: tableDropNulls, minArgs: 0, maxArgs: -1},
	"fillNulls":      {fn: tableFillNulls, minArgs: 1, maxArgs: -1},
	"fillMean":       {fn: tableFillMean, minArgs: 1, maxArgs: 1},
	"fillMedian":     {fn: tableFillMedian, minArgs: 1, maxArgs: 1},
	"fillForward":    {fn: tableFillForward, minArgs: 0, maxArgs: -1},
	"dropDuplicates": {fn: tableDropDuplicates, minArgs: 0, maxArgs: -1},
	"trimSpace":      {fn: tableTrimSpace, minArgs: 0, maxArgs: -1},
	"toLower":        {fn: tableToLower, minArgs: 0, maxArgs: -1},
	"toUpper":        {fn: tableToUpper, minArgs: 0, maxArgs: -1},
	"toTitle":        {fn: tableToTitle, minArgs: 0, maxArgs: -1},
	"select":         {fn: tableSelect, minArgs: 1, maxArgs: -1},
	"dropColumns":    {fn: tableDropColumns, minArgs: 1, maxArgs: -1},
	"rename":         {fn: tableRename, minArgs: 2, maxArgs: 2},
	"sort":           {fn: tableSortBy, minArgs: 1, maxArgs: 2},
	"filter":         {fn: tableFilter, minArgs: 3, maxArgs: 3},
	"extractYear":    {fn: tableExtractYear, minArgs: 1, maxArgs: 1},
	"extractMonth":   {fn: tableExtractMonth, minArgs: 1, maxArgs: 1},
	"groupBy":        {fn: tableGroupBy, minArgs: 2, maxArgs: 3},
	"column":         {fn: tableColumn, minArgs: 1, maxArgs: 1},
	"columns":        {fn: tableColumns, minArgs: 0, maxArgs: 0},
	"rowCount":       {fn: tableRowCount, minArgs: 0, maxArgs: 0},
	"head":           {fn: tableHead, minArgs: 1, maxArgs: 1},
}

// wrapTableOp adapts a column-list operation so the registry functions
// stay one-liners.
func wrapTableOp(method string, args []Object, op func(cols ...string) (*table.Table, error)) Object {
	cols, errObj := stringArgs(method, args)
	if errObj != nil {
		return errObj
	}
	out, err := op(cols...)
	if err != nil {
		return newError("%s: %s", method, err)
	}
	return &Table{Value: out}
}

func tableDropNulls(recv Object, args []Object) Object {
	return wrapTableOp("dropNulls", args, recv.(*Table).Value.DropNulls)
}

func tableFillNulls(recv Object, args []Object) Object {
	value, err := unwrapCell(args[0])
	if err != nil {
		return newError("fillNulls: %s", err)
	}
	cols, errObj := stringArgs("fillNulls", args[1:])
	if errObj != nil {
		return errObj
	}
	out, opErr := recv.(*Table).Value.FillNulls(value, cols...)
	if opErr != nil {
		return newError("fillNulls: %s", opErr)
	}
	return &Table{Value: out}
}

func tableFillMean(recv Object, args []Object) Object {
	col, errObj := stringArg("fillMean", 0, args)
	if errObj != nil {
		return errObj
	}
	out, err := recv.(*Table).Value.FillMean(col)
	if err != nil {
		return newError("fillMean: %s", err)
	}
	return &Table{Value: out}
}

func tableFillMedian(recv Object, args []Object) Object {
	col, errObj := stringArg("fillMedian", 0, args)
	if errObj != nil {
		return errObj
	}
	out, err := recv.(*Table).Value.FillMedian(col)
	if err != nil {
		return newError("fillMedian: %s", err)
	}
	return &Table{Value: out}
}

func tableFillForward(recv Object, args []Object) Object {
	return wrapTableOp("fillForward", args, recv.(*Table).Value.FillForward)
}

func tableDropDuplicates(recv Object, args []Object) Object {
	return wrapTableOp("dropDuplicates", args, recv.(*Table).Value.DropDuplicates)
}

func tableTrimSpace(recv Object, args []Object) Object {
	return wrapTableOp("trimSpace", args, recv.(*Table).Value.TrimSpace)
}

func tableToLower(recv Object, args []Object) Object {
	return wrapTableOp("toLower", args, recv.(*Table).Value.ToLower)
}

func tableToUpper(recv Object, args []Object) Object {
	return wrapTableOp("toUpper", args, recv.(*Table).Value.ToUpper)
}

func tableToTitle(recv Object, args []Object) Object {
	return wrapTableOp("toTitle", args, recv.(*Table).Value.ToTitle)
}

func tableSelect(recv Object, args []Object) Object {
	return wrapTableOp("select", args, recv.(*Table).Value.Select)
}

func tableDropColumns(recv Object, args []Object) Object {
	return wrapTableOp("dropColumns", args, recv.(*Table).Value.DropColumns)
}

func tableRename(recv Object, args []Object) Object {
	names, errObj := stringArgs("rename", args)
	if errObj != nil {
		return errObj
	}
	out, err := recv.(*Table).Value.Rename(names[0], names[1])
	if err != nil {
		return newError("rename: %s", err)
	}
	return &Table{Value: out}
}

func tableSortBy(recv Object, args []Object) Object {
	col, errObj := stringArg("sort", 0, args)
	if errObj != nil {
		return errObj
	}
	ascending := true
	if len(args) == 2 {
		b, ok := args[1].(*Boolean)
		if !ok {
			return newError("sort: argument 2 must be a boolean, got %s", args[1].Type())
		}
		ascending = b.Value
	}
	out, err := recv.(*Table).Value.SortBy(col, ascending)
	if err != nil {
		return newError("sort: %s", err)
	}
	return &Table{Value: out}
}

func tableFilter(recv Object, args []Object) Object {
	col, errObj := stringArg("filter", 0, args)
	if errObj != nil {
		return errObj
	}
	op, errObj := stringArg("filter", 1, args)
	if errObj != nil {
		return errObj
	}
	threshold, errObj := floatArg("filter", 2, args)
	if errObj != nil {
		return errObj
	}
	out, err := recv.(*Table).Value.FilterCmp(col, op, threshold)
	if err != nil {
		return newError("filter: %s", err)
	}
	return &Table{Value: out}
}

func tableExtractYear(recv Object, args []Object) Object {
	col, errObj := stringArg("extractYear", 0, args)
	if errObj != nil {
		return errObj
	}
	out, err := recv.(*Table).Value.ExtractYear(col)
	if err != nil {
		return newError("extractYear: %s", err)
	}
	return &Table{Value: out}
}

func tableExtractMonth(recv Object, args []Object) Object {
	col, errObj := stringArg("extractMonth", 0, args)
	if errObj != nil {
		return errObj
	}
	out, err := recv.(*Table).Value.ExtractMonth(col)
	if err != nil {
		return newError("extractMonth: %s", err)
	}
	return &Table{Value: out}
}

func tableGroupBy(recv Object, args []Object) Object {
	names, errObj := stringArgs("groupBy", args)
	if errObj != nil {
		return errObj
	}
	valueCol := ""
	if len(names) == 3 {
		valueCol = names[2]
	}
	out, err := recv.(*Table).Value.GroupBy(names[0], names[1], valueCol)
	if err != nil {
		return newError("groupBy: %s", err)
	}
	return &Table{Value: out}
}

func tableColumn(recv Object, args []Object) Object {
	col, errObj := stringArg("column", 0, args)
	if errObj != nil {
		return errObj
	}
	values, err := recv.(*Table).Value.Column(col)
	if err != nil {
		return newError("column: %s", err)
	}
	elems := make([]Object, len(values))
	for i, v := range values {
		elems[i] = wrapCell(v)
	}
	return &List{Elements: elems}
}

func tableColumns(recv Object, _ []Object) Object {
	cols := recv.(*Table).Value.Columns()
	elems := make([]Object, len(cols))
	for i, c := range cols {
		elems[i] = &String{Value: c}
	}
	return &List{Elements: elems}
}

func tableRowCount(recv Object, _ []Object) Object {
	return &Integer{Value: int64(recv.(*Table).Value.RowCount())}
}

func tableHead(recv Object, args []Object) Object {
	n, errObj := intArg("head", 0, args)
	if errObj != nil {
		return errObj
	}
	return &Table{Value: recv.(*Table).Value.Head(int(n))}
}
