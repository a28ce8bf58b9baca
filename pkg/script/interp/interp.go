// Package interp evaluates transformation scripts against an in-memory
// table. Programs run in a closed namespace: the input table is bound to
// df, an optional scalar answer to result, and the only callable names
// are the builtins registered here. There is no file, network, or host
// access to escape to.
package interp

import (
	"github.com/shpitdev/reshape/pkg/script/parser"
	"github.com/shpitdev/reshape/pkg/table"
)

// ExecutionError reports any failure while running a script: a parse
// error, a runtime error raised by the evaluator, or a program that left
// the environment in an unusable state.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

// Execute runs code against tbl and returns the transformed table plus
// the value of result, or nil when the program never set one. The input
// table is copied first and is never modified, even when the script
// fails halfway through.
func Execute(tbl *table.Table, code string) (*table.Table, any, error) {
	program, err := parser.Parse(code)
	if err != nil {
		return nil, nil, &ExecutionError{Message: err.Error()}
	}

	env := NewEnvironment()
	for name, b := range newBuiltins() {
		env.Set(name, b)
	}
	env.Set("df", &Table{Value: tbl.Clone()})
	env.Set("result", NULL)

	if out := Eval(program, env); out != nil {
		if errObj, ok := out.(*Error); ok {
			return nil, nil, &ExecutionError{Message: errObj.Message}
		}
	}

	dfObj, ok := env.Get("df")
	if !ok {
		return nil, nil, &ExecutionError{Message: "df is no longer defined"}
	}
	dfTable, ok := dfObj.(*Table)
	if !ok {
		return nil, nil, &ExecutionError{Message: "df is no longer a table"}
	}

	resultObj, ok := env.Get("result")
	if !ok || resultObj.Type() == NULL_OBJ {
		return dfTable.Value, nil, nil
	}
	return dfTable.Value, Unwrap(resultObj), nil
}
