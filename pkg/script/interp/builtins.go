package interp

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shpitdev/reshape/pkg/stats"
	"github.com/shpitdev/reshape/pkg/table"
)

// newBuiltins returns a fresh builtin table per execution so no state is
// shared between runs. This is the complete set of free functions a
// program can call.
func newBuiltins() map[string]*Builtin {
	fns := map[string]BuiltinFunction{
		"len":       builtinLen,
		"min":       builtinMin,
		"max":       builtinMax,
		"sum":       builtinSum,
		"abs":       builtinAbs,
		"round":     builtinRound,
		"sorted":    builtinSorted,
		"enumerate": builtinEnumerate,
		"zip":       builtinZip,
		"typeOf":    builtinTypeOf,
		"isNull":    builtinIsNull,
		"isNumber":  builtinIsNumber,
		"isText":    builtinIsText,
		"str":       builtinStr,
		"int":       builtinInt,
		"float":     builtinFloat,

		"trainTestSplit":   builtinTrainTestSplit,
		"linearRegression": builtinLinearRegression,
	}
	out := make(map[string]*Builtin, len(fns))
	for name, fn := range fns {
		out[name] = &Builtin{Name: name, Fn: fn}
	}
	return out
}

func builtinLen(args ...Object) Object {
	if len(args) != 1 {
		return newError("len expects 1 argument, got %d", len(args))
	}
	switch x := args[0].(type) {
	case *String:
		return &Integer{Value: int64(len([]rune(x.Value)))}
	case *List:
		return &Integer{Value: int64(len(x.Elements))}
	case *Map:
		return &Integer{Value: int64(len(x.Pairs))}
	case *Table:
		return &Integer{Value: int64(x.Value.RowCount())}
	}
	return newError("len does not support %s", args[0].Type())
}

// seqArgs flattens the arguments of min/max/sum: a single list argument
// supplies its elements, otherwise the arguments are the sequence.
func seqArgs(name string, args []Object) ([]Object, *Error) {
	if len(args) == 0 {
		return nil, newError("%s expects at least 1 argument, got 0", name)
	}
	if len(args) == 1 {
		if l, ok := args[0].(*List); ok {
			return l.Elements, nil
		}
	}
	return args, nil
}

func builtinMin(args ...Object) Object { return extremum("min", args, true) }
func builtinMax(args ...Object) Object { return extremum("max", args, false) }

// extremum skips nulls so column extractions with missing cells behave
// like their pandas counterparts.
func extremum(name string, args []Object, smallest bool) Object {
	elems, errObj := seqArgs(name, args)
	if errObj != nil {
		return errObj
	}
	var best Object
	for _, e := range elems {
		if e.Type() == NULL_OBJ {
			continue
		}
		if !isNumeric(e) {
			return newError("%s needs numbers, got %s", name, e.Type())
		}
		if best == nil {
			best = e
			continue
		}
		v, b := numValue(e), numValue(best)
		if (smallest && v < b) || (!smallest && v > b) {
			best = e
		}
	}
	if best == nil {
		return newError("%s of an empty sequence", name)
	}
	return best
}

func builtinSum(args ...Object) Object {
	elems, errObj := seqArgs("sum", args)
	if errObj != nil {
		return errObj
	}
	var intTotal int64
	var floatTotal float64
	allInt := true
	for _, e := range elems {
		switch x := e.(type) {
		case *Integer:
			intTotal += x.Value
		case *Float:
			allInt = false
			floatTotal += x.Value
		case *Null:
			// missing cells do not contribute
		default:
			return newError("sum needs numbers, got %s", e.Type())
		}
	}
	if allInt {
		return &Integer{Value: intTotal}
	}
	return &Float{Value: floatTotal + float64(intTotal)}
}

func builtinAbs(args ...Object) Object {
	if len(args) != 1 {
		return newError("abs expects 1 argument, got %d", len(args))
	}
	switch x := args[0].(type) {
	case *Integer:
		if x.Value < 0 {
			return &Integer{Value: -x.Value}
		}
		return x
	case *Float:
		return &Float{Value: math.Abs(x.Value)}
	}
	return newError("abs needs a number, got %s", args[0].Type())
}

// builtinRound rounds half away from zero. With a digit count the result
// stays a float; without one an integer comes back.
func builtinRound(args ...Object) Object {
	if len(args) < 1 || len(args) > 2 {
		return newError("round expects 1 or 2 arguments, got %d", len(args))
	}
	if n, ok := args[0].(*Integer); ok {
		return n
	}
	f, ok := args[0].(*Float)
	if !ok {
		return newError("round needs a number, got %s", args[0].Type())
	}
	if len(args) == 1 {
		return &Integer{Value: int64(math.Round(f.Value))}
	}
	digits, ok := args[1].(*Integer)
	if !ok {
		return newError("round: argument 2 must be an integer, got %s", args[1].Type())
	}
	factor := math.Pow(10, float64(digits.Value))
	return &Float{Value: math.Round(f.Value*factor) / factor}
}

func builtinSorted(args ...Object) Object {
	if len(args) != 1 {
		return newError("sorted expects 1 argument, got %d", len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return newError("sorted needs a list, got %s", args[0].Type())
	}
	elems := make([]Object, len(list.Elements))
	copy(elems, list.Elements)

	numeric, text := true, true
	for _, e := range elems {
		switch e.Type() {
		case INTEGER_OBJ, FLOAT_OBJ:
			text = false
		case STRING_OBJ:
			numeric = false
		default:
			return newError("sorted cannot order %s values", e.Type())
		}
	}
	if !numeric && !text {
		return newError("sorted needs all numbers or all strings")
	}
	sort.SliceStable(elems, func(i, j int) bool {
		if numeric {
			return numValue(elems[i]) < numValue(elems[j])
		}
		return elems[i].(*String).Value < elems[j].(*String).Value
	})
	return &List{Elements: elems}
}

func builtinEnumerate(args ...Object) Object {
	if len(args) != 1 {
		return newError("enumerate expects 1 argument, got %d", len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return newError("enumerate needs a list, got %s", args[0].Type())
	}
	pairs := make([]Object, len(list.Elements))
	for i, e := range list.Elements {
		pairs[i] = &List{Elements: []Object{&Integer{Value: int64(i)}, e}}
	}
	return &List{Elements: pairs}
}

func builtinZip(args ...Object) Object {
	if len(args) < 2 {
		return newError("zip expects at least 2 arguments, got %d", len(args))
	}
	lists := make([]*List, len(args))
	shortest := -1
	for i, a := range args {
		l, ok := a.(*List)
		if !ok {
			return newError("zip: argument %d must be a list, got %s", i+1, a.Type())
		}
		lists[i] = l
		if shortest < 0 || len(l.Elements) < shortest {
			shortest = len(l.Elements)
		}
	}
	out := make([]Object, shortest)
	for i := 0; i < shortest; i++ {
		tuple := make([]Object, len(lists))
		for j, l := range lists {
			tuple[j] = l.Elements[i]
		}
		out[i] = &List{Elements: tuple}
	}
	return &List{Elements: out}
}

func builtinTypeOf(args ...Object) Object {
	if len(args) != 1 {
		return newError("typeOf expects 1 argument, got %d", len(args))
	}
	return &String{Value: strings.ToLower(string(args[0].Type()))}
}

func builtinIsNull(args ...Object) Object {
	if len(args) != 1 {
		return newError("isNull expects 1 argument, got %d", len(args))
	}
	return nativeBool(args[0].Type() == NULL_OBJ)
}

func builtinIsNumber(args ...Object) Object {
	if len(args) != 1 {
		return newError("isNumber expects 1 argument, got %d", len(args))
	}
	return nativeBool(isNumeric(args[0]))
}

func builtinIsText(args ...Object) Object {
	if len(args) != 1 {
		return newError("isText expects 1 argument, got %d", len(args))
	}
	return nativeBool(args[0].Type() == STRING_OBJ)
}

func builtinStr(args ...Object) Object {
	if len(args) != 1 {
		return newError("str expects 1 argument, got %d", len(args))
	}
	if s, ok := args[0].(*String); ok {
		return s
	}
	return &String{Value: args[0].Inspect()}
}

func builtinInt(args ...Object) Object {
	if len(args) != 1 {
		return newError("int expects 1 argument, got %d", len(args))
	}
	switch x := args[0].(type) {
	case *Integer:
		return x
	case *Float:
		return &Integer{Value: int64(x.Value)}
	case *Boolean:
		if x.Value {
			return &Integer{Value: 1}
		}
		return &Integer{Value: 0}
	case *String:
		v, err := strconv.ParseInt(strings.TrimSpace(x.Value), 10, 64)
		if err != nil {
			return newError("int: cannot convert %q", x.Value)
		}
		return &Integer{Value: v}
	}
	return newError("int: cannot convert %s", args[0].Type())
}

func builtinFloat(args ...Object) Object {
	if len(args) != 1 {
		return newError("float expects 1 argument, got %d", len(args))
	}
	switch x := args[0].(type) {
	case *Integer:
		return &Float{Value: float64(x.Value)}
	case *Float:
		return x
	case *Boolean:
		if x.Value {
			return &Float{Value: 1}
		}
		return &Float{Value: 0}
	case *String:
		v, err := strconv.ParseFloat(strings.TrimSpace(x.Value), 64)
		if err != nil {
			return newError("float: cannot convert %q", x.Value)
		}
		return &Float{Value: v}
	}
	return newError("float: cannot convert %s", args[0].Type())
}

// builtinTrainTestSplit shuffles rows with a seeded generator and returns
// {"train": table, "test": table}. The same seed always produces the same
// split.
func builtinTrainTestSplit(args ...Object) Object {
	if len(args) != 3 {
		return newError("trainTestSplit expects 3 arguments, got %d", len(args))
	}
	tbl, ok := args[0].(*Table)
	if !ok {
		return newError("trainTestSplit: argument 1 must be a table, got %s", args[0].Type())
	}
	fraction, errObj := floatArg("trainTestSplit", 1, args)
	if errObj != nil {
		return errObj
	}
	seed, errObj := intArg("trainTestSplit", 2, args)
	if errObj != nil {
		return errObj
	}

	train, test, err := stats.SplitIndices(tbl.Value.RowCount(), fraction, seed)
	if err != nil {
		return newError("trainTestSplit: %s", err)
	}
	m := NewMap()
	m.Set("train", &Table{Value: pickRows(tbl.Value, train)})
	m.Set("test", &Table{Value: pickRows(tbl.Value, test)})
	return m
}

func pickRows(t *table.Table, idx []int) *table.Table {
	out := table.New(t.Columns()...)
	for _, i := range idx {
		out.AppendRow(t.At(i))
	}
	return out
}

// builtinLinearRegression fits OLS and returns a model value. Features
// may be a list of column names or a single name.
func builtinLinearRegression(args ...Object) Object {
	if len(args) != 3 {
		return newError("linearRegression expects 3 arguments, got %d", len(args))
	}
	tbl, ok := args[0].(*Table)
	if !ok {
		return newError("linearRegression: argument 1 must be a table, got %s", args[0].Type())
	}
	target, errObj := stringArg("linearRegression", 1, args)
	if errObj != nil {
		return errObj
	}

	var features []string
	switch x := args[2].(type) {
	case *String:
		features = []string{x.Value}
	case *List:
		for _, e := range x.Elements {
			s, ok := e.(*String)
			if !ok {
				return newError("linearRegression: feature names must be strings, got %s", e.Type())
			}
			features = append(features, s.Value)
		}
	default:
		return newError("linearRegression: argument 3 must be a list of column names, got %s", args[2].Type())
	}

	model, err := fitModel(tbl.Value, target, features)
	if err != nil {
		return newError("linearRegression: %s", err)
	}
	return model
}
