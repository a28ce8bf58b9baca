package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shpitdev/reshape/pkg/table"
)

// ObjectType identifies the runtime type of a script value.
type ObjectType string

const (
	NULL_OBJ    ObjectType = "NULL"
	INTEGER_OBJ ObjectType = "INTEGER"
	FLOAT_OBJ   ObjectType = "FLOAT"
	BOOLEAN_OBJ ObjectType = "BOOLEAN"
	STRING_OBJ  ObjectType = "STRING"
	LIST_OBJ    ObjectType = "LIST"
	MAP_OBJ     ObjectType = "MAP"
	TABLE_OBJ   ObjectType = "TABLE"
	MODEL_OBJ   ObjectType = "MODEL"
	BUILTIN_OBJ ObjectType = "BUILTIN"
	ERROR_OBJ   ObjectType = "ERROR"
)

// Object is any value the evaluator can produce.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Shared immutable instances.
var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// Null is the absent value.
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// Integer is a 64-bit whole number.
type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

// Float is a 64-bit decimal number.
type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Boolean is true or false.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

// String is a text value.
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

// List is an ordered sequence of values.
type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	elems := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		elems[i] = e.Inspect()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Map is a string-keyed collection. Keys preserves insertion order so
// inspection output is stable.
type Map struct {
	Pairs map[string]Object
	Keys  []string
}

// NewMap returns an empty map object.
func NewMap() *Map {
	return &Map{Pairs: map[string]Object{}}
}

// Set adds or replaces a key.
func (m *Map) Set(key string, val Object) {
	if _, ok := m.Pairs[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Pairs[key] = val
}

func (m *Map) Type() ObjectType { return MAP_OBJ }
func (m *Map) Inspect() string {
	pairs := make([]string, len(m.Keys))
	for i, k := range m.Keys {
		pairs[i] = strconv.Quote(k) + ": " + m.Pairs[k].Inspect()
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// Table wraps the pipeline table model. Table values behave immutably in
// the script: every method returns a new table.
type Table struct {
	Value *table.Table
}

func (t *Table) Type() ObjectType { return TABLE_OBJ }
func (t *Table) Inspect() string {
	return fmt.Sprintf("Table(%d rows, %d columns)", t.Value.RowCount(), len(t.Value.Columns()))
}

// Model is a fitted linear regression.
type Model struct {
	Target    string
	Features  []string
	Coefs     []float64
	Intercept float64
}

func (m *Model) Type() ObjectType { return MODEL_OBJ }
func (m *Model) Inspect() string {
	return fmt.Sprintf("LinearRegression(target=%s, features=%d)", m.Target, len(m.Features))
}

// BuiltinFunction is the signature of free functions bound into the
// restricted namespace.
type BuiltinFunction func(args ...Object) Object

// Builtin wraps a builtin function as an object.
type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }

// Error is an in-band runtime failure; evaluation stops at the first one.
type Error struct {
	Message string
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "error: " + e.Message }

func newError(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func isError(obj Object) bool {
	if obj != nil {
		return obj.Type() == ERROR_OBJ
	}
	return false
}

func nativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// wrapCell converts a table cell (nil | int64 | float64 | bool | string)
// to a script object.
func wrapCell(v any) Object {
	switch x := v.(type) {
	case nil:
		return NULL
	case int64:
		return &Integer{Value: x}
	case float64:
		return &Float{Value: x}
	case bool:
		return nativeBool(x)
	case string:
		return &String{Value: x}
	default:
		return newError("unsupported cell value %T", v)
	}
}

// unwrapCell converts a scalar object back to a table cell value.
func unwrapCell(obj Object) (any, error) {
	switch x := obj.(type) {
	case *Null:
		return nil, nil
	case *Integer:
		return x.Value, nil
	case *Float:
		return x.Value, nil
	case *Boolean:
		return x.Value, nil
	case *String:
		return x.Value, nil
	default:
		return nil, fmt.Errorf("%s cannot be stored in a table cell", obj.Type())
	}
}

// Unwrap converts an object to a plain Go value for callers outside the
// interpreter.
func Unwrap(obj Object) any {
	switch x := obj.(type) {
	case *Null, nil:
		return nil
	case *Integer:
		return x.Value
	case *Float:
		return x.Value
	case *Boolean:
		return x.Value
	case *String:
		return x.Value
	case *List:
		out := make([]any, len(x.Elements))
		for i, e := range x.Elements {
			out[i] = Unwrap(e)
		}
		return out
	case *Map:
		out := make(map[string]any, len(x.Pairs))
		for k, v := range x.Pairs {
			out[k] = Unwrap(v)
		}
		return out
	case *Table:
		return x.Value
	default:
		return obj.Inspect()
	}
}
