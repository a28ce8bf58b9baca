package interp

import (
	"math"
	"strings"

	"github.com/shpitdev/reshape/pkg/script/ast"
	"github.com/shpitdev/reshape/pkg/table"
)

// Eval evaluates a syntax node. Runtime failures come back as in-band
// *Error objects; evaluation stops at the first one.
func Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {

	case *ast.Program:
		return evalProgram(node, env)

	case *ast.AssignStatement:
		val := Eval(node.Value, env)
		if isError(val) {
			return val
		}
		env.Set(node.Name.Value, val)
		return NULL

	case *ast.IndexAssignStatement:
		return evalIndexAssign(node, env)

	case *ast.ExpressionStatement:
		return Eval(node.Expression, env)

	case *ast.Identifier:
		return evalIdentifier(node, env)

	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}

	case *ast.FloatLiteral:
		return &Float{Value: node.Value}

	case *ast.StringLiteral:
		return &String{Value: node.Value}

	case *ast.BooleanLiteral:
		return nativeBool(node.Value)

	case *ast.NullLiteral:
		return NULL

	case *ast.ListLiteral:
		elems := evalExpressions(node.Elements, env)
		if len(elems) == 1 && isError(elems[0]) {
			return elems[0]
		}
		return &List{Elements: elems}

	case *ast.MapLiteral:
		return evalMapLiteral(node, env)

	case *ast.PrefixExpression:
		right := Eval(node.Right, env)
		if isError(right) {
			return right
		}
		return evalPrefixExpression(node.Operator, right)

	case *ast.InfixExpression:
		left := Eval(node.Left, env)
		if isError(left) {
			return left
		}
		right := Eval(node.Right, env)
		if isError(right) {
			return right
		}
		return evalInfixExpression(node.Operator, left, right)

	case *ast.IndexExpression:
		return evalIndexExpression(node, env)

	case *ast.CallExpression:
		return evalCall(node, env)

	case *ast.MethodCallExpression:
		return evalMethodCall(node, env)
	}

	return newError("unsupported syntax node %T", node)
}

func evalProgram(prog *ast.Program, env *Environment) Object {
	var result Object = NULL
	for _, stmt := range prog.Statements {
		result = Eval(stmt, env)
		if isError(result) {
			return result
		}
	}
	return result
}

func evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if v, ok := env.Get(node.Value); ok {
		return v
	}
	return newError("unknown name %q", node.Value)
}

// evalExpressions evaluates left to right; an error collapses the result
// to a single-element slice holding it.
func evalExpressions(exprs []ast.Expression, env *Environment) []Object {
	result := make([]Object, 0, len(exprs))
	for _, e := range exprs {
		v := Eval(e, env)
		if isError(v) {
			return []Object{v}
		}
		result = append(result, v)
	}
	return result
}

func evalMapLiteral(node *ast.MapLiteral, env *Environment) Object {
	m := NewMap()
	for i, keyExpr := range node.Keys {
		key := Eval(keyExpr, env)
		if isError(key) {
			return key
		}
		ks, ok := key.(*String)
		if !ok {
			return newError("map key must be a string, got %s", key.Type())
		}
		val := Eval(node.Values[i], env)
		if isError(val) {
			return val
		}
		m.Set(ks.Value, val)
	}
	return m
}

func evalPrefixExpression(op string, right Object) Object {
	switch op {
	case "!":
		switch x := right.(type) {
		case *Boolean:
			return nativeBool(!x.Value)
		case *Null:
			return TRUE
		}
		return newError("operator ! needs a boolean, got %s", right.Type())
	case "-":
		switch x := right.(type) {
		case *Integer:
			return &Integer{Value: -x.Value}
		case *Float:
			return &Float{Value: -x.Value}
		}
		return newError("operator - needs a number, got %s", right.Type())
	}
	return newError("unknown operator %s", op)
}

func evalInfixExpression(op string, left, right Object) Object {
	switch {
	case op == "and" || op == "or":
		return evalBooleanInfix(op, left, right)
	case op == "==":
		return nativeBool(objectsEqual(left, right))
	case op == "!=":
		return nativeBool(!objectsEqual(left, right))
	case left.Type() == INTEGER_OBJ && right.Type() == INTEGER_OBJ:
		return evalIntegerInfix(op, left.(*Integer), right.(*Integer))
	case isNumeric(left) && isNumeric(right):
		return evalFloatInfix(op, numValue(left), numValue(right))
	case left.Type() == STRING_OBJ && right.Type() == STRING_OBJ:
		return evalStringInfix(op, left.(*String), right.(*String))
	}
	return newError("type mismatch: %s %s %s", left.Type(), op, right.Type())
}

// evalIntegerInfix keeps whole-number arithmetic in integers, except `/`
// which always produces a float.
func evalIntegerInfix(op string, l, r *Integer) Object {
	switch op {
	case "+":
		return &Integer{Value: l.Value + r.Value}
	case "-":
		return &Integer{Value: l.Value - r.Value}
	case "*":
		return &Integer{Value: l.Value * r.Value}
	case "/":
		if r.Value == 0 {
			return newError("division by zero")
		}
		return &Float{Value: float64(l.Value) / float64(r.Value)}
	case "%":
		if r.Value == 0 {
			return newError("division by zero")
		}
		return &Integer{Value: l.Value % r.Value}
	case "<":
		return nativeBool(l.Value < r.Value)
	case ">":
		return nativeBool(l.Value > r.Value)
	case "<=":
		return nativeBool(l.Value <= r.Value)
	case ">=":
		return nativeBool(l.Value >= r.Value)
	}
	return newError("unknown operator %s for integers", op)
}

func evalFloatInfix(op string, l, r float64) Object {
	switch op {
	case "+":
		return &Float{Value: l + r}
	case "-":
		return &Float{Value: l - r}
	case "*":
		return &Float{Value: l * r}
	case "/":
		if r == 0 {
			return newError("division by zero")
		}
		return &Float{Value: l / r}
	case "%":
		if r == 0 {
			return newError("division by zero")
		}
		return &Float{Value: math.Mod(l, r)}
	case "<":
		return nativeBool(l < r)
	case ">":
		return nativeBool(l > r)
	case "<=":
		return nativeBool(l <= r)
	case ">=":
		return nativeBool(l >= r)
	}
	return newError("unknown operator %s for numbers", op)
}

func evalStringInfix(op string, l, r *String) Object {
	switch op {
	case "+":
		return &String{Value: l.Value + r.Value}
	case "<":
		return nativeBool(l.Value < r.Value)
	case ">":
		return nativeBool(l.Value > r.Value)
	case "<=":
		return nativeBool(l.Value <= r.Value)
	case ">=":
		return nativeBool(l.Value >= r.Value)
	}
	return newError("unknown operator %s for strings", op)
}

func evalBooleanInfix(op string, left, right Object) Object {
	l, ok := left.(*Boolean)
	if !ok {
		return newError("operator %s needs booleans, got %s", op, left.Type())
	}
	r, ok := right.(*Boolean)
	if !ok {
		return newError("operator %s needs booleans, got %s", op, right.Type())
	}
	if op == "and" {
		return nativeBool(l.Value && r.Value)
	}
	return nativeBool(l.Value || r.Value)
}

// objectsEqual compares by value. Integers and floats compare across
// types, so 1 == 1.0 holds.
func objectsEqual(left, right Object) bool {
	if isNumeric(left) && isNumeric(right) {
		return numValue(left) == numValue(right)
	}
	switch l := left.(type) {
	case *Null:
		_, ok := right.(*Null)
		return ok
	case *Boolean:
		r, ok := right.(*Boolean)
		return ok && l.Value == r.Value
	case *String:
		r, ok := right.(*String)
		return ok && l.Value == r.Value
	case *List:
		r, ok := right.(*List)
		if !ok || len(l.Elements) != len(r.Elements) {
			return false
		}
		for i := range l.Elements {
			if !objectsEqual(l.Elements[i], r.Elements[i]) {
				return false
			}
		}
		return true
	case *Map:
		r, ok := right.(*Map)
		if !ok || len(l.Pairs) != len(r.Pairs) {
			return false
		}
		for k, v := range l.Pairs {
			rv, present := r.Pairs[k]
			if !present || !objectsEqual(v, rv) {
				return false
			}
		}
		return true
	case *Table:
		r, ok := right.(*Table)
		return ok && l.Value.Equal(r.Value)
	}
	return false
}

func isNumeric(obj Object) bool {
	return obj.Type() == INTEGER_OBJ || obj.Type() == FLOAT_OBJ
}

func numValue(obj Object) float64 {
	switch x := obj.(type) {
	case *Integer:
		return float64(x.Value)
	case *Float:
		return x.Value
	}
	return 0
}

func evalIndexExpression(node *ast.IndexExpression, env *Environment) Object {
	left := Eval(node.Left, env)
	if isError(left) {
		return left
	}
	index := Eval(node.Index, env)
	if isError(index) {
		return index
	}

	switch recv := left.(type) {
	case *Table:
		col, ok := index.(*String)
		if !ok {
			return newError("table index must be a column name, got %s", index.Type())
		}
		values, err := recv.Value.Column(col.Value)
		if err != nil {
			return newError("%s", err)
		}
		elems := make([]Object, len(values))
		for i, v := range values {
			elems[i] = wrapCell(v)
		}
		return &List{Elements: elems}

	case *List:
		idx, ok := index.(*Integer)
		if !ok {
			return newError("list index must be an integer, got %s", index.Type())
		}
		i, errObj := listIndex(idx.Value, len(recv.Elements))
		if errObj != nil {
			return errObj
		}
		return recv.Elements[i]

	case *Map:
		key, ok := index.(*String)
		if !ok {
			return newError("map key must be a string, got %s", index.Type())
		}
		v, present := recv.Pairs[key.Value]
		if !present {
			return newError("unknown key %q", key.Value)
		}
		return v
	}
	return newError("%s is not indexable", left.Type())
}

// listIndex resolves a possibly-negative index against a length.
func listIndex(idx int64, n int) (int, *Error) {
	i := idx
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, newError("list index %d out of range (%d elements)", idx, n)
	}
	return int(i), nil
}

// evalIndexAssign writes through an index. Lists and maps mutate in
// place; tables are immutable, so the table variable is rebound to a new
// table carrying the column.
func evalIndexAssign(node *ast.IndexAssignStatement, env *Environment) Object {
	target := Eval(node.Target.Left, env)
	if isError(target) {
		return target
	}
	index := Eval(node.Target.Index, env)
	if isError(index) {
		return index
	}
	val := Eval(node.Value, env)
	if isError(val) {
		return val
	}

	switch recv := target.(type) {
	case *Table:
		name, ok := node.Target.Left.(*ast.Identifier)
		if !ok {
			return newError("column assignment needs a named table")
		}
		col, ok := index.(*String)
		if !ok {
			return newError("table index must be a column name, got %s", index.Type())
		}
		updated, err := tableWithColumn(recv.Value, col.Value, val)
		if err != nil {
			return newError("%s", err)
		}
		env.Set(name.Value, &Table{Value: updated})
		return NULL

	case *List:
		idx, ok := index.(*Integer)
		if !ok {
			return newError("list index must be an integer, got %s", index.Type())
		}
		i, errObj := listIndex(idx.Value, len(recv.Elements))
		if errObj != nil {
			return errObj
		}
		recv.Elements[i] = val
		return NULL

	case *Map:
		key, ok := index.(*String)
		if !ok {
			return newError("map key must be a string, got %s", index.Type())
		}
		recv.Set(key.Value, val)
		return NULL
	}
	return newError("cannot assign into %s", target.Type())
}

// tableWithColumn builds a new table with col set from a script value: a
// list supplies one cell per row, a scalar broadcasts.
func tableWithColumn(t *table.Table, col string, val Object) (*table.Table, error) {
	if list, ok := val.(*List); ok {
		values := make([]any, len(list.Elements))
		for i, e := range list.Elements {
			cell, err := unwrapCell(e)
			if err != nil {
				return nil, err
			}
			values[i] = cell
		}
		return t.SetColumn(col, values)
	}
	cell, err := unwrapCell(val)
	if err != nil {
		return nil, err
	}
	return t.SetColumnScalar(col, cell), nil
}

func evalCall(node *ast.CallExpression, env *Environment) Object {
	fn := evalIdentifier(node.Function, env)
	if isError(fn) {
		return fn
	}
	builtin, ok := fn.(*Builtin)
	if !ok {
		return newError("%q is not callable", node.Function.Value)
	}
	args := evalExpressions(node.Arguments, env)
	if len(args) == 1 && isError(args[0]) {
		return args[0]
	}
	return builtin.Fn(args...)
}

func evalMethodCall(node *ast.MethodCallExpression, env *Environment) Object {
	recv := Eval(node.Receiver, env)
	if isError(recv) {
		return recv
	}
	args := evalExpressions(node.Arguments, env)
	if len(args) == 1 && isError(args[0]) {
		return args[0]
	}

	var reg methodRegistry
	switch recv.Type() {
	case TABLE_OBJ:
		reg = tableMethods
	case STRING_OBJ:
		reg = stringMethods
	case MODEL_OBJ:
		reg = modelMethods
	default:
		return newError("%s has no methods", recv.Type())
	}
	entry, ok := reg[node.Method]
	if !ok {
		return newError("unknown method %q for %s", node.Method, strings.ToLower(string(recv.Type())))
	}
	if errObj := entry.checkArity(node.Method, len(args)); errObj != nil {
		return errObj
	}
	return entry.fn(recv, args)
}
