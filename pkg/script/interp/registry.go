package interp

// methodFunc implements one method for a receiver type. The receiver has
// already been matched to the registry's type by the dispatcher.
type methodFunc func(recv Object, args []Object) Object

// methodEntry couples an implementation with its accepted argument count.
// maxArgs -1 means no upper bound.
type methodEntry struct {
	fn      methodFunc
	minArgs int
	maxArgs int
}

// methodRegistry maps method names to entries for one receiver type.
type methodRegistry map[string]methodEntry

func (e methodEntry) checkArity(name string, got int) *Error {
	if got >= e.minArgs && (e.maxArgs < 0 || got <= e.maxArgs) {
		return nil
	}
	switch {
	case e.minArgs == e.maxArgs:
		return newError("%s expects %d arguments, got %d", name, e.minArgs, got)
	case e.maxArgs < 0:
		return newError("%s expects at least %d arguments, got %d", name, e.minArgs, got)
	default:
		return newError("%s expects between %d and %d arguments, got %d", name, e.minArgs, e.maxArgs, got)
	}
}

// stringArgs converts every argument to a string value or reports which
// one is wrong.
func stringArgs(method string, args []Object) ([]string, *Error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(*String)
		if !ok {
			return nil, newError("%s: argument %d must be a string, got %s", method, i+1, a.Type())
		}
		out[i] = s.Value
	}
	return out, nil
}

func stringArg(method string, i int, args []Object) (string, *Error) {
	s, ok := args[i].(*String)
	if !ok {
		return "", newError("%s: argument %d must be a string, got %s", method, i+1, args[i].Type())
	}
	return s.Value, nil
}

func floatArg(method string, i int, args []Object) (float64, *Error) {
	switch x := args[i].(type) {
	case *Integer:
		return float64(x.Value), nil
	case *Float:
		return x.Value, nil
	}
	return 0, newError("%s: argument %d must be a number, got %s", method, i+1, args[i].Type())
}

func intArg(method string, i int, args []Object) (int64, *Error) {
	n, ok := args[i].(*Integer)
	if !ok {
		return 0, newError("%s: argument %d must be an integer, got %s", method, i+1, args[i].Type())
	}
	return n.Value, nil
}
