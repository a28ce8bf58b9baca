package interp

// Environment holds variable bindings. The language has no functions or
// blocks, so a single flat scope is enough.
type Environment struct {
	store map[string]Object
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{store: map[string]Object{}}
}

// Get retrieves a binding.
func (e *Environment) Get(name string) (Object, bool) {
	v, ok := e.store[name]
	return v, ok
}

// Set creates or replaces a binding.
func (e *Environment) Set(name string, val Object) Object {
	e.store[name] = val
	return val
}
