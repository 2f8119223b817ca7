package eval

// Context is an immutable identifier→Value mapping, implemented as a
// persistent overlay (parent pointer + small local map) to avoid
// copying on every binding. Event and lifecycle handlers derive a
// child context that shadows their bound parameter name rather than
// mutating a shared one.
type Context struct {
	parent *Context
	local  map[string]Value
}

// NewContext builds a root context, typically the set of bound
// inputs the execution engine accumulates computed fields into.
func NewContext() *Context {
	return &Context{local: make(map[string]Value)}
}

// With returns a new context equal to c plus name→value, leaving c
// untouched; the engine extends context monotonically field-by-field
// by always rebinding to the returned context rather than mutating in
// place.
func (c *Context) With(name string, v Value) *Context {
	return &Context{parent: c, local: map[string]Value{name: v}}
}

// Shadow derives a child context binding a single handler parameter:
// new context frames are derived for event/lifecycle handlers by
// shadowing the parameter name.
func (c *Context) Shadow(param string, v Value) *Context {
	return c.With(param, v)
}

// Lookup resolves name, searching the local overlay before the
// parent chain.
func (c *Context) Lookup(name string) (Value, bool) {
	for frame := c; frame != nil; frame = frame.parent {
		if v, ok := frame.local[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Names returns every identifier bound anywhere in c's frame chain,
// used to offer a "did you mean" suggestion next to an
// UnknownIdentifier diagnostic.
func (c *Context) Names() []string {
	seen := map[string]bool{}
	var names []string
	for frame := c; frame != nil; frame = frame.parent {
		for name := range frame.local {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
