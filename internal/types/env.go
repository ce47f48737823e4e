package types

import "github.com/sable-lang/sable/internal/position"

// Binding is one named binding visible in a scope.
type Binding struct {
	Name    string
	Type    Type
	Mutable bool
	Pos     position.Position
}

// Env is a stack of scopes mapping identifiers to bindings. Scopes are
// held in a flat arena indexed by depth; lookup proceeds innermost to
// outermost and can never observe a popped scope.
type Env struct {
	scopes []map[string]*Binding
}

// NewEnv returns an environment with a single (outermost) scope.
func NewEnv() *Env {
	return &Env{scopes: []map[string]*Binding{{}}}
}

// Push enters a new innermost scope.
func (e *Env) Push() {
	e.scopes = append(e.scopes, map[string]*Binding{})
}

// Pop leaves the innermost scope. Popping the outermost scope is a
// programming error and panics.
func (e *Env) Pop() {
	if len(e.scopes) == 1 {
		panic("types: popping outermost scope")
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// Depth returns the current nesting depth, 1 for the outermost scope.
func (e *Env) Depth() int { return len(e.scopes) }

// Define introduces a binding in the innermost scope. It returns false if
// the name is already bound in that same scope; shadowing an outer scope
// is allowed.
func (e *Env) Define(b *Binding) bool {
	top := e.scopes[len(e.scopes)-1]
	if _, exists := top[b.Name]; exists {
		return false
	}
	top[b.Name] = b
	return true
}

// Lookup resolves a name, innermost scope first.
func (e *Env) Lookup(name string) (*Binding, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if b, ok := e.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// LookupLocal resolves a name in the innermost scope only.
func (e *Env) LookupLocal(name string) (*Binding, bool) {
	b, ok := e.scopes[len(e.scopes)-1][name]
	return b, ok
}
