// Package env implements the singly-linked binding environment used
// twice by the compiler: once for local variables (name -> negative
// stack offset) and once for labels (name -> code buffer offset).
//
// The original C compiler allocates each node on the call stack so a
// binding's lifetime is exactly the scope that introduced it; nothing
// escapes past the return of its creator (see compiler.c's "Env"
// section). Go has no borrowed-reference lifetimes to mirror that with,
// but the same discipline falls out of using an immutable, value-typed
// list: each Push returns a new head and never mutates an existing node,
// so a caller's *Env is never retrofitted with a nested scope's bindings.
package env

// Env is one binding frame in a linked list. A nil *Env is the empty
// environment.
type Env struct {
	name  string
	index int32
	next  *Env
}

// Push prepends a new binding, giving it lexical shadowing over any
// earlier binding of the same name.
func Push(name string, index int32, next *Env) *Env {
	return &Env{name: name, index: index, next: next}
}

// Lookup walks the list head-first; the first match wins.
func Lookup(e *Env, name string) (index int32, ok bool) {
	for n := e; n != nil; n = n.next {
		if n.name == name {
			return n.index, true
		}
	}
	return 0, false
}
