// Package capture computes the interface of a completed sub-block:
// which names it reads from enclosing scopes versus which it produces
// itself. Control constructs call it at close time to wire the
// captured variables of their composite operation.
package capture

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
)

// FreeVars walks the block's operations in declaration order and
// returns every input name that no earlier operation produced and that
// is not in declared. The result is deduplicated and kept in
// first-seen order so emitted parameter lists are reproducible.
//
// declared seeds the locally-defined set with the construct's own
// wiring: explicit step inputs, memory placeholders, a while-loop's
// condition variable.
func FreeVars(b *ir.Block, declared []string) []string {
	local := make(map[string]bool, len(declared))
	for _, name := range declared {
		local[name] = true
	}

	var params []string
	seen := make(map[string]bool)
	for _, op := range b.Ops() {
		for _, in := range op.InputVars() {
			if !local[in] && !seen[in] {
				seen[in] = true
				params = append(params, in)
			}
		}
		for _, out := range op.OutputVars() {
			local[out] = true
		}
	}
	return params
}

// Produced returns every name the block's operations write, prefixed
// by declared, deduplicated and in first-seen order. While-style
// constructs use it to find which produced names collide with outer
// variables and therefore carry out.
func Produced(b *ir.Block, declared []string) []string {
	seen := make(map[string]bool, len(declared))
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range declared {
		add(name)
	}
	for _, op := range b.Ops() {
		for _, name := range op.OutputVars() {
			add(name)
		}
	}
	return out
}

// Resolve maps captured names to variables, searching the given block
// and its ancestors. A name found nowhere escaped its defining scope,
// which is fatal to construction.
func Resolve(from *ir.Block, names []string) ([]*ir.Variable, error) {
	vars := make([]*ir.Variable, 0, len(names))
	for _, name := range names {
		v, ok := from.VarRecursive(name)
		if !ok {
			return nil, fmt.Errorf("%w: captured variable %q is not defined in any enclosing scope", flowerr.ErrStructure, name)
		}
		vars = append(vars, v)
	}
	return vars, nil
}
