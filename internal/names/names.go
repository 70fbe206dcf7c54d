// Package names provides the naming service used to mint unique
// variable and operation names. A Generator is an explicit, injectable
// object rather than process-global state, so tests can create a fresh
// one and get reproducible names.
package names

import (
	"fmt"
	"strings"
)

// Generator mints unique names from human-readable prefixes. Each
// prefix has its own monotonic counter, so the first "while" name is
// "while_0" regardless of how many "less_than" names came before it.
//
// A Generator is not safe for concurrent use; program construction is
// single-threaded by contract.
type Generator struct {
	counters map[string]int
}

// New creates a Generator with all counters at zero.
func New() *Generator {
	return &Generator{counters: make(map[string]int)}
}

// Generate returns the next unique name for the given prefix.
func (g *Generator) Generate(prefix string) string {
	n := g.counters[prefix]
	g.counters[prefix]++
	return fmt.Sprintf("%s_%d", prefix, n)
}

// Temp returns a name for an anonymous intermediate result of the
// given operation type, e.g. "less_than.tmp_3".
func (g *Generator) Temp(opType string) string {
	return g.Generate(strings.Join([]string{opType, "tmp"}, "."))
}

// Reset returns every counter to zero. Intended for tests that need
// two constructions to produce identical programs.
func (g *Generator) Reset() {
	g.counters = make(map[string]int)
}
