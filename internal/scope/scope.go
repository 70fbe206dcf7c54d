// Package scope enforces the LIFO discipline on block entry and exit.
// Every construct opens a child block through a Guard; the guard's
// close path runs exactly once on every exit, so an error raised while
// a scope is current still rolls the block tree back to its state
// before Enter.
package scope

import "github.com/vk/flowir/internal/ir"

// Guard represents one entered scope. Exactly one of Commit or
// Rollback takes effect; later calls are no-ops.
type Guard struct {
	prog *ir.Program
	blk  *ir.Block
	done bool
}

// Enter creates a child of the program's current block, makes it
// current, and returns the guard that must close it.
func Enter(p *ir.Program) *Guard {
	return &Guard{prog: p, blk: p.NewBlock()}
}

// Block returns the block this guard opened.
func (g *Guard) Block() *ir.Block { return g.blk }

// Commit restores the parent as current and keeps the block so a
// composite operation can embed it.
func (g *Guard) Commit() error {
	if g.done {
		return nil
	}
	g.done = true
	return g.prog.Commit()
}

// Rollback restores the parent as current and discards the block.
func (g *Guard) Rollback() error {
	if g.done {
		return nil
	}
	g.done = true
	return g.prog.Rollback()
}

// With enters a scope, runs fn against the new block, and closes the
// scope: rollback when fn fails (the block tree is untouched and fn's
// error propagates), commit when it succeeds. The committed block is
// returned so the caller can embed it.
func With(p *ir.Program, fn func(b *ir.Block) error) (*ir.Block, error) {
	g := Enter(p)
	if err := fn(g.Block()); err != nil {
		_ = g.Rollback()
		return nil, err
	}
	if err := g.Commit(); err != nil {
		return nil, err
	}
	return g.Block(), nil
}
