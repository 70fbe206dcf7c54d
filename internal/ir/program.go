package ir

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
)

// Program owns the block arena and the current-block pointer. Blocks
// are addressed by BlockID so an embedded sub-block reference stays
// valid no matter what happens to Go pointers, and a rolled-back
// block's slot is cleared so nothing reachable from the tree can find
// it again.
//
// Construction is single-threaded by contract; Program does no
// locking.
type Program struct {
	blocks  []*Block
	current BlockID
}

// NewProgram creates a program with a root block that is current.
func NewProgram() *Program {
	p := &Program{}
	root := &Block{id: 0, parent: NoParent, prog: p}
	p.blocks = append(p.blocks, root)
	p.current = 0
	return p
}

// Root returns the root block.
func (p *Program) Root() *Block { return p.blocks[0] }

// Current returns the block under construction.
func (p *Program) Current() *Block { return p.blocks[p.current] }

// Block resolves an arena index. A discarded or unknown ID reports
// false.
func (p *Program) Block(id BlockID) (*Block, bool) {
	if id < 0 || int(id) >= len(p.blocks) || p.blocks[id] == nil {
		return nil, false
	}
	return p.blocks[id], true
}

// NewBlock creates a child of the current block and makes it current.
func (p *Program) NewBlock() *Block {
	b := &Block{id: BlockID(len(p.blocks)), parent: p.current, prog: p}
	p.blocks = append(p.blocks, b)
	p.current = b.id
	return b
}

// Commit restores the parent of the current block as current, keeping
// the block in the arena so a composite operation can embed it.
func (p *Program) Commit() error {
	return p.exitCurrent(true)
}

// Rollback restores the parent of the current block as current and
// discards the block, along with every sub-block committed inside it,
// so the block tree is exactly as it was before the matching NewBlock.
func (p *Program) Rollback() error {
	return p.exitCurrent(false)
}

func (p *Program) exitCurrent(keep bool) error {
	cur := p.blocks[p.current]
	if cur.parent == NoParent {
		return fmt.Errorf("%w: cannot exit the root block", flowerr.ErrSequence)
	}
	if !keep {
		p.discard(cur.id)
	}
	p.current = cur.parent
	return nil
}

// discard clears a block's arena slot and every descendant's. Children
// always carry higher IDs than their parent, so a single forward sweep
// catches the whole subtree: a live block whose parent slot is already
// cleared is orphaned.
func (p *Program) discard(id BlockID) {
	p.blocks[id] = nil
	for i := int(id) + 1; i < len(p.blocks); i++ {
		b := p.blocks[i]
		if b == nil || b.parent == NoParent {
			continue
		}
		if p.blocks[b.parent] == nil {
			p.blocks[i] = nil
		}
	}
}

// BlockCount returns the arena size, counting discarded slots. Dumps
// and tests use it to iterate every live block.
func (p *Program) BlockCount() int { return len(p.blocks) }
