package ir

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
)

// BlockID is a stable index into a program's block arena. IDs survive
// rollback of other blocks; a rolled-back block's own ID becomes
// unresolvable.
type BlockID int

// NoParent is the parent ID of the root block.
const NoParent BlockID = -1

// Block is one lexical scope: an ordered operation list plus the
// variables the scope owns. Name resolution sees this block and its
// ancestors, never siblings.
type Block struct {
	id     BlockID
	parent BlockID
	prog   *Program

	ops      []*Operation
	varNames []string
	vars     map[string]*Variable
}

// ID returns the block's arena index.
func (b *Block) ID() BlockID { return b.id }

// ParentID returns the parent's arena index, or NoParent for the root.
func (b *Block) ParentID() BlockID { return b.parent }

// Parent returns the enclosing block, or false for the root.
func (b *Block) Parent() (*Block, bool) {
	if b.parent == NoParent {
		return nil, false
	}
	return b.prog.Block(b.parent)
}

// Ops returns the block's operations in append order.
func (b *Block) Ops() []*Operation { return b.ops }

// AppendOp adds an operation to the end of the block.
func (b *Block) AppendOp(op *Operation) { b.ops = append(b.ops, op) }

// VarNames returns the block's own variable names in creation order.
func (b *Block) VarNames() []string { return b.varNames }

// Var looks a name up in this block only.
func (b *Block) Var(name string) (*Variable, bool) {
	v, ok := b.vars[name]
	return v, ok
}

// VarRecursive looks a name up in this block and then each ancestor.
func (b *Block) VarRecursive(name string) (*Variable, bool) {
	for cur := b; ; {
		if v, ok := cur.Var(name); ok {
			return v, true
		}
		parent, ok := cur.Parent()
		if !ok {
			return nil, false
		}
		cur = parent
	}
}

// CreateVar adds a variable to this block. Names are unique within a
// block; a collision is a structural error.
func (b *Block) CreateVar(spec VarSpec) (*Variable, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: variable name must not be empty", flowerr.ErrStructure)
	}
	if _, ok := b.vars[spec.Name]; ok {
		return nil, fmt.Errorf("%w: variable %q already exists in block %d", flowerr.ErrStructure, spec.Name, b.id)
	}
	v := &Variable{
		Name:        spec.Name,
		Kind:        spec.Kind,
		DType:       spec.DType,
		Shape:       spec.Shape,
		LoDLevel:    spec.LoDLevel,
		Persistable: spec.Persistable,
	}
	if b.vars == nil {
		b.vars = make(map[string]*Variable)
	}
	b.vars[spec.Name] = v
	b.varNames = append(b.varNames, spec.Name)
	return v, nil
}

// MustCreateVar is CreateVar for construction paths where the name was
// just minted by the naming service and cannot collide.
func (b *Block) MustCreateVar(spec VarSpec) *Variable {
	v, err := b.CreateVar(spec)
	if err != nil {
		panic(err)
	}
	return v
}
