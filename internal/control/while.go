package control

import (
	"fmt"

	"github.com/vk/flowir/internal/capture"
	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
	"github.com/vk/flowir/internal/scope"
)

// While lowers a condition-driven loop. The condition is a boolean
// scalar variable that the loop body itself must recompute each pass;
// on close the body becomes the sub-block of a single `while` op whose
// captured free variables are wired as X and whose condition is wired
// as a dedicated input.
type While struct {
	lib   *ops.Library
	cond  *ir.Variable
	phase Phase
}

// NewWhile validates the condition variable: it must be boolean and
// logically scalar (one element).
func NewWhile(lib *ops.Library, cond *ir.Variable) (*While, error) {
	if cond == nil {
		return nil, fmt.Errorf("%w: while condition must be a variable", flowerr.ErrType)
	}
	if cond.DType != ir.Bool {
		return nil, fmt.Errorf("%w: while condition must be boolean, got %s", flowerr.ErrType, cond.DType)
	}
	if cond.Numel() != 1 {
		return nil, fmt.Errorf("%w: while condition must be a scalar, got shape %v", flowerr.ErrType, cond.Shape)
	}
	return &While{lib: lib, cond: cond}, nil
}

// Block opens the loop body scope, runs fn to populate it, and on
// success lowers the body into the parent block. On any error the
// scope rolls back and the block tree is untouched.
func (w *While) Block(fn func(b *ir.Block) error) error {
	if err := transition(&w.phase, Before, In, "while block()"); err != nil {
		return err
	}
	g := scope.Enter(w.lib.Prog)
	if err := fn(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	w.phase = After
	if err := w.complete(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	return g.Commit()
}

func (w *While) complete(body *ir.Block) error {
	parent, ok := body.Parent()
	if !ok {
		return fmt.Errorf("%w: while block has no parent", flowerr.ErrStructure)
	}

	declared := []string{w.cond.Name}
	params := capture.FreeVars(body, declared)
	paramVars, err := capture.Resolve(parent, params)
	if err != nil {
		return err
	}

	// A name produced inside the loop that shadows a variable of the
	// parent block is the caller's way of carrying it out.
	var outNames []string
	for _, name := range capture.Produced(body, declared) {
		if _, ok := parent.Var(name); ok {
			outNames = append(outNames, name)
		}
	}

	stepScope := parent.MustCreateVar(ir.VarSpec{
		Name: w.lib.Names.Generate("while.step_scope"),
		Kind: ir.KindStepScopes,
	})

	op := ir.NewOperation("while")
	for _, v := range paramVars {
		op.AddInput("X", v.Name)
	}
	op.AddInput("Condition", w.cond.Name)
	for _, name := range outNames {
		op.AddOutput("Out", name)
	}
	op.AddOutput("StepScopes", stepScope.Name)
	op.SetAttr("sub_block", ir.SubBlock(body.ID()))
	return w.lib.Append(parent, op)
}
