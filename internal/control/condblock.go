package control

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/capture"
	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
	"github.com/vk/flowir/internal/scope"
)

// CondBlock lowers a guarded region: the explicit inputs are the
// predicate-determining values, everything else the body reads is
// captured as Params. Switch cases and IfElse branches are both built
// on top of it.
type CondBlock struct {
	lib        *ops.Library
	inputs     []*ir.Variable
	scalarCond bool
}

// NewCondBlock validates the explicit input list.
func NewCondBlock(lib *ops.Library, inputs []*ir.Variable, scalarCond bool) (*CondBlock, error) {
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("%w: conditional block input %d must be a variable", flowerr.ErrType, i)
		}
	}
	return &CondBlock{lib: lib, inputs: inputs, scalarCond: scalarCond}, nil
}

// Block opens the guarded scope, runs fn, and lowers the result into a
// single conditional_block op in the parent. Closing with no output
// visible to the parent is a construction error.
func (c *CondBlock) Block(fn func(b *ir.Block) error) error {
	g := scope.Enter(c.lib.Prog)
	if err := fn(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	if err := c.complete(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	return g.Commit()
}

func (c *CondBlock) complete(body *ir.Block) error {
	parent, ok := body.Parent()
	if !ok {
		return fmt.Errorf("%w: conditional block has no parent", flowerr.ErrStructure)
	}

	inputSet := make(map[string]bool, len(c.inputs))
	for _, in := range c.inputs {
		inputSet[in.Name] = true
	}

	var params []string
	for _, name := range capture.FreeVars(body, nil) {
		if !inputSet[name] {
			params = append(params, name)
		}
	}
	paramVars, err := capture.Resolve(parent, params)
	if err != nil {
		return err
	}

	var outNames []string
	for _, name := range capture.Produced(body, nil) {
		if _, ok := parent.Var(name); ok {
			outNames = append(outNames, name)
		}
	}
	if len(outNames) == 0 {
		return fmt.Errorf("%w: must set output inside block", flowerr.ErrStructure)
	}

	stepScope := parent.MustCreateVar(ir.VarSpec{
		Name: c.lib.Names.Generate("conditional_block.step_scope"),
		Kind: ir.KindStepScopes,
	})

	op := ir.NewOperation("conditional_block")
	for _, in := range c.inputs {
		op.AddInput("X", in.Name)
	}
	for _, v := range paramVars {
		op.AddInput("Params", v.Name)
	}
	for _, name := range outNames {
		op.AddOutput("Out", name)
	}
	op.AddOutput("Scope", stepScope.Name)
	op.SetAttr("sub_block", ir.SubBlock(body.ID()))
	op.SetAttr("is_scalar_condition", ir.Val(cty.BoolVal(c.scalarCond)))
	return c.lib.Append(parent, op)
}
