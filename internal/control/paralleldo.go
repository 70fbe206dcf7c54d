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

// ParallelDo replicates a block across a fixed set of places. Inputs
// read through ReadInput are split across replicas; everything else the
// body touches is captured as shared parameters, and outputs are
// gathered back into the enclosing block.
type ParallelDo struct {
	lib     *ops.Library
	places  []string
	useNCCL bool
	phase   Phase

	inputs  []*ir.Variable
	outputs []*ir.Variable
}

// NewParallelDo creates a replicated region over the given places.
func NewParallelDo(lib *ops.Library, places []string, useNCCL bool) (*ParallelDo, error) {
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: parallel_do requires at least one place", flowerr.ErrStructure)
	}
	return &ParallelDo{lib: lib, places: places, useNCCL: useNCCL}, nil
}

// Do opens the replica scope, runs fn to populate it, and on success
// lowers the region into the parent block.
func (p *ParallelDo) Do(fn func(b *ir.Block) error) error {
	if err := transition(&p.phase, Before, In, "do()"); err != nil {
		return err
	}
	g := scope.Enter(p.lib.Prog)
	if err := fn(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	p.phase = After
	if err := p.complete(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	return g.Commit()
}

// ReadInput marks a variable as per-replica input: each place receives
// its slice rather than the whole value.
func (p *ParallelDo) ReadInput(v *ir.Variable) (*ir.Variable, error) {
	if err := requirePhase(p.phase, In, "read_input()"); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: read_input argument must be a variable", flowerr.ErrType)
	}
	p.inputs = append(p.inputs, v)
	return v, nil
}

// WriteOutput marks a body variable whose per-replica values are
// gathered into the enclosing block.
func (p *ParallelDo) WriteOutput(v *ir.Variable) error {
	if err := requirePhase(p.phase, In, "write_output()"); err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%w: write_output argument must be a variable", flowerr.ErrType)
	}
	p.outputs = append(p.outputs, v)
	return nil
}

// Outputs returns the gathered outputs after the region closed.
func (p *ParallelDo) Outputs() ([]*ir.Variable, error) {
	if err := requirePhase(p.phase, After, "outputs()"); err != nil {
		return nil, err
	}
	if len(p.outputs) == 0 {
		return nil, fmt.Errorf("%w: no output was declared inside the region", flowerr.ErrStructure)
	}
	return p.outputs, nil
}

func (p *ParallelDo) complete(body *ir.Block) error {
	parent, ok := body.Parent()
	if !ok {
		return fmt.Errorf("%w: parallel region has no parent", flowerr.ErrStructure)
	}

	declared := make([]string, 0, len(p.inputs))
	for _, in := range p.inputs {
		declared = append(declared, in.Name)
	}
	params := capture.FreeVars(body, declared)
	paramVars, err := capture.Resolve(parent, params)
	if err != nil {
		return err
	}

	// Gathered outputs become fresh variables of the parent under the
	// same names; a collision there is a real conflict, not a shadow.
	outNames := make([]string, 0, len(p.outputs))
	for _, out := range p.outputs {
		if _, err := parent.CreateVar(ir.VarSpec{
			Name:        out.Name,
			Kind:        out.Kind,
			DType:       out.DType,
			Shape:       out.Shape,
			LoDLevel:    out.LoDLevel,
			Persistable: out.Persistable,
		}); err != nil {
			return err
		}
		outNames = append(outNames, out.Name)
	}

	op := ir.NewOperation("parallel_do")
	for _, in := range p.inputs {
		op.AddInput("inputs", in.Name)
	}
	for _, v := range paramVars {
		op.AddInput("parameters", v.Name)
	}
	for _, name := range outNames {
		op.AddOutput("outputs", name)
	}
	for range p.places {
		scopes := parent.MustCreateVar(ir.VarSpec{
			Name: p.lib.Names.Generate("parallel_do.place_scope"),
			Kind: ir.KindStepScopes,
		})
		op.AddOutput("parallel_scopes", scopes.Name)
	}
	op.SetAttr("sub_block", ir.SubBlock(body.ID()))
	op.SetAttr("places", ir.NameList(p.places...))
	op.SetAttr("use_nccl", ir.Val(cty.BoolVal(p.useNCCL)))
	return p.lib.Append(parent, op)
}
