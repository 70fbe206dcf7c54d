package control

import (
	"fmt"

	"github.com/vk/flowir/internal/capture"
	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
	"github.com/vk/flowir/internal/scope"
)

// MemoryLink ties one recurrence state together: the initial value in
// the enclosing block, the previous-step view inside the step block,
// and the updated value the step produced.
type MemoryLink struct {
	Init   *ir.Variable
	PreMem *ir.Variable
	Mem    *ir.Variable
}

// StaticRNN unrolls a fixed-length recurrence. All step inputs must
// share the same leading (time) dimension; the step block sees one time
// slice per pass and the whole loop lowers into a single `recurrent`
// op.
type StaticRNN struct {
	lib   *ops.Library
	name  string
	phase Phase

	linkOrder []string
	links     map[string]*MemoryLink
	inputs    []*ir.Variable
	outputs   []*ir.Variable

	// seqLen may legitimately be -1 (deferred leading dim), so a
	// separate flag tracks whether any step input fixed it yet.
	seqLen    int64
	seqLenSet bool
}

// NewStaticRNN creates an empty recurrence; populate it with Step.
func NewStaticRNN(lib *ops.Library) *StaticRNN {
	return &StaticRNN{
		lib:   lib,
		name:  lib.Names.Generate("static_rnn"),
		links: make(map[string]*MemoryLink),
	}
}

// Step opens the per-timestep scope, runs fn to populate it, and on
// success lowers the recurrence into the parent block.
func (r *StaticRNN) Step(fn func(b *ir.Block) error) error {
	if err := transition(&r.phase, Before, In, "step()"); err != nil {
		return err
	}
	g := scope.Enter(r.lib.Prog)
	if err := fn(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	r.phase = After
	if err := r.complete(g.Block()); err != nil {
		_ = g.Rollback()
		return err
	}
	return g.Commit()
}

// MemoryOptions configures a recurrence state. Either Init names an
// existing initial-value tensor, or Shape+BatchRef describe a constant
// boot value whose batch dimension is copied from a reference tensor.
type MemoryOptions struct {
	Init      *ir.Variable
	Shape     []int64
	BatchRef  *ir.Variable
	InitValue float64

	// InitBatchDimIdx is the output dim receiving the batch size,
	// RefBatchDimIdx the reference dim it is read from. RefBatchDimIdx
	// defaults to 1 when left zero, matching the usual [seq, batch, ...]
	// layout of step inputs.
	InitBatchDimIdx int
	RefBatchDimIdx  int
}

// Memory declares a recurrence state and returns the step block's view
// of its previous-step value. Pair it with UpdateMemory before the step
// closes.
func (r *StaticRNN) Memory(opts MemoryOptions) (*ir.Variable, error) {
	if err := requirePhase(r.phase, In, "memory()"); err != nil {
		return nil, err
	}
	if opts.Init == nil {
		if len(opts.Shape) == 0 || opts.BatchRef == nil {
			return nil, fmt.Errorf("%w: memory without init needs shape and batch_ref", flowerr.ErrType)
		}
		parent, err := parentOf(r.lib)
		if err != nil {
			return nil, err
		}
		refIdx := opts.RefBatchDimIdx
		if refIdx == 0 {
			refIdx = 1
		}
		boot := parent.MustCreateVar(ir.VarSpec{
			Name:  r.lib.Names.Generate(r.name + "@memory_boot"),
			Kind:  ir.KindTensor,
			DType: opts.BatchRef.DType,
			Shape: opts.Shape,
		})
		if err := r.lib.FillConstantBatchSizeLike(parent, opts.BatchRef, boot,
			opts.Shape, opts.InitValue, refIdx, opts.InitBatchDimIdx); err != nil {
			return nil, err
		}
		return r.Memory(MemoryOptions{Init: boot})
	}

	cur := r.lib.Prog.Current()
	preMem := cur.MustCreateVar(ir.VarSpec{
		Name:  r.lib.Names.Generate(r.name + "@mem"),
		Kind:  ir.KindTensor,
		DType: opts.Init.DType,
		Shape: opts.Init.Shape,
	})
	r.linkOrder = append(r.linkOrder, preMem.Name)
	r.links[preMem.Name] = &MemoryLink{Init: opts.Init, PreMem: preMem}
	return preMem, nil
}

// StepInput registers a sequence input and returns its per-step slice.
// The leading dimension of the first input fixes the sequence length;
// later inputs must agree.
func (r *StaticRNN) StepInput(x *ir.Variable) (*ir.Variable, error) {
	if err := requirePhase(r.phase, In, "step_input()"); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, fmt.Errorf("%w: step input must be a variable", flowerr.ErrType)
	}
	if len(x.Shape) == 0 {
		return nil, fmt.Errorf("%w: step input %q has no leading time dimension", flowerr.ErrShape, x.Name)
	}
	if !r.seqLenSet {
		r.seqLen = x.Shape[0]
		r.seqLenSet = true
	} else if x.Shape[0] != -1 && r.seqLen != x.Shape[0] {
		return nil, fmt.Errorf("%w: step input %q has sequence length %d, want %d", flowerr.ErrShape, x.Name, x.Shape[0], r.seqLen)
	}

	cur := r.lib.Prog.Current()
	slice, err := cur.CreateVar(ir.VarSpec{
		Name:  x.Name,
		Kind:  ir.KindTensor,
		DType: x.DType,
		Shape: x.Shape[1:],
	})
	if err != nil {
		return nil, err
	}
	r.inputs = append(r.inputs, x)
	return slice, nil
}

// StepOutput collects a per-step value; the unrolled result in the
// enclosing block gains the time dimension back.
func (r *StaticRNN) StepOutput(o *ir.Variable) error {
	if err := requirePhase(r.phase, In, "step_output()"); err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("%w: step output must be a variable", flowerr.ErrType)
	}
	if !r.seqLenSet {
		return fmt.Errorf("%w: step_output() requires a prior step_input()", flowerr.ErrSequence)
	}
	cur := r.lib.Prog.Current()
	tmp, err := r.lib.RNNMemoryHelper(cur, o)
	if err != nil {
		return err
	}
	parent, err := parentOf(r.lib)
	if err != nil {
		return err
	}
	outer, err := parent.CreateVar(ir.VarSpec{
		Name:  tmp.Name,
		Kind:  ir.KindTensor,
		DType: tmp.DType,
		Shape: append([]int64{r.seqLen}, tmp.Shape...),
	})
	if err != nil {
		return err
	}
	r.outputs = append(r.outputs, outer)
	return nil
}

// UpdateMemory closes the loop on a state declared with Memory: mem is
// this step's value for preMem in the next step.
func (r *StaticRNN) UpdateMemory(preMem, mem *ir.Variable) error {
	if err := requirePhase(r.phase, In, "update_memory()"); err != nil {
		return err
	}
	if preMem == nil || mem == nil {
		return fmt.Errorf("%w: update_memory arguments must be variables", flowerr.ErrType)
	}
	link, ok := r.links[preMem.Name]
	if !ok {
		return fmt.Errorf("%w: %q was not declared with memory()", flowerr.ErrStructure, preMem.Name)
	}
	if link.Mem != nil {
		return fmt.Errorf("%w: memory %q already updated", flowerr.ErrStructure, preMem.Name)
	}
	link.Mem = mem
	return nil
}

// Outputs returns the unrolled sequence outputs after the step closed.
func (r *StaticRNN) Outputs() ([]*ir.Variable, error) {
	if err := requirePhase(r.phase, After, "outputs()"); err != nil {
		return nil, err
	}
	return r.outputs, nil
}

func (r *StaticRNN) complete(body *ir.Block) error {
	parent, ok := body.Parent()
	if !ok {
		return fmt.Errorf("%w: recurrence block has no parent", flowerr.ErrStructure)
	}
	if len(r.inputs) == 0 {
		return fmt.Errorf("%w: recurrence closed without any step input", flowerr.ErrStructure)
	}

	declared := make([]string, 0, len(r.inputs)+len(r.linkOrder))
	for _, in := range r.inputs {
		declared = append(declared, in.Name)
	}
	declared = append(declared, r.linkOrder...)

	params := capture.FreeVars(body, declared)
	paramVars, err := capture.Resolve(parent, params)
	if err != nil {
		return err
	}

	exStates := make([]string, 0, len(r.linkOrder))
	states := make([]string, 0, len(r.linkOrder))
	boots := make([]string, 0, len(r.linkOrder))
	for _, name := range r.linkOrder {
		link := r.links[name]
		if link.Mem == nil {
			return fmt.Errorf("%w: memory %q was never updated", flowerr.ErrStructure, name)
		}
		newMem, err := r.lib.RNNMemoryHelper(body, link.Mem)
		if err != nil {
			return err
		}
		link.Mem = newMem
		exStates = append(exStates, link.PreMem.Name)
		states = append(states, newMem.Name)
		boots = append(boots, link.Init.Name)
	}

	stepScope := parent.MustCreateVar(ir.VarSpec{
		Name: r.lib.Names.Generate(r.name + ".step_scope"),
		Kind: ir.KindStepScopes,
	})

	op := ir.NewOperation("recurrent")
	for _, in := range r.inputs {
		op.AddInput("inputs", in.Name)
	}
	for _, boot := range boots {
		op.AddInput("initial_states", boot)
	}
	for _, v := range paramVars {
		op.AddInput("parameters", v.Name)
	}
	for _, out := range r.outputs {
		op.AddOutput("outputs", out.Name)
	}
	op.AddOutput("step_scopes", stepScope.Name)
	op.SetAttr("ex_states", ir.NameList(exStates...))
	op.SetAttr("states", ir.NameList(states...))
	op.SetAttr("sub_block", ir.SubBlock(body.ID()))
	return r.lib.Append(parent, op)
}
