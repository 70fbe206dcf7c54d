package control

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
)

// memLink pairs a step's updated state with the array that carries the
// state across iterations.
type memLink struct {
	newMem *ir.Variable
	array  *ir.Variable
}

// DynamicRNN runs a recurrence over variable-length sequences. Inputs
// are scattered into per-step tensor arrays ordered by a rank table;
// the step body runs under a while loop driven by a step counter, and
// outputs are gathered back into batch order when the block closes.
type DynamicRNN struct {
	lib   *ops.Library
	name  string
	phase Phase

	rankTable *ir.Variable
	maxSeqLen *ir.Variable
	stepIdx   *ir.Variable
	zeroIdx   *ir.Variable
	cond      *ir.Variable
	loop      *While

	inputArrays  []*ir.Variable
	memArrays    map[string]*ir.Variable
	memLinks     []memLink
	outputArrays []*ir.Variable
	outputs      []*ir.Variable
}

// NewDynamicRNN emits the loop scaffolding (zero index and condition
// flag) into the current block.
func NewDynamicRNN(lib *ops.Library) (*DynamicRNN, error) {
	cur := lib.Prog.Current()
	zeroIdx, err := lib.FillConstant(cur, []int64{1}, ir.Int64, 0, true)
	if err != nil {
		return nil, err
	}
	cond := cur.MustCreateVar(ir.VarSpec{
		Name:  lib.Names.Generate("dynamic_rnn.cond"),
		Kind:  ir.KindTensor,
		DType: ir.Bool,
		Shape: []int64{1},
	})
	loop, err := NewWhile(lib, cond)
	if err != nil {
		return nil, err
	}
	return &DynamicRNN{
		lib:       lib,
		name:      lib.Names.Generate("dynamic_rnn"),
		zeroIdx:   zeroIdx,
		cond:      cond,
		loop:      loop,
		memArrays: make(map[string]*ir.Variable),
	}, nil
}

// Block runs the step body once to build it, then closes the loop:
// the step counter is advanced, updated states are written back to
// their arrays, the continue condition is recomputed, and the output
// arrays are gathered into sequence outputs.
func (d *DynamicRNN) Block(fn func(b *ir.Block) error) error {
	if err := transition(&d.phase, Before, In, "block()"); err != nil {
		return err
	}
	cur := d.lib.Prog.Current()
	stepIdx, err := d.lib.FillConstant(cur, []int64{1}, ir.Int64, 0, true)
	if err != nil {
		return err
	}
	d.stepIdx = stepIdx

	err = d.loop.Block(func(b *ir.Block) error {
		if err := fn(b); err != nil {
			return err
		}
		if d.rankTable == nil {
			return fmt.Errorf("%w: block closed without any step input", flowerr.ErrStructure)
		}
		if _, err := d.lib.Increment(b, d.stepIdx, 1, true); err != nil {
			return err
		}
		for _, link := range d.memLinks {
			if _, err := d.lib.ArrayWrite(b, link.newMem, d.stepIdx, link.array); err != nil {
				return err
			}
		}
		_, err := d.lib.LessThan(b, d.stepIdx, d.maxSeqLen, d.cond)
		return err
	})
	if err != nil {
		return err
	}
	d.phase = After

	outer := d.lib.Prog.Current()
	for _, arr := range d.outputArrays {
		out, err := d.lib.ArrayToLoDTensor(outer, arr, d.rankTable)
		if err != nil {
			return err
		}
		d.outputs = append(d.outputs, out)
	}
	return nil
}

// StepInput registers a sequence input and returns the current step's
// slice of it. The first input also establishes the rank table that
// orders every later scatter and gather.
func (d *DynamicRNN) StepInput(x *ir.Variable) (*ir.Variable, error) {
	if err := requirePhase(d.phase, In, "step_input()"); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, fmt.Errorf("%w: step input must be a variable", flowerr.ErrType)
	}
	parent, err := parentOf(d.lib)
	if err != nil {
		return nil, err
	}
	if d.rankTable == nil {
		table, err := d.lib.LoDRankTable(parent, x, 0)
		if err != nil {
			return nil, err
		}
		d.rankTable = table
		maxLen, err := d.lib.MaxSequenceLen(parent, table)
		if err != nil {
			return nil, err
		}
		d.maxSeqLen = maxLen
		if _, err := d.lib.LessThan(parent, d.stepIdx, d.maxSeqLen, d.cond); err != nil {
			return nil, err
		}
	}
	arr, err := d.lib.LoDTensorToArray(parent, x, d.rankTable)
	if err != nil {
		return nil, err
	}
	d.inputArrays = append(d.inputArrays, arr)
	return d.lib.ArrayRead(d.lib.Prog.Current(), arr, d.stepIdx)
}

// StaticInput makes a non-stepped tensor visible inside the loop,
// reordered into rank-table order and shrunk to the rows still active
// at the current step.
func (d *DynamicRNN) StaticInput(x *ir.Variable) (*ir.Variable, error) {
	if err := requirePhase(d.phase, In, "static_input()"); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, fmt.Errorf("%w: static input must be a variable", flowerr.ErrType)
	}
	if d.rankTable == nil {
		return nil, fmt.Errorf("%w: static_input() requires a prior step_input()", flowerr.ErrSequence)
	}
	parent, err := parentOf(d.lib)
	if err != nil {
		return nil, err
	}
	reordered, err := d.lib.ReorderLoDTensorByRank(parent, x, d.rankTable)
	if err != nil {
		return nil, err
	}
	return d.lib.ShrinkMemory(d.lib.Prog.Current(), reordered, d.stepIdx, d.rankTable)
}

// DynamicMemoryOptions configures a DynamicRNN state. Init names an
// existing initial-value tensor; without Init, Shape/Value/DType
// describe a constant boot value batch-sized like the first step
// input.
type DynamicMemoryOptions struct {
	Init        *ir.Variable
	Shape       []int64
	Value       float64
	NeedReorder bool
	DType       ir.DType
}

// Memory declares a recurrence state and returns the step block's view
// of its previous-step value, shrunk to the rows still active. Pair it
// with UpdateMemory before the block closes.
func (d *DynamicRNN) Memory(opts DynamicMemoryOptions) (*ir.Variable, error) {
	if err := requirePhase(d.phase, In, "memory()"); err != nil {
		return nil, err
	}
	parent, err := parentOf(d.lib)
	if err != nil {
		return nil, err
	}

	if opts.Init == nil {
		if len(d.inputArrays) == 0 {
			return nil, fmt.Errorf("%w: memory() without init requires a prior step_input()", flowerr.ErrSequence)
		}
		in0, err := d.lib.ArrayRead(parent, d.inputArrays[0], d.zeroIdx)
		if err != nil {
			return nil, err
		}
		shape := append([]int64{-1}, opts.Shape...)
		init := parent.MustCreateVar(ir.VarSpec{
			Name:  d.lib.Names.Generate(d.name + ".mem_init"),
			Kind:  ir.KindTensor,
			DType: opts.DType,
			Shape: shape,
		})
		if err := d.lib.FillConstantBatchSizeLike(parent, in0, init, shape, opts.Value, 0, 0); err != nil {
			return nil, err
		}
		return d.Memory(DynamicMemoryOptions{Init: init})
	}

	// Nothing may be emitted before this check: a failed memory() must
	// leave the enclosing block untouched.
	if d.rankTable == nil {
		return nil, fmt.Errorf("%w: memory() requires a prior step_input()", flowerr.ErrSequence)
	}

	init := opts.Init
	if opts.NeedReorder {
		init, err = d.lib.ReorderLoDTensorByRank(parent, init, d.rankTable)
		if err != nil {
			return nil, err
		}
	}

	memArray := parent.MustCreateVar(ir.VarSpec{
		Name:  d.lib.Names.Generate(d.name + ".mem_array"),
		Kind:  ir.KindTensorArray,
		DType: init.DType,
	})
	if _, err := d.lib.ArrayWrite(parent, init, d.zeroIdx, memArray); err != nil {
		return nil, err
	}

	cur := d.lib.Prog.Current()
	retv, err := d.lib.ArrayRead(cur, memArray, d.stepIdx)
	if err != nil {
		return nil, err
	}
	mem, err := d.lib.ShrinkMemory(cur, retv, d.stepIdx, d.rankTable)
	if err != nil {
		return nil, err
	}
	d.memArrays[mem.Name] = memArray
	return mem, nil
}

// UpdateMemory closes the loop on a state declared with Memory: newMem
// is written back to the state's array at the end of each step.
func (d *DynamicRNN) UpdateMemory(exMem, newMem *ir.Variable) error {
	if err := requirePhase(d.phase, In, "update_memory()"); err != nil {
		return err
	}
	if exMem == nil || newMem == nil {
		return fmt.Errorf("%w: update_memory arguments must be variables", flowerr.ErrType)
	}
	array, ok := d.memArrays[exMem.Name]
	if !ok {
		return fmt.Errorf("%w: %q was not declared with memory()", flowerr.ErrStructure, exMem.Name)
	}
	d.memLinks = append(d.memLinks, memLink{newMem: newMem, array: array})
	return nil
}

// Output collects per-step values; each gains a tensor array in the
// enclosing block that the close gathers into a sequence output.
func (d *DynamicRNN) Output(outs ...*ir.Variable) error {
	if err := requirePhase(d.phase, In, "output()"); err != nil {
		return err
	}
	parent, err := parentOf(d.lib)
	if err != nil {
		return err
	}
	cur := d.lib.Prog.Current()
	for _, each := range outs {
		if each == nil {
			return fmt.Errorf("%w: each output must be a variable", flowerr.ErrType)
		}
		outsideArray := parent.MustCreateVar(ir.VarSpec{
			Name:  d.lib.Names.Generate(d.name + ".output_array." + each.Name),
			Kind:  ir.KindTensorArray,
			DType: each.DType,
		})
		if _, err := d.lib.ArrayWrite(cur, each, d.stepIdx, outsideArray); err != nil {
			return err
		}
		d.outputArrays = append(d.outputArrays, outsideArray)
	}
	return nil
}

// Outputs returns the gathered sequence outputs after the block closed.
func (d *DynamicRNN) Outputs() ([]*ir.Variable, error) {
	if err := requirePhase(d.phase, After, "outputs()"); err != nil {
		return nil, err
	}
	if len(d.outputs) == 0 {
		return nil, fmt.Errorf("%w: no output was declared inside the block", flowerr.ErrStructure)
	}
	return d.outputs, nil
}
