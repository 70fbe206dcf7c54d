package control

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
)

// branchState tracks which IfElse branch scope, if any, is open.
type branchState int

const (
	outsideBranches branchState = iota
	inTrueBranch
	inFalseBranch
)

// splitPair memoizes the true/false halves of one outer variable so
// repeated Input calls on the same name reuse a single split op.
type splitPair struct {
	outTrue  *ir.Variable
	outFalse *ir.Variable
}

// IfElse partitions a variable-length batch by a boolean mask, runs a
// conditional block over each sub-batch, and merges same-position
// branch outputs back into the original row order.
type IfElse struct {
	lib  *ops.Library
	cond *ir.Variable

	state      branchState
	inputTable map[string]splitPair
	trueBlock  *CondBlock
	falseBlock *CondBlock

	// outs[0] is the false branch, outs[1] the true branch.
	outs [2][]*ir.Variable
}

// NewIfElse creates an if/else over the given mask variable.
func NewIfElse(lib *ops.Library, cond *ir.Variable) (*IfElse, error) {
	if cond == nil {
		return nil, fmt.Errorf("%w: ifelse condition must be a variable", flowerr.ErrType)
	}
	trueBlock, err := NewCondBlock(lib, []*ir.Variable{cond}, false)
	if err != nil {
		return nil, err
	}
	falseBlock, err := NewCondBlock(lib, []*ir.Variable{cond}, false)
	if err != nil {
		return nil, err
	}
	return &IfElse{
		lib:        lib,
		cond:       cond,
		inputTable: make(map[string]splitPair),
		trueBlock:  trueBlock,
		falseBlock: falseBlock,
	}, nil
}

// Input splits an outer variable by the mask (once per name; repeated
// reads share the split) and returns the half belonging to the open
// branch.
func (ie *IfElse) Input(x *ir.Variable) (*ir.Variable, error) {
	if ie.state == outsideBranches {
		return nil, fmt.Errorf("%w: input is only valid inside a true/false block", flowerr.ErrSequence)
	}
	if x == nil {
		return nil, fmt.Errorf("%w: ifelse input must be a variable", flowerr.ErrType)
	}

	pair, ok := ie.inputTable[x.Name]
	if !ok {
		parent, err := parentOf(ie.lib)
		if err != nil {
			return nil, err
		}
		outTrue, outFalse, err := ie.lib.SplitLoDTensor(parent, x, ie.cond, 0)
		if err != nil {
			return nil, err
		}
		pair = splitPair{outTrue: outTrue, outFalse: outFalse}
		ie.inputTable[x.Name] = pair
	}

	if ie.state == inTrueBranch {
		return pair.outTrue, nil
	}
	return pair.outFalse, nil
}

// TrueBlock opens the branch that sees the mask's true rows.
func (ie *IfElse) TrueBlock(fn func(b *ir.Block) error) error {
	return ie.branch(inTrueBranch, ie.trueBlock, fn)
}

// FalseBlock opens the branch that sees the mask's false rows.
func (ie *IfElse) FalseBlock(fn func(b *ir.Block) error) error {
	return ie.branch(inFalseBranch, ie.falseBlock, fn)
}

func (ie *IfElse) branch(state branchState, cb *CondBlock, fn func(b *ir.Block) error) error {
	if ie.state != outsideBranches {
		return fmt.Errorf("%w: cannot open a branch while another branch is open", flowerr.ErrSequence)
	}
	ie.state = state
	defer func() { ie.state = outsideBranches }()

	if err := cb.Block(fn); err != nil {
		return err
	}
	if len(ie.outs[outIndex(state)]) == 0 {
		return fmt.Errorf("%w: must set output inside block", flowerr.ErrStructure)
	}
	return nil
}

func outIndex(state branchState) int {
	if state == inTrueBranch {
		return 1
	}
	return 0
}

// Output declares branch results: each value is assigned into a fresh
// variable of the enclosing block so it survives the branch scope.
func (ie *IfElse) Output(outs ...*ir.Variable) error {
	if ie.state == outsideBranches {
		return fmt.Errorf("%w: output is only valid inside a true/false block", flowerr.ErrSequence)
	}
	parent, err := parentOf(ie.lib)
	if err != nil {
		return err
	}
	cur := ie.lib.Prog.Current()
	for _, each := range outs {
		if each == nil {
			return fmt.Errorf("%w: each output must be a variable", flowerr.ErrType)
		}
		outside := parent.MustCreateVar(ir.VarSpec{
			Name:  ie.lib.Names.Generate("ifelse.output"),
			Kind:  ir.KindTensor,
			DType: each.DType,
		})
		if err := ie.lib.Assign(cur, each, outside); err != nil {
			return err
		}
		ie.outs[outIndex(ie.state)] = append(ie.outs[outIndex(ie.state)], outside)
	}
	return nil
}

// Outputs combines the branch results. With a single populated branch
// its outputs pass through unmerged; with both populated, same-position
// pairs are merged by the mask back into original row order.
func (ie *IfElse) Outputs() ([]*ir.Variable, error) {
	if ie.state != outsideBranches {
		return nil, fmt.Errorf("%w: outputs can only be read outside the branch blocks", flowerr.ErrSequence)
	}
	falseLen, trueLen := len(ie.outs[0]), len(ie.outs[1])
	switch {
	case falseLen == 0 && trueLen == 0:
		return nil, fmt.Errorf("%w: no branch declared any output", flowerr.ErrSequence)
	case falseLen != 0 && trueLen != 0 && falseLen != trueLen:
		return nil, fmt.Errorf("%w: branch output counts differ: true=%d false=%d", flowerr.ErrStructure, trueLen, falseLen)
	case falseLen == 0:
		return ie.outs[1], nil
	case trueLen == 0:
		return ie.outs[0], nil
	}

	cur := ie.lib.Prog.Current()
	merged := make([]*ir.Variable, 0, trueLen)
	for i := range ie.outs[1] {
		m, err := ie.lib.MergeLoDTensor(cur, ie.cond, ie.cond, ie.outs[1][i], ie.outs[0][i], 0)
		if err != nil {
			return nil, err
		}
		merged = append(merged, m)
	}
	return merged, nil
}
