package control

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
)

// Switch chains mutually exclusive conditional blocks. Branch k runs
// only when its own predicate holds and every earlier predicate was
// false; the accumulated "all previous false" condition is built with
// logical AND/NOT ops in the enclosing block.
type Switch struct {
	lib         *ops.Library
	active      bool
	preNotConds []*ir.Variable
}

// NewSwitch creates an inactive switch; open it with Block.
func NewSwitch(lib *ops.Library) *Switch {
	return &Switch{lib: lib}
}

// Block activates the switch for the duration of fn. Case and Default
// are only legal inside fn.
func (s *Switch) Block(fn func() error) error {
	if s.active {
		return fmt.Errorf("%w: switch block is already open", flowerr.ErrSequence)
	}
	s.active = true
	defer func() { s.active = false }()
	return fn()
}

// Case adds a branch guarded by condition AND NOT(previous
// conditions), populated by fn.
func (s *Switch) Case(condition *ir.Variable, fn func(b *ir.Block) error) error {
	if !s.active {
		return fmt.Errorf("%w: case must be called inside the switch block", flowerr.ErrSequence)
	}
	if condition == nil {
		return fmt.Errorf("%w: case condition must be a variable", flowerr.ErrType)
	}

	cur := s.lib.Prog.Current()
	var guard *ir.Variable
	if len(s.preNotConds) == 0 {
		notCond, err := s.lib.LogicalNot(cur, condition)
		if err != nil {
			return err
		}
		s.preNotConds = append(s.preNotConds, notCond)
		guard = condition
	} else {
		preNot := s.preNotConds[len(s.preNotConds)-1]
		notCond, err := s.lib.LogicalNot(cur, condition)
		if err != nil {
			return err
		}
		newNot, err := s.lib.LogicalAnd(cur, preNot, notCond)
		if err != nil {
			return err
		}
		s.preNotConds = append(s.preNotConds, newNot)
		guard, err = s.lib.LogicalAnd(cur, preNot, condition)
		if err != nil {
			return err
		}
	}

	cb, err := NewCondBlock(s.lib, []*ir.Variable{guard}, true)
	if err != nil {
		return err
	}
	return cb.Block(fn)
}

// Default adds the branch that runs when every registered case
// predicate was false. At least one Case must precede it.
func (s *Switch) Default(fn func(b *ir.Block) error) error {
	if !s.active {
		return fmt.Errorf("%w: default must be called inside the switch block", flowerr.ErrSequence)
	}
	if len(s.preNotConds) == 0 {
		return fmt.Errorf("%w: default requires at least one preceding case", flowerr.ErrSequence)
	}
	cb, err := NewCondBlock(s.lib, []*ir.Variable{s.preNotConds[len(s.preNotConds)-1]}, true)
	if err != nil {
		return err
	}
	return cb.Block(fn)
}
