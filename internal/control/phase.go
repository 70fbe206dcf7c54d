package control

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
)

// Phase is the lifecycle state of a control construct.
type Phase int

const (
	// Before: the construct exists but its scope was not opened yet.
	Before Phase = iota
	// In: the scope is open; bookkeeping methods are legal.
	In
	// After: the scope closed and the composite op was emitted;
	// results are readable.
	After
)

func (p Phase) String() string {
	switch p {
	case Before:
		return "before"
	case In:
		return "in"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

// transition moves a construct's phase from one state to the next,
// rejecting anything but the expected current state.
func transition(p *Phase, from, to Phase, what string) error {
	if *p != from {
		return fmt.Errorf("%w: %s is only valid in phase %q, construct is %q", flowerr.ErrSequence, what, from, *p)
	}
	*p = to
	return nil
}

// requirePhase checks the construct is in the given phase without
// changing it.
func requirePhase(p Phase, want Phase, what string) error {
	if p != want {
		return fmt.Errorf("%w: %s is only valid in phase %q, construct is %q", flowerr.ErrSequence, what, want, p)
	}
	return nil
}

// parentOf returns the enclosing block of the library's current block.
// Constructs call it while their own scope is current, so a missing
// parent means the construct is being driven outside any scope.
func parentOf(lib *ops.Library) (*ir.Block, error) {
	parent, ok := lib.Prog.Current().Parent()
	if !ok {
		return nil, fmt.Errorf("%w: construct used outside an open scope", flowerr.ErrSequence)
	}
	return parent, nil
}
