// Package ops emits elementary operations into blocks. Every emitter
// takes the target block explicitly, mints result temporaries through
// the naming service, and validates the finished operation against the
// operator registry before appending it.
package ops

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/names"
	"github.com/vk/flowir/internal/opdef"
)

// Library bundles the program under construction with its naming
// service and operator registry. Control constructs and user code
// share one Library per program.
type Library struct {
	Prog  *ir.Program
	Names *names.Generator
	Defs  *opdef.Registry
}

// NewLibrary creates a Library for the given program.
func NewLibrary(prog *ir.Program, gen *names.Generator, defs *opdef.Registry) *Library {
	return &Library{Prog: prog, Names: gen, Defs: defs}
}

// Append validates an operation against the registry and adds it to
// the block.
func (l *Library) Append(b *ir.Block, op *ir.Operation) error {
	if err := l.Defs.Validate(op); err != nil {
		return err
	}
	b.AppendOp(op)
	return nil
}

// Temp creates an anonymous tensor variable of the given dtype in the
// block, named after the operation that produces it.
func (l *Library) Temp(b *ir.Block, opType string, dtype ir.DType) *ir.Variable {
	return b.MustCreateVar(ir.VarSpec{
		Name:  l.Names.Temp(opType),
		Kind:  ir.KindTensor,
		DType: dtype,
	})
}

// requireVar rejects nil variables so emitters fail with a type error
// instead of dereferencing nil.
func requireVar(opType, arg string, v *ir.Variable) error {
	if v == nil {
		return fmt.Errorf("%w: %s: %s must be a variable", flowerr.ErrType, opType, arg)
	}
	return nil
}

func shapeAttr(shape []int64) ir.Attr {
	if len(shape) == 0 {
		return ir.Val(cty.ListValEmpty(cty.Number))
	}
	dims := make([]cty.Value, len(shape))
	for i, d := range shape {
		dims[i] = cty.NumberIntVal(d)
	}
	return ir.Val(cty.ListVal(dims))
}
