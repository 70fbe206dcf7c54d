package ops

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
)

// CreateArray declares a fresh tensor-array variable in the block.
func (l *Library) CreateArray(b *ir.Block, dtype ir.DType) *ir.Variable {
	return b.MustCreateVar(ir.VarSpec{
		Name:  l.Names.Generate("array.out"),
		Kind:  ir.KindTensorArray,
		DType: dtype,
	})
}

// ArrayWrite writes x at index i of the array, creating the array when
// nil is passed. The write grows the array if i is past its end.
func (l *Library) ArrayWrite(b *ir.Block, x, i, array *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("write_to_array", "x", x); err != nil {
		return nil, err
	}
	if err := requireVar("write_to_array", "i", i); err != nil {
		return nil, err
	}
	if array == nil {
		array = l.CreateArray(b, x.DType)
	}
	op := ir.NewOperation("write_to_array").
		AddInput("X", x.Name).
		AddInput("I", i.Name).
		AddOutput("Out", array.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return array, nil
}

// ArrayRead reads the element at index i of the array.
func (l *Library) ArrayRead(b *ir.Block, array, i *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("read_from_array", "i", i); err != nil {
		return nil, err
	}
	if array == nil || array.Kind != ir.KindTensorArray {
		return nil, fmt.Errorf("%w: read_from_array: array must be a tensor-array variable", flowerr.ErrType)
	}
	out := l.Temp(b, "read_from_array", array.DType)
	op := ir.NewOperation("read_from_array").
		AddInput("X", array.Name).
		AddInput("I", i.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// ArrayLength returns the int64 scalar length of the array.
func (l *Library) ArrayLength(b *ir.Block, array *ir.Variable) (*ir.Variable, error) {
	if array == nil || array.Kind != ir.KindTensorArray {
		return nil, fmt.Errorf("%w: lod_array_length: array must be a tensor-array variable", flowerr.ErrType)
	}
	out := l.Temp(b, "lod_array_length", ir.Int64)
	out.Shape = []int64{1}
	op := ir.NewOperation("lod_array_length").
		AddInput("X", array.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}
