package ops

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/ir"
)

// LoDRankTable emits the op that builds a rank table for x at the
// given nesting level and declares the table variable.
func (l *Library) LoDRankTable(b *ir.Block, x *ir.Variable, level int) (*ir.Variable, error) {
	if err := requireVar("lod_rank_table", "x", x); err != nil {
		return nil, err
	}
	table := b.MustCreateVar(ir.VarSpec{
		Name: l.Names.Generate("lod_rank_table"),
		Kind: ir.KindRankTable,
	})
	op := ir.NewOperation("lod_rank_table").
		AddInput("X", x.Name).
		AddOutput("Out", table.Name).
		SetAttr("level", ir.Val(cty.NumberIntVal(int64(level))))
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return table, nil
}

// MaxSequenceLen reads the maximum sequence length off a rank table.
func (l *Library) MaxSequenceLen(b *ir.Block, table *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("max_sequence_len", "table", table); err != nil {
		return nil, err
	}
	out := l.Temp(b, "max_sequence_len", ir.Int64)
	out.Shape = []int64{1}
	op := ir.NewOperation("max_sequence_len").
		AddInput("RankTable", table.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// LoDTensorToArray scatters x into a tensor array of per-step slices
// ordered by the rank table.
func (l *Library) LoDTensorToArray(b *ir.Block, x, table *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("lod_tensor_to_array", "x", x); err != nil {
		return nil, err
	}
	if err := requireVar("lod_tensor_to_array", "table", table); err != nil {
		return nil, err
	}
	array := b.MustCreateVar(ir.VarSpec{
		Name:  l.Names.Generate("lod_tensor_to_array"),
		Kind:  ir.KindTensorArray,
		DType: x.DType,
	})
	op := ir.NewOperation("lod_tensor_to_array").
		AddInput("X", x.Name).
		AddInput("RankTable", table.Name).
		AddOutput("Out", array.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return array, nil
}

// ArrayToLoDTensor gathers per-step slices back into one batch, the
// inverse of LoDTensorToArray under the same rank table.
func (l *Library) ArrayToLoDTensor(b *ir.Block, x, table *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("array_to_lod_tensor", "x", x); err != nil {
		return nil, err
	}
	if err := requireVar("array_to_lod_tensor", "table", table); err != nil {
		return nil, err
	}
	out := l.Temp(b, "array_to_lod_tensor", x.DType)
	op := ir.NewOperation("array_to_lod_tensor").
		AddInput("X", x.Name).
		AddInput("RankTable", table.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// ReorderLoDTensorByRank reorders x's sequences into rank-table order.
func (l *Library) ReorderLoDTensorByRank(b *ir.Block, x, table *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("reorder_lod_tensor_by_rank", "x", x); err != nil {
		return nil, err
	}
	if err := requireVar("reorder_lod_tensor_by_rank", "table", table); err != nil {
		return nil, err
	}
	out := l.Temp(b, "reorder_lod_tensor_by_rank", x.DType)
	op := ir.NewOperation("reorder_lod_tensor_by_rank").
		AddInput("X", x.Name).
		AddInput("RankTable", table.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// ShrinkMemory trims a recurrence state to the rows still active at
// step i according to the rank table.
func (l *Library) ShrinkMemory(b *ir.Block, x, i, table *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("shrink_rnn_memory", "x", x); err != nil {
		return nil, err
	}
	if err := requireVar("shrink_rnn_memory", "i", i); err != nil {
		return nil, err
	}
	if err := requireVar("shrink_rnn_memory", "table", table); err != nil {
		return nil, err
	}
	out := l.Temp(b, "shrink_rnn_memory", x.DType)
	op := ir.NewOperation("shrink_rnn_memory").
		AddInput("X", x.Name).
		AddInput("I", i.Name).
		AddInput("RankTable", table.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// SplitLoDTensor partitions x's rows at the given nesting level into a
// true half and a false half according to the boolean mask.
func (l *Library) SplitLoDTensor(b *ir.Block, x, mask *ir.Variable, level int) (*ir.Variable, *ir.Variable, error) {
	if err := requireVar("split_lod_tensor", "x", x); err != nil {
		return nil, nil, err
	}
	if err := requireVar("split_lod_tensor", "mask", mask); err != nil {
		return nil, nil, err
	}
	outTrue := l.Temp(b, "split_lod_tensor", x.DType)
	outFalse := l.Temp(b, "split_lod_tensor", x.DType)
	op := ir.NewOperation("split_lod_tensor").
		AddInput("X", x.Name).
		AddInput("Mask", mask.Name).
		AddOutput("OutTrue", outTrue.Name).
		AddOutput("OutFalse", outFalse.Name).
		SetAttr("level", ir.Val(cty.NumberIntVal(int64(level))))
	if err := l.Append(b, op); err != nil {
		return nil, nil, err
	}
	return outTrue, outFalse, nil
}

// MergeLoDTensor recombines a masked split back into one tensor in the
// original row order; x carries the nesting metadata of the original.
func (l *Library) MergeLoDTensor(b *ir.Block, x, mask, inTrue, inFalse *ir.Variable, level int) (*ir.Variable, error) {
	for _, arg := range []struct {
		name string
		v    *ir.Variable
	}{{"x", x}, {"mask", mask}, {"inTrue", inTrue}, {"inFalse", inFalse}} {
		if err := requireVar("merge_lod_tensor", arg.name, arg.v); err != nil {
			return nil, err
		}
	}
	out := l.Temp(b, "merge_lod_tensor", inTrue.DType)
	op := ir.NewOperation("merge_lod_tensor").
		AddInput("X", x.Name).
		AddInput("Mask", mask.Name).
		AddInput("InTrue", inTrue.Name).
		AddInput("InFalse", inFalse.Name).
		AddOutput("Out", out.Name).
		SetAttr("level", ir.Val(cty.NumberIntVal(int64(level))))
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}
