package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
)

func ifElseFixture(t *testing.T) (*ops.Library, *IfElse, *ir.Variable) {
	t.Helper()
	lib := newTestLibrary(t)
	root := lib.Prog.Root()
	mask := root.MustCreateVar(ir.VarSpec{Name: "mask", DType: ir.Bool, Shape: []int64{-1, 1}})
	x := root.MustCreateVar(ir.VarSpec{Name: "x", DType: ir.Float32, Shape: []int64{-1, 1}, LoDLevel: 1})
	ie, err := NewIfElse(lib, mask)
	require.NoError(t, err)
	return lib, ie, x
}

func countOps(b *ir.Block, opType string) int {
	n := 0
	for _, op := range b.Ops() {
		if op.Type == opType {
			n++
		}
	}
	return n
}

func TestIfElse_SplitIsMemoizedPerInput(t *testing.T) {
	t.Parallel()
	lib, ie, x := ifElseFixture(t)
	root := lib.Prog.Root()

	passThrough := func(b *ir.Block) error {
		// Two reads of the same outer variable share one split.
		first, err := ie.Input(x)
		if err != nil {
			return err
		}
		if _, err := ie.Input(x); err != nil {
			return err
		}
		return ie.Output(first)
	}
	require.NoError(t, ie.TrueBlock(passThrough))
	require.NoError(t, ie.FalseBlock(passThrough))

	assert.Equal(t, 1, countOps(root, "split_lod_tensor"))
}

func TestIfElse_BothBranchesMergePairwise(t *testing.T) {
	t.Parallel()
	lib, ie, x := ifElseFixture(t)
	root := lib.Prog.Root()

	branch := func(b *ir.Block) error {
		in, err := ie.Input(x)
		if err != nil {
			return err
		}
		return ie.Output(in)
	}
	require.NoError(t, ie.TrueBlock(branch))
	require.NoError(t, ie.FalseBlock(branch))

	outs, err := ie.Outputs()
	require.NoError(t, err)
	require.Len(t, outs, 1)

	assert.Equal(t, 1, countOps(root, "merge_lod_tensor"))
	merge := lastOp(t, root)
	require.Equal(t, "merge_lod_tensor", merge.Type)
	assert.Equal(t, []string{outs[0].Name}, merge.Outputs.Get("Out"))
}

func TestIfElse_SingleBranchPassesThroughUnmerged(t *testing.T) {
	t.Parallel()
	lib, ie, x := ifElseFixture(t)
	root := lib.Prog.Root()

	require.NoError(t, ie.TrueBlock(func(b *ir.Block) error {
		in, err := ie.Input(x)
		if err != nil {
			return err
		}
		return ie.Output(in)
	}))

	outs, err := ie.Outputs()
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, 0, countOps(root, "merge_lod_tensor"))
}

func TestIfElse_BranchArityMismatch(t *testing.T) {
	t.Parallel()
	_, ie, x := ifElseFixture(t)

	require.NoError(t, ie.TrueBlock(func(b *ir.Block) error {
		in, err := ie.Input(x)
		if err != nil {
			return err
		}
		return ie.Output(in, in)
	}))
	require.NoError(t, ie.FalseBlock(func(b *ir.Block) error {
		in, err := ie.Input(x)
		if err != nil {
			return err
		}
		return ie.Output(in)
	}))

	_, err := ie.Outputs()
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrStructure))
}

func TestIfElse_SequencingErrors(t *testing.T) {
	t.Parallel()
	_, ie, x := ifElseFixture(t)

	t.Run("input outside a branch", func(t *testing.T) {
		_, err := ie.Input(x)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrSequence))
	})

	t.Run("output outside a branch", func(t *testing.T) {
		err := ie.Output(x)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrSequence))
	})

	t.Run("outputs with no branch populated", func(t *testing.T) {
		_, err := ie.Outputs()
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrSequence))
	})

	t.Run("branch with no output", func(t *testing.T) {
		err := ie.TrueBlock(func(b *ir.Block) error {
			_, err := ie.Input(x)
			return err
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrStructure))
	})
}
