package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
)

func TestNewWhile_ConditionValidation(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)
	root := lib.Prog.Root()

	t.Run("nil condition", func(t *testing.T) {
		_, err := NewWhile(lib, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrType))
	})

	t.Run("non-boolean condition", func(t *testing.T) {
		cond := root.MustCreateVar(ir.VarSpec{Name: "float_cond", DType: ir.Float32, Shape: []int64{1}})
		_, err := NewWhile(lib, cond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrType))
	})

	t.Run("shape [2] is rejected", func(t *testing.T) {
		cond := root.MustCreateVar(ir.VarSpec{Name: "wide_cond", DType: ir.Bool, Shape: []int64{2}})
		_, err := NewWhile(lib, cond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrType))
	})

	t.Run("deferred shape [-1] is rejected", func(t *testing.T) {
		cond := root.MustCreateVar(ir.VarSpec{Name: "deferred_cond", DType: ir.Bool, Shape: []int64{-1}})
		_, err := NewWhile(lib, cond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrType))
	})

	t.Run("deferred shape [2,-1] is rejected", func(t *testing.T) {
		cond := root.MustCreateVar(ir.VarSpec{Name: "deferred_wide_cond", DType: ir.Bool, Shape: []int64{2, -1}})
		_, err := NewWhile(lib, cond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrType))
	})

	t.Run("shape [1] is accepted", func(t *testing.T) {
		cond := boolScalar(t, lib, root, "scalar_cond")
		_, err := NewWhile(lib, cond)
		require.NoError(t, err)
	})
}

func TestWhile_LowersToOneCompositeOp(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)
	root := lib.Prog.Root()

	i, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, true)
	require.NoError(t, err)
	limit, err := lib.FillConstant(root, []int64{1}, ir.Int64, 10, true)
	require.NoError(t, err)
	cond, err := lib.LessThan(root, i, limit, nil)
	require.NoError(t, err)

	loop, err := NewWhile(lib, cond)
	require.NoError(t, err)

	var body *ir.Block
	err = loop.Block(func(b *ir.Block) error {
		body = b
		next, err := lib.Increment(b, i, 1, false)
		if err != nil {
			return err
		}
		if err := lib.Assign(b, next, i); err != nil {
			return err
		}
		_, err = lib.LessThan(b, i, limit, cond)
		return err
	})
	require.NoError(t, err)

	require.Equal(t, root, lib.Prog.Current())
	op := lastOp(t, root)
	require.Equal(t, "while", op.Type)

	// Free variables of the body, minus the condition, become X.
	assert.Equal(t, []string{i.Name, limit.Name}, op.Inputs.Get("X"))
	assert.Equal(t, []string{cond.Name}, op.Inputs.Get("Condition"))

	// Produced names that shadow outer variables carry out; the
	// condition itself always does.
	assert.Equal(t, []string{cond.Name, i.Name}, op.Outputs.Get("Out"))
	require.Len(t, op.Outputs.Get("StepScopes"), 1)

	id, ok := op.SubBlock()
	require.True(t, ok)
	assert.Equal(t, body.ID(), id)
	embedded, ok := lib.Prog.Block(id)
	require.True(t, ok)
	assert.Len(t, embedded.Ops(), 3)
}

func TestWhile_BlockTwiceIsSequenceError(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)
	root := lib.Prog.Root()

	i, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, true)
	require.NoError(t, err)
	cond := boolScalar(t, lib, root, "cond")
	loop, err := NewWhile(lib, cond)
	require.NoError(t, err)

	noop := func(b *ir.Block) error {
		if err := lib.Assign(b, i, i); err != nil {
			return err
		}
		_, err := lib.LessThan(b, i, i, cond)
		return err
	}
	require.NoError(t, loop.Block(noop))

	err = loop.Block(noop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrSequence))
}

func TestWhile_BodyErrorRollsBack(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)
	root := lib.Prog.Root()
	cond := boolScalar(t, lib, root, "cond")

	loop, err := NewWhile(lib, cond)
	require.NoError(t, err)

	boom := errors.New("boom")
	var id ir.BlockID
	err = loop.Block(func(b *ir.Block) error {
		id = b.ID()
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, root, lib.Prog.Current())
	_, ok := lib.Prog.Block(id)
	assert.False(t, ok, "the aborted body must not remain reachable")
	assert.Empty(t, root.Ops())
}

func TestWhile_EscapedCaptureIsStructural(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)
	root := lib.Prog.Root()
	cond := boolScalar(t, lib, root, "cond")

	loop, err := NewWhile(lib, cond)
	require.NoError(t, err)

	// The body reads a name that exists in no enclosing scope.
	err = loop.Block(func(b *ir.Block) error {
		op := ir.NewOperation("logical_not").AddInput("X", "ghost").AddOutput("Out", "o")
		return lib.Append(b, op)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrStructure))
	assert.Contains(t, err.Error(), "ghost")
	assert.Equal(t, root, lib.Prog.Current())
}
