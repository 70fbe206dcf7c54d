package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/names"
	"github.com/vk/flowir/internal/opdef"
)

func newLibrary(t *testing.T) *Library {
	t.Helper()
	defs, err := opdef.Load(context.Background())
	require.NoError(t, err)
	return NewLibrary(ir.NewProgram(), names.New(), defs)
}

func TestAppend_RejectsInvalidOperation(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	op := ir.NewOperation("assign").AddInput("X", "a", "b").AddOutput("Out", "c")
	err := lib.Append(root, op)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrStructure))
	assert.Empty(t, root.Ops(), "a rejected operation must not be appended")
}

func TestFillConstant(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	out, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, true)
	require.NoError(t, err)
	assert.Equal(t, "fill_constant.tmp_0", out.Name)
	assert.Equal(t, ir.Int64, out.DType)
	assert.Equal(t, []int64{1}, out.Shape)

	require.Len(t, root.Ops(), 1)
	op := root.Ops()[0]
	assert.Equal(t, "fill_constant", op.Type)
	assert.Equal(t, []string{out.Name}, op.Outputs.Get("Out"))
	_, hasForceCPU := op.Attrs.Get("force_cpu")
	assert.True(t, hasForceCPU)
}

func TestLessThan_CondReuse(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	x, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, false)
	require.NoError(t, err)
	y, err := lib.FillConstant(root, []int64{1}, ir.Int64, 10, false)
	require.NoError(t, err)

	t.Run("nil cond mints a boolean scalar", func(t *testing.T) {
		cond, err := lib.LessThan(root, x, y, nil)
		require.NoError(t, err)
		assert.Equal(t, ir.Bool, cond.DType)
		assert.Equal(t, []int64{1}, cond.Shape)
	})

	t.Run("given cond is reused", func(t *testing.T) {
		cond := lib.Temp(root, "loop_cond", ir.Bool)
		got, err := lib.LessThan(root, x, y, cond)
		require.NoError(t, err)
		assert.Same(t, cond, got)
	})
}

func TestIncrement_InPlace(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	x, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, false)
	require.NoError(t, err)

	out, err := lib.Increment(root, x, 1, true)
	require.NoError(t, err)
	assert.Same(t, x, out)

	fresh, err := lib.Increment(root, x, 1, false)
	require.NoError(t, err)
	assert.NotEqual(t, x.Name, fresh.Name)
}

func TestPrint_Defaults(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	x, err := lib.FillConstant(root, []int64{1}, ir.Float32, 0, false)
	require.NoError(t, err)
	_, err = lib.Print(root, x, PrintOptions{Message: "debug"})
	require.NoError(t, err)

	op := root.Ops()[len(root.Ops())-1]
	firstN, _ := op.Attrs.Get("first_n")
	assert.Equal(t, "-1", firstN.String())
	phase, _ := op.Attrs.Get("print_phase")
	assert.Equal(t, `"BOTH"`, phase.String())
}

func TestArrayWrite_CreatesArrayWhenNil(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	x, err := lib.FillConstant(root, []int64{1}, ir.Float32, 0, false)
	require.NoError(t, err)
	i, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, true)
	require.NoError(t, err)

	arr, err := lib.ArrayWrite(root, x, i, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.KindTensorArray, arr.Kind)
	assert.Equal(t, x.DType, arr.DType)

	same, err := lib.ArrayWrite(root, x, i, arr)
	require.NoError(t, err)
	assert.Same(t, arr, same)
}

func TestArrayRead_RejectsNonArray(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	i, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, true)
	require.NoError(t, err)

	_, err = lib.ArrayRead(root, i, i)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrType))
}

func TestSplitLoDTensor(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	x := root.MustCreateVar(ir.VarSpec{Name: "x", DType: ir.Float32, LoDLevel: 1})
	mask := root.MustCreateVar(ir.VarSpec{Name: "mask", DType: ir.Bool})

	outTrue, outFalse, err := lib.SplitLoDTensor(root, x, mask, 0)
	require.NoError(t, err)
	assert.NotEqual(t, outTrue.Name, outFalse.Name)
	assert.Equal(t, x.DType, outTrue.DType)

	op := root.Ops()[0]
	assert.Equal(t, []string{outTrue.Name}, op.Outputs.Get("OutTrue"))
	assert.Equal(t, []string{outFalse.Name}, op.Outputs.Get("OutFalse"))
}

func TestLoDRankTable_DeclaresTableVar(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	x := root.MustCreateVar(ir.VarSpec{Name: "seq", DType: ir.Float32, LoDLevel: 1})
	table, err := lib.LoDRankTable(root, x, 0)
	require.NoError(t, err)
	assert.Equal(t, ir.KindRankTable, table.Kind)

	got, ok := root.Var(table.Name)
	require.True(t, ok)
	assert.Same(t, table, got)
}

func TestNilVariableArguments(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	root := lib.Prog.Root()

	_, err := lib.LogicalNot(root, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrType))

	err = lib.Assign(root, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrType))
}
