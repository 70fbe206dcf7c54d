package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/flowerr"
)

func TestProgram_RootIsCurrent(t *testing.T) {
	t.Parallel()
	p := NewProgram()

	require.Equal(t, p.Root(), p.Current())
	require.Equal(t, BlockID(0), p.Root().ID())
	require.Equal(t, NoParent, p.Root().ParentID())
}

func TestProgram_CommitKeepsBlockReachable(t *testing.T) {
	t.Parallel()
	p := NewProgram()

	child := p.NewBlock()
	require.Equal(t, child, p.Current())
	require.NoError(t, p.Commit())

	require.Equal(t, p.Root(), p.Current())
	got, ok := p.Block(child.ID())
	require.True(t, ok)
	assert.Equal(t, child, got)
}

func TestProgram_RollbackClearsArenaSlot(t *testing.T) {
	t.Parallel()
	p := NewProgram()

	child := p.NewBlock()
	id := child.ID()
	require.NoError(t, p.Rollback())

	require.Equal(t, p.Root(), p.Current())
	_, ok := p.Block(id)
	assert.False(t, ok, "a rolled-back block must not resolve")
}

func TestProgram_CannotExitRoot(t *testing.T) {
	t.Parallel()
	p := NewProgram()

	err := p.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrSequence))
}

func TestBlock_VarLookup(t *testing.T) {
	t.Parallel()
	p := NewProgram()
	root := p.Root()
	child := p.NewBlock()
	grandchild := p.NewBlock()

	_, err := root.CreateVar(VarSpec{Name: "x", DType: Float32, Shape: []int64{1}})
	require.NoError(t, err)

	t.Run("own lookup does not see ancestors", func(t *testing.T) {
		_, ok := grandchild.Var("x")
		assert.False(t, ok)
	})

	t.Run("recursive lookup walks every ancestor", func(t *testing.T) {
		v, ok := grandchild.VarRecursive("x")
		require.True(t, ok)
		assert.Equal(t, "x", v.Name)
	})

	t.Run("siblings are invisible", func(t *testing.T) {
		_, err := child.CreateVar(VarSpec{Name: "y"})
		require.NoError(t, err)
		_, ok := grandchild.Var("y")
		assert.False(t, ok)
	})
}

func TestBlock_DuplicateVarIsStructural(t *testing.T) {
	t.Parallel()
	p := NewProgram()

	_, err := p.Root().CreateVar(VarSpec{Name: "x"})
	require.NoError(t, err)
	_, err = p.Root().CreateVar(VarSpec{Name: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrStructure))
}

func TestVariable_Numel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		shape []int64
		want  int64
	}{
		{"scalar", nil, 1},
		{"one element", []int64{1}, 1},
		{"vector", []int64{2}, 2},
		{"matrix", []int64{3, 4}, 12},
		{"deferred batch dim", []int64{-1, 4}, -1},
		{"deferred scalar-like", []int64{-1}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Variable{Shape: tc.shape}
			assert.Equal(t, tc.want, v.Numel())
		})
	}
}

func TestSlotMap_InsertionOrder(t *testing.T) {
	t.Parallel()
	var m SlotMap

	m.Add("X", "a")
	m.Add("Params", "b", "c")
	m.Add("X", "d")

	require.Equal(t, []string{"X", "Params"}, m.Slots())
	assert.Equal(t, []string{"a", "d"}, m.Get("X"))
}

func TestAttrMap_SetKeepsFirstPosition(t *testing.T) {
	t.Parallel()
	var m AttrMap

	m.Set("level", Val(cty.NumberIntVal(0)))
	m.Set("sub_block", SubBlock(3))
	m.Set("level", Val(cty.NumberIntVal(2)))

	require.Equal(t, []string{"level", "sub_block"}, m.Keys())
	a, ok := m.Get("level")
	require.True(t, ok)
	assert.Equal(t, "2", a.String())
}

func TestOperation_SubBlock(t *testing.T) {
	t.Parallel()

	op := NewOperation("while").
		AddInput("X", "a", "b").
		AddOutput("Out", "c").
		SetAttr("sub_block", SubBlock(7))

	id, ok := op.SubBlock()
	require.True(t, ok)
	assert.Equal(t, BlockID(7), id)

	plain := NewOperation("assign").SetAttr("x", Val(cty.True))
	_, ok = plain.SubBlock()
	assert.False(t, ok)
}

func TestOperation_VarsInSlotOrder(t *testing.T) {
	t.Parallel()

	op := NewOperation("merge_lod_tensor").
		AddInput("X", "x").
		AddInput("Mask", "m").
		AddInput("InTrue", "t").
		AddOutput("Out", "o")

	assert.Equal(t, []string{"x", "m", "t"}, op.InputVars())
	assert.Equal(t, []string{"o"}, op.OutputVars())
}

func TestProgram_StringDump(t *testing.T) {
	t.Parallel()
	p := NewProgram()
	root := p.Root()

	_, err := root.CreateVar(VarSpec{Name: "i", DType: Int64, Shape: []int64{1}})
	require.NoError(t, err)
	root.AppendOp(NewOperation("increment").
		AddInput("X", "i").
		AddOutput("Out", "i").
		SetAttr("step", Val(cty.NumberIntVal(1))))

	child := p.NewBlock()
	require.NoError(t, p.Commit())
	root.AppendOp(NewOperation("while").
		AddInput("Condition", "i").
		AddOutput("Out", "i").
		SetAttr("sub_block", SubBlock(child.ID())))

	dump := p.String()
	assert.Contains(t, dump, "block 0:")
	assert.Contains(t, dump, "block 1 (parent 0):")
	assert.Contains(t, dump, "var i: int64[1]")
	assert.Contains(t, dump, "increment(X=[i]) -> (Out=[i]) {step=1}")
	assert.Contains(t, dump, "sub_block=block 1")
	assert.True(t, strings.Index(dump, "block 0:") < strings.Index(dump, "block 1"))
}
