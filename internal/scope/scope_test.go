package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowir/internal/ir"
)

func TestGuard_CommitKeepsBlock(t *testing.T) {
	t.Parallel()
	p := ir.NewProgram()

	g := Enter(p)
	require.Equal(t, g.Block(), p.Current())
	require.NoError(t, g.Commit())

	require.Equal(t, p.Root(), p.Current())
	_, ok := p.Block(g.Block().ID())
	assert.True(t, ok)
}

func TestGuard_RollbackDiscardsBlock(t *testing.T) {
	t.Parallel()
	p := ir.NewProgram()

	g := Enter(p)
	id := g.Block().ID()
	require.NoError(t, g.Rollback())

	require.Equal(t, p.Root(), p.Current())
	_, ok := p.Block(id)
	assert.False(t, ok)
}

func TestGuard_CloseIsOnceOnly(t *testing.T) {
	t.Parallel()
	p := ir.NewProgram()

	outer := Enter(p)
	inner := Enter(p)
	require.NoError(t, inner.Commit())

	// A second close on the inner guard must not pop the outer scope.
	require.NoError(t, inner.Commit())
	require.NoError(t, inner.Rollback())
	require.Equal(t, outer.Block(), p.Current())

	require.NoError(t, outer.Rollback())
	require.Equal(t, p.Root(), p.Current())
}

func TestWith_ErrorRollsBack(t *testing.T) {
	t.Parallel()
	p := ir.NewProgram()
	boom := errors.New("boom")

	var id ir.BlockID
	blk, err := With(p, func(b *ir.Block) error {
		id = b.ID()
		_, cerr := b.CreateVar(ir.VarSpec{Name: "x"})
		require.NoError(t, cerr)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Nil(t, blk)
	require.Equal(t, p.Root(), p.Current())
	_, ok := p.Block(id)
	assert.False(t, ok, "the aborted block must not remain reachable")
}

func TestWith_ErrorDiscardsCommittedSubBlocks(t *testing.T) {
	t.Parallel()
	p := ir.NewProgram()
	boom := errors.New("boom")

	var innerID ir.BlockID
	_, err := With(p, func(b *ir.Block) error {
		inner, werr := With(p, func(c *ir.Block) error { return nil })
		require.NoError(t, werr)
		innerID = inner.ID()
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, p.Root(), p.Current())

	// The inner block was committed into the aborted scope; rolling the
	// outer scope back must take it down too.
	_, ok := p.Block(innerID)
	assert.False(t, ok, "a sub-block of the aborted scope must not remain reachable")
	assert.NotContains(t, p.String(), "block 2")
}

func TestWith_NestedScopes(t *testing.T) {
	t.Parallel()
	p := ir.NewProgram()

	outer, err := With(p, func(b *ir.Block) error {
		inner, err := With(p, func(c *ir.Block) error { return nil })
		require.NoError(t, err)
		require.Equal(t, b.ID(), inner.ParentID())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, ir.BlockID(0), outer.ParentID())
}
