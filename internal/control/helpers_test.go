package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/names"
	"github.com/vk/flowir/internal/opdef"
	"github.com/vk/flowir/internal/ops"
)

func newTestLibrary(t *testing.T) *ops.Library {
	t.Helper()
	defs, err := opdef.Load(context.Background())
	require.NoError(t, err)
	return ops.NewLibrary(ir.NewProgram(), names.New(), defs)
}

// boolScalar declares a boolean [1] variable in the block.
func boolScalar(t *testing.T, lib *ops.Library, b *ir.Block, name string) *ir.Variable {
	t.Helper()
	v, err := b.CreateVar(ir.VarSpec{Name: name, Kind: ir.KindTensor, DType: ir.Bool, Shape: []int64{1}})
	require.NoError(t, err)
	return v
}

// lastOp returns the block's most recently appended operation.
func lastOp(t *testing.T, b *ir.Block) *ir.Operation {
	t.Helper()
	require.NotEmpty(t, b.Ops())
	return b.Ops()[len(b.Ops())-1]
}

// producerOf finds the operation in the block that outputs the name.
func producerOf(t *testing.T, b *ir.Block, name string) *ir.Operation {
	t.Helper()
	for _, op := range b.Ops() {
		for _, out := range op.OutputVars() {
			if out == name {
				return op
			}
		}
	}
	t.Fatalf("no operation in block %d produces %q", b.ID(), name)
	return nil
}
