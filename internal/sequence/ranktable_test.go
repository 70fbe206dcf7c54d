package sequence

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_SortsByLengthDescending(t *testing.T) {
	t.Parallel()

	table := Build([]int{4, 1, 2})
	want := []Item{{Index: 0, Length: 4}, {Index: 2, Length: 2}, {Index: 1, Length: 1}}
	if diff := cmp.Diff(want, table.Items()); diff != "" {
		t.Fatalf("rank order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, table.MaxLen())
}

func TestBuild_StableOnTies(t *testing.T) {
	t.Parallel()

	// Lengths [3,5,5,1]: indices 1 and 2 both have length 5 and must
	// keep their relative order.
	table := Build([]int{3, 5, 5, 1})
	want := []Item{
		{Index: 1, Length: 5},
		{Index: 2, Length: 5},
		{Index: 0, Length: 3},
		{Index: 3, Length: 1},
	}
	if diff := cmp.Diff(want, table.Items()); diff != "" {
		t.Fatalf("rank order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	table := Build(nil)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, table.MaxLen())
}

func TestFromBatch(t *testing.T) {
	t.Parallel()

	b := Batch{
		LoD:  [][]int{{0, 4, 5, 7}},
		Rows: intRows(t, 7),
	}
	table, err := FromBatch(b, 0)
	require.NoError(t, err)

	want := []Item{{Index: 0, Length: 4}, {Index: 2, Length: 2}, {Index: 1, Length: 1}}
	if diff := cmp.Diff(want, table.Items()); diff != "" {
		t.Fatalf("rank order mismatch (-want +got):\n%s", diff)
	}
}

func TestActiveAt_PrefixShrinks(t *testing.T) {
	t.Parallel()

	table := Build([]int{4, 1, 2})
	assert.Equal(t, 3, table.activeAt(0))
	assert.Equal(t, 2, table.activeAt(1))
	assert.Equal(t, 1, table.activeAt(2))
	assert.Equal(t, 1, table.activeAt(3))
	assert.Equal(t, 0, table.activeAt(4))
}
