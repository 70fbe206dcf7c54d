package sequence

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/flowerr"
)

// ToSteps scatters a batch of variable-length sequences into per-step
// slices: step k holds the k-th row of every sequence still active at
// step k, in rank-table order. Because the table sorts by descending
// length, each step's active set is a prefix of the previous one.
func ToSteps(b Batch, table *RankTable) ([]Batch, error) {
	spans, err := b.spansAt(0)
	if err != nil {
		return nil, err
	}
	lengths := make([]int, len(spans))
	for i, s := range spans {
		lengths[i] = s[1] - s[0]
	}
	if err := table.validateAgainst(lengths); err != nil {
		return nil, err
	}

	steps := make([]Batch, table.MaxLen())
	for k := range steps {
		active := table.activeAt(k)
		rows := make([]cty.Value, 0, active)
		for _, it := range table.Items()[:active] {
			rows = append(rows, b.Rows[spans[it.Index][0]+k])
		}
		steps[k] = Batch{Rows: rows}
	}
	return steps, nil
}

// FromSteps gathers per-step slices back into one batch in the original
// sequence order, the exact inverse of ToSteps under the same table.
func FromSteps(steps []Batch, table *RankTable) (Batch, error) {
	if len(steps) != table.MaxLen() {
		return Batch{}, fmt.Errorf("%w: %d steps for a table with max length %d", flowerr.ErrShape, len(steps), table.MaxLen())
	}
	for k, step := range steps {
		if want := table.activeAt(k); len(step.Rows) != want {
			return Batch{}, fmt.Errorf("%w: step %d has %d rows, %d sequences are active", flowerr.ErrShape, k, len(step.Rows), want)
		}
	}

	// Per-sequence rows keyed by original index, then flattened with a
	// fresh offset vector.
	perSeq := make([][]cty.Value, table.Len())
	for rank, it := range table.Items() {
		rows := make([]cty.Value, 0, it.Length)
		for k := 0; k < it.Length; k++ {
			rows = append(rows, steps[k].Rows[rank])
		}
		perSeq[it.Index] = rows
	}

	var out Batch
	offs := []int{0}
	for _, rows := range perSeq {
		out.Rows = append(out.Rows, rows...)
		offs = append(offs, offs[len(offs)-1]+len(rows))
	}
	out.LoD = [][]int{offs}
	return out, nil
}
