package sequence

import (
	"fmt"
	"sort"

	"github.com/vk/flowir/internal/flowerr"
)

// Item is one entry of a rank table: the sequence's position in the
// original batch and its length.
type Item struct {
	Index  int
	Length int
}

// RankTable orders variable-length sequences by descending length,
// stable on ties, so a shrinking active set is always a prefix.
type RankTable struct {
	items []Item
}

// Build creates a rank table from per-sequence lengths.
func Build(lengths []int) *RankTable {
	items := make([]Item, len(lengths))
	for i, n := range lengths {
		items[i] = Item{Index: i, Length: n}
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Length > items[b].Length
	})
	return &RankTable{items: items}
}

// FromBatch builds a rank table from the unit lengths of a batch at the
// given nesting level.
func FromBatch(b Batch, level int) (*RankTable, error) {
	spans, err := b.spansAt(level)
	if err != nil {
		return nil, err
	}
	lengths := make([]int, len(spans))
	for i, s := range spans {
		lengths[i] = s[1] - s[0]
	}
	return Build(lengths), nil
}

// Items returns the table entries in rank order.
func (t *RankTable) Items() []Item { return t.items }

// Len returns the number of sequences in the table.
func (t *RankTable) Len() int { return len(t.items) }

// MaxLen returns the longest sequence length, zero for an empty table.
func (t *RankTable) MaxLen() int {
	if len(t.items) == 0 {
		return 0
	}
	return t.items[0].Length
}

// activeAt returns how many sequences are still running at step k.
// Descending order makes the active set a prefix of the table.
func (t *RankTable) activeAt(k int) int {
	n := 0
	for _, it := range t.items {
		if it.Length > k {
			n++
		} else {
			break
		}
	}
	return n
}

// validateAgainst checks that the table describes exactly the batch's
// unit lengths at the given level.
func (t *RankTable) validateAgainst(lengths []int) error {
	if len(t.items) != len(lengths) {
		return fmt.Errorf("%w: rank table has %d entries, batch has %d sequences", flowerr.ErrShape, len(t.items), len(lengths))
	}
	prev := -1
	for rank, it := range t.items {
		if it.Index < 0 || it.Index >= len(lengths) {
			return fmt.Errorf("%w: rank table entry %d indexes sequence %d of %d", flowerr.ErrShape, rank, it.Index, len(lengths))
		}
		if lengths[it.Index] != it.Length {
			return fmt.Errorf("%w: rank table says sequence %d has length %d, batch says %d", flowerr.ErrShape, it.Index, it.Length, lengths[it.Index])
		}
		if prev >= 0 && it.Length > prev {
			return fmt.Errorf("%w: rank table is not sorted by descending length at entry %d", flowerr.ErrStructure, rank)
		}
		prev = it.Length
	}
	return nil
}
