package sequence

import (
	"fmt"

	"github.com/vk/flowir/internal/flowerr"
)

// Array is the data-level tensor array: an index-addressable store of
// batches that grows on write. It backs dynamic-recurrence memories and
// per-step outputs.
type Array struct {
	elems []Batch
}

// Len returns the number of slots, including never-written ones below
// the highest written index.
func (a *Array) Len() int { return len(a.elems) }

// Write stores b at index i, growing the array with empty batches when
// i is past the current end.
func (a *Array) Write(i int, b Batch) error {
	if i < 0 {
		return fmt.Errorf("%w: array index %d is negative", flowerr.ErrShape, i)
	}
	for len(a.elems) <= i {
		a.elems = append(a.elems, Batch{})
	}
	a.elems[i] = b
	return nil
}

// Read returns the batch at index i.
func (a *Array) Read(i int) (Batch, error) {
	if i < 0 || i >= len(a.elems) {
		return Batch{}, fmt.Errorf("%w: array index %d out of range [0,%d)", flowerr.ErrShape, i, len(a.elems))
	}
	return a.elems[i], nil
}
