package sequence

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/flowerr"
)

// Batch is a variable-length-nested value: a flat row list plus LoD
// offset vectors, outermost level first. LoD[d][i] is the start of unit
// i of level d measured in units of level d+1 (rows for the innermost
// level). A batch with no LoD is flat: every row is its own unit.
type Batch struct {
	LoD  [][]int
	Rows []cty.Value
}

// Levels returns the number of nesting levels; a flat batch has one
// implicit level.
func (b Batch) Levels() int {
	if len(b.LoD) == 0 {
		return 1
	}
	return len(b.LoD)
}

// UnitCount returns the number of units at the given level.
func (b Batch) UnitCount(level int) (int, error) {
	if len(b.LoD) == 0 {
		if level != 0 {
			return 0, fmt.Errorf("%w: flat batch has only level 0, got %d", flowerr.ErrShape, level)
		}
		return len(b.Rows), nil
	}
	if level < 0 || level >= len(b.LoD) {
		return 0, fmt.Errorf("%w: level %d out of range for %d-level batch", flowerr.ErrShape, level, len(b.LoD))
	}
	return len(b.LoD[level]) - 1, nil
}

// spansAt returns the [start,end) row range of each unit at the level.
func (b Batch) spansAt(level int) ([][2]int, error) {
	n, err := b.UnitCount(level)
	if err != nil {
		return nil, err
	}
	spans := make([][2]int, n)
	if len(b.LoD) == 0 {
		for i := range spans {
			spans[i] = [2]int{i, i + 1}
		}
		return spans, nil
	}
	toRows := func(idx int) int {
		for _, deeper := range b.LoD[level+1:] {
			idx = deeper[idx]
		}
		return idx
	}
	offs := b.LoD[level]
	for i := 0; i < n; i++ {
		spans[i] = [2]int{toRows(offs[i]), toRows(offs[i+1])}
	}
	return spans, nil
}

// unit is the extracted structure of one level-L unit: its rows plus,
// per deeper level, the relative segment lengths.
type unit struct {
	sub  [][]int
	rows []cty.Value
}

// extractUnits pulls each level-L unit out of the batch in order.
func (b Batch) extractUnits(level int) ([]unit, error) {
	n, err := b.UnitCount(level)
	if err != nil {
		return nil, err
	}
	units := make([]unit, n)
	if len(b.LoD) == 0 {
		for i := range units {
			units[i] = unit{rows: b.Rows[i : i+1]}
		}
		return units, nil
	}
	for i := 0; i < n; i++ {
		lo, hi := b.LoD[level][i], b.LoD[level][i+1]
		var sub [][]int
		for _, deeper := range b.LoD[level+1:] {
			lengths := make([]int, 0, hi-lo)
			for j := lo; j < hi; j++ {
				lengths = append(lengths, deeper[j+1]-deeper[j])
			}
			sub = append(sub, lengths)
			lo, hi = deeper[lo], deeper[hi]
		}
		units[i] = unit{sub: sub, rows: b.Rows[lo:hi]}
	}
	return units, nil
}

// buildFromUnits assembles a batch from level-L units, prefixing the
// given upper LoD levels (levels above L, already adjusted to count the
// assembled units).
func buildFromUnits(upper [][]int, units []unit, deepLevels int, flat bool) Batch {
	var rows []cty.Value
	for _, u := range units {
		rows = append(rows, u.rows...)
	}
	if flat {
		return Batch{Rows: rows}
	}

	lod := make([][]int, 0, len(upper)+1+deepLevels)
	lod = append(lod, upper...)

	offs := []int{0}
	for _, u := range units {
		size := len(u.rows)
		if deepLevels > 0 {
			size = len(u.sub[0])
		}
		offs = append(offs, offs[len(offs)-1]+size)
	}
	lod = append(lod, offs)

	// Each deeper level concatenates the units' relative segment
	// lengths back into running offsets.
	for k := 0; k < deepLevels; k++ {
		offs := []int{0}
		for _, u := range units {
			for _, n := range u.sub[k] {
				offs = append(offs, offs[len(offs)-1]+n)
			}
		}
		lod = append(lod, offs)
	}
	return Batch{LoD: lod, Rows: rows}
}

// SplitByMask partitions the batch's units at the given level into a
// true half and a false half. Nesting below the level travels with each
// unit; levels above the split level are kept in both halves with their
// unit counts recomputed, so merging with the same mask restores the
// original exactly.
func SplitByMask(b Batch, mask []bool, level int) (Batch, Batch, error) {
	units, err := b.extractUnits(level)
	if err != nil {
		return Batch{}, Batch{}, err
	}
	if len(mask) != len(units) {
		return Batch{}, Batch{}, fmt.Errorf("%w: mask has %d entries, level %d has %d units", flowerr.ErrShape, len(mask), level, len(units))
	}

	var trueUnits, falseUnits []unit
	for i, u := range units {
		if mask[i] {
			trueUnits = append(trueUnits, u)
		} else {
			falseUnits = append(falseUnits, u)
		}
	}

	trueUpper := splitUpper(b.LoD, mask, level, true)
	falseUpper := splitUpper(b.LoD, mask, level, false)
	flat := len(b.LoD) == 0
	deep := 0
	if !flat {
		deep = len(b.LoD) - level - 1
	}
	return buildFromUnits(trueUpper, trueUnits, deep, flat),
		buildFromUnits(falseUpper, falseUnits, deep, flat), nil
}

// splitUpper recomputes the LoD levels above the split level for one
// half: levels above level-1 are structurally unchanged, level-1
// offsets count only the units that land in this half.
func splitUpper(lod [][]int, mask []bool, level int, want bool) [][]int {
	if level == 0 || len(lod) == 0 {
		return nil
	}
	upper := make([][]int, level)
	for d := 0; d < level-1; d++ {
		upper[d] = append([]int(nil), lod[d]...)
	}
	prefix := make([]int, len(mask)+1)
	for i, m := range mask {
		prefix[i+1] = prefix[i]
		if m == want {
			prefix[i+1]++
		}
	}
	old := lod[level-1]
	offs := make([]int, len(old))
	for i, o := range old {
		offs[i] = prefix[o]
	}
	upper[level-1] = offs
	return upper
}

// MergeByMask recombines a masked split back into the original unit
// order at the given level; it is the exact inverse of SplitByMask with
// the same mask and level.
func MergeByMask(trueB, falseB Batch, mask []bool, level int) (Batch, error) {
	trueUnits, err := trueB.extractUnits(level)
	if err != nil {
		return Batch{}, err
	}
	falseUnits, err := falseB.extractUnits(level)
	if err != nil {
		return Batch{}, err
	}
	nTrue := 0
	for _, m := range mask {
		if m {
			nTrue++
		}
	}
	if nTrue != len(trueUnits) || len(mask)-nTrue != len(falseUnits) {
		return Batch{}, fmt.Errorf("%w: mask selects %d/%d units, halves have %d/%d", flowerr.ErrShape, nTrue, len(mask)-nTrue, len(trueUnits), len(falseUnits))
	}

	units := make([]unit, 0, len(mask))
	ti, fi := 0, 0
	for _, m := range mask {
		if m {
			units = append(units, trueUnits[ti])
			ti++
		} else {
			units = append(units, falseUnits[fi])
			fi++
		}
	}

	upper, err := mergeUpper(trueB.LoD, falseB.LoD, level)
	if err != nil {
		return Batch{}, err
	}
	flat := len(trueB.LoD) == 0 && len(falseB.LoD) == 0
	deep := 0
	if !flat {
		deep = maxInt(len(trueB.LoD), len(falseB.LoD)) - level - 1
		if deep < 0 {
			deep = 0
		}
	}
	return buildFromUnits(upper, units, deep, flat), nil
}

// mergeUpper restores the LoD levels above the merge level: levels
// above level-1 must agree between the halves, level-1 offsets are the
// per-boundary sums.
func mergeUpper(trueLoD, falseLoD [][]int, level int) ([][]int, error) {
	if level == 0 {
		return nil, nil
	}
	if len(trueLoD) < level || len(falseLoD) < level {
		return nil, fmt.Errorf("%w: halves lack the %d upper levels of the merge", flowerr.ErrShape, level)
	}
	upper := make([][]int, level)
	for d := 0; d < level-1; d++ {
		if len(trueLoD[d]) != len(falseLoD[d]) {
			return nil, fmt.Errorf("%w: halves disagree on level %d structure", flowerr.ErrShape, d)
		}
		for i := range trueLoD[d] {
			if trueLoD[d][i] != falseLoD[d][i] {
				return nil, fmt.Errorf("%w: halves disagree on level %d structure", flowerr.ErrShape, d)
			}
		}
		upper[d] = append([]int(nil), trueLoD[d]...)
	}
	t, f := trueLoD[level-1], falseLoD[level-1]
	if len(t) != len(f) {
		return nil, fmt.Errorf("%w: halves disagree on level %d boundaries", flowerr.ErrShape, level-1)
	}
	offs := make([]int, len(t))
	for i := range t {
		offs[i] = t[i] + f[i]
	}
	upper[level-1] = offs
	return upper, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
