// Package sequence implements the data-level counterparts of the
// sequence operations the IR only names: rank tables, masked
// split/merge of variable-length batches, tensor-array stores, and the
// scatter/gather between a batch and its per-step slices. The
// construction layer emits operations; an executor (and the tests)
// give them meaning with this package.
package sequence
