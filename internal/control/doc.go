// Package control builds structured control flow over the block
// substrate. Each construct follows the same lowering pattern: open a
// child scope, let the caller populate it, then on close compute the
// captured free variables, create the step-scope handle(s) in the
// parent, and append exactly one composite operation embedding the
// sub-block.
//
// Constructs carry an explicit Before/In/After lifecycle; bookkeeping
// methods (memories, inputs, outputs) are only legal while the scope
// is open, and results are only readable after it closed.
package control
