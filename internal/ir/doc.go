// Package ir holds the program/block substrate: a rooted, acyclic tree
// of blocks addressed by stable IDs, the variables each block owns,
// and the ordered operation lists that reference those variables by
// name.
//
// The package is purely a data model. Scope entry/exit discipline
// lives in internal/scope, free-variable analysis in internal/capture,
// and the operations themselves are appended by internal/ops and
// internal/control.
package ir
