// Package flowerr defines the error taxonomy shared by every package
// that participates in program construction. All construction failures
// wrap exactly one of these sentinels so callers can classify them with
// errors.Is without string matching.
package flowerr

import "errors"

var (
	// ErrType reports a wrong value kind, e.g. a non-boolean loop
	// condition or a nil variable where one is required.
	ErrType = errors.New("type error")

	// ErrSequence reports a construct API called in the wrong lifecycle
	// phase, e.g. registering a memory before the scope is open.
	ErrSequence = errors.New("sequencing error")

	// ErrStructure reports an inconsistency in the assembled program,
	// e.g. a captured name that resolves in no enclosing scope.
	ErrStructure = errors.New("structural error")

	// ErrShape reports disagreeing tensor shapes at construction time.
	ErrShape = errors.New("shape error")
)
