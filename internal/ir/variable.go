package ir

// DType is the element type of a tensor-like variable.
type DType int

const (
	Bool DType = iota
	Int32
	Int64
	Float32
	Float64
)

// String returns the lowercase name used in dumps and attributes.
func (d DType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// VarKind distinguishes the runtime container a variable names.
type VarKind int

const (
	// KindTensor is a dense tensor, optionally carrying LoD nesting.
	KindTensor VarKind = iota
	// KindTensorArray is an append/random-access sequence of tensors.
	KindTensorArray
	// KindRankTable is a descending-length ordering of sequences.
	KindRankTable
	// KindStepScopes is a per-invocation execution-state container
	// owned by a composite operation.
	KindStepScopes
)

func (k VarKind) String() string {
	switch k {
	case KindTensor:
		return "tensor"
	case KindTensorArray:
		return "tensor_array"
	case KindRankTable:
		return "rank_table"
	case KindStepScopes:
		return "step_scopes"
	default:
		return "unknown"
	}
}

// Variable describes one named value owned by a block. Identity is the
// name; operations reference variables by name only.
type Variable struct {
	Name        string
	Kind        VarKind
	DType       DType
	Shape       []int64
	LoDLevel    int
	Persistable bool
}

// VarSpec is the request handed to Block.CreateVar.
type VarSpec struct {
	Name        string
	Kind        VarKind
	DType       DType
	Shape       []int64
	LoDLevel    int
	Persistable bool
}

// Numel returns the product of the shape dimensions. A variable with
// an empty shape counts as a scalar. A shape with any negative
// (deferred) dimension has an unknown element count, reported as -1,
// so scalar checks on loop conditions reject it.
func (v *Variable) Numel() int64 {
	n := int64(1)
	for _, d := range v.Shape {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}
