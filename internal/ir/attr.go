package ir

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// AttrKind tags the payload carried by an Attr.
type AttrKind int

const (
	// AttrValue is a scalar or list constant represented as a cty.Value.
	AttrValue AttrKind = iota
	// AttrNames is an ordered list of variable names. Control
	// constructs use it for the ex-state/state arrays whose positions
	// consumers rely on.
	AttrNames
	// AttrBlock embeds a sub-block by ID; this is what makes an
	// operation composite.
	AttrBlock
)

// Attr is one attribute of an operation.
type Attr struct {
	kind  AttrKind
	val   cty.Value
	names []string
	block BlockID
}

// Val wraps a cty constant as an attribute.
func Val(v cty.Value) Attr {
	return Attr{kind: AttrValue, val: v}
}

// NameList wraps an ordered variable-name list as an attribute.
func NameList(names ...string) Attr {
	return Attr{kind: AttrNames, names: names}
}

// SubBlock wraps an embedded block reference as an attribute.
func SubBlock(id BlockID) Attr {
	return Attr{kind: AttrBlock, block: id}
}

// Kind reports which payload the attribute carries.
func (a Attr) Kind() AttrKind { return a.kind }

// Value returns the cty payload; only meaningful for AttrValue.
func (a Attr) Value() cty.Value { return a.val }

// Names returns the name-list payload; only meaningful for AttrNames.
func (a Attr) Names() []string { return a.names }

// Block returns the embedded block ID; only meaningful for AttrBlock.
func (a Attr) Block() BlockID { return a.block }

// String renders the attribute for dumps.
func (a Attr) String() string {
	switch a.kind {
	case AttrBlock:
		return fmt.Sprintf("block %d", a.block)
	case AttrNames:
		return "[" + strings.Join(a.names, ", ") + "]"
	default:
		return formatCty(a.val)
	}
}

func formatCty(v cty.Value) string {
	if v == cty.NilVal {
		return "<nil>"
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case ty == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case ty == cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case ty.IsListType() || ty.IsTupleType():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			parts = append(parts, formatCty(ev))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.GoString()
	}
}

// AttrMap is an insertion-ordered attribute map. Iteration order is
// the order attributes were first set, which keeps dumps and emitted
// attribute arrays reproducible.
type AttrMap struct {
	keys []string
	vals map[string]Attr
}

// Set stores an attribute, keeping the original position if the key
// already exists.
func (m *AttrMap) Set(name string, a Attr) {
	if m.vals == nil {
		m.vals = make(map[string]Attr)
	}
	if _, ok := m.vals[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.vals[name] = a
}

// Get returns the attribute and whether it is present.
func (m *AttrMap) Get(name string) (Attr, bool) {
	a, ok := m.vals[name]
	return a, ok
}

// Keys returns attribute names in insertion order.
func (m *AttrMap) Keys() []string { return m.keys }

// Len returns the number of attributes.
func (m *AttrMap) Len() int { return len(m.keys) }
