package ir

import (
	"fmt"
	"strings"
)

// String renders the whole block tree as indented text. This is debug
// output for humans, not a serialization format.
func (p *Program) String() string {
	var sb strings.Builder
	for i := 0; i < p.BlockCount(); i++ {
		b, ok := p.Block(BlockID(i))
		if !ok {
			continue
		}
		if b.parent == NoParent {
			fmt.Fprintf(&sb, "block %d:\n", b.id)
		} else {
			fmt.Fprintf(&sb, "block %d (parent %d):\n", b.id, b.parent)
		}
		for _, name := range b.varNames {
			v, _ := b.Var(name)
			fmt.Fprintf(&sb, "  var %s: %s\n", name, describeVar(v))
		}
		for _, op := range b.ops {
			fmt.Fprintf(&sb, "  %s\n", describeOp(op))
		}
	}
	return sb.String()
}

func describeVar(v *Variable) string {
	if v.Kind != KindTensor {
		return v.Kind.String()
	}
	var sb strings.Builder
	sb.WriteString(v.DType.String())
	if len(v.Shape) > 0 {
		dims := make([]string, len(v.Shape))
		for i, d := range v.Shape {
			dims[i] = fmt.Sprintf("%d", d)
		}
		fmt.Fprintf(&sb, "[%s]", strings.Join(dims, ", "))
	}
	if v.LoDLevel > 0 {
		fmt.Fprintf(&sb, " lod=%d", v.LoDLevel)
	}
	if v.Persistable {
		sb.WriteString(" persistable")
	}
	return sb.String()
}

func describeOp(op *Operation) string {
	var sb strings.Builder
	sb.WriteString(op.Type)
	sb.WriteString("(")
	sb.WriteString(describeSlots(&op.Inputs))
	sb.WriteString(") -> (")
	sb.WriteString(describeSlots(&op.Outputs))
	sb.WriteString(")")
	if op.Attrs.Len() > 0 {
		parts := make([]string, 0, op.Attrs.Len())
		for _, k := range op.Attrs.Keys() {
			a, _ := op.Attrs.Get(k)
			parts = append(parts, fmt.Sprintf("%s=%s", k, a))
		}
		fmt.Fprintf(&sb, " {%s}", strings.Join(parts, ", "))
	}
	return sb.String()
}

func describeSlots(m *SlotMap) string {
	parts := make([]string, 0, m.Len())
	for _, slot := range m.Slots() {
		parts = append(parts, fmt.Sprintf("%s=[%s]", slot, strings.Join(m.Get(slot), ", ")))
	}
	return strings.Join(parts, ", ")
}
