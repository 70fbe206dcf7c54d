package ir

// SlotMap is an insertion-ordered mapping from a slot name (an
// operation's formal input or output, e.g. "X" or "Out") to the list
// of variable names bound to it. Deterministic iteration order is what
// makes capture analysis and dumps reproducible.
type SlotMap struct {
	keys []string
	vals map[string][]string
}

// Add appends variable names to a slot, creating the slot on first use.
func (m *SlotMap) Add(slot string, vars ...string) {
	if m.vals == nil {
		m.vals = make(map[string][]string)
	}
	if _, ok := m.vals[slot]; !ok {
		m.keys = append(m.keys, slot)
	}
	m.vals[slot] = append(m.vals[slot], vars...)
}

// Get returns the variable names bound to a slot.
func (m *SlotMap) Get(slot string) []string { return m.vals[slot] }

// Slots returns slot names in insertion order.
func (m *SlotMap) Slots() []string { return m.keys }

// Len returns the number of slots.
func (m *SlotMap) Len() int { return len(m.keys) }

// Operation is one node in a block's ordered operation list. Inputs
// and outputs reference variables by name; attributes hold constants,
// name lists, or an embedded sub-block.
type Operation struct {
	Type    string
	Inputs  SlotMap
	Outputs SlotMap
	Attrs   AttrMap
}

// NewOperation creates an empty operation of the given type.
func NewOperation(opType string) *Operation {
	return &Operation{Type: opType}
}

// AddInput binds variables to an input slot.
func (o *Operation) AddInput(slot string, vars ...string) *Operation {
	o.Inputs.Add(slot, vars...)
	return o
}

// AddOutput binds variables to an output slot.
func (o *Operation) AddOutput(slot string, vars ...string) *Operation {
	o.Outputs.Add(slot, vars...)
	return o
}

// SetAttr stores an attribute.
func (o *Operation) SetAttr(name string, a Attr) *Operation {
	o.Attrs.Set(name, a)
	return o
}

// InputVars returns every input variable name in slot order.
func (o *Operation) InputVars() []string {
	var out []string
	for _, slot := range o.Inputs.Slots() {
		out = append(out, o.Inputs.Get(slot)...)
	}
	return out
}

// OutputVars returns every output variable name in slot order.
func (o *Operation) OutputVars() []string {
	var out []string
	for _, slot := range o.Outputs.Slots() {
		out = append(out, o.Outputs.Get(slot)...)
	}
	return out
}

// SubBlock returns the embedded block ID if the operation carries one.
func (o *Operation) SubBlock() (BlockID, bool) {
	for _, k := range o.Attrs.Keys() {
		if a, _ := o.Attrs.Get(k); a.Kind() == AttrBlock {
			return a.Block(), true
		}
	}
	return 0, false
}
