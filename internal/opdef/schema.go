package opdef

import "github.com/hashicorp/hcl/v2"

// slotDef declares one formal input or output of an operator.
type slotDef struct {
	Name       string `hcl:"name,label"`
	Duplicable bool   `hcl:"duplicable,optional"`
}

// attrDef declares one attribute: its name and a type expression such
// as `number`, `list(string)`, `names`, or `block`.
type attrDef struct {
	Name     string         `hcl:"name,label"`
	Type     hcl.Expression `hcl:"type"`
	Optional bool           `hcl:"optional,optional"`
}

// operatorDef is one `operator` block in a manifest.
type operatorDef struct {
	Type        string     `hcl:"type,label"`
	Description string     `hcl:"description,optional"`
	Inputs      []*slotDef `hcl:"input,block"`
	Outputs     []*slotDef `hcl:"output,block"`
	Attrs       []*attrDef `hcl:"attr,block"`
}

// manifest is the top-level structure of one defs/*.hcl file.
type manifest struct {
	Operators []*operatorDef `hcl:"operator,block"`
}
