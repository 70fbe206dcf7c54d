// Parsing of manifest type expressions (e.g. `number`, `list(string)`)
// into attribute kinds. `block` and `names` are manifest-level
// keywords for embedded sub-blocks and variable-name lists; everything
// else maps to a cty.Type.

package opdef

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// attrKind tags what payload an attribute definition accepts.
type attrKind int

const (
	attrCty attrKind = iota
	attrBlockRef
	attrNameList
)

// attrType is the parsed type of one attribute definition.
type attrType struct {
	kind attrKind
	cty  cty.Type
}

func (t attrType) String() string {
	switch t.kind {
	case attrBlockRef:
		return "block"
	case attrNameList:
		return "names"
	default:
		return t.cty.FriendlyName()
	}
}

// typeExprToAttrType converts a manifest type expression into its
// attrType equivalent.
func typeExprToAttrType(expr hcl.Expression) (attrType, error) {
	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return attrType{}, fmt.Errorf("type constructor %q requires exactly one argument, got %d", v.Name, len(v.Args))
		}
		element, err := typeExprToAttrType(v.Args[0])
		if err != nil {
			return attrType{}, err
		}
		if element.kind != attrCty {
			return attrType{}, fmt.Errorf("collection types cannot contain %q", element)
		}
		switch v.Name {
		case "list":
			return attrType{kind: attrCty, cty: cty.List(element.cty)}, nil
		default:
			return attrType{}, fmt.Errorf("unknown type constructor function %q", v.Name)
		}

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return attrType{}, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		switch root := v.Traversal.RootName(); root {
		case "string":
			return attrType{kind: attrCty, cty: cty.String}, nil
		case "number":
			return attrType{kind: attrCty, cty: cty.Number}, nil
		case "bool":
			return attrType{kind: attrCty, cty: cty.Bool}, nil
		case "block":
			return attrType{kind: attrBlockRef}, nil
		case "names":
			return attrType{kind: attrNameList}, nil
		default:
			return attrType{}, fmt.Errorf("unknown type keyword %q", root)
		}

	default:
		return attrType{}, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}
