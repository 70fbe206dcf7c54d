package opdef

import (
	"context"
	"embed"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/flowir/internal/ctxlog"
	"github.com/vk/flowir/internal/flowerr"
	"github.com/vk/flowir/internal/ir"
)

//go:embed defs/*.hcl
var defsFS embed.FS

// slotSchema is the compiled form of a slotDef.
type slotSchema struct {
	duplicable bool
}

// attrSchema is the compiled form of an attrDef.
type attrSchema struct {
	typ      attrType
	optional bool
}

// Definition is the compiled schema of one operation type.
type Definition struct {
	Type        string
	Description string

	inputs  map[string]slotSchema
	outputs map[string]slotSchema
	attrs   map[string]attrSchema
}

// Registry holds every known operator definition.
type Registry struct {
	defs map[string]*Definition
}

// Load parses the embedded manifests into a Registry. It fails on the
// first malformed manifest; the manifests ship with the binary, so a
// failure here is a build defect, not user input.
func Load(ctx context.Context) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)

	entries, err := defsFS.ReadDir("defs")
	if err != nil {
		return nil, fmt.Errorf("reading embedded operator manifests: %w", err)
	}

	parser := hclparse.NewParser()
	reg := &Registry{defs: make(map[string]*Definition)}

	for _, entry := range entries {
		src, err := defsFS.ReadFile("defs/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading manifest %s: %w", entry.Name(), err)
		}
		file, diags := parser.ParseHCL(src, entry.Name())
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing manifest %s: %w", entry.Name(), diags)
		}

		var m manifest
		if diags := gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
			return nil, fmt.Errorf("decoding manifest %s: %w", entry.Name(), diags)
		}

		for _, opDef := range m.Operators {
			def, err := compile(opDef)
			if err != nil {
				return nil, fmt.Errorf("manifest %s, operator %q: %w", entry.Name(), opDef.Type, err)
			}
			if _, exists := reg.defs[def.Type]; exists {
				return nil, fmt.Errorf("manifest %s: operator %q defined twice", entry.Name(), def.Type)
			}
			reg.defs[def.Type] = def
		}
		logger.Debug("Loaded operator manifest.", "file", entry.Name())
	}

	logger.Debug("Operator registry ready.", "operators", len(reg.defs))
	return reg, nil
}

func compile(d *operatorDef) (*Definition, error) {
	def := &Definition{
		Type:        d.Type,
		Description: d.Description,
		inputs:      make(map[string]slotSchema, len(d.Inputs)),
		outputs:     make(map[string]slotSchema, len(d.Outputs)),
		attrs:       make(map[string]attrSchema, len(d.Attrs)),
	}
	for _, s := range d.Inputs {
		def.inputs[s.Name] = slotSchema{duplicable: s.Duplicable}
	}
	for _, s := range d.Outputs {
		def.outputs[s.Name] = slotSchema{duplicable: s.Duplicable}
	}
	for _, a := range d.Attrs {
		typ, err := typeExprToAttrType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("attr %q: %w", a.Name, err)
		}
		def.attrs[a.Name] = attrSchema{typ: typ, optional: a.Optional}
	}
	return def, nil
}

// Len returns the number of registered operator definitions.
func (r *Registry) Len() int { return len(r.defs) }

// Lookup returns the definition for an operation type.
func (r *Registry) Lookup(opType string) (*Definition, bool) {
	d, ok := r.defs[opType]
	return d, ok
}

// Validate checks an operation against its definition: the type must
// be known, every bound slot declared, single-variable slots must hold
// at most one name, required attributes must be present, and attribute
// payloads must match their declared types.
func (r *Registry) Validate(op *ir.Operation) error {
	def, ok := r.defs[op.Type]
	if !ok {
		return fmt.Errorf("%w: unknown operation type %q", flowerr.ErrStructure, op.Type)
	}

	if err := validateSlots(op.Type, "input", &op.Inputs, def.inputs); err != nil {
		return err
	}
	if err := validateSlots(op.Type, "output", &op.Outputs, def.outputs); err != nil {
		return err
	}

	for _, name := range op.Attrs.Keys() {
		schema, ok := def.attrs[name]
		if !ok {
			return fmt.Errorf("%w: %s: undeclared attribute %q", flowerr.ErrStructure, op.Type, name)
		}
		attr, _ := op.Attrs.Get(name)
		if err := checkAttr(attr, schema.typ); err != nil {
			return fmt.Errorf("%w: %s: attribute %q: %v", flowerr.ErrType, op.Type, name, err)
		}
	}
	for name, schema := range def.attrs {
		if schema.optional {
			continue
		}
		if _, ok := op.Attrs.Get(name); !ok {
			return fmt.Errorf("%w: %s: required attribute %q missing", flowerr.ErrStructure, op.Type, name)
		}
	}
	return nil
}

func validateSlots(opType, role string, bound *ir.SlotMap, declared map[string]slotSchema) error {
	for _, slot := range bound.Slots() {
		schema, ok := declared[slot]
		if !ok {
			return fmt.Errorf("%w: %s: undeclared %s slot %q", flowerr.ErrStructure, opType, role, slot)
		}
		if n := len(bound.Get(slot)); !schema.duplicable && n > 1 {
			return fmt.Errorf("%w: %s: %s slot %q holds %d variables but is not duplicable", flowerr.ErrStructure, opType, role, slot, n)
		}
	}
	return nil
}

func checkAttr(a ir.Attr, typ attrType) error {
	switch typ.kind {
	case attrBlockRef:
		if a.Kind() != ir.AttrBlock {
			return fmt.Errorf("expected an embedded block")
		}
	case attrNameList:
		if a.Kind() != ir.AttrNames {
			return fmt.Errorf("expected a variable-name list")
		}
	default:
		if a.Kind() != ir.AttrValue {
			return fmt.Errorf("expected a constant of type %s", typ)
		}
		if _, err := convert.Convert(a.Value(), typ.cty); err != nil {
			return fmt.Errorf("value %s is not convertible to %s", a, typ)
		}
	}
	return nil
}
