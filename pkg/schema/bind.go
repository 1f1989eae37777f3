package schema

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Bound holds the bindings created for a definition.
type Bound struct {
	Definition *Definition
	Controller *form.Controller
	// Fields is in definition order.
	Fields []*form.Binding
	Arrays map[string]*form.FieldArray
}

// Field returns the binding registered at path.
func (b *Bound) Field(path string) *form.Binding {
	for _, binding := range b.Fields {
		if binding.Name() == path {
			return binding
		}
	}
	return nil
}

// Bind registers every field and array of the definition on ctrl, resolving
// named checks in reg.
func (d *Definition) Bind(ctrl *form.Controller, reg *Registry) (*Bound, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	out := &Bound{
		Definition: d,
		Controller: ctrl,
		Arrays:     make(map[string]*form.FieldArray, len(d.Arrays)),
	}
	for _, f := range d.Fields {
		rules, err := f.Rules(reg)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", f.Path, err)
		}
		binding, err := ctrl.Register(f.Path, rules)
		if err != nil {
			return nil, fmt.Errorf("schema: register %s: %w", f.Path, err)
		}
		out.Fields = append(out.Fields, binding)
	}
	for _, arr := range d.Arrays {
		item := make(map[string]validation.Rules, len(arr.Item))
		for _, f := range arr.Item {
			rules, err := f.Rules(reg)
			if err != nil {
				return nil, fmt.Errorf("schema: %s[].%s: %w", arr.Path, f.Path, err)
			}
			item[f.Path] = rules
		}
		fa, err := ctrl.RegisterArray(arr.Path, item)
		if err != nil {
			return nil, fmt.Errorf("schema: register array %s: %w", arr.Path, err)
		}
		out.Arrays[arr.Path] = fa
	}
	return out, nil
}

// NewController builds a controller seeded with the definition's defaults
// and modes, then binds the definition to it. opts are applied after the
// definition's own options.
func (d *Definition) NewController(reg *Registry, opts ...form.Option) (*Bound, error) {
	base, err := d.FormOptions()
	if err != nil {
		return nil, err
	}
	ctrl := form.New(d.Defaults, append(base, opts...)...)
	return d.Bind(ctrl, reg)
}
