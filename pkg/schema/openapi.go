package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Vendor extensions read from OpenAPI schemas.
const (
	ExtLabel           = "x-form-label"
	ExtRequiredMessage = "x-form-required-message"
	ExtPatternMessage  = "x-form-pattern-message"
	ExtValidate        = "x-form-validate"
	ExtValidateAsync   = "x-form-validate-async"
	ExtDisabledWhen    = "x-form-disabled-when"
	ExtDeps            = "x-form-deps"
	ExtOrder           = "x-form-order"
	ExtMode            = "x-form-mode"
	ExtReValidateMode  = "x-form-revalidate-mode"
	// ExtIndexed turns an array into maxItems individually registered
	// fields instead of a field array.
	ExtIndexed = "x-form-indexed"
	// ExtKeep is the number of leading array entries that cannot be removed.
	ExtKeep = "x-form-keep"
)

// ErrComponentNotFound reports a missing component schema.
var ErrComponentNotFound = errors.New("schema: component not found")

// FromOpenAPI builds a Definition from the component schema named component
// of an OpenAPI 3 document. When component is empty and the document holds a
// single schema, that schema is used.
func FromOpenAPI(ctx context.Context, data []byte, component string) (*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("schema: load openapi document: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, fmt.Errorf("%w: document has no component schemas", ErrComponentNotFound)
	}

	schemas := doc.Components.Schemas
	if component == "" {
		if len(schemas) != 1 {
			return nil, fmt.Errorf("%w: component name required, have %s", ErrComponentNotFound, strings.Join(sortedKeys(schemas), ", "))
		}
		for name := range schemas {
			component = name
		}
	}
	ref := schemas[component]
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, component)
	}

	root := ref.Value
	def := &Definition{
		Name:           component,
		Title:          root.Title,
		Mode:           extString(root.Extensions, ExtMode),
		ReValidateMode: extString(root.Extensions, ExtReValidateMode),
		Defaults:       map[string]any{},
	}
	b := &openAPIBuilder{def: def}
	if err := b.object("", root, def.Defaults); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

type openAPIBuilder struct {
	def *Definition
}

// object walks the properties of an object schema. defaults receives the
// default values found at this level.
func (b *openAPIBuilder) object(prefix string, schema *openapi3.Schema, defaults map[string]any) error {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for _, name := range orderedProperties(schema.Properties) {
		prop := schema.Properties[name].Value
		if prop == nil {
			continue
		}
		path := joinPath(prefix, name)

		switch schemaType(prop) {
		case openapi3.TypeObject:
			nested := map[string]any{}
			if err := b.object(path, prop, nested); err != nil {
				return err
			}
			defaults[name] = nested
		case openapi3.TypeArray:
			if err := b.array(path, name, prop, required[name], defaults); err != nil {
				return err
			}
		default:
			field, err := fieldFromSchema(path, prop, required[name])
			if err != nil {
				return err
			}
			b.def.Fields = append(b.def.Fields, field)
			defaults[name] = scalarDefault(prop)
		}
	}
	return nil
}

func (b *openAPIBuilder) array(path, name string, schema *openapi3.Schema, required bool, defaults map[string]any) error {
	var items *openapi3.Schema
	if schema.Items != nil {
		items = schema.Items.Value
	}
	if items == nil {
		return fmt.Errorf("schema: %s: array without items", path)
	}

	if extBool(schema.Extensions, ExtIndexed) {
		if schema.MaxItems == nil || *schema.MaxItems == 0 {
			return fmt.Errorf("schema: %s: %s requires maxItems", path, ExtIndexed)
		}
		list := make([]any, 0, *schema.MaxItems)
		for i := 0; i < int(*schema.MaxItems); i++ {
			field, err := fieldFromSchema(fmt.Sprintf("%s.%d", path, i), items, false)
			if err != nil {
				return err
			}
			b.def.Fields = append(b.def.Fields, field)
			list = append(list, scalarDefault(items))
		}
		if d, ok := schema.Default.([]any); ok {
			list = d
		}
		defaults[name] = list
		return nil
	}

	arr := ArrayDef{
		Path:  path,
		Label: extString(schema.Extensions, ExtLabel),
		Keep:  extInt(schema.Extensions, ExtKeep),
	}
	if schemaType(items) == openapi3.TypeObject {
		reqItem := map[string]bool{}
		for _, n := range items.Required {
			reqItem[n] = true
		}
		newItem := map[string]any{}
		for _, sub := range orderedProperties(items.Properties) {
			prop := items.Properties[sub].Value
			if prop == nil {
				continue
			}
			field, err := fieldFromSchema(sub, prop, reqItem[sub])
			if err != nil {
				return err
			}
			arr.Item = append(arr.Item, field)
			newItem[sub] = scalarDefault(prop)
		}
		arr.NewItem = newItem
	} else {
		field, err := fieldFromSchema("", items, required)
		if err != nil {
			return err
		}
		arr.Item = []FieldDef{field}
		arr.NewItem = scalarDefault(items)
	}
	if d, ok := schema.Default.([]any); ok {
		defaults[name] = d
	} else {
		defaults[name] = []any{}
	}
	b.def.Arrays = append(b.def.Arrays, arr)
	return nil
}

func fieldFromSchema(path string, s *openapi3.Schema, required bool) (FieldDef, error) {
	field := FieldDef{
		Path:          path,
		Label:         extString(s.Extensions, ExtLabel),
		Validate:      extStrings(s.Extensions, ExtValidate),
		ValidateAsync: extStrings(s.Extensions, ExtValidateAsync),
		DisabledWhen:  extString(s.Extensions, ExtDisabledWhen),
		Deps:          extStrings(s.Extensions, ExtDeps),
	}
	if field.Label == "" {
		field.Label = s.Title
	}

	switch schemaType(s) {
	case openapi3.TypeNumber, openapi3.TypeInteger:
		field.Type = TypeNumber
		field.ValueAsNumber = true
	case openapi3.TypeString:
		switch s.Format {
		case "date", "date-time":
			field.Type = TypeDate
			field.ValueAsDate = true
		case "email":
			field.Type = TypeEmail
		default:
			field.Type = TypeText
		}
	case "":
		field.Type = TypeText
	default:
		return FieldDef{}, fmt.Errorf("schema: %s: unsupported type %q", path, schemaType(s))
	}

	if required {
		field.Required = &MessageDef{Message: extString(s.Extensions, ExtRequiredMessage)}
	}
	if s.Pattern != "" {
		field.Pattern = &PatternDef{Value: s.Pattern, Message: extString(s.Extensions, ExtPatternMessage)}
	}
	if s.Min != nil {
		field.Min = &BoundDef{Value: *s.Min}
	}
	if s.Max != nil {
		field.Max = &BoundDef{Value: *s.Max}
	}
	if s.MinLength > 0 {
		field.MinLength = &LengthDef{Value: int(s.MinLength)}
	}
	if s.MaxLength != nil {
		field.MaxLength = &LengthDef{Value: int(*s.MaxLength)}
	}
	return field, nil
}

func scalarDefault(s *openapi3.Schema) any {
	if s.Default != nil {
		return s.Default
	}
	switch schemaType(s) {
	case openapi3.TypeNumber, openapi3.TypeInteger:
		return 0.0
	case openapi3.TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}

func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	for _, t := range s.Type.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

// orderedProperties sorts property names by x-form-order, then by name.
func orderedProperties(props openapi3.Schemas) []string {
	names := sortedKeys(props)
	order := func(name string) int {
		ref := props[name]
		if ref == nil || ref.Value == nil {
			return 0
		}
		if _, ok := ref.Value.Extensions[ExtOrder]; !ok {
			return int(^uint(0) >> 1)
		}
		return extInt(ref.Value.Extensions, ExtOrder)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return order(names[i]) < order(names[j])
	})
	return names
}

func sortedKeys(m openapi3.Schemas) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func extString(ext map[string]any, key string) string {
	s, _ := ext[key].(string)
	return strings.TrimSpace(s)
}

func extBool(ext map[string]any, key string) bool {
	b, _ := ext[key].(bool)
	return b
}

func extInt(ext map[string]any, key string) int {
	switch v := ext[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// extStrings accepts a single string or a list of strings.
func extStrings(ext map[string]any, key string) []string {
	switch v := ext[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	case []string:
		return append([]string(nil), v...)
	}
	return nil
}
