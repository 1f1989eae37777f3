// Package schema describes forms declaratively and binds the descriptions to
// a form.Controller. Definitions are loaded from YAML or derived from an
// OpenAPI component schema.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/predicate"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// ErrInvalidDefinition wraps every structural problem found by Validate.
var ErrInvalidDefinition = errors.New("schema: invalid definition")

// Input types understood by the front-ends.
const (
	TypeText   = "text"
	TypeEmail  = "email"
	TypeNumber = "number"
	TypeDate   = "date"
)

// Definition describes a whole form.
type Definition struct {
	Name           string         `yaml:"name" json:"name"`
	Title          string         `yaml:"title,omitempty" json:"title,omitempty"`
	Mode           string         `yaml:"mode,omitempty" json:"mode,omitempty"`
	ReValidateMode string         `yaml:"reValidateMode,omitempty" json:"reValidateMode,omitempty"`
	Defaults       map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Fields         []FieldDef     `yaml:"fields" json:"fields"`
	Arrays         []ArrayDef     `yaml:"arrays,omitempty" json:"arrays,omitempty"`
}

// FieldDef describes one registered field.
type FieldDef struct {
	Path  string `yaml:"path" json:"path"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`

	Required  *MessageDef `yaml:"required,omitempty" json:"required,omitempty"`
	Pattern   *PatternDef `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Min       *BoundDef   `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *BoundDef   `yaml:"max,omitempty" json:"max,omitempty"`
	MinLength *LengthDef  `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength *LengthDef  `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`

	// Validate and ValidateAsync name checks held by a Registry.
	Validate      []string `yaml:"validate,omitempty" json:"validate,omitempty"`
	ValidateAsync []string `yaml:"validateAsync,omitempty" json:"validateAsync,omitempty"`

	ValueAsNumber bool     `yaml:"valueAsNumber,omitempty" json:"valueAsNumber,omitempty"`
	ValueAsDate   bool     `yaml:"valueAsDate,omitempty" json:"valueAsDate,omitempty"`
	DisabledWhen  string   `yaml:"disabledWhen,omitempty" json:"disabledWhen,omitempty"`
	Deps          []string `yaml:"deps,omitempty" json:"deps,omitempty"`
}

// ArrayDef describes a field array. Item paths are relative to an entry.
type ArrayDef struct {
	Path  string     `yaml:"path" json:"path"`
	Label string     `yaml:"label,omitempty" json:"label,omitempty"`
	Item  []FieldDef `yaml:"item,omitempty" json:"item,omitempty"`
	// NewItem is the value appended by "add" actions.
	NewItem any `yaml:"newItem,omitempty" json:"newItem,omitempty"`
	// Keep is the number of leading entries the UI never offers to remove.
	Keep int `yaml:"keep,omitempty" json:"keep,omitempty"`
}

// MessageDef enables a rule with an optional message.
type MessageDef struct {
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// PatternDef is a regular expression rule.
type PatternDef struct {
	Value   string `yaml:"value" json:"value"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// BoundDef is a numeric bound rule.
type BoundDef struct {
	Value   float64 `yaml:"value" json:"value"`
	Message string  `yaml:"message,omitempty" json:"message,omitempty"`
}

// LengthDef is a length bound rule.
type LengthDef struct {
	Value   int    `yaml:"value" json:"value"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// InputType returns the field type, inferring it from the valueAs flags.
func (f FieldDef) InputType() string {
	switch {
	case f.Type != "":
		return f.Type
	case f.ValueAsNumber:
		return TypeNumber
	case f.ValueAsDate:
		return TypeDate
	default:
		return TypeText
	}
}

// DisplayLabel returns Label or, when empty, the last path segment.
func (f FieldDef) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	if i := strings.LastIndex(f.Path, "."); i >= 0 {
		return f.Path[i+1:]
	}
	return f.Path
}

// Field returns the definition of the field at path. Paths inside a field
// array (`phNumbers.2.number`) resolve to the array's item definition.
func (d *Definition) Field(path string) (FieldDef, bool) {
	if d == nil {
		return FieldDef{}, false
	}
	for _, f := range d.Fields {
		if f.Path == path {
			return f, true
		}
	}
	for _, arr := range d.Arrays {
		rest, ok := strings.CutPrefix(path, arr.Path+".")
		if !ok {
			continue
		}
		_, sub, _ := strings.Cut(rest, ".")
		for _, item := range arr.Item {
			if item.Path == sub {
				item.Path = path
				return item, true
			}
		}
	}
	return FieldDef{}, false
}

// Array returns the array definition at path.
func (d *Definition) Array(path string) (ArrayDef, bool) {
	if d == nil {
		return ArrayDef{}, false
	}
	for _, arr := range d.Arrays {
		if arr.Path == path {
			return arr, true
		}
	}
	return ArrayDef{}, false
}

// FormOptions converts the definition's modes into controller options.
func (d *Definition) FormOptions() ([]form.Option, error) {
	var opts []form.Option
	if d.Mode != "" {
		mode, err := form.ParseMode(d.Mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, form.WithMode(mode))
	}
	if d.ReValidateMode != "" {
		mode, err := form.ParseMode(d.ReValidateMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, form.WithReValidateMode(mode))
	}
	return opts, nil
}

// Validate checks the definition for structural mistakes. It does not
// resolve check names; Rules does that against a Registry.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	var problems []string
	seen := map[string]struct{}{}

	checkField := func(prefix string, f FieldDef, allowEmpty bool) {
		path := f.Path
		if prefix != "" {
			path = prefix + "[]." + f.Path
		}
		if f.Path == "" && !allowEmpty {
			problems = append(problems, "field with empty path")
			return
		}
		if _, dup := seen[path]; dup {
			problems = append(problems, fmt.Sprintf("duplicate field %q", path))
		}
		seen[path] = struct{}{}
		if f.Pattern != nil {
			if _, err := regexp.Compile(f.Pattern.Value); err != nil {
				problems = append(problems, fmt.Sprintf("%s: pattern: %v", path, err))
			}
		}
		if f.DisabledWhen != "" {
			if _, err := predicate.Compile(f.DisabledWhen); err != nil {
				problems = append(problems, fmt.Sprintf("%s: disabledWhen: %v", path, err))
			}
		}
		if f.ValueAsNumber && f.ValueAsDate {
			problems = append(problems, fmt.Sprintf("%s: valueAsNumber and valueAsDate are exclusive", path))
		}
	}

	for _, f := range d.Fields {
		checkField("", f, false)
	}
	for _, arr := range d.Arrays {
		if arr.Path == "" {
			problems = append(problems, "array with empty path")
			continue
		}
		for _, f := range arr.Item {
			checkField(arr.Path, f, true)
		}
	}
	for _, mode := range []string{d.Mode, d.ReValidateMode} {
		if mode == "" {
			continue
		}
		if _, err := form.ParseMode(mode); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(problems, "; "))
	}
	return nil
}

// Rules converts a field definition into validation rules, resolving named
// checks in reg.
func (f FieldDef) Rules(reg *Registry) (validation.Rules, error) {
	rules := validation.Rules{
		ValueAsNumber: f.ValueAsNumber || f.Type == TypeNumber,
		ValueAsDate:   f.ValueAsDate || f.Type == TypeDate,
		DisabledWhen:  f.DisabledWhen,
		Deps:          append([]string(nil), f.Deps...),
	}
	if f.Required != nil {
		rules.Required = &validation.Required{Message: f.Required.Message}
	}
	if f.Pattern != nil {
		p, err := validation.NewPattern(f.Pattern.Value, f.Pattern.Message)
		if err != nil {
			return validation.Rules{}, err
		}
		rules.Pattern = p
	}
	if f.Min != nil {
		rules.Min = &validation.Bound{Value: f.Min.Value, Message: f.Min.Message}
	}
	if f.Max != nil {
		rules.Max = &validation.Bound{Value: f.Max.Value, Message: f.Max.Message}
	}
	if f.MinLength != nil {
		rules.MinLength = &validation.Length{Value: f.MinLength.Value, Message: f.MinLength.Message}
	}
	if f.MaxLength != nil {
		rules.MaxLength = &validation.Length{Value: f.MaxLength.Value, Message: f.MaxLength.Message}
	}
	for _, name := range f.Validate {
		check, ok := reg.Check(name)
		if !ok {
			return validation.Rules{}, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
		}
		rules.Validate = append(rules.Validate, check)
	}
	for _, name := range f.ValidateAsync {
		check, ok := reg.Async(name)
		if !ok {
			return validation.Rules{}, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
		}
		rules.ValidateAsync = append(rules.ValidateAsync, check)
	}
	return rules, nil
}
