package validation

import (
	"context"
	"fmt"
	"regexp"
)

// Required enables the required rule. Message overrides the default text.
type Required struct {
	Message string
}

// Pattern requires string values to match Regexp.
type Pattern struct {
	Regexp  *regexp.Regexp
	Message string
}

// NewPattern compiles expr into a Pattern rule.
func NewPattern(expr, message string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validation: compile pattern: %w", err)
	}
	return &Pattern{Regexp: re, Message: message}, nil
}

// MustPattern is NewPattern for expressions known at compile time.
func MustPattern(expr, message string) *Pattern {
	p, err := NewPattern(expr, message)
	if err != nil {
		panic(err)
	}
	return p
}

// Bound is a numeric min or max threshold.
type Bound struct {
	Value   float64
	Message string
}

// Length is a min or max length threshold for strings and lists.
type Length struct {
	Value   int
	Message string
}

// CheckFunc returns a failure message, or "" when value passes.
type CheckFunc func(value any) string

// Check is a named synchronous custom validator.
type Check struct {
	Name string
	Fn   CheckFunc
}

// AsyncCheckFunc returns a failure message, or "" when value passes. A
// non-nil error means the check could not reach a verdict.
type AsyncCheckFunc func(ctx context.Context, value any) (string, error)

// AsyncCheck is a named asynchronous custom validator.
type AsyncCheck struct {
	Name string
	Fn   AsyncCheckFunc
	// UnavailableMessage is shown when Fn returns an error.
	UnavailableMessage string
}

// Rules is the validation and input configuration of one field.
type Rules struct {
	Required  *Required
	Pattern   *Pattern
	Min       *Bound
	Max       *Bound
	MinLength *Length
	MaxLength *Length

	// Validate runs in declaration order; the first failure wins.
	Validate []Check
	// ValidateAsync runs only after every synchronous rule passed.
	ValidateAsync []AsyncCheck

	ValueAsNumber bool
	ValueAsDate   bool

	// DisabledWhen is a predicate expression over the live form values, for
	// example `channel == ""`. Disabled fields skip validation.
	DisabledWhen string
	// Deps lists fields re-validated whenever this field changes.
	Deps []string
}

// HasAsync reports whether the rules include asynchronous checks.
func (r Rules) HasAsync() bool {
	return len(r.ValidateAsync) > 0
}

// IsZero reports whether no rule or flag is configured.
func (r Rules) IsZero() bool {
	return r.Required == nil && r.Pattern == nil && r.Min == nil && r.Max == nil &&
		r.MinLength == nil && r.MaxLength == nil && len(r.Validate) == 0 &&
		len(r.ValidateAsync) == 0 && !r.ValueAsNumber && !r.ValueAsDate &&
		r.DisabledWhen == "" && len(r.Deps) == 0
}
