package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error codes recorded on FieldError.Code.
const (
	CodeRequired              = "required"
	CodePattern               = "pattern"
	CodeMin                   = "min"
	CodeMax                   = "max"
	CodeMinLength             = "minLength"
	CodeMaxLength             = "maxLength"
	CodeInvalidNumber         = "invalid_number"
	CodeInvalidDate           = "invalid_date"
	CodeValidate              = "validate"
	CodeDependencyUnavailable = "dependency_unavailable"
	CodeManual                = "manual"
)

// Kind separates expected rule failures from coercion problems and from
// failures of the collaborators an async check depends on.
type Kind int

const (
	KindValidation Kind = iota
	KindCoercion
	KindCollaborator
	KindManual
)

func (k Kind) String() string {
	switch k {
	case KindCoercion:
		return "coercion"
	case KindCollaborator:
		return "collaborator"
	case KindManual:
		return "manual"
	default:
		return "validation"
	}
}

// FieldError is the error stored in a field's meta state.
type FieldError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
	// Rule names the custom check that failed, if any.
	Rule  string `json:"rule,omitempty"`
	Cause error  `json:"-"`
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("%s at %s", e.Code, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Errors maps dotted field paths to their current error.
type Errors map[string]*FieldError

// Error summarises the first few errors in path order.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 3
	paths := errs.Paths()
	b := &strings.Builder{}
	for i, path := range paths {
		if i == maxShown {
			fmt.Fprintf(b, "; ... (total %d)", len(paths))
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(errs[path].Error())
	}
	return b.String()
}

// Paths returns the error paths sorted for deterministic output.
func (errs Errors) Paths() []string {
	paths := make([]string, 0, len(errs))
	for path := range errs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Messages flattens the errors into path -> message.
func (errs Errors) Messages() map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for path, err := range errs {
		if err == nil {
			continue
		}
		out[path] = err.Message
	}
	return out
}

// AsErrors extracts Errors from err using errors.As.
func AsErrors(err error) (Errors, bool) {
	if err == nil {
		return nil, false
	}
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
