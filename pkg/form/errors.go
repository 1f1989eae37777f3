package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/validation"
)

var (
	// ErrSubmitInProgress is returned when a submit is attempted while another
	// one is still running.
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	// ErrSubmitInterrupted is returned when the form is reset, or keeps
	// changing, while a submit waits for its validations.
	ErrSubmitInterrupted = errors.New("form: submit interrupted")
	// ErrUnknownField reports a path that is not registered or no longer exists.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrNotArray reports a path that is not a list value.
	ErrNotArray = errors.New("form: not a field array")
	// ErrIndexOutOfRange reports a list position outside the current entries.
	ErrIndexOutOfRange = errors.New("form: index out of range")
	// ErrDisabled is returned when input targets a disabled field.
	ErrDisabled = errors.New("form: field is disabled")
	// ErrInvalidPath reports an empty or malformed path.
	ErrInvalidPath = errors.New("form: invalid path")
)

// SubmitError wraps a failure returned (or panicked) by a submit handler.
type SubmitError struct {
	Err error
	// Errors holds the field errors present when the handler ran, if any.
	Errors validation.Errors
}

func (e *SubmitError) Error() string {
	if e == nil || e.Err == nil {
		return "form: submit failed"
	}
	return fmt.Sprintf("form: submit handler: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NormalizePath converts JSON pointer (`/social/twitter`, `#/phNumbers/0`)
// and bracket (`phNumbers[0].number`) notations into the dotted form used as
// field names.
func NormalizePath(raw string) string {
	clean := strings.TrimSpace(raw)
	for _, prefix := range []string{"#/", "$/", "$."} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.TrimLeft(clean, "#/.$")

	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return strings.Join(out, ".")
}
