package form

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// FieldMeta is the interaction and validation state of one field.
type FieldMeta struct {
	Touched    bool                   `json:"touched"`
	Dirty      bool                   `json:"dirty"`
	Invalid    bool                   `json:"invalid"`
	Validating bool                   `json:"validating"`
	Disabled   bool                   `json:"disabled"`
	Error      *validation.FieldError `json:"error,omitempty"`
}

// FormMeta is the aggregate state of the whole form. Map keys are dotted
// field paths.
type FormMeta struct {
	IsDirty            bool              `json:"isDirty"`
	IsValid            bool              `json:"isValid"`
	IsValidating       bool              `json:"isValidating"`
	IsSubmitting       bool              `json:"isSubmitting"`
	IsSubmitted        bool              `json:"isSubmitted"`
	IsSubmitSuccessful bool              `json:"isSubmitSuccessful"`
	SubmitCount        int               `json:"submitCount"`
	DirtyFields        map[string]bool   `json:"dirtyFields,omitempty"`
	TouchedFields      map[string]bool   `json:"touchedFields,omitempty"`
	Errors             validation.Errors `json:"errors,omitempty"`
}

// fieldState is the mutable per-key record kept by the controller.
type fieldState struct {
	touched  bool
	dirty    bool
	disabled bool
	err      *validation.FieldError
	// coerceErr holds the last failed text conversion until the next
	// successful one; it takes precedence over every rule.
	coerceErr *validation.FieldError
	// raw is the unparsed input text, kept while coerceErr is set.
	raw string

	validating bool
	gen        uint64
	cancel     context.CancelFunc
}

func (s *fieldState) snapshot() FieldMeta {
	if s == nil {
		return FieldMeta{}
	}
	return FieldMeta{
		Touched:    s.touched,
		Dirty:      s.dirty,
		Invalid:    s.err != nil,
		Validating: s.validating,
		Disabled:   s.disabled,
		Error:      s.err,
	}
}

// abort invalidates any in-flight async validation for the field. gen must
// be unique across the controller so results from before a reset are never
// mistaken for current ones.
func (s *fieldState) abort(gen uint64) {
	s.gen = gen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.validating = false
}
