// Package youtube is the demonstration form: a channel sign-up with nested
// social handles, two fixed phone slots, a growable phone list and an e-mail
// field checked against a remote directory.
package youtube

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/validation"
)

//go:embed youtube.yaml
var definitionYAML []byte

// Messages of the e-mail checks.
const (
	MsgAdmin       = "Enter a different email address"
	MsgBlackListed = "This domain is not supported."
	MsgTaken       = "Email already exists"
	MsgUnverified  = "Could not verify email"
)

// PhonesPath is the path of the growable phone list.
const PhonesPath = "phNumbers"

// ErrKeepEntry is returned when removing a list entry the form always keeps.
var ErrKeepEntry = errors.New("youtube: entry cannot be removed")

// Definition returns a fresh copy of the embedded form definition.
func Definition() (*schema.Definition, error) {
	return schema.ParseDefinition(definitionYAML)
}

// NotAdmin rejects the reserved administrator address.
func NotAdmin(value any) string {
	if s, _ := value.(string); s == "admin@example.com" {
		return MsgAdmin
	}
	return ""
}

// NotBlackListed rejects addresses of the blocked domain.
func NotBlackListed(value any) string {
	if s, _ := value.(string); strings.HasSuffix(s, "baddomain.com") {
		return MsgBlackListed
	}
	return ""
}

// Registry returns the checks the definition refers to. A nil lookup
// disables the availability check.
func Registry(l lookup.EmailLookup) *schema.Registry {
	return schema.NewRegistry().
		RegisterCheck("notAdmin", NotAdmin).
		RegisterCheck("notBlackListed", NotBlackListed).
		RegisterAsync(lookup.EmailAvailable(l, MsgTaken, MsgUnverified))
}

// SubmitHandler receives the typed values of a valid submit.
type SubmitHandler func(ctx context.Context, values Values) error

// InvalidHandler receives the errors of a blocked submit.
type InvalidHandler func(ctx context.Context, errs validation.Errors) error

// Form is the YouTube form bound to its controller.
type Form struct {
	def       *schema.Definition
	bound     *schema.Bound
	ctrl      *form.Controller
	phones    *form.FieldArray
	logger    *zap.Logger
	onSubmit  SubmitHandler
	onInvalid InvalidHandler
	submit    func(context.Context) error
}

type config struct {
	logger    *zap.Logger
	now       func() time.Time
	formOpts  []form.Option
	onSubmit  SubmitHandler
	onInvalid InvalidHandler
}

// Option configures a Form.
type Option func(*config)

// WithLogger sets the logger used by the form and its controller.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock that provides the default date of birth.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFormOptions passes extra options to the controller.
func WithFormOptions(opts ...form.Option) Option {
	return func(c *config) { c.formOpts = append(c.formOpts, opts...) }
}

// WithSubmitHandler sets the handler called after a valid submit.
func WithSubmitHandler(fn SubmitHandler) Option {
	return func(c *config) { c.onSubmit = fn }
}

// WithInvalidHandler sets the handler called when validation blocks a
// submit.
func WithInvalidHandler(fn InvalidHandler) Option {
	return func(c *config) { c.onInvalid = fn }
}

// New builds the form. l answers the e-mail availability check.
func New(l lookup.EmailLookup, opts ...Option) (*Form, error) {
	cfg := config{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	def, err := Definition()
	if err != nil {
		return nil, err
	}
	if def.Defaults == nil {
		def.Defaults = map[string]any{}
	}
	def.Defaults["dob"] = cfg.now()

	formOpts := append([]form.Option{form.WithLogger(cfg.logger), form.WithClock(cfg.now)}, cfg.formOpts...)
	bound, err := def.NewController(Registry(l), formOpts...)
	if err != nil {
		return nil, err
	}

	f := &Form{
		def:       def,
		bound:     bound,
		ctrl:      bound.Controller,
		phones:    bound.Arrays[PhonesPath],
		logger:    cfg.logger,
		onSubmit:  cfg.onSubmit,
		onInvalid: cfg.onInvalid,
	}
	f.submit = f.ctrl.HandleSubmit(f.handleValid, f.handleInvalid)
	return f, nil
}

// Controller exposes the underlying controller.
func (f *Form) Controller() *form.Controller {
	return f.ctrl
}

// Definition returns the definition the form was built from.
func (f *Form) Definition() *schema.Definition {
	return f.def
}

// Bound returns the definition bound to the controller.
func (f *Form) Bound() *schema.Bound {
	return f.bound
}

// Bindings returns the bindings of the fixed fields in display order.
func (f *Form) Bindings() []*form.Binding {
	return f.bound.Fields
}

// Phones returns the growable phone list.
func (f *Form) Phones() *form.FieldArray {
	return f.phones
}

// Values returns the typed current values.
func (f *Form) Values() (Values, error) {
	return DecodeValues(f.ctrl.GetValues())
}

// GetValues reads username and e-mail and logs them.
func (f *Form) GetValues() map[string]any {
	values := f.ctrl.GetValues("username", "email")
	f.logger.Info("get values", zap.Any("values", values))
	return values
}

// SetValues clears the username, marking it dirty and touched and validating
// it.
func (f *Form) SetValues(ctx context.Context) error {
	return f.ctrl.SetValue(ctx, "username", "", form.SetOptions{
		ShouldDirty:    true,
		ShouldTouch:    true,
		ShouldValidate: true,
	})
}

// Reset restores the defaults.
func (f *Form) Reset() {
	f.ctrl.Reset(nil)
}

// Validate validates every field and reports whether the form is valid.
func (f *Form) Validate(ctx context.Context) (bool, error) {
	sections, err := f.ValidateSections(ctx)
	if err != nil {
		return false, err
	}
	for _, ok := range sections {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ValidateSections validates the top-level sections of the form (username,
// social, phNumbers, ...) concurrently and reports the validity of each.
func (f *Form) ValidateSections(ctx context.Context) (map[string]bool, error) {
	return f.ctrl.TriggerEach(ctx, f.sections()...)
}

func (f *Form) sections() [][]string {
	var groups [][]string
	seen := map[string]bool{}
	for _, b := range f.bound.Fields {
		name, _, _ := strings.Cut(b.Name(), ".")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		groups = append(groups, []string{name})
	}
	if f.phones.Len() > 0 {
		groups = append(groups, []string{PhonesPath})
	}
	return groups
}

// Submit runs the submit pipeline. A submit blocked by validation is not an
// error; inspect FormState for the outcome. A Reset while the submit waits
// for the e-mail lookup ends it with form.ErrSubmitInterrupted.
func (f *Form) Submit(ctx context.Context) error {
	return f.submit(ctx)
}

// CanSubmit reports whether the submit action is enabled.
func (f *Form) CanSubmit() bool {
	state := f.ctrl.FormState()
	return state.IsDirty && !state.IsSubmitting
}

// AddPhone appends an empty phone entry and returns its identity.
func (f *Form) AddPhone() (string, error) {
	arr, _ := f.def.Array(PhonesPath)
	return f.phones.Append(arr.NewItem)
}

// RemovePhone removes the phone entry at index. The leading entries the
// definition keeps cannot be removed.
func (f *Form) RemovePhone(index int) error {
	arr, _ := f.def.Array(PhonesPath)
	if index >= 0 && index < arr.Keep {
		return fmt.Errorf("%w: %s.%d", ErrKeepEntry, PhonesPath, index)
	}
	return f.phones.Remove(index)
}

func (f *Form) handleValid(ctx context.Context, snapshot map[string]any) error {
	values, err := DecodeValues(snapshot)
	if err != nil {
		return err
	}
	f.logger.Info("submit", zap.Any("values", snapshot))
	if f.onSubmit != nil {
		return f.onSubmit(ctx, values)
	}
	return nil
}

func (f *Form) handleInvalid(ctx context.Context, errs validation.Errors) error {
	f.logger.Info("error", zap.Any("errors", errs.Messages()))
	if f.onInvalid != nil {
		return f.onInvalid(ctx, errs)
	}
	return nil
}
