// Package prompt drives a form interactively from the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/render/text"
	"github.com/goliatone/go-formstate/pkg/youtube"
)

// Action is one entry of the session menu.
type Action int

const (
	ActionEdit Action = iota
	ActionAddPhone
	ActionRemovePhone
	ActionGetValues
	ActionSetValues
	ActionReset
	ActionValidate
	ActionSubmit
	ActionShowState
	ActionQuit
)

var actionLabels = []string{
	ActionEdit:        "Edit a field",
	ActionAddPhone:    "Add phone number",
	ActionRemovePhone: "Remove phone number",
	ActionGetValues:   "Get values",
	ActionSetValues:   "Set values",
	ActionReset:       "Reset",
	ActionValidate:    "Validate",
	ActionSubmit:      "Submit",
	ActionShowState:   "Show state",
	ActionQuit:        "Quit",
}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionLabels) {
		return actionLabels[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Theme captures optional message prefixes.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Session loops over the action menu until the user quits.
type Session struct {
	form   *youtube.Form
	driver PromptDriver
	format text.Format
	theme  Theme
	logger *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutputFormat selects how values and state are printed.
func WithOutputFormat(format text.Format) Option {
	return func(s *Session) {
		if format != "" {
			s.format = format
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) { s.theme = theme }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession binds a session to f. The survey driver is used unless another
// driver is supplied.
func NewSession(f *youtube.Form, opts ...Option) *Session {
	s := &Session{
		form:   f,
		format: text.FormatPretty,
		theme:  Theme{ErrorPrefix: "! "},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s
}

// Run shows the menu until Quit is chosen. An aborted prompt ends the
// session with ErrAborted.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:  s.title(),
			Options:  actionLabels,
			PageSize: len(actionLabels),
		})
		if err != nil {
			return err
		}
		action := Action(idx)
		if action == ActionQuit {
			return nil
		}
		if err := s.Do(ctx, action); err != nil {
			if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Warn("action failed", zap.Stringer("action", action), zap.Error(err))
			if err := s.warn(ctx, err.Error()); err != nil {
				return err
			}
		}
	}
}

// Do runs a single action.
func (s *Session) Do(ctx context.Context, action Action) error {
	s.logger.Debug("action", zap.Stringer("action", action))
	switch action {
	case ActionEdit:
		return s.edit(ctx)
	case ActionAddPhone:
		if _, err := s.form.AddPhone(); err != nil {
			return err
		}
		return s.info(ctx, fmt.Sprintf("%d phone numbers", s.form.Phones().Len()))
	case ActionRemovePhone:
		return s.removePhone(ctx)
	case ActionGetValues:
		return s.printValues(ctx, s.form.GetValues())
	case ActionSetValues:
		if err := s.form.SetValues(ctx); err != nil {
			return err
		}
		return s.printErrors(ctx)
	case ActionReset:
		s.form.Reset()
		return s.info(ctx, "form reset")
	case ActionValidate:
		ok, err := s.form.Validate(ctx)
		if err != nil {
			return err
		}
		if ok {
			return s.info(ctx, "form is valid")
		}
		return s.printErrors(ctx)
	case ActionSubmit:
		return s.submit(ctx)
	case ActionShowState:
		payload, err := text.EncodeState(s.format, text.Snapshot(s.form.Controller()))
		if err != nil {
			return err
		}
		return s.info(ctx, strings.TrimRight(string(payload), "\n"))
	case ActionQuit:
		return nil
	default:
		return fmt.Errorf("prompt: unknown action %d", int(action))
	}
}

func (s *Session) title() string {
	st := s.form.Controller().FormState()
	title := s.form.Definition().Title
	return fmt.Sprintf("%s (submitted %d times, dirty=%t, valid=%t)", title, st.SubmitCount, st.IsDirty, st.IsValid)
}

type choice struct {
	label   string
	binding *form.Binding
}

func (s *Session) choices() ([]choice, error) {
	def := s.form.Definition()
	var out []choice
	for _, b := range s.form.Bindings() {
		fd, _ := def.Field(b.Name())
		label := fd.DisplayLabel()
		if b.Disabled() {
			label += " (disabled)"
		}
		out = append(out, choice{label: label, binding: b})
	}
	arr, _ := def.Array(youtube.PhonesPath)
	for _, entry := range s.form.Phones().Fields() {
		for _, item := range arr.Item {
			path := fmt.Sprintf("%s.%d", arr.Path, entry.Index)
			if item.Path != "" {
				path += "." + item.Path
			}
			b, err := s.form.Controller().Binding(path)
			if err != nil {
				return nil, err
			}
			out = append(out, choice{label: fmt.Sprintf("%s #%d", arr.Label, entry.Index+1), binding: b})
		}
	}
	return out, nil
}

func (s *Session) edit(ctx context.Context) error {
	choices, err := s.choices()
	if err != nil {
		return err
	}
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: "Field", Options: labels})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return fmt.Errorf("prompt: no field at %d", idx)
	}
	c := choices[idx]
	if c.binding.Disabled() {
		return s.info(ctx, c.label)
	}

	raw, err := s.driver.Input(ctx, InputConfig{Message: c.label, Default: c.binding.Text()})
	if err != nil {
		return err
	}
	if err := c.binding.OnChange(ctx, raw); err != nil {
		return err
	}
	if err := c.binding.OnBlur(ctx); err != nil {
		return err
	}
	if err := s.form.Controller().Settle(ctx); err != nil {
		return err
	}
	if fe := c.binding.State().Error; fe != nil {
		return s.warn(ctx, fmt.Sprintf("%s: %s", c.binding.Name(), fe.Message))
	}
	return nil
}

func (s *Session) removePhone(ctx context.Context) error {
	arr, _ := s.form.Definition().Array(youtube.PhonesPath)
	entries := s.form.Phones().Fields()
	if len(entries) <= arr.Keep {
		return s.info(ctx, "no phone number can be removed")
	}
	var labels []string
	for _, entry := range entries[arr.Keep:] {
		labels = append(labels, fmt.Sprintf("#%d %s", entry.Index+1, phoneText(entry.Value)))
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: "Remove", Options: labels})
	if err != nil {
		return err
	}
	return s.form.RemovePhone(idx + arr.Keep)
}

func (s *Session) submit(ctx context.Context) error {
	if !s.form.CanSubmit() {
		return s.info(ctx, "nothing to submit: the form has not changed")
	}
	if err := s.form.Submit(ctx); err != nil {
		return err
	}
	if s.form.Controller().FormState().IsSubmitSuccessful {
		return s.info(ctx, "submitted")
	}
	return s.printErrors(ctx)
}

func (s *Session) printValues(ctx context.Context, values map[string]any) error {
	payload, err := text.Encode(s.format, values)
	if err != nil {
		return err
	}
	return s.info(ctx, strings.TrimRight(string(payload), "\n"))
}

func (s *Session) printErrors(ctx context.Context) error {
	errs := s.form.Controller().FormState().Errors
	for _, line := range text.ErrorLines(errs) {
		if err := s.warn(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

func (s *Session) warn(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.ErrorPrefix+msg)
}

func phoneText(v any) string {
	if m, ok := v.(map[string]any); ok {
		if n, _ := m["number"].(string); n != "" {
			return n
		}
	}
	return "(empty)"
}
