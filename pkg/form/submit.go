package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// SubmitFunc receives the submitted values once every field is valid.
type SubmitFunc func(ctx context.Context, values map[string]any) error

// InvalidFunc receives the field errors when validation blocks a submit.
type InvalidFunc func(ctx context.Context, errs validation.Errors) error

// HandleSubmit wraps the submit handlers into a function that validates the
// whole form and dispatches to onValid or onInvalid. Calls made while a
// submit is running return ErrSubmitInProgress and change no state.
//
// The returned function reports nil after a successful submit. When the form
// is invalid it returns the error of onInvalid wrapped in a SubmitError, or
// the validation.Errors themselves when onInvalid is nil. Handler failures,
// including panics in onValid, are wrapped in a SubmitError.
func (c *Controller) HandleSubmit(onValid SubmitFunc, onInvalid InvalidFunc) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.submit(ctx, onValid, onInvalid)
	}
}

// submitRounds bounds how often a submit validates again because values
// changed while it waited for asynchronous checks.
const submitRounds = 3

func (c *Controller) submit(ctx context.Context, onValid SubmitFunc, onInvalid InvalidFunc) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		c.logger.Debug("submit ignored while another is running")
		return ErrSubmitInProgress
	}
	c.submitting = true
	c.submitSuccessful = false
	c.submitCount++
	count := c.submitCount
	resets := c.resets

	// errors on paths without a field do not survive a new submit
	for key, st := range c.meta {
		if _, registered := c.fields[key]; !registered {
			st.err = nil
		}
	}
	c.mu.Unlock()

	success, interrupted := false, false
	defer func() {
		c.mu.Lock()
		c.submitting = false
		// a reset during the submit owns the submit state
		if !interrupted {
			c.submitted = true
			c.submitSuccessful = success
		}
		events := c.events(EventState, "")
		c.mu.Unlock()
		c.emit(events)
	}()

	var (
		values map[string]any
		errs   validation.Errors
	)
	for round := 1; ; round++ {
		c.mu.Lock()
		writes := c.writes
		values = c.submitValues()
		for _, key := range c.keysUnder("") {
			c.validateKey(ctx, key)
		}
		events := c.events(EventState, "")
		c.mu.Unlock()
		c.emit(events)

		if err := c.Settle(ctx); err != nil {
			return fmt.Errorf("form: submit: %w", err)
		}

		c.mu.Lock()
		reset, changed := c.resets != resets, c.writes != writes
		if !reset && !changed {
			errs = c.collectErrors()
		}
		c.mu.Unlock()

		if reset {
			interrupted = true
			c.logger.Info("submit abandoned by reset", zap.Int("submitCount", count))
			return fmt.Errorf("form: submit: %w", ErrSubmitInterrupted)
		}
		if !changed {
			break
		}
		if round == submitRounds {
			c.logger.Warn("submit abandoned, values kept changing", zap.Int("submitCount", count))
			return fmt.Errorf("form: submit: %w", ErrSubmitInterrupted)
		}
		c.logger.Debug("values changed during submit, validating again", zap.Int("round", round))
	}

	if len(errs) > 0 {
		c.logger.Info("submit blocked by validation",
			zap.Int("submitCount", count),
			zap.Strings("invalid", errs.Paths()),
		)
		if onInvalid == nil {
			return errs
		}
		if err := recoverCall(func() error { return onInvalid(ctx, errs) }); err != nil {
			c.logger.Error("invalid submit handler failed", zap.Error(err))
			return &SubmitError{Err: err, Errors: errs}
		}
		return nil
	}

	if onValid != nil {
		if err := recoverCall(func() error { return onValid(ctx, values) }); err != nil {
			c.logger.Error("submit handler failed", zap.Int("submitCount", count), zap.Error(err))
			return &SubmitError{Err: err}
		}
	}
	success = true
	c.logger.Info("form submitted", zap.Int("submitCount", count))
	return nil
}

// submitValues copies the values tree without the disabled fields.
func (c *Controller) submitValues() map[string]any {
	values := cloneValues(c.values)
	for key, st := range c.meta {
		if !st.disabled {
			continue
		}
		if path, ok := c.pathOf(key); ok {
			deletePath(values, path)
		}
	}
	return values
}

func recoverCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
