package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// Binding connects one registered field to an input. A binding created for a
// list entry follows that entry when the list is reordered.
type Binding struct {
	c   *Controller
	key string
}

// Key returns the field key, stable for the life of the field.
func (b *Binding) Key() string {
	return b.key
}

// Name returns the current dotted path of the field, or "" once the list
// entry it belongs to has been removed.
func (b *Binding) Name() string {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	path, _ := b.c.pathOf(b.key)
	return path
}

// Rules returns the rules the field was registered with.
func (b *Binding) Rules() validation.Rules {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	if f := b.c.fields[b.key]; f != nil {
		return f.rules
	}
	return validation.Rules{}
}

// Value returns the stored value.
func (b *Binding) Value() any {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	path, ok := b.c.pathOf(b.key)
	if !ok {
		return nil
	}
	v, _ := getPath(b.c.values, path)
	return deepCopy(v)
}

// Text returns the value as input text. While the last input failed to
// convert, that input is returned unchanged.
func (b *Binding) Text() string {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	if st := b.c.meta[b.key]; st != nil && st.coerceErr != nil {
		return st.raw
	}
	path, ok := b.c.pathOf(b.key)
	if !ok {
		return ""
	}
	v, _ := getPath(b.c.values, path)
	return validation.FormatValue(v)
}

// State returns the field's meta state.
func (b *Binding) State() FieldMeta {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	path, _ := b.c.pathOf(b.key)
	return b.c.fieldMeta(b.key, path)
}

// Disabled reports whether the field's disabled rule currently holds.
func (b *Binding) Disabled() bool {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	st := b.c.meta[b.key]
	return st != nil && st.disabled
}

// OnChange records user input. raw is converted according to the field's
// valueAs rules; a failed conversion is kept as the field's pending error.
func (b *Binding) OnChange(ctx context.Context, raw string) error {
	return b.c.change(ctx, b.key, raw)
}

// OnBlur marks the field touched and validates it when the mode asks for it.
func (b *Binding) OnBlur(ctx context.Context) error {
	return b.c.blur(ctx, b.key)
}

// Unregister removes the field and its state. Its value stays in the form.
func (b *Binding) Unregister() {
	c := b.c
	c.mu.Lock()
	if st := c.meta[b.key]; st != nil {
		st.abort(c.nextGen())
	}
	delete(c.fields, b.key)
	delete(c.meta, b.key)
	c.mu.Unlock()
	c.logger.Debug("field unregistered", zap.String("key", b.key))
}

func (c *Controller) lookup(key string) (*field, *fieldState, string, error) {
	f, st := c.fields[key], c.meta[key]
	if f == nil || st == nil {
		return nil, nil, "", fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	path, ok := c.pathOf(key)
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return f, st, path, nil
}

func (c *Controller) change(ctx context.Context, key, raw string) error {
	c.mu.Lock()
	f, st, path, err := c.lookup(key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if st.disabled {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDisabled, path)
	}

	value, cerr := validation.Coerce(path, raw, f.rules)
	if err := setPath(c.values, path, value); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("form: change %s: %w", path, err)
	}
	c.writes++
	st.coerceErr = cerr
	st.raw = ""
	if cerr != nil {
		st.raw = raw
	}
	st.dirty = c.isDirtyAt(path)
	c.refreshDisabledFor(path)

	if validatesOn(c.mode, c.reValidateMode, c.submitted, st.touched, triggerChange) {
		c.validateKey(ctx, key)
		c.validateDeps(ctx, f.rules)
	}
	events := c.events(EventChange, path)
	c.mu.Unlock()

	c.emit(events)
	return nil
}

func (c *Controller) blur(ctx context.Context, key string) error {
	c.mu.Lock()
	f, st, path, err := c.lookup(key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	st.touched = true
	if validatesOn(c.mode, c.reValidateMode, c.submitted, true, triggerBlur) {
		c.validateKey(ctx, key)
		c.validateDeps(ctx, f.rules)
	}
	events := c.events(EventState, path)
	c.mu.Unlock()

	c.emit(events)
	return nil
}
