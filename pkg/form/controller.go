// Package form implements a form state controller: a tree of field values,
// per-field interaction and validation state, mode-driven validation with
// asynchronous checks, field arrays with stable entry identities and
// mutually exclusive submission.
//
// A Controller is safe for concurrent use. Watch callbacks run after the
// controller lock is released and may call back into the controller.
package form

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/predicate"
	"github.com/goliatone/go-formstate/pkg/validation"
)

type field struct {
	rules        validation.Rules
	disabledWhen *predicate.Predicate
	disabledDeps []string
}

// Controller owns the values, defaults and meta state of one form.
type Controller struct {
	mu sync.Mutex

	mode           Mode
	reValidateMode Mode
	logger         *zap.Logger
	asyncTimeout   time.Duration
	newID          func() string
	now            func() time.Time

	defaults map[string]any
	values   map[string]any

	// fields and meta are keyed by field key: the dotted path with list
	// positions replaced by entry identities (`phNumbers#<id>.number`).
	fields map[string]*field
	meta   map[string]*fieldState
	arrays map[string]*arrayState
	issued map[string]struct{}

	seq uint64

	// writes counts value writes and resets counts Reset calls; a submit
	// compares them to detect changes made while it waited.
	writes uint64
	resets uint64

	submitting       bool
	submitted        bool
	submitSuccessful bool
	submitCount      int

	inflight int
	idle     chan struct{}

	subMu   sync.Mutex
	subs    map[uint64]*Subscription
	nextSub uint64
}

// SetOptions gates the side effects of SetValue.
type SetOptions struct {
	ShouldDirty    bool
	ShouldTouch    bool
	ShouldValidate bool
}

// New creates a controller seeded with a copy of defaults.
func New(defaults map[string]any, opts ...Option) *Controller {
	c := &Controller{
		mode:           OnSubmit,
		reValidateMode: OnChange,
		logger:         zap.NewNop(),
		asyncTimeout:   DefaultAsyncTimeout,
		newID:          defaultIDGenerator,
		now:            time.Now,
		fields:         make(map[string]*field),
		meta:           make(map[string]*fieldState),
		arrays:         make(map[string]*arrayState),
		issued:         make(map[string]struct{}),
		subs:           make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.defaults = cloneValues(defaults)
	c.values = cloneValues(c.defaults)
	return c
}

// Mode returns the validation mode used before the first submit.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Register declares a field at path with its rules and returns the binding a
// front-end drives. Registering an already registered path replaces its
// rules and keeps its state.
func (c *Controller) Register(path string, rules validation.Rules) (*Binding, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, ErrInvalidPath
	}

	c.mu.Lock()
	key, err := c.keyOf(path)
	if err == nil {
		err = c.registerKey(key, rules)
	}
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("form: register %s: %w", path, err)
	}
	c.logger.Debug("field registered", zap.String("field", path), zap.String("key", key))
	return &Binding{c: c, key: key}, nil
}

// Binding returns the binding of a registered field.
func (c *Controller) Binding(path string) (*Binding, error) {
	path = NormalizePath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := c.keyOf(path)
	if err != nil {
		return nil, err
	}
	if _, ok := c.fields[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	return &Binding{c: c, key: key}, nil
}

// Fields returns the dotted paths of every registered field in order.
func (c *Controller) Fields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pathsOf(c.keysUnder(""))
}

func (c *Controller) registerKey(key string, rules validation.Rules) error {
	f := &field{rules: rules}
	if rules.DisabledWhen != "" {
		pred, err := predicate.Compile(rules.DisabledWhen)
		if err != nil {
			return err
		}
		f.disabledWhen = pred
		f.disabledDeps = pred.Deps()
	}
	c.fields[key] = f
	if _, ok := c.meta[key]; !ok {
		c.meta[key] = &fieldState{}
	}
	c.normalizeKey(key)
	c.refreshDisabled(key)
	return nil
}

// normalizeKey converts the stored and default values of a numeric or date
// field into the representation its rules produce.
func (c *Controller) normalizeKey(key string) {
	f, st := c.fields[key], c.meta[key]
	if f == nil || st == nil || !(f.rules.ValueAsNumber || f.rules.ValueAsDate) {
		return
	}
	path, ok := c.pathOf(key)
	if !ok {
		return
	}
	if v, ok := getPath(c.defaults, path); ok {
		if nv, ferr := validation.Normalize(path, v, f.rules); ferr == nil {
			c.storeNormalized(c.defaults, path, nv, "default")
		}
	}
	if v, ok := getPath(c.values, path); ok {
		nv, ferr := validation.Normalize(path, v, f.rules)
		c.storeNormalized(c.values, path, nv, "value")
		st.coerceErr = ferr
		st.raw = ""
		if ferr != nil {
			st.raw = fmt.Sprint(v)
		}
	}
}

func (c *Controller) storeNormalized(root map[string]any, path string, value any, what string) {
	if err := setPath(root, path, value); err != nil {
		c.logger.Warn(what+" not normalised", zap.String("field", path), zap.Error(err))
	}
}

// SetValue writes value at path. The dirty, touched and validation side
// effects happen only when the matching option is set. Setting a field array
// path replaces the whole list and mints fresh entry identities.
func (c *Controller) SetValue(ctx context.Context, path string, value any, opts SetOptions) error {
	path = NormalizePath(path)
	if path == "" {
		return ErrInvalidPath
	}

	c.mu.Lock()
	if arr := c.arrays[path]; arr != nil {
		list, ok := asList(value)
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNotArray, path)
		}
		if err := c.replaceArray(arr, list); err != nil {
			c.mu.Unlock()
			return err
		}
	} else {
		if _, err := c.keyOf(path); err != nil {
			c.mu.Unlock()
			return err
		}
		if err := setPath(c.values, path, deepCopy(value)); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("form: set %s: %w", path, err)
		}
	}
	c.writes++

	keys := c.keysUnder(path)
	for _, key := range keys {
		c.normalizeKey(key)
		st := c.meta[key]
		if st == nil {
			continue
		}
		if opts.ShouldDirty {
			p, _ := c.pathOf(key)
			st.dirty = c.isDirtyAt(p)
		}
		if opts.ShouldTouch {
			st.touched = true
		}
	}
	c.refreshDisabledFor(path)
	if opts.ShouldValidate {
		for _, key := range keys {
			c.validateKey(ctx, key)
		}
	}
	events := c.events(EventSet, path)
	c.mu.Unlock()

	c.emit(events)
	return nil
}

// GetValues returns a snapshot. With no paths it is the whole values tree;
// otherwise it maps each requested path to its value (nil when absent).
func (c *Controller) GetValues(paths ...string) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(paths) == 0 {
		return cloneValues(c.values)
	}
	out := make(map[string]any, len(paths))
	for _, raw := range paths {
		path := NormalizePath(raw)
		v, _ := getPath(c.values, path)
		out[path] = deepCopy(v)
	}
	return out
}

// GetValue returns a copy of the value at path.
func (c *Controller) GetValue(path string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := getPath(c.values, NormalizePath(path))
	return deepCopy(v), ok
}

// Watch returns the current values of paths, like GetValues. Use Subscribe to
// be notified of later changes.
func (c *Controller) Watch(paths ...string) map[string]any {
	return c.GetValues(paths...)
}

// Defaults returns a copy of the current default values.
func (c *Controller) Defaults() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneValues(c.defaults)
}

// Reset restores the default values, or replaces the defaults when
// newDefaults is non-nil. Interaction state, errors and submit state are
// cleared, in-flight validations are cancelled and list entries receive new
// identities.
func (c *Controller) Reset(newDefaults map[string]any) {
	c.mu.Lock()
	for _, st := range c.meta {
		st.abort(c.nextGen())
	}
	if newDefaults != nil {
		c.defaults = cloneValues(newDefaults)
	}
	c.values = cloneValues(c.defaults)

	for key := range c.fields {
		if strings.Contains(key, "#") {
			delete(c.fields, key)
		}
	}
	c.meta = make(map[string]*fieldState, len(c.fields))
	for key := range c.fields {
		c.meta[key] = &fieldState{}
	}
	for _, arr := range c.arrays {
		list, _ := getPath(c.values, arr.path)
		items, _ := asList(list)
		arr.ids = arr.ids[:0]
		for range items {
			id := c.mintID()
			arr.ids = append(arr.ids, id)
		}
		for _, id := range arr.ids {
			c.registerItem(arr, id)
		}
	}
	for key := range c.fields {
		c.normalizeKey(key)
	}
	c.refreshDisabledFor("")

	c.writes++
	c.resets++
	c.submitCount = 0
	c.submitted = false
	c.submitSuccessful = false
	events := c.events(EventReset, "")
	c.mu.Unlock()

	c.logger.Debug("form reset", zap.Bool("newDefaults", newDefaults != nil))
	c.emit(events)
}

// SetError attaches a caller-supplied error to path. JSON pointer and
// bracket notations are accepted. The error is replaced by the next
// validation of that field.
func (c *Controller) SetError(path, message string) error {
	path = NormalizePath(path)
	if path == "" {
		return ErrInvalidPath
	}
	c.mu.Lock()
	key, err := c.keyOf(path)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	st := c.meta[key]
	if st == nil {
		st = &fieldState{}
		c.meta[key] = st
	}
	st.err = &validation.FieldError{
		Path:    path,
		Code:    validation.CodeManual,
		Message: message,
		Kind:    validation.KindManual,
	}
	events := c.events(EventState, path)
	c.mu.Unlock()

	c.emit(events)
	return nil
}

// ClearErrors removes the errors at paths (and nested paths), or every error
// when called without paths.
func (c *Controller) ClearErrors(paths ...string) {
	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := NormalizePath(p); n != "" {
			normalized = append(normalized, n)
		}
	}

	c.mu.Lock()
	for key, st := range c.meta {
		path, ok := c.pathOf(key)
		if !ok {
			continue
		}
		if len(paths) == 0 || slices.ContainsFunc(normalized, func(p string) bool {
			return path == p || strings.HasPrefix(path, p+".")
		}) {
			st.err = nil
		}
	}
	events := c.events(EventState, "")
	c.mu.Unlock()

	c.emit(events)
}

// FormState returns a snapshot of the aggregate form state.
func (c *Controller) FormState() FormMeta {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := FormMeta{
		IsDirty:            !equalValues(c.values, c.defaults),
		IsSubmitting:       c.submitting,
		IsSubmitted:        c.submitted,
		IsSubmitSuccessful: c.submitSuccessful,
		SubmitCount:        c.submitCount,
		DirtyFields:        map[string]bool{},
		TouchedFields:      map[string]bool{},
	}
	errs := c.collectErrors()
	for key, st := range c.meta {
		path, ok := c.pathOf(key)
		if !ok {
			continue
		}
		if st.dirty {
			state.DirtyFields[path] = true
		}
		if st.touched {
			state.TouchedFields[path] = true
		}
		if st.validating {
			state.IsValidating = true
		}
	}
	state.IsValid = len(errs) == 0
	if len(errs) > 0 {
		state.Errors = errs
	}
	return state
}

// FieldState returns the state of the field at path. Unknown paths report
// the zero FieldMeta.
func (c *Controller) FieldState(path string) FieldMeta {
	path = NormalizePath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := c.keyOf(path)
	if err != nil {
		return FieldMeta{}
	}
	return c.fieldMeta(key, path)
}

func (c *Controller) fieldMeta(key, path string) FieldMeta {
	meta := c.meta[key].snapshot()
	if meta.Error != nil {
		e := *meta.Error
		e.Path = path
		meta.Error = &e
	}
	return meta
}

// collectErrors maps the current positional path of every errored key to a
// copy of its error.
func (c *Controller) collectErrors() validation.Errors {
	errs := validation.Errors{}
	for key, st := range c.meta {
		if st.err == nil {
			continue
		}
		path, ok := c.pathOf(key)
		if !ok {
			continue
		}
		e := *st.err
		e.Path = path
		errs[path] = &e
	}
	return errs
}

func (c *Controller) isDirtyAt(path string) bool {
	cur, _ := getPath(c.values, path)
	def, _ := getPath(c.defaults, path)
	return !equalValues(cur, def)
}

func (c *Controller) nextGen() uint64 {
	c.seq++
	return c.seq
}

// keyOf converts a positional path into a field key.
func (c *Controller) keyOf(path string) (string, error) {
	if strings.Contains(path, "#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	var best *arrayState
	for _, arr := range c.arrays {
		if strings.HasPrefix(path, arr.path+".") && (best == nil || len(arr.path) > len(best.path)) {
			best = arr
		}
	}
	if best == nil {
		return path, nil
	}
	segment, tail, hasTail := strings.Cut(path[len(best.path)+1:], ".")
	idx, err := strconv.Atoi(segment)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a list position", ErrInvalidPath, path)
	}
	if idx < 0 || idx >= len(best.ids) {
		return "", fmt.Errorf("%w: %s", ErrIndexOutOfRange, path)
	}
	key := best.path + "#" + best.ids[idx]
	if hasTail {
		key += "." + tail
	}
	return key, nil
}

// pathOf converts a field key back into its current positional path. It
// reports false when the entry the key belongs to has been removed.
func (c *Controller) pathOf(key string) (string, bool) {
	arrPath, rest, ok := strings.Cut(key, "#")
	if !ok {
		return key, true
	}
	arr := c.arrays[arrPath]
	if arr == nil {
		return "", false
	}
	id, tail, hasTail := strings.Cut(rest, ".")
	idx := slices.Index(arr.ids, id)
	if idx < 0 {
		return "", false
	}
	path := arrPath + "." + strconv.Itoa(idx)
	if hasTail {
		path += "." + tail
	}
	return path, true
}

// keysUnder returns the registered keys whose path equals path or is nested
// in it, ordered by path. An empty path selects every field.
func (c *Controller) keysUnder(path string) []string {
	type entry struct{ key, path string }
	var matched []entry
	for key := range c.fields {
		p, ok := c.pathOf(key)
		if !ok {
			continue
		}
		if path == "" || p == path || strings.HasPrefix(p, path+".") {
			matched = append(matched, entry{key, p})
		}
	}
	slices.SortFunc(matched, func(a, b entry) int { return strings.Compare(a.path, b.path) })
	keys := make([]string, len(matched))
	for i, m := range matched {
		keys[i] = m.key
	}
	return keys
}

func (c *Controller) pathsOf(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if p, ok := c.pathOf(key); ok {
			out = append(out, p)
		}
	}
	return out
}

func (c *Controller) refreshDisabled(key string) bool {
	f, st := c.fields[key], c.meta[key]
	if f == nil || st == nil || f.disabledWhen == nil {
		return false
	}
	disabled, err := f.disabledWhen.Eval(c.values)
	if err != nil {
		c.logger.Warn("disabled rule failed", zap.String("key", key), zap.Error(err))
		disabled = false
	}
	if disabled == st.disabled {
		return false
	}
	st.disabled = disabled
	if disabled {
		st.abort(c.nextGen())
		st.err = nil
	}
	return true
}

// refreshDisabledFor re-evaluates the disabled rules that read changed. An
// empty path re-evaluates every rule.
func (c *Controller) refreshDisabledFor(changed string) {
	for key, f := range c.fields {
		if f.disabledWhen == nil {
			continue
		}
		if changed == "" || slices.ContainsFunc(f.disabledDeps, func(dep string) bool { return overlaps(dep, changed) }) {
			c.refreshDisabled(key)
		}
	}
}
