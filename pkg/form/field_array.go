package form

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// arrayState keeps the identity tokens of a list in entry order. ids[i] is
// the identity of the entry at position i of the list value.
type arrayState struct {
	path string
	ids  []string
	// item holds the rules registered for every entry, keyed by the path
	// inside the entry ("" for scalar entries).
	item map[string]validation.Rules
}

// ArrayField is one entry of a field array.
type ArrayField struct {
	ID    string
	Index int
	Value any
}

// FieldArray manipulates a list value whose entries carry stable identities.
type FieldArray struct {
	c    *Controller
	path string
}

// FieldArray returns the field array at path, declaring it when needed. The
// value at path must be a list or absent.
func (c *Controller) FieldArray(path string) (*FieldArray, error) {
	return c.RegisterArray(path, nil)
}

// RegisterArray declares the field array at path and registers item rules
// for every current and future entry. item is keyed by the path inside an
// entry, for example "number"; use "" for scalar entries.
func (c *Controller) RegisterArray(path string, item map[string]validation.Rules) (*FieldArray, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, ErrInvalidPath
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	arr := c.arrays[path]
	if arr == nil {
		if _, err := c.keyOf(path); err != nil {
			return nil, err
		}
		current, exists := getPath(c.values, path)
		list, ok := asList(current)
		if exists && current != nil && !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotArray, path)
		}
		if list == nil {
			list = []any{}
		}
		if err := setPath(c.values, path, list); err != nil {
			return nil, err
		}
		arr = &arrayState{path: path, item: map[string]validation.Rules{}}
		for range list {
			arr.ids = append(arr.ids, c.mintID())
		}
		c.arrays[path] = arr
	}

	maps.Copy(arr.item, item)
	for _, id := range arr.ids {
		c.registerItem(arr, id)
	}
	return &FieldArray{c: c, path: path}, nil
}

// Path returns the dotted path of the list.
func (a *FieldArray) Path() string {
	return a.path
}

// Len returns the number of entries.
func (a *FieldArray) Len() int {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	if arr := a.c.arrays[a.path]; arr != nil {
		return len(arr.ids)
	}
	return 0
}

// Fields returns the entries in order with their identities.
func (a *FieldArray) Fields() []ArrayField {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	arr := a.c.arrays[a.path]
	if arr == nil {
		return nil
	}
	current, _ := getPath(a.c.values, a.path)
	list, _ := current.([]any)
	out := make([]ArrayField, len(arr.ids))
	for i, id := range arr.ids {
		out[i] = ArrayField{ID: id, Index: i}
		if i < len(list) {
			out[i].Value = deepCopy(list[i])
		}
	}
	return out
}

// Append adds an entry at the end and returns its new identity.
func (a *FieldArray) Append(value any) (string, error) {
	return a.insert(-1, value)
}

// Prepend adds an entry at the start and returns its new identity.
func (a *FieldArray) Prepend(value any) (string, error) {
	return a.insert(0, value)
}

// Insert adds an entry at index and returns its new identity.
func (a *FieldArray) Insert(index int, value any) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return a.insert(index, value)
}

func (a *FieldArray) insert(index int, value any) (string, error) {
	var id string
	err := a.c.mutateArray(a.path, func(arr *arrayState, list []any) ([]any, error) {
		if index < 0 {
			index = len(list)
		}
		if index > len(list) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		id = a.c.mintID()
		arr.ids = slices.Insert(arr.ids, index, id)
		return slices.Insert(list, index, deepCopy(value)), nil
	}, func(arr *arrayState) {
		a.c.registerItem(arr, id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Remove deletes the entry at index. The identities of the remaining
// entries are unchanged and the removed identity is never reissued.
func (a *FieldArray) Remove(index int) error {
	return a.c.mutateArray(a.path, func(arr *arrayState, list []any) ([]any, error) {
		if index < 0 || index >= len(list) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		a.c.dropItem(arr, arr.ids[index])
		arr.ids = slices.Delete(arr.ids, index, index+1)
		return slices.Delete(list, index, index+1), nil
	}, nil)
}

// Swap exchanges the entries at i and j.
func (a *FieldArray) Swap(i, j int) error {
	return a.c.mutateArray(a.path, func(arr *arrayState, list []any) ([]any, error) {
		if i < 0 || j < 0 || i >= len(list) || j >= len(list) {
			return nil, fmt.Errorf("%w: %d, %d", ErrIndexOutOfRange, i, j)
		}
		arr.ids[i], arr.ids[j] = arr.ids[j], arr.ids[i]
		list[i], list[j] = list[j], list[i]
		return list, nil
	}, nil)
}

// Move relocates the entry at from to position to.
func (a *FieldArray) Move(from, to int) error {
	return a.c.mutateArray(a.path, func(arr *arrayState, list []any) ([]any, error) {
		if from < 0 || to < 0 || from >= len(list) || to >= len(list) {
			return nil, fmt.Errorf("%w: %d -> %d", ErrIndexOutOfRange, from, to)
		}
		id, entry := arr.ids[from], list[from]
		arr.ids = slices.Insert(slices.Delete(arr.ids, from, from+1), to, id)
		return slices.Insert(slices.Delete(list, from, from+1), to, entry), nil
	}, nil)
}

// mutateArray applies op to a copy of the list and its identities, stores
// the result and refreshes dependent state. after runs once the new list is
// stored.
func (c *Controller) mutateArray(path string, op func(*arrayState, []any) ([]any, error), after func(*arrayState)) error {
	c.mu.Lock()
	arr := c.arrays[path]
	if arr == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotArray, path)
	}
	current, _ := getPath(c.values, path)
	list, _ := asList(current)
	list = slices.Clone(list)
	ids := slices.Clone(arr.ids)

	next, err := op(arr, list)
	if err != nil {
		arr.ids = ids
		c.mu.Unlock()
		return err
	}
	if next == nil {
		next = []any{}
	}
	if err := setPath(c.values, path, next); err != nil {
		arr.ids = ids
		c.mu.Unlock()
		return fmt.Errorf("form: %s: %w", path, err)
	}
	c.writes++
	if after != nil {
		after(arr)
	}

	for _, key := range c.keysUnder(path) {
		if p, ok := c.pathOf(key); ok && c.meta[key] != nil {
			c.meta[key].dirty = c.isDirtyAt(p)
		}
	}
	c.refreshDisabledFor(path)
	events := c.events(EventArray, path)
	size := len(arr.ids)
	c.mu.Unlock()

	c.logger.Debug("field array updated", zap.String("field", path), zap.Int("len", size))
	c.emit(events)
	return nil
}

// replaceArray swaps in a whole new list with fresh identities.
func (c *Controller) replaceArray(arr *arrayState, list []any) error {
	for _, id := range arr.ids {
		c.dropItem(arr, id)
	}
	if list == nil {
		list = []any{}
	}
	if err := setPath(c.values, arr.path, list); err != nil {
		return err
	}
	arr.ids = make([]string, len(list))
	for i := range list {
		arr.ids[i] = c.mintID()
	}
	for _, id := range arr.ids {
		c.registerItem(arr, id)
	}
	return nil
}

func (c *Controller) registerItem(arr *arrayState, id string) {
	for sub, rules := range arr.item {
		key := arr.path + "#" + id
		if sub != "" {
			key += "." + sub
		}
		if err := c.registerKey(key, rules); err != nil {
			c.logger.Warn("item rules rejected", zap.String("key", key), zap.Error(err))
		}
	}
}

// dropItem removes the fields and state belonging to entry id.
func (c *Controller) dropItem(arr *arrayState, id string) {
	prefix := arr.path + "#" + id
	owned := func(key string) bool {
		return key == prefix || strings.HasPrefix(key, prefix+".")
	}
	for key, st := range c.meta {
		if owned(key) {
			st.abort(c.nextGen())
			delete(c.meta, key)
		}
	}
	for key := range c.fields {
		if owned(key) {
			delete(c.fields, key)
		}
	}
}

// mintID returns an identity that was never issued by this controller.
func (c *Controller) mintID() string {
	for attempt := 0; ; attempt++ {
		id := c.newID()
		if attempt > 16 {
			id = uuid.NewString()
		}
		if id == "" || strings.ContainsAny(id, ".#") {
			continue
		}
		if _, used := c.issued[id]; used {
			continue
		}
		c.issued[id] = struct{}{}
		return id
	}
}
