package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// The values tree is a nested map[string]any whose lists are []any. Paths are
// dotted, with list positions as numeric segments (`phNumbers.0.number`).

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func getPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range splitPath(path) {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at path, creating intermediate maps and lists as the
// following segment requires.
func setPath(root map[string]any, path string, value any) error {
	if root == nil {
		return fmt.Errorf("form: values root is nil")
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return ErrInvalidPath
	}
	_, err := setIn(root, segments, value)
	return err
}

func setIn(node any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	segment, rest := segments[0], segments[1:]

	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("%w: negative index %d", ErrInvalidPath, idx)
		}
		list, _ := node.([]any)
		if list == nil && node != nil {
			if _, isMap := node.(map[string]any); isMap {
				return nil, fmt.Errorf("%w: numeric segment %q under an object", ErrInvalidPath, segment)
			}
		}
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		child, err := setIn(list[idx], rest, value)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	obj, ok := node.(map[string]any)
	if !ok || obj == nil {
		if _, isList := node.([]any); isList {
			return nil, fmt.Errorf("%w: segment %q under a list", ErrInvalidPath, segment)
		}
		obj = make(map[string]any)
	}
	child, err := setIn(obj[segment], rest, value)
	if err != nil {
		return nil, err
	}
	obj[segment] = child
	return obj, nil
}

// deletePath removes the leaf at path. List entries are left in place; only
// object keys are removed.
func deletePath(root map[string]any, path string) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return
	}
	parentPath := strings.Join(segments[:len(segments)-1], ".")
	var parent any = root
	if parentPath != "" {
		var ok bool
		if parent, ok = getPath(root, parentPath); !ok {
			return
		}
	}
	if obj, ok := parent.(map[string]any); ok {
		delete(obj, segments[len(segments)-1])
	}
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

// deepCopy clones maps and lists. Typed slices and maps coming from callers
// are converted into []any and map[string]any.
func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValues(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = v
		}
		return clone
	case []map[string]any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = cloneValues(v)
		}
		return clone
	case map[string]string:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = v
		}
		return clone
	default:
		return typed
	}
}

// asList reports value as []any, accepting typed slices.
func asList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = deepCopy(rv.Index(i).Interface())
	}
	return out, true
}

var equalOpts = []cmp.Option{cmpopts.EquateNaNs(), cmpopts.EquateEmpty()}

// equalValues compares two subtrees, treating NaN as equal to NaN and nil as
// equal to empty containers.
func equalValues(a, b any) bool {
	return cmp.Equal(a, b, equalOpts...)
}

// overlaps reports whether one dotted path is equal to or nested in the other.
func overlaps(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}
