package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout date inputs submit and render.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidNumber reports text that does not parse as a number.
	ErrInvalidNumber = errors.New("validation: invalid number")
	// ErrInvalidDate reports text that does not parse as a date.
	ErrInvalidDate = errors.New("validation: invalid date")
)

// CoerceNumber parses input text into a float64. Blank text yields NaN and no
// error so that the required rule, not coercion, reports it.
func CoerceNumber(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return math.NaN(), fmt.Errorf("%w: %q", ErrInvalidNumber, text)
	}
	return f, nil
}

// CoerceDate parses input text into a time.Time. Blank text yields the zero
// time and no error.
func CoerceDate(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
}

// Coerce converts raw input text according to the rule's valueAs flags. A
// parse failure is returned as a coercion FieldError for path alongside the
// placeholder value that should be stored.
func Coerce(path, raw string, rules Rules) (any, *FieldError) {
	switch {
	case rules.ValueAsNumber:
		f, err := CoerceNumber(raw)
		if err != nil {
			return f, &FieldError{Path: path, Code: CodeInvalidNumber, Message: T(CodeInvalidNumber, nil), Kind: KindCoercion, Cause: err}
		}
		return f, nil
	case rules.ValueAsDate:
		t, err := CoerceDate(raw)
		if err != nil {
			return t, &FieldError{Path: path, Code: CodeInvalidDate, Message: T(CodeInvalidDate, nil), Kind: KindCoercion, Cause: err}
		}
		return t, nil
	default:
		return raw, nil
	}
}

// Normalize converts programmatic values into the representation the rules
// store: integers become float64 for numeric fields and strings are parsed
// for numeric and date fields.
func Normalize(path string, value any, rules Rules) (any, *FieldError) {
	if s, ok := value.(string); ok && (rules.ValueAsNumber || rules.ValueAsDate) {
		return Coerce(path, s, rules)
	}
	if rules.ValueAsNumber {
		if f, ok := toFloat(value); ok {
			return f, nil
		}
	}
	return value, nil
}

// IsEmpty reports whether value counts as missing for the required rule.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	case time.Time:
		return v.IsZero()
	case bool:
		return !v
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// FormatValue renders a stored value back into input text.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(DateLayout)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
