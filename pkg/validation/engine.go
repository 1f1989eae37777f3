package validation

import (
	"context"
	"reflect"
	"time"
	"unicode/utf8"
)

// RunSync evaluates every synchronous rule against value in order: required,
// pattern, numeric bounds, length bounds, then the custom checks. It returns
// the first failure or nil.
func RunSync(path string, value any, rules Rules) *FieldError {
	empty := IsEmpty(value)

	if rules.Required != nil && empty {
		return &FieldError{
			Path:    path,
			Code:    CodeRequired,
			Message: messageOr(rules.Required.Message, CodeRequired, nil),
			Kind:    KindValidation,
		}
	}

	if !empty {
		if err := checkPattern(path, value, rules.Pattern); err != nil {
			return err
		}
		if err := checkBounds(path, value, rules.Min, rules.Max); err != nil {
			return err
		}
		if err := checkLength(path, value, rules.MinLength, rules.MaxLength); err != nil {
			return err
		}
	}

	for _, check := range rules.Validate {
		if check.Fn == nil {
			continue
		}
		if msg := check.Fn(value); msg != "" {
			return &FieldError{
				Path:    path,
				Code:    CodeValidate,
				Message: msg,
				Kind:    KindValidation,
				Rule:    check.Name,
			}
		}
	}
	return nil
}

// RunAsync evaluates the asynchronous checks in order. Each check runs under
// timeout when it is positive. A check error is reported as a collaborator
// failure, never as a rule failure.
func RunAsync(ctx context.Context, path string, value any, rules Rules, timeout time.Duration) *FieldError {
	for _, check := range rules.ValidateAsync {
		if check.Fn == nil {
			continue
		}
		msg, err := runAsyncCheck(ctx, check, value, timeout)
		if err != nil {
			return &FieldError{
				Path:    path,
				Code:    CodeDependencyUnavailable,
				Message: messageOr(check.UnavailableMessage, CodeDependencyUnavailable, nil),
				Kind:    KindCollaborator,
				Rule:    check.Name,
				Cause:   err,
			}
		}
		if msg != "" {
			return &FieldError{
				Path:    path,
				Code:    CodeValidate,
				Message: msg,
				Kind:    KindValidation,
				Rule:    check.Name,
			}
		}
	}
	return nil
}

func runAsyncCheck(ctx context.Context, check AsyncCheck, value any, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	msg, err := check.Fn(ctx, value)
	if err == nil && ctx.Err() != nil {
		// verdicts that arrive after the deadline are not trusted
		return "", ctx.Err()
	}
	return msg, err
}

func checkPattern(path string, value any, rule *Pattern) *FieldError {
	if rule == nil || rule.Regexp == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if rule.Regexp.MatchString(s) {
		return nil
	}
	return &FieldError{
		Path:    path,
		Code:    CodePattern,
		Message: messageOr(rule.Message, CodePattern, nil),
		Kind:    KindValidation,
	}
}

func checkBounds(path string, value any, min, max *Bound) *FieldError {
	if min == nil && max == nil {
		return nil
	}
	n, ok := toFloat(value)
	if !ok {
		return nil
	}
	if min != nil && n < min.Value {
		params := map[string]any{"min": min.Value}
		return &FieldError{Path: path, Code: CodeMin, Message: messageOr(min.Message, CodeMin, params), Kind: KindValidation}
	}
	if max != nil && n > max.Value {
		params := map[string]any{"max": max.Value}
		return &FieldError{Path: path, Code: CodeMax, Message: messageOr(max.Message, CodeMax, params), Kind: KindValidation}
	}
	return nil
}

func checkLength(path string, value any, min, max *Length) *FieldError {
	if min == nil && max == nil {
		return nil
	}
	n, ok := lengthOf(value)
	if !ok {
		return nil
	}
	if min != nil && n < min.Value {
		params := map[string]any{"minLength": min.Value}
		return &FieldError{Path: path, Code: CodeMinLength, Message: messageOr(min.Message, CodeMinLength, params), Kind: KindValidation}
	}
	if max != nil && n > max.Value {
		params := map[string]any{"maxLength": max.Value}
		return &FieldError{Path: path, Code: CodeMaxLength, Message: messageOr(max.Message, CodeMaxLength, params), Kind: KindValidation}
	}
	return nil
}

func lengthOf(value any) (int, bool) {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	default:
		return 0, false
	}
}
