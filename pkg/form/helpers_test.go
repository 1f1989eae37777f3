package form

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formstate/pkg/validation"
)

const emailPattern = "^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$"

var fixedNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func youtubeDefaults() map[string]any {
	return map[string]any{
		"username": "Batman",
		"email":    "",
		"channel":  "",
		"social": map[string]any{
			"twitter":  "",
			"facebook": "",
		},
		"phoneNumber": []any{"", ""},
		"phNumbers":   []any{map[string]any{"number": ""}},
		"age":         0,
		"dob":         fixedNow,
	}
}

func emailRules() validation.Rules {
	return validation.Rules{
		Pattern: validation.MustPattern(emailPattern, "Invalid email format"),
		Validate: []validation.Check{
			{Name: "notAdmin", Fn: func(v any) string {
				if v == "admin@example.com" {
					return "Enter a different email address"
				}
				return ""
			}},
			{Name: "notBlackListed", Fn: func(v any) string {
				if s, _ := v.(string); strings.HasSuffix(s, "baddomain.com") {
					return "This domain is not supported."
				}
				return ""
			}},
		},
	}
}

type fixture struct {
	ctrl     *Controller
	bindings map[string]*Binding
	phones   *FieldArray
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	base := []Option{WithMode(OnTouched), WithClock(func() time.Time { return fixedNow })}
	ctrl := New(youtubeDefaults(), append(base, opts...)...)
	fx := &fixture{ctrl: ctrl, bindings: map[string]*Binding{}}

	register := func(path string, rules validation.Rules) {
		b, err := ctrl.Register(path, rules)
		if err != nil {
			t.Fatalf("Register(%s) returned error: %v", path, err)
		}
		fx.bindings[path] = b
	}

	register("username", validation.Rules{Required: &validation.Required{Message: "Username is required"}})
	register("email", emailRules())
	register("channel", validation.Rules{Required: &validation.Required{Message: "Channel is required"}})
	register("social.twitter", validation.Rules{DisabledWhen: `channel == ""`, Required: &validation.Required{Message: "Enter twitter profile"}})
	register("social.facebook", validation.Rules{})
	register("phoneNumber.0", validation.Rules{})
	register("phoneNumber.1", validation.Rules{})
	register("age", validation.Rules{Required: &validation.Required{Message: "Age is required"}, ValueAsNumber: true})
	register("dob", validation.Rules{Required: &validation.Required{Message: "Date of birth is required"}, ValueAsDate: true})

	phones, err := ctrl.RegisterArray("phNumbers", map[string]validation.Rules{"number": {}})
	if err != nil {
		t.Fatalf("RegisterArray returned error: %v", err)
	}
	fx.phones = phones
	return fx
}

func (fx *fixture) input(t *testing.T, path, raw string) {
	t.Helper()
	b := fx.bindings[path]
	if b == nil {
		t.Fatalf("no binding for %s", path)
	}
	ctx := context.Background()
	if err := b.OnChange(ctx, raw); err != nil {
		t.Fatalf("OnChange(%s) returned error: %v", path, err)
	}
	if err := b.OnBlur(ctx); err != nil {
		t.Fatalf("OnBlur(%s) returned error: %v", path, err)
	}
}
