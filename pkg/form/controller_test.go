package form

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/validation"
)

func TestSetValueRoundTrip(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	dob := time.Date(1939, 5, 27, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		path string
		in   any
		want any
	}{
		{"username", "Bruce", "Bruce"},
		{"email", "bruce@wayne.com", "bruce@wayne.com"},
		{"social.twitter", "@batman", "@batman"},
		{"phoneNumber.1", "555-0100", "555-0100"},
		{"phNumbers.0.number", "555-0199", "555-0199"},
		{"age", "42", float64(42)},
		{"age", 7, float64(7)},
		{"dob", "1939-05-27", dob},
		{"dob", dob, dob},
	}

	for _, tc := range cases {
		if err := fx.ctrl.SetValue(ctx, tc.path, tc.in, SetOptions{}); err != nil {
			t.Fatalf("SetValue(%s) returned error: %v", tc.path, err)
		}
		got := fx.ctrl.GetValues(tc.path)[tc.path]
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", tc.path, diff)
		}
	}
}

func TestInitialStateIsCleanAndValid(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	state := fx.ctrl.FormState()
	if state.IsDirty || !state.IsValid || state.SubmitCount != 0 {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if !fx.bindings["social.twitter"].Disabled() {
		t.Fatalf("twitter should start disabled while channel is empty")
	}
	if got := fx.bindings["age"].Value(); got != float64(0) {
		t.Fatalf("age default should be normalised to float64, got %#v", got)
	}
}

func TestSubmitWithMissingRequiredField(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	validCalls := 0
	var invalid validation.Errors

	submit := fx.ctrl.HandleSubmit(
		func(context.Context, map[string]any) error { validCalls++; return nil },
		func(_ context.Context, errs validation.Errors) error { invalid = errs; return nil },
	)
	if err := submit(context.Background()); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	if validCalls != 0 {
		t.Fatalf("valid handler must not run, ran %d times", validCalls)
	}
	if diff := cmp.Diff([]string{"channel"}, invalid.Paths()); diff != "" {
		t.Fatalf("invalid paths mismatch (-want +got):\n%s", diff)
	}
	if invalid["channel"].Message != "Channel is required" {
		t.Fatalf("unexpected message %q", invalid["channel"].Message)
	}

	state := fx.ctrl.FormState()
	if state.SubmitCount != 1 || !state.IsSubmitted || state.IsSubmitSuccessful || state.IsValid {
		t.Fatalf("unexpected state after invalid submit: %+v", state)
	}
}

func TestSubmitWithoutInvalidHandlerReturnsErrors(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	err := fx.ctrl.HandleSubmit(nil, nil)(context.Background())
	errs, ok := validation.AsErrors(err)
	if !ok || errs["channel"] == nil {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestSuccessfulSubmit(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.input(t, "channel", "Gotham")
	fx.input(t, "social.twitter", "@batman")

	var calls int
	var got map[string]any
	submit := fx.ctrl.HandleSubmit(func(_ context.Context, values map[string]any) error {
		calls++
		got = values
		return nil
	}, nil)
	if err := submit(context.Background()); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	want := map[string]any{
		"username":    "Batman",
		"email":       "",
		"channel":     "Gotham",
		"social":      map[string]any{"twitter": "@batman", "facebook": ""},
		"phoneNumber": []any{"", ""},
		"phNumbers":   []any{map[string]any{"number": ""}},
		"age":         float64(0),
		"dob":         fixedNow,
	}
	if calls != 1 {
		t.Fatalf("valid handler ran %d times", calls)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
	state := fx.ctrl.FormState()
	if !state.IsSubmitSuccessful || state.IsSubmitting || state.SubmitCount != 1 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestSubmitOmitsDisabledFields(t *testing.T) {
	t.Parallel()

	ctrl := New(map[string]any{"channel": "", "social": map[string]any{"twitter": "@old"}})
	if _, err := ctrl.Register("channel", validation.Rules{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ctrl.Register("social.twitter", validation.Rules{DisabledWhen: `channel == ""`}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var got map[string]any
	err := ctrl.HandleSubmit(func(_ context.Context, values map[string]any) error {
		got = values
		return nil
	}, nil)(context.Background())
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	want := map[string]any{"channel": "", "social": map[string]any{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
}

func TestEmailScenario(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{"abc", "Invalid email format"},
		{"admin@example.com", "Enter a different email address"},
		{"x@baddomain.com", "This domain is not supported."},
		{"bruce@wayne.com", ""},
	}

	fx := newFixture(t)
	for _, tc := range cases {
		fx.input(t, "email", tc.input)
		state := fx.ctrl.FieldState("email")
		switch {
		case tc.want == "" && state.Error != nil:
			t.Fatalf("%q: unexpected error %v", tc.input, state.Error)
		case tc.want != "" && (state.Error == nil || state.Error.Message != tc.want):
			t.Fatalf("%q: got %v, want %q", tc.input, state.Error, tc.want)
		}
	}
}

func TestOnTouchedMode(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	b := fx.bindings["username"]

	if err := b.OnChange(ctx, ""); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if b.State().Error != nil {
		t.Fatalf("untouched field must not validate on change")
	}
	if err := b.OnBlur(ctx); err != nil {
		t.Fatalf("OnBlur: %v", err)
	}
	if b.State().Error == nil {
		t.Fatalf("blur should validate")
	}
	if err := b.OnChange(ctx, "Robin"); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if b.State().Error != nil {
		t.Fatalf("touched field should re-validate on change")
	}
}

func TestCoercionFailureIsReported(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.input(t, "age", "forty")

	b := fx.bindings["age"]
	state := b.State()
	if state.Error == nil || state.Error.Code != validation.CodeInvalidNumber || state.Error.Kind != validation.KindCoercion {
		t.Fatalf("expected coercion error, got %+v", state.Error)
	}
	if b.Text() != "forty" {
		t.Fatalf("raw input should be kept, got %q", b.Text())
	}
	if v, _ := b.Value().(float64); !math.IsNaN(v) {
		t.Fatalf("expected NaN placeholder, got %v", b.Value())
	}

	fx.input(t, "age", "NaN")
	if err := b.State().Error; err == nil || err.Code != validation.CodeInvalidNumber {
		t.Fatalf("typed NaN must be a coercion error, got %+v", err)
	}

	fx.input(t, "age", "40")
	if b.State().Error != nil || b.Value() != float64(40) || b.Text() != "40" {
		t.Fatalf("valid input should clear the error: %+v %v", b.State(), b.Value())
	}

	fx.input(t, "age", "")
	if err := b.State().Error; err == nil || err.Code != validation.CodeRequired {
		t.Fatalf("blank numeric input should fail required, got %+v", err)
	}
}

func TestSetValueOptionsAreIndependent(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.ctrl.SetValue(ctx, "username", "", SetOptions{}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	field := fx.ctrl.FieldState("username")
	if field.Dirty || field.Touched || field.Error != nil {
		t.Fatalf("no side effects expected, got %+v", field)
	}
	if !fx.ctrl.FormState().IsDirty {
		t.Fatalf("form dirtiness follows values")
	}

	if err := fx.ctrl.SetValue(ctx, "username", "", SetOptions{ShouldTouch: true}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	field = fx.ctrl.FieldState("username")
	if field.Dirty || !field.Touched || field.Error != nil {
		t.Fatalf("only touched expected, got %+v", field)
	}

	if err := fx.ctrl.SetValue(ctx, "username", "", SetOptions{ShouldDirty: true, ShouldValidate: true}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	field = fx.ctrl.FieldState("username")
	if !field.Dirty || field.Error == nil || field.Error.Message != "Username is required" {
		t.Fatalf("dirty and error expected, got %+v", field)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	defaults := fx.ctrl.GetValues()

	fx.input(t, "username", "")
	fx.input(t, "age", "99")
	fx.input(t, "email", "abc")
	if _, err := fx.phones.Append(map[string]any{"number": "1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = fx.ctrl.HandleSubmit(nil, nil)(ctx)
	before := fx.phones.Fields()

	fx.ctrl.Reset(nil)

	if diff := cmp.Diff(defaults, fx.ctrl.GetValues()); diff != "" {
		t.Fatalf("values not restored (-want +got):\n%s", diff)
	}
	state := fx.ctrl.FormState()
	if state.IsDirty || state.SubmitCount != 0 || state.IsSubmitted || !state.IsValid {
		t.Fatalf("unexpected state after reset: %+v", state)
	}
	if len(state.DirtyFields) != 0 || len(state.TouchedFields) != 0 {
		t.Fatalf("meta not cleared: %+v", state)
	}

	after := fx.phones.Fields()
	if len(after) != 1 {
		t.Fatalf("expected one phone entry, got %d", len(after))
	}
	for _, old := range before {
		if old.ID == after[0].ID {
			t.Fatalf("reset must mint fresh identities")
		}
	}
}

func TestResetWithNewDefaults(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	next := youtubeDefaults()
	next["username"] = "Robin"
	fx.ctrl.Reset(next)

	if got := fx.bindings["username"].Value(); got != "Robin" {
		t.Fatalf("expected new default, got %v", got)
	}
	if fx.ctrl.FormState().IsDirty {
		t.Fatalf("new defaults should not be dirty")
	}
}

func TestSubmitInProgress(t *testing.T) {
	t.Parallel()

	ctrl := New(map[string]any{"name": "x"})
	if _, err := ctrl.Register("name", validation.Rules{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	submit := ctrl.HandleSubmit(func(context.Context, map[string]any) error {
		close(entered)
		<-release
		return nil
	}, nil)

	done := make(chan error, 1)
	go func() { done <- submit(context.Background()) }()
	<-entered

	if !ctrl.FormState().IsSubmitting {
		t.Fatalf("expected IsSubmitting during the handler")
	}
	if err := submit(context.Background()); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}
	if got := ctrl.FormState().SubmitCount; got != 1 {
		t.Fatalf("rejected submit must not count, got %d", got)
	}
}

func TestSubmitHandlerPanicIsRecovered(t *testing.T) {
	t.Parallel()

	ctrl := New(map[string]any{"name": "x"})
	err := ctrl.HandleSubmit(func(context.Context, map[string]any) error {
		panic("boom")
	}, nil)(context.Background())

	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	state := ctrl.FormState()
	if state.IsSubmitSuccessful || !state.IsSubmitted || state.IsSubmitting {
		t.Fatalf("unexpected state after failed handler: %+v", state)
	}
}

func TestSetErrorAndClearErrors(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	if err := fx.ctrl.SetError("/social/twitter", "taken"); err != nil {
		t.Fatalf("SetError: %v", err)
	}
	if err := fx.ctrl.SetError("phNumbers[0].number", "unreachable"); err != nil {
		t.Fatalf("SetError: %v", err)
	}

	errs := fx.ctrl.FormState().Errors
	if diff := cmp.Diff(map[string]string{
		"social.twitter":     "taken",
		"phNumbers.0.number": "unreachable",
	}, errs.Messages()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if errs["social.twitter"].Kind != validation.KindManual {
		t.Fatalf("expected manual kind")
	}

	fx.ctrl.ClearErrors("social")
	if got := fx.ctrl.FormState().Errors.Paths(); !cmp.Equal(got, []string{"phNumbers.0.number"}) {
		t.Fatalf("unexpected remaining errors %v", got)
	}
	fx.ctrl.ClearErrors()
	if !fx.ctrl.FormState().IsValid {
		t.Fatalf("expected no errors")
	}
}

func TestDepsRevalidateOtherFields(t *testing.T) {
	t.Parallel()

	ctrl := New(map[string]any{"password": "", "confirm": ""}, WithMode(OnChange))
	pw, err := ctrl.Register("password", validation.Rules{Deps: []string{"confirm"}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	confirm, err := ctrl.Register("confirm", validation.Rules{Validate: []validation.Check{{
		Name: "matches",
		Fn: func(v any) string {
			if v != ctrl.values["password"] {
				return "passwords differ"
			}
			return ""
		},
	}}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	if err := confirm.OnChange(ctx, "secret"); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if confirm.State().Error == nil {
		t.Fatalf("expected mismatch")
	}
	if err := pw.OnChange(ctx, "secret"); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if confirm.State().Error != nil {
		t.Fatalf("dependent field should have been re-validated")
	}
}

func TestDisabledFieldRejectsInputAndClearsError(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	twitter := fx.bindings["social.twitter"]
	if err := twitter.OnChange(context.Background(), "@x"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	fx.input(t, "channel", "Gotham")
	if twitter.Disabled() {
		t.Fatalf("twitter should be enabled once channel is set")
	}
	fx.input(t, "social.twitter", "")
	if twitter.State().Error == nil {
		t.Fatalf("expected required error")
	}

	fx.input(t, "channel", "")
	if !twitter.Disabled() || twitter.State().Error != nil {
		t.Fatalf("disabling should clear the error, got %+v", twitter.State())
	}
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	var all, filtered []WatchEvent
	subAll := fx.ctrl.Subscribe(func(ev WatchEvent) { all = append(all, ev) })
	subEmail := fx.ctrl.Subscribe(func(ev WatchEvent) { filtered = append(filtered, ev) }, "email")

	fx.input(t, "username", "Robin")
	fx.input(t, "email", "robin@wayne.com")

	if len(filtered) != 1 || filtered[0].Kind != EventChange || filtered[0].Path != "email" {
		t.Fatalf("unexpected filtered events: %+v", filtered)
	}
	if got := filtered[0].Values["email"]; got != "robin@wayne.com" {
		t.Fatalf("snapshot should carry the new value, got %v", got)
	}
	if filtered[0].At != fixedNow {
		t.Fatalf("events should be stamped with the clock")
	}
	if len(all) < 4 {
		t.Fatalf("expected change and blur events, got %d", len(all))
	}

	subAll.Unsubscribe()
	subEmail.Unsubscribe()
	subEmail.Unsubscribe()
	count := len(all)
	fx.ctrl.Reset(nil)
	if len(all) != count {
		t.Fatalf("unsubscribed watcher still notified")
	}
}

func TestTriggerUnknownField(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	if _, err := fx.ctrl.Trigger(context.Background(), "nope"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	ok, err := fx.ctrl.Trigger(context.Background(), "social")
	if err != nil || !ok {
		t.Fatalf("group trigger: %v %v", ok, err)
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"email":                "email",
		"/social/twitter":      "social.twitter",
		"#/phNumbers/0/number": "phNumbers.0.number",
		"phNumbers[1].number":  "phNumbers.1.number",
		"$.age":                "age",
		" ":                    "",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, m := range []Mode{OnSubmit, OnBlur, OnChange, OnTouched, All} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
