package youtube

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/validation"
)

var fixedNow = time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

type directory struct {
	mu    sync.Mutex
	taken map[string]bool
	err   error
	calls []string
}

func (d *directory) LookupEmail(_ context.Context, candidate string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, candidate)
	if d.err != nil {
		return false, d.err
	}
	return d.taken[candidate], nil
}

type recorder struct {
	mu      sync.Mutex
	valid   []Values
	invalid []validation.Errors
}

func (r *recorder) options() []Option {
	return []Option{
		WithSubmitHandler(func(_ context.Context, v Values) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.valid = append(r.valid, v)
			return nil
		}),
		WithInvalidHandler(func(_ context.Context, errs validation.Errors) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.invalid = append(r.invalid, errs)
			return nil
		}),
	}
}

func newForm(t *testing.T, l lookup.EmailLookup, opts ...Option) *Form {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f, err := New(l, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func input(t *testing.T, f *Form, path, raw string) {
	t.Helper()
	b, err := f.Controller().Binding(path)
	if err != nil {
		t.Fatalf("Binding(%s): %v", path, err)
	}
	ctx := context.Background()
	if err := b.OnChange(ctx, raw); err != nil {
		t.Fatalf("OnChange(%s): %v", path, err)
	}
	if err := b.OnBlur(ctx); err != nil {
		t.Fatalf("OnBlur(%s): %v", path, err)
	}
	if err := f.Controller().Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	f := newForm(t, &directory{})
	got, err := f.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := Values{
		Username:    "Batman",
		PhoneNumber: []string{"", ""},
		PhNumbers:   []Phone{{}},
		DOB:         fixedNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if f.CanSubmit() {
		t.Fatalf("submit must be disabled on a pristine form")
	}
	if len(f.Phones().Fields()) != 1 {
		t.Fatalf("phone list must start with one entry")
	}
}

func TestSubmitMissingChannel(t *testing.T) {
	rec := &recorder{}
	f := newForm(t, &directory{}, rec.options()...)

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	state := f.Controller().FormState()
	if state.SubmitCount != 1 || state.IsSubmitSuccessful {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(rec.valid) != 0 || len(rec.invalid) != 1 {
		t.Fatalf("expected only the invalid handler, got %d valid %d invalid", len(rec.valid), len(rec.invalid))
	}
	if diff := cmp.Diff(map[string]string{"channel": "channel is required."}, rec.invalid[0].Messages()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitValid(t *testing.T) {
	rec := &recorder{}
	dir := &directory{}
	f := newForm(t, dir, rec.options()...)

	input(t, f, "channel", "codevolution")
	input(t, f, "email", "bruce@wayne.com")
	input(t, f, "social.twitter", "@batman")
	if !f.CanSubmit() {
		t.Fatalf("submit must be enabled once the form is dirty")
	}

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(rec.valid) != 1 {
		t.Fatalf("expected one valid submit, got %d", len(rec.valid))
	}
	want := Values{
		Username:    "Batman",
		Email:       "bruce@wayne.com",
		Channel:     "codevolution",
		Social:      Social{Twitter: "@batman"},
		PhoneNumber: []string{"", ""},
		PhNumbers:   []Phone{{}},
		DOB:         fixedNow,
	}
	if diff := cmp.Diff(want, rec.valid[0]); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
	if state := f.Controller().FormState(); !state.IsSubmitSuccessful || state.SubmitCount != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
	// once on blur, once more when the submit re-validates
	if diff := cmp.Diff([]string{"bruce@wayne.com", "bruce@wayne.com"}, dir.calls); diff != "" {
		t.Fatalf("lookup calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEmailRules(t *testing.T) {
	tests := []struct {
		name  string
		dir   *directory
		input string
		want  string
		kind  validation.Kind
	}{
		{"malformed", &directory{}, "abc", "Invalid email format", validation.KindValidation},
		{"admin", &directory{}, "admin@example.com", MsgAdmin, validation.KindValidation},
		{"blacklisted", &directory{}, "x@baddomain.com", MsgBlackListed, validation.KindValidation},
		{"taken", &directory{taken: map[string]bool{"bruce@wayne.com": true}}, "bruce@wayne.com", MsgTaken, validation.KindValidation},
		{"unreachable", &directory{err: lookup.ErrUnavailable}, "bruce@wayne.com", MsgUnverified, validation.KindCollaborator},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newForm(t, tc.dir)
			input(t, f, "email", tc.input)
			fe := f.Controller().FieldState("email").Error
			if fe == nil || fe.Message != tc.want || fe.Kind != tc.kind {
				t.Fatalf("got %+v, want %q (%v)", fe, tc.want, tc.kind)
			}
		})
	}
}

func TestMalformedEmailSkipsLookup(t *testing.T) {
	dir := &directory{}
	f := newForm(t, dir)
	input(t, f, "email", "abc")
	if len(dir.calls) != 0 {
		t.Fatalf("pattern failure must short-circuit the lookup, got %v", dir.calls)
	}
}

func TestSetValues(t *testing.T) {
	f := newForm(t, &directory{})
	if err := f.SetValues(context.Background()); err != nil {
		t.Fatalf("SetValues: %v", err)
	}
	meta := f.Controller().FieldState("username")
	if !meta.Touched || !meta.Dirty {
		t.Fatalf("expected touched and dirty, got %+v", meta)
	}
	if meta.Error == nil || meta.Error.Message != "username is required." {
		t.Fatalf("expected required error, got %+v", meta.Error)
	}
}

func TestGetValuesLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newForm(t, &directory{}, WithLogger(zap.New(core)))

	got := f.GetValues()
	if diff := cmp.Diff(map[string]any{"username": "Batman", "email": ""}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if logs.FilterMessage("get values").Len() != 1 {
		t.Fatalf("expected one get values log entry")
	}
}

func TestPhones(t *testing.T) {
	f := newForm(t, &directory{})
	first := f.Phones().Fields()[0].ID

	id, err := f.AddPhone()
	if err != nil {
		t.Fatalf("AddPhone: %v", err)
	}
	if f.Phones().Len() != 2 || !f.Controller().FormState().IsDirty {
		t.Fatalf("append must grow the list and dirty the form")
	}
	if err := f.RemovePhone(0); !errors.Is(err, ErrKeepEntry) {
		t.Fatalf("expected ErrKeepEntry, got %v", err)
	}
	if err := f.RemovePhone(1); err != nil {
		t.Fatalf("RemovePhone: %v", err)
	}
	fields := f.Phones().Fields()
	if len(fields) != 1 || fields[0].ID != first || fields[0].ID == id {
		t.Fatalf("unexpected entries %+v", fields)
	}
}

func TestTwitterFollowsChannel(t *testing.T) {
	f := newForm(t, &directory{})
	twitter, err := f.Controller().Binding("social.twitter")
	if err != nil {
		t.Fatalf("Binding: %v", err)
	}
	if !twitter.Disabled() {
		t.Fatalf("twitter must be disabled while channel is empty")
	}
	input(t, f, "channel", "codevolution")
	if twitter.Disabled() {
		t.Fatalf("twitter must be enabled once channel is set")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	f := newForm(t, &directory{})
	input(t, f, "username", "")
	input(t, f, "age", "abc")
	if _, err := f.AddPhone(); err != nil {
		t.Fatalf("AddPhone: %v", err)
	}
	_ = f.Submit(context.Background())

	f.Reset()
	state := f.Controller().FormState()
	if state.IsDirty || state.SubmitCount != 0 || len(state.Errors) != 0 || len(state.TouchedFields) != 0 {
		t.Fatalf("reset left state behind: %+v", state)
	}
	got, err := f.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if got.Username != "Batman" || len(got.PhNumbers) != 1 || !got.DOB.Equal(fixedNow) {
		t.Fatalf("unexpected values after reset %+v", got)
	}
}

func TestValidate(t *testing.T) {
	f := newForm(t, &directory{})
	ok, err := f.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Fatalf("empty channel must fail validation")
	}
	if f.Controller().FormState().SubmitCount != 0 {
		t.Fatalf("validate must not count as a submit")
	}
}

func TestValidateSections(t *testing.T) {
	f := newForm(t, &directory{})
	got, err := f.ValidateSections(context.Background())
	if err != nil {
		t.Fatalf("ValidateSections: %v", err)
	}
	want := map[string]bool{
		"username":    true,
		"email":       true,
		"channel":     false,
		"social":      true,
		"phoneNumber": true,
		"age":         true,
		"dob":         true,
		"phNumbers":   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeValuesDropsNaN(t *testing.T) {
	v, err := DecodeValues(map[string]any{"age": math.NaN()})
	if err != nil {
		t.Fatalf("DecodeValues: %v", err)
	}
	if v.Age != 0 {
		t.Fatalf("expected zero age, got %v", v.Age)
	}
}
