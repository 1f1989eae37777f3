package text

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func sample() map[string]any {
	return map[string]any{
		"username": "Batman",
		"social":   map[string]any{"twitter": "@bat"},
		"phNumbers": []any{
			map[string]any{"number": "555"},
		},
		"age": 30.0,
		"dob": time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
}

func TestEncodePretty(t *testing.T) {
	out, err := Encode(FormatPretty, sample())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := strings.Join([]string{
		"age=30",
		"dob=2024-03-09",
		"phNumbers.0.number=555",
		"social.twitter=@bat",
		"username=Batman",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("pretty mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeForm(t *testing.T) {
	out, err := Encode(FormatFormURLEncoded, map[string]any{"a": "x y", "b": []any{"1", "2"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := string(out); got != "a=x+y&b.0=1&b.1=2" {
		t.Fatalf("unexpected form encoding %q", got)
	}
}

func TestEncodeJSONDropsNaN(t *testing.T) {
	out, err := Encode(FormatJSON, map[string]any{"age": math.NaN()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := string(out); got != `{"age":null}` {
		t.Fatalf("unexpected json %s", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPretty, "JSON": FormatJSON, "form": FormatFormURLEncoded} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error")
	}
	if FormatJSON.ContentType() != "application/json" || FormatPretty.ContentType() != "text/plain" {
		t.Fatalf("unexpected content types")
	}
}

func TestEncodeState(t *testing.T) {
	ctrl := form.New(map[string]any{"username": ""})
	if _, err := ctrl.Register("username", validation.Rules{Required: &validation.Required{Message: "username is required."}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ctrl.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	out, err := EncodeState(FormatPretty, Snapshot(ctrl))
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}
	for _, line := range []string{"errors.username=username is required.", "state.isValid=false", "state.submitCount=0", "values.username="} {
		if !strings.Contains(string(out), line+"\n") {
			t.Fatalf("missing %q in\n%s", line, out)
		}
	}

	js, err := EncodeState(FormatJSON, Snapshot(ctrl))
	if err != nil {
		t.Fatalf("EncodeState json: %v", err)
	}
	if !strings.Contains(string(js), `"errors":{"username":"username is required."}`) {
		t.Fatalf("unexpected json %s", js)
	}
}

func TestErrorLines(t *testing.T) {
	errs := validation.Errors{
		"email":   {Path: "email", Message: "Invalid email format"},
		"channel": {Path: "channel", Message: "channel is required."},
	}
	want := []string{"channel: channel is required.", "email: Invalid email format"}
	if diff := cmp.Diff(want, ErrorLines(errs)); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestStream(t *testing.T) {
	ctrl := form.New(map[string]any{"username": "Batman"})
	var buf bytes.Buffer
	sub := Stream(ctrl, &buf, FormatPretty, nil)

	if err := ctrl.SetValue(context.Background(), "username", "Robin", form.SetOptions{}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	sub.Unsubscribe()
	if err := ctrl.SetValue(context.Background(), "username", "Alfred", form.SetOptions{}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	want := "# set username\nusername=Robin\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("stream mismatch (-want +got):\n%s", diff)
	}
}
