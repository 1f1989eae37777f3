package validation

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCoerceNumber(t *testing.T) {
	t.Parallel()

	f, err := CoerceNumber(" 42 ")
	if err != nil || f != 42 {
		t.Fatalf("got %v, %v", f, err)
	}

	f, err = CoerceNumber("")
	if err != nil || !math.IsNaN(f) {
		t.Fatalf("blank input should be NaN without error, got %v, %v", f, err)
	}

	for _, text := range []string{"forty", "NaN", "nan", "Inf"} {
		if _, err := CoerceNumber(text); !errors.Is(err, ErrInvalidNumber) {
			t.Fatalf("%q: expected ErrInvalidNumber, got %v", text, err)
		}
	}
}

func TestCoerceDate(t *testing.T) {
	t.Parallel()

	d, err := CoerceDate("1939-05-27")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(1939, 5, 27, 0, 0, 0, 0, time.UTC); !d.Equal(want) {
		t.Fatalf("got %v want %v", d, want)
	}

	if _, err := CoerceDate("2020-01-02T15:04:05Z"); err != nil {
		t.Fatalf("rfc3339: %v", err)
	}

	_, err = CoerceDate("27/05/1939")
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestCoerceReportsCoercionKind(t *testing.T) {
	t.Parallel()

	value, ferr := Coerce("age", "abc", Rules{ValueAsNumber: true})
	if ferr == nil || ferr.Kind != KindCoercion || ferr.Code != CodeInvalidNumber {
		t.Fatalf("unexpected error: %+v", ferr)
	}
	if f, ok := value.(float64); !ok || !math.IsNaN(f) {
		t.Fatalf("expected NaN placeholder, got %v", value)
	}

	value, ferr = Coerce("dob", "nope", Rules{ValueAsDate: true})
	if ferr == nil || ferr.Code != CodeInvalidDate {
		t.Fatalf("unexpected error: %+v", ferr)
	}
	if d, ok := value.(time.Time); !ok || !d.IsZero() {
		t.Fatalf("expected zero time placeholder, got %v", value)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	v, ferr := Normalize("age", 7, Rules{ValueAsNumber: true})
	if ferr != nil || v != float64(7) {
		t.Fatalf("got %v, %v", v, ferr)
	}
	v, ferr = Normalize("age", "8", Rules{ValueAsNumber: true})
	if ferr != nil || v != float64(8) {
		t.Fatalf("got %v, %v", v, ferr)
	}
	v, _ = Normalize("username", "x", Rules{})
	if v != "x" {
		t.Fatalf("plain fields pass through, got %v", v)
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	cases := map[string]any{
		"":           math.NaN(),
		"12.5":       12.5,
		"1939-05-27": time.Date(1939, 5, 27, 10, 0, 0, 0, time.UTC),
		"batman":     "batman",
	}
	for want, in := range cases {
		if got := FormatValue(in); got != want {
			t.Fatalf("FormatValue(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslatorLanguage(t *testing.T) {
	SetLanguage("ja")
	defer SetLanguage("en")

	if got := T(CodeRequired, nil); got != "必須項目です" {
		t.Fatalf("unexpected ja message %q", got)
	}
	SetLanguage("en")
	if got := T(CodeMin, map[string]any{"min": 3}); got != "must be at least 3" {
		t.Fatalf("unexpected en message %q", got)
	}
}
