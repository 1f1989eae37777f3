package predicate

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompileCollectsDeps(t *testing.T) {
	t.Parallel()

	p, err := Compile(`(channel == "" || !social.twitter) && age != 0 && channel`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	want := []string{"age", "channel", "social.twitter"}
	if diff := cmp.Diff(want, p.Deps()); diff != "" {
		t.Fatalf("deps mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalComparisons(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"channel": "",
		"age":     float64(30),
		"social":  map[string]any{"twitter": "@batman"},
		"flag":    "false",
		"phNumbers": []any{
			map[string]any{"number": "555"},
		},
	}

	cases := []struct {
		expr string
		want bool
	}{
		{`channel == ""`, true},
		{`channel`, false},
		{`!channel`, true},
		{`age == 30`, true},
		{`age != 30`, false},
		{`social.twitter == "@batman"`, true},
		{`social.twitter == '@batman'`, true},
		{`social.facebook == null`, true},
		{`flag == false`, true},
		{`phNumbers.0.number == 555`, true},
		{`phNumbers.1.number == null`, true},
		{`channel == "" && age == 30`, true},
		{`channel != "" || age == 31`, false},
		{`!(channel != "" || age == 31)`, true},
		{``, false},
	}

	for _, tc := range cases {
		p, err := Compile(tc.expr)
		if err != nil {
			t.Fatalf("Compile(%q) returned error: %v", tc.expr, err)
		}
		got, err := p.Eval(values)
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvalNaNIsNull(t *testing.T) {
	t.Parallel()

	p := MustCompile("age == null")
	ok, err := p.Eval(map[string]any{"age": math.NaN()})
	if err != nil || !ok {
		t.Fatalf("expected NaN to compare equal to null, got %v, %v", ok, err)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"a = 1", "a & b", "(a", `a == "x`, "a ==", "&& a"} {
		if _, err := Compile(expr); !errors.Is(err, ErrSyntax) {
			t.Fatalf("Compile(%q): expected ErrSyntax, got %v", expr, err)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	values := map[string]any{"phoneNumber": []any{"1", "2"}}
	if v, ok := Lookup(values, "phoneNumber.1"); !ok || v != "2" {
		t.Fatalf("unexpected lookup result %v %v", v, ok)
	}
	if _, ok := Lookup(values, "phoneNumber.2"); ok {
		t.Fatalf("expected out of range lookup to miss")
	}
}
