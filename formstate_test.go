package formstate

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/schema"
)

const signupYAML = `
name: signup
title: Sign up
defaults:
  nickname: Alfred
fields:
  - path: nickname
    label: Nickname
    required: {}
`

func TestRenderHTML(t *testing.T) {
	fsys := fstest.MapFS{"forms/signup.yaml": {Data: []byte(signupYAML)}}
	page, err := RenderHTML(context.Background(), schema.SourceFromFS(fsys, "forms/signup.yaml"), "", schema.NewRegistry())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{"Sign up", "Nickname", `value="Alfred"`} {
		if !strings.Contains(string(page), want) {
			t.Fatalf("page misses %q:\n%s", want, page)
		}
	}
}

func TestBindRejectsMissingSource(t *testing.T) {
	fsys := fstest.MapFS{}
	if _, err := Bind(context.Background(), schema.SourceFromFS(fsys, "nope.yaml"), "", schema.NewRegistry()); err == nil {
		t.Fatalf("expected an error for a missing definition")
	}
}

func TestNewYouTubeForm(t *testing.T) {
	f, err := NewYouTubeForm(lookup.Func(func(context.Context, string) (bool, error) { return false, nil }))
	if err != nil {
		t.Fatalf("NewYouTubeForm: %v", err)
	}
	if got := f.Controller().GetValues("username")["username"]; got != "Batman" {
		t.Fatalf("unexpected default username %v", got)
	}
}
