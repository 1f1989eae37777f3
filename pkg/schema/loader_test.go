package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLoaderSources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(file, []byte(profileYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fsys := fstest.MapFS{
		"forms/profile.yaml": {Data: []byte(profileYAML)},
		"forms/openapi.yaml": {Data: []byte(profileOpenAPI)},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(profileYAML))
	}))
	defer srv.Close()

	loader := NewLoader(WithFileSystem(fsys), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	tests := []struct {
		name   string
		src    Source
		format Format
		want   string
	}{
		{"file", SourceFromFile(file), FormatDefinition, "profile"},
		{"fs", SourceFromFS(nil, "forms/profile.yaml"), FormatDefinition, "profile"},
		{"explicit fs", SourceFromFS(fsys, "forms/openapi.yaml"), FormatOpenAPI, "Profile"},
		{"url", SourceFromURL(srv.URL + "/profile.yaml"), FormatDefinition, "profile"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := loader.Load(ctx, tc.src)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if doc.Format() != tc.format {
				t.Fatalf("format = %s, want %s", doc.Format(), tc.format)
			}
			def, err := Decode(ctx, doc, "")
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if def.Name != tc.want {
				t.Fatalf("name = %q, want %q", def.Name, tc.want)
			}
		})
	}
}

func TestLoaderFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	loader := NewLoader(WithHTTPClient(srv.Client()))
	ctx := context.Background()

	for name, src := range map[string]Source{
		"missing file": SourceFromFile(filepath.Join(t.TempDir(), "none.yaml")),
		"no fs":        SourceFromFS(nil, "x.yaml"),
		"status":       SourceFromURL(srv.URL + "/x.yaml"),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := loader.Load(ctx, src); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := loader.Load(ctx, nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}

func TestParseURLSource(t *testing.T) {
	if _, err := ParseURLSource("ftp://example.com/x"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := ParseURLSource(""); err == nil {
		t.Fatalf("expected empty error")
	}
	if SourceFromLocation("https://example.com/f.yaml").Kind() != SourceKindURL {
		t.Fatalf("expected url source")
	}
	if SourceFromLocation("forms/f.yaml").Kind() != SourceKindFile {
		t.Fatalf("expected file source")
	}
}

func TestDocument(t *testing.T) {
	if _, err := NewDocument(SourceFromFile("x"), []byte("  \n")); err == nil {
		t.Fatalf("expected empty document error")
	}
	raw := []byte("name: x\nfields: []\n")
	doc := MustNewDocument(SourceFromFile("x.yaml"), raw)
	raw[0] = 'N'
	if doc.Raw()[0] != 'n' {
		t.Fatalf("document must own its payload")
	}
	if doc.Location() != "x.yaml" {
		t.Fatalf("unexpected location %q", doc.Location())
	}
}
