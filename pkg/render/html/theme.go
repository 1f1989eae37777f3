package html

import (
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultManifest is the built-in theme with light and dark variants.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "formstate",
		Version: "1.0.0",
		Tokens: map[string]string{
			"background": "#ffffff",
			"foreground": "#1f2328",
			"error":      "#cf222e",
			"accent":     "#0969da",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"background": "#0d1117",
					"foreground": "#e6edf3",
					"error":      "#f85149",
					"accent":     "#2f81f7",
				},
			},
		},
	}
}

// ThemeFromManifest resolves the tokens of variant over the base tokens of m
// and derives one CSS variable per token. An unknown variant yields the base
// tokens.
func ThemeFromManifest(m *theme.Manifest, variant string) *theme.RendererConfig {
	if m == nil {
		return nil
	}
	tokens := make(map[string]string, len(m.Tokens))
	for k, v := range m.Tokens {
		tokens[k] = v
	}
	files := make(map[string]string, len(m.Assets.Files))
	for k, v := range m.Assets.Files {
		files[k] = v
	}
	prefix := m.Assets.Prefix
	if v, ok := m.Variants[variant]; ok {
		for k, val := range v.Tokens {
			tokens[k] = val
		}
		for k, val := range v.Assets.Files {
			files[k] = val
		}
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
	} else {
		variant = ""
	}

	vars := make(map[string]string, len(tokens))
	for k, v := range tokens {
		vars["--"+k] = v
	}
	return &theme.RendererConfig{
		Theme:   m.Name,
		Variant: variant,
		Tokens:  tokens,
		CSSVars: vars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			if prefix == "" {
				return file
			}
			return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
		},
	}
}

type themeView struct {
	Name       string
	Variant    string
	Style      string
	Stylesheet string
}

func buildThemeView(cfg *theme.RendererConfig) themeView {
	if cfg == nil {
		return themeView{}
	}
	view := themeView{Name: cfg.Theme, Variant: cfg.Variant, Style: cssVarsStyle(cfg.CSSVars)}
	if cfg.AssetURL != nil {
		view.Stylesheet = cfg.AssetURL("stylesheet")
	}
	return view
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key]+";")
	}
	return strings.Join(parts, " ")
}
