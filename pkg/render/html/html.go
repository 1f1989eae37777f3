// Package html renders a snapshot of a bound form as a static HTML page.
package html

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/validation"
)

//go:embed templates/form.html
var defaultTemplate string

// ContentType is the media type of rendered pages.
const ContentType = "text/html; charset=utf-8"

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// sanitizer strips every tag and escapes the remainder.
func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Renderer renders bound forms through a pongo2 template.
type Renderer struct {
	tpl    *pongo2.Template
	theme  *theme.RendererConfig
	logger *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer) error

// WithTemplate replaces the built-in page template.
func WithTemplate(source string) Option {
	return func(r *Renderer) error {
		tpl, err := pongo2.FromString(source)
		if err != nil {
			return fmt.Errorf("html: parse template: %w", err)
		}
		r.tpl = tpl
		return nil
	}
}

// WithTheme sets the resolved theme.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(r *Renderer) error {
		r.theme = cfg
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// New constructs a Renderer using the default template and theme.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		theme:  ThemeFromManifest(DefaultManifest(), ""),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.tpl == nil {
		tpl, err := pongo2.FromString(defaultTemplate)
		if err != nil {
			return nil, fmt.Errorf("html: parse default template: %w", err)
		}
		r.tpl = tpl
	}
	return r, nil
}

type fieldView struct {
	ID         string
	Name       string
	Label      string
	Type       string
	Value      string
	Error      string
	Disabled   bool
	Validating bool
}

type entryView struct {
	ID        string
	Index     int
	Removable bool
	Fields    []fieldView
}

type arrayView struct {
	Path    string
	Label   string
	Entries []entryView
}

// Render writes the current state of bound as an HTML page.
func (r *Renderer) Render(ctx context.Context, bound *schema.Bound) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bound == nil || bound.Definition == nil || bound.Controller == nil {
		return nil, fmt.Errorf("html: bound form is required")
	}
	def, ctrl := bound.Definition, bound.Controller
	state := ctrl.FormState()

	fields := make([]fieldView, 0, len(bound.Fields))
	for _, b := range bound.Fields {
		name := b.Name()
		fd, _ := def.Field(name)
		fields = append(fields, r.field(fd, b.Text(), b.State(), name, strings.ReplaceAll(name, ".", "-")))
	}

	arrays := make([]arrayView, 0, len(def.Arrays))
	for _, ad := range def.Arrays {
		fa := bound.Arrays[ad.Path]
		if fa == nil {
			continue
		}
		view := arrayView{Path: ad.Path, Label: r.clean(ad.Label)}
		for _, entry := range fa.Fields() {
			ev := entryView{ID: entry.ID, Index: entry.Index, Removable: entry.Index >= ad.Keep}
			for _, item := range ad.Item {
				name := fmt.Sprintf("%s.%d", ad.Path, entry.Index)
				if item.Path != "" {
					name += "." + item.Path
				}
				meta := ctrl.FieldState(name)
				value, _ := ctrl.GetValue(name)
				ev.Fields = append(ev.Fields, r.field(item, validation.FormatValue(value), meta, name, ""))
			}
			view.Entries = append(view.Entries, ev)
		}
		arrays = append(arrays, view)
	}

	title := def.Title
	if title == "" {
		title = def.Name
	}
	out, err := r.tpl.ExecuteBytes(pongo2.Context{
		"title":     r.clean(title),
		"name":      def.Name,
		"fields":    fields,
		"arrays":    arrays,
		"state":     state,
		"canSubmit": state.IsDirty && !state.IsSubmitting,
		"theme":     buildThemeView(r.theme),
	})
	if err != nil {
		return nil, fmt.Errorf("html: execute template: %w", err)
	}
	r.logger.Debug("form rendered", zap.String("form", def.Name), zap.Int("bytes", len(out)))
	return out, nil
}

func (r *Renderer) field(fd schema.FieldDef, value string, meta form.FieldMeta, name, id string) fieldView {
	view := fieldView{
		ID:         id,
		Name:       name,
		Label:      r.clean(fd.DisplayLabel()),
		Type:       fd.InputType(),
		Value:      r.clean(value),
		Disabled:   meta.Disabled,
		Validating: meta.Validating,
	}
	if view.Type == schema.TypeEmail {
		view.Type = schema.TypeText
	}
	if meta.Error != nil {
		view.Error = r.clean(meta.Error.Message)
	}
	return view
}

func (r *Renderer) clean(s string) string {
	return sanitizer().Sanitize(s)
}
