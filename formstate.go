// Package formstate is the convenience entry point of the module. It loads
// form definitions, binds them to a controller and renders the result.
package formstate

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/render/html"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/youtube"
)

// Controller aliases form.Controller.
type Controller = form.Controller

// Definition aliases schema.Definition.
type Definition = schema.Definition

// Source aliases schema.Source so callers can build sources from the root
// package.
type Source = schema.Source

// NewLoader constructs a definition loader.
func NewLoader(options ...schema.LoaderOption) *schema.Loader {
	return schema.NewLoader(options...)
}

// NewYouTubeForm builds the YouTube sign-up form. l answers the e-mail
// availability check.
func NewYouTubeForm(l lookup.EmailLookup, options ...youtube.Option) (*youtube.Form, error) {
	return youtube.New(l, options...)
}

// Bind loads the definition at src, resolving OpenAPI documents through
// component, and binds it to a new controller.
func Bind(ctx context.Context, src Source, component string, reg *schema.Registry, options ...form.Option) (*schema.Bound, error) {
	def, err := schema.NewLoader().Definition(ctx, src, component)
	if err != nil {
		return nil, err
	}
	return def.NewController(reg, options...)
}

// RenderHTML loads and binds the definition at src and renders its pristine
// state as an HTML document.
func RenderHTML(ctx context.Context, src Source, component string, reg *schema.Registry, options ...html.Option) ([]byte, error) {
	bound, err := Bind(ctx, src, component, reg)
	if err != nil {
		return nil, err
	}
	renderer, err := html.New(options...)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, bound)
}
