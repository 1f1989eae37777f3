package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/render/html"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/youtube"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		variant  string
		output   string
		tplPath  string
		sets     []string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the form as themed HTML",
		Long: `Render the YouTube form, or the form described by --definition, as an
HTML document. --set assigns values before rendering and --validate runs
every rule so errors show up in the output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if variant == "" {
				variant = a.cfg.ThemeVariant
			}

			bound, err := a.boundForm(ctx)
			if err != nil {
				return err
			}
			if err := applySets(ctx, bound.Controller, sets); err != nil {
				return err
			}
			if validate {
				ok, err := bound.Controller.Trigger(ctx)
				if err != nil {
					return err
				}
				a.logger.Debug("validated", zap.Bool("valid", ok))
			}

			opts := []html.Option{
				html.WithTheme(html.ThemeFromManifest(html.DefaultManifest(), variant)),
				html.WithLogger(a.logger.Named("html")),
			}
			if tplPath != "" {
				data, err := os.ReadFile(tplPath)
				if err != nil {
					return fmt.Errorf("read template: %w", err)
				}
				opts = append(opts, html.WithTemplate(string(data)))
			}
			renderer, err := html.New(opts...)
			if err != nil {
				return err
			}
			page, err := renderer.Render(ctx, bound)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(page)
				return err
			}
			if err := os.WriteFile(output, page, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Form written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "theme-variant", "", "theme variant (default from FORMSTATE_THEME_VARIANT)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&tplPath, "template", "", "pongo2 template file replacing the built-in one")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "path=value assignment applied before rendering")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate before rendering")
	return cmd
}

// offlineLookup treats every address as available so rendering never reaches
// the directory.
var offlineLookup = lookup.Func(func(context.Context, string) (bool, error) { return false, nil })

// boundForm binds --definition when set, the YouTube form otherwise.
func (a *app) boundForm(ctx context.Context) (*schema.Bound, error) {
	def, err := a.loadDefinition(ctx)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return def.NewController(youtube.Registry(offlineLookup), form.WithLogger(a.logger.Named("form")))
	}
	f, err := youtube.New(offlineLookup, youtube.WithLogger(a.logger.Named("form")))
	if err != nil {
		return nil, err
	}
	return f.Bound(), nil
}

func applySets(ctx context.Context, ctrl *form.Controller, sets []string) error {
	for _, set := range sets {
		path, value, ok := strings.Cut(set, "=")
		if !ok || strings.TrimSpace(path) == "" {
			return fmt.Errorf("--set %q: expected path=value", set)
		}
		err := ctrl.SetValue(ctx, strings.TrimSpace(path), value, form.SetOptions{ShouldDirty: true, ShouldTouch: true})
		if err != nil {
			return fmt.Errorf("--set %s: %w", path, err)
		}
	}
	return nil
}
