package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/youtube"
)

func newSchemaCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema [source]",
		Short: "Load, validate and print a form definition",
		Long: `Load a form definition from a file or URL, validate it and print the
normalised definition. OpenAPI documents are converted using --component.
Without a source the --definition flag is used, and without either the
built-in YouTube form is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.definition = args[0]
			}
			def, err := a.loadDefinition(cmd.Context())
			if err != nil {
				return err
			}
			if def == nil {
				if def, err = youtube.Definition(); err != nil {
					return err
				}
			}
			// named checks must resolve against the checks this binary knows
			for _, f := range allFields(def) {
				if _, err := f.Rules(youtube.Registry(offlineLookup)); err != nil {
					return fmt.Errorf("%s: %w", f.Path, err)
				}
			}

			var out []byte
			if asJSON {
				out, err = json.MarshalIndent(def, "", "  ")
				out = append(out, '\n')
			} else {
				out, err = yaml.Marshal(def)
			}
			if err != nil {
				return fmt.Errorf("encode definition: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}

func allFields(def *schema.Definition) []schema.FieldDef {
	fields := append([]schema.FieldDef(nil), def.Fields...)
	for _, arr := range def.Arrays {
		fields = append(fields, arr.Item...)
	}
	return fields
}
