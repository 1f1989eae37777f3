// Command formstate drives the demo YouTube form from a terminal, renders it
// as HTML, inspects form definitions and serves a local user directory for
// the e-mail availability check.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// app carries the state shared by every subcommand once the persistent
// flags are resolved.
type app struct {
	envFiles      []string
	logLevel      string
	verbose       bool
	jsonLogs      bool
	lookupURL     string
	lookupTimeout time.Duration
	format        string
	definition    string
	component     string

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "formstate",
		Short: "Drive, render and inspect declarative forms",
		Long: `formstate runs the YouTube sign-up form against a live or local user
directory.

Available subcommands:
  run          - fill in and submit the form interactively
  render       - render the form as themed HTML
  schema       - load, validate and print a form definition
  mock-lookup  - serve a local user directory for the e-mail check`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.jsonLogs, "json-logs", false, "write logs as JSON")
	flags.StringVar(&a.lookupURL, "lookup-url", "", "user directory queried by the e-mail check")
	flags.DurationVar(&a.lookupTimeout, "lookup-timeout", 0, "timeout of one directory query")
	flags.StringVar(&a.format, "format", "", "values output format (pretty, json, form)")
	flags.StringVar(&a.definition, "definition", "", "form definition file or URL (YAML or OpenAPI)")
	flags.StringVar(&a.component, "component", "", "OpenAPI component schema to use")

	root.AddCommand(
		newRunCmd(a),
		newRenderCmd(a),
		newSchemaCmd(a),
		newMockLookupCmd(a),
	)
	return root
}

// setup merges the environment configuration with the flags and builds the
// logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.lookupURL != "" {
		cfg.LookupURL = a.lookupURL
	}
	if a.lookupTimeout > 0 {
		cfg.LookupTimeout = a.lookupTimeout
	}
	if a.format != "" {
		cfg.Format = a.format
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := logging.New(logging.Options{
			Level:   cfg.LogLevel,
			Verbose: a.verbose,
			JSON:    a.jsonLogs,
		})
		if err != nil {
			return err
		}
		a.logger = logger
	}
	a.logger.Debug("configuration",
		zap.String("command", cmd.Name()),
		zap.String("lookup_url", cfg.LookupURL),
		zap.Duration("lookup_timeout", cfg.LookupTimeout),
		zap.String("format", cfg.Format),
	)
	return nil
}

func (a *app) lookupClient() (*lookup.HTTPClient, error) {
	return lookup.NewHTTPClient(a.cfg.LookupURL,
		lookup.WithTimeout(a.cfg.LookupTimeout),
		lookup.WithLogger(a.logger.Named("lookup")),
	)
}

// loadDefinition reads --definition, or returns nil when it is unset.
func (a *app) loadDefinition(ctx context.Context) (*schema.Definition, error) {
	if a.definition == "" {
		return nil, nil
	}
	src := schema.SourceFromLocation(a.definition)
	loader := schema.NewLoader(
		schema.WithRequestTimeout(a.cfg.LookupTimeout*3),
		schema.WithLoaderLogger(a.logger.Named("schema")),
	)
	return loader.Definition(ctx, src, a.component)
}
