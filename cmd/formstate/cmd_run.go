package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/lookup"
	"github.com/goliatone/go-formstate/pkg/prompt"
	"github.com/goliatone/go-formstate/pkg/render/text"
	"github.com/goliatone/go-formstate/pkg/youtube"
)

func newRunCmd(a *app) *cobra.Command {
	var watch bool
	var mode string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill in and submit the YouTube form interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.lookupClient()
			if err != nil {
				return err
			}
			return a.runSession(cmd.Context(), cmd.OutOrStdout(), client, nil, runOptions{watch: watch, mode: mode})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "print every value change")
	cmd.Flags().StringVar(&mode, "mode", "", "override the validation mode (onSubmit, onBlur, onChange, onTouched, all)")
	return cmd
}

type runOptions struct {
	watch bool
	mode  string
}

// runSession builds the form and hands it to a prompt session. driver may be
// nil to use the terminal.
func (a *app) runSession(ctx context.Context, out io.Writer, l lookup.EmailLookup, driver prompt.PromptDriver, opts runOptions) error {
	format, err := text.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	var formOpts []form.Option
	if opts.mode != "" {
		mode, err := form.ParseMode(opts.mode)
		if err != nil {
			return err
		}
		formOpts = append(formOpts, form.WithMode(mode))
	}

	f, err := youtube.New(l,
		youtube.WithLogger(a.logger.Named("form")),
		youtube.WithFormOptions(formOpts...),
		youtube.WithSubmitHandler(func(_ context.Context, values youtube.Values) error {
			_, err := fmt.Fprintf(out, "Submitted %s <%s>\n", values.Username, values.Email)
			return err
		}),
	)
	if err != nil {
		return err
	}

	if opts.watch {
		sub := text.Stream(f.Controller(), out, format, a.logger)
		defer sub.Unsubscribe()
	}

	if driver == nil {
		driver = prompt.NewSurveyDriver(out)
	}
	session := prompt.NewSession(f,
		prompt.WithPromptDriver(driver),
		prompt.WithOutputFormat(format),
		prompt.WithLogger(a.logger.Named("prompt")),
	)
	err = session.Run(ctx)

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.LookupTimeout)
	defer cancel()
	if settleErr := f.Controller().Settle(settleCtx); settleErr != nil {
		a.logger.Warn("pending validations not settled", zap.Error(settleErr))
	}
	if errors.Is(err, prompt.ErrAborted) {
		a.logger.Info("session aborted")
		return nil
	}
	return err
}
