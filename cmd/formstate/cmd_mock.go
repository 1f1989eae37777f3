package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/internal/mocklookup"
)

func newMockLookupCmd(a *app) *cobra.Command {
	var (
		addr  string
		delay time.Duration
		fail  int
	)
	cmd := &cobra.Command{
		Use:   "mock-lookup",
		Short: "Serve a local user directory for the e-mail check",
		Long: `Serve GET /users?email=<address> from an in-memory directory. Point the
form at it with --lookup-url http://<addr>/users. --delay slows every answer
down and --fail answers every query with the given status code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.MockAddr
			}
			opts := []mocklookup.Option{mocklookup.WithLogger(a.logger.Named("mock"))}
			if delay > 0 {
				opts = append(opts, mocklookup.WithDelay(delay))
			}
			if fail != 0 {
				opts = append(opts, mocklookup.WithFailure(fail))
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Directory listening on http://%s/users\n", ln.Addr())
			return serve(cmd.Context(), ln, mocklookup.New(opts...).Handler(), a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from FORMSTATE_MOCK_ADDR)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "delay every answer")
	cmd.Flags().IntVar(&fail, "fail", 0, "answer every query with this status code")
	return cmd
}

// serve runs handler on ln until ctx is done.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down directory")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
