package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/colsephiroth/storyreel/server"
)

func newMockCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Local stand-in for the generation backend",
	}
	cmd.AddCommand(newMockServeCommand(ctx))
	return cmd
}

func newMockServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mock backend until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Mock.Bind
			}

			ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
			gen := server.NewMockGenerator(
				server.WithDelay(ms(cfg.Mock.MinDelayMS), ms(cfg.Mock.DelaySpreadMS)),
				server.WithFailureRate(cfg.Mock.FailureRate),
			)
			backend := server.NewBackend(
				server.WithGenerator(gen),
				server.WithURLLag(ms(cfg.Mock.URLLagMS)),
				server.WithAuthorization(cfg.Mock.Token),
				server.WithPublicURL(cfg.Mock.PublicURL),
				server.WithLogger(ctx.logger.With().Str("component", "mock").Logger()),
			)
			defer backend.Close()

			listener, err := net.Listen("tcp", bind)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", bind, err)
			}
			srv := &http.Server{
				Handler:           backend.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(listener) }()
			ctx.logger.Info().Str("bind", listener.Addr().String()).Msg("mock backend listening")
			fmt.Fprintf(cmd.OutOrStdout(), "Mock backend listening on http://%s/\n", listener.Addr())

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-signalCtx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown mock backend: %w", err)
			}
			ctx.logger.Info().Msg("mock backend stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Address to listen on (defaults to mock.bind)")
	return cmd
}
