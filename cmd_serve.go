package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/httpapi"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			srv := &http.Server{
				Addr: addr,
				Handler: httpapi.NewHandler(httpapi.Config{
					Sessions:     a.sessions,
					Conversation: a.orchestrator,
					Tools:        a.schemas,
					Metrics:      promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{Registry: a.metrics}),
					Timeout:      a.cfg.RequestTimeout,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go a.sessions.Run(ctx, a.cfg.SweepInterval)

			serverErrors := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Bool("assistant", a.orchestrator.Ready()).Msg("http server listening")
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				log.Info().Msg("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown did not complete")
				return srv.Close()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from HTTP_ADDR)")
	return cmd
}
