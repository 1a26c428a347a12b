package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggonzalez94/swapsage/internal/api"
	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

const shutdownTimeout = 10 * time.Second

func (s *runtimeState) newServeCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := s.settings.ListenAddr
			if listen != "" {
				addr = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default :8000)")
	return cmd
}

// serve blocks until ctx is done, then drains in-flight requests.
func (s *runtimeState) serve(ctx context.Context, addr string) error {
	handler := api.NewServer(api.Deps{
		Quotes:         s.services.quotes,
		Registry:       s.services.registry,
		Intents:        s.services.intents,
		Recorder:       s.services.recorder,
		Health:         s.store,
		DefaultChainID: s.settings.ChainID,
		MetricsEnabled: s.settings.MetricsEnabled,
	}).Handler()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api listening",
			zap.String("addr", addr),
			zap.Int64("default_chain_id", s.settings.ChainID),
			zap.Bool("upstream_key", s.services.upstream.HasKey()),
			zap.Duration("quote_ttl", s.settings.QuoteTTL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return apperr.Wrap(apperr.CodeInternal, "listen", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "shutdown", err)
	}
	return nil
}
