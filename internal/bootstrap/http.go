package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/agrilink/sessiongate/config"
	httpx "github.com/agrilink/sessiongate/internal/http"
)

// RunConfig groups parameters for Run.
type RunConfig struct {
	Config   *config.AppConfig
	Services *Container
	Logger   *slog.Logger
}

// Run starts the controller and the HTTP server and blocks until shutdown.
// SIGINT/SIGTERM trigger a graceful drain bounded by the configured grace
// window; the controller is torn down last so late continuations are dropped
// rather than applied.
func Run(ctx context.Context, cfg RunConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Services.Controller.Start(ctx)

	router := httpx.NewRouter(httpx.RouterServices{
		Provisioner: cfg.Services.Provisioner,
		Profiles:    cfg.Services.Profiles,
		Gateway:     cfg.Services.Gateway,
		Mapper:      cfg.Services.Mapper,
		Controller:  cfg.Services.Controller,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         cfg.Config.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Config.HTTP.ReadTimeout,
		WriteTimeout: cfg.Config.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Config.HTTP.ShutdownGrace)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		cfg.Services.Controller.Close()
		if cerr := cfg.Services.Statsd.Close(); cerr != nil {
			logger.Warn("close statsd client failed", "error", cerr)
		}
		return err
	})

	return g.Wait()
}
