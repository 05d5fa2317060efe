package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"depthsim/internal/api/rest"
	"depthsim/internal/config"
	"depthsim/internal/feed"
	"depthsim/internal/infra/health"
	"depthsim/internal/infra/http/middleware"
	"depthsim/internal/infra/log"
	"depthsim/internal/infra/metrics"
	"depthsim/internal/infra/netutil"
	"depthsim/internal/infra/runner"
	"depthsim/internal/infra/version"
	"depthsim/internal/orderbook"
	"depthsim/internal/venue"
	"depthsim/internal/venue/bybit"
	"depthsim/internal/venue/deribit"
	"depthsim/internal/venue/okx"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	registry := metrics.Init(logger)

	book := orderbook.NewBook(cfg.Feed.Venue, cfg.Feed.Symbol)
	adapters := map[venue.Venue]venue.Adapter{
		venue.OKX:     okx.New(cfg, logger),
		venue.Bybit:   bybit.New(cfg, logger),
		venue.Deribit: deribit.New(cfg, logger),
	}
	manager, err := feed.New(cfg, book, adapters, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("feed init failed")
	}

	mux := http.NewServeMux()
	// admin endpoints (metrics, pprof) behind IP allowlist gate
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	mux.Handle("/", rest.New(cfg, book, manager, logger).Handler())
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	// wrap mux with middlewares (request id and logging)
	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().Str("venue", cfg.Feed.Venue).Str("symbol", cfg.Feed.Symbol).Str("addr", cfg.Server.Addr).Msg("depthsim started")

	g := &runner.Group{}
	workerErrCh := g.Go(ctx, manager.Run)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-workerErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("feed worker error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	cancel()
	g.Wait()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
