package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"campaign/internal/platform/config"
	"campaign/internal/platform/httpserver"
	"campaign/internal/platform/logger"
	"campaign/internal/platform/metrics"
)

// main wires the stores, services and background loops and serves HTTP until
// SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	conns, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.close(context.WithoutCancel(ctx))

	reg := metrics.New()
	services, err := buildApp(cfg, conns, reg, log)
	if err != nil {
		return err
	}
	defer services.close()

	srv := httpserver.New(cfg.Server.Addr, newRouter(cfg, services, conns, reg, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownGrace, log)
	})
	g.Go(func() error {
		return services.scheduler.Run(gctx)
	})
	if services.janitor != nil {
		g.Go(func() error {
			return services.janitor.Run(gctx)
		})
	}

	log.Info("campaign server started",
		"env", cfg.Server.Environment,
		"postgres", conns.db != nil,
		"redis", conns.redis != nil,
		"cache_provider", cfg.Cache.Provider,
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return g.Wait()
}
