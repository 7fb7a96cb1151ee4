package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/openlobby/openlobby/internal/catalog"
	"github.com/openlobby/openlobby/internal/config"
	"github.com/openlobby/openlobby/internal/db"
	"github.com/openlobby/openlobby/internal/gateway"
)

const ConfigPath = "config/devgateway.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("OPENLOBBY_GATEWAY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGateway(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	slog.Info("developer gateway starting",
		"bind", cfg.BindAddress, "port", cfg.Port,
		"catalog", fmt.Sprintf("%s:%d", cfg.CatalogHost, cfg.CatalogPort),
		"upload_dir", cfg.UploadDir)

	repo := db.NewCatalogRepository(catalog.NewClient(cfg.CatalogHost, cfg.CatalogPort))

	srv, err := gateway.NewServer(cfg, repo)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("gateway server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
