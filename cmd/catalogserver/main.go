package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openlobby/openlobby/internal/catalog"
	"github.com/openlobby/openlobby/internal/config"
)

const ConfigPath = "config/catalogserver.yaml"

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
	if p := os.Getenv("OPENLOBBY_CATALOG_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadCatalog(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	slog.Info("catalog store starting", "bind", cfg.BindAddress, "port", cfg.Port, "data_dir", cfg.DataDir)

	store, err := catalog.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	srv := catalog.NewServer(cfg, store)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("catalog server: %w", err)
	}
	return nil
}
