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
	"github.com/openlobby/openlobby/internal/lobby"
)

const ConfigPath = "config/lobbyserver.yaml"

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
	if p := os.Getenv("OPENLOBBY_LOBBY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLobby(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	slog.Info("lobby server starting",
		"bind", cfg.BindAddress, "port", cfg.Port,
		"advertise_host", cfg.AdvertiseHost,
		"game_ports", fmt.Sprintf("%d-%d", cfg.GamePortMin, cfg.GamePortMax),
		"upload_dir", cfg.UploadDir)

	repo := db.NewCatalogRepository(catalog.NewClient(cfg.CatalogHost, cfg.CatalogPort))

	srv, err := lobby.NewServer(cfg, repo)
	if err != nil {
		return fmt.Errorf("creating lobby: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("lobby server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
