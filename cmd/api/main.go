package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/config"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/handler"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/logger"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/metrics"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/ai"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/relay"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/synth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)
	if envErr != nil {
		slog.Info("no .env file loaded, using process environment only", "err", envErr)
	}

	catalog, err := loadCatalog(cfg.Catalog)
	if err != nil {
		slog.Error("failed to load organ catalog", "err", err, "file", cfg.Catalog.File)
		os.Exit(1)
	}
	slog.Info("organ catalog loaded", "organs", catalog.Len())

	m := metrics.New()

	backend, err := ai.NewBackend(ctx, cfg.AI, ai.Options{
		Client: &http.Client{Transport: http.DefaultTransport},
		OnSkip: func(error) { m.FragmentSkipped(cfg.AI.Backend) },
	})
	if err != nil {
		slog.Error("failed to initialize model backend", "err", err, "backend", cfg.AI.Backend)
		os.Exit(1)
	}
	slog.Info("model backend ready", "backend", backend.Name())

	// the server only renders clips for download; playback happens in the client
	sounds := synth.New(cfg.Sound.SampleRate, synth.NopOutput{}, m)

	router := handler.NewRouter(cfg.Server, handler.Deps{
		Organs:  catalog,
		Relay:   relay.New(backend, m),
		Sounds:  sounds,
		Metrics: m,
	})

	startServer(ctx, cfg.Server, router)
}

func loadCatalog(cfg config.CatalogConfig) (*organ.Catalog, error) {
	if cfg.File != "" {
		return organ.LoadFile(cfg.File)
	}
	return organ.Default()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("anatomy explorer backend listening", "addr", addr, "frontend_origin", serverCfg.FrontendOrigin)
	if err := runServer(ctx, srv); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
