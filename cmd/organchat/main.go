package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/chatclient"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/config"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/logger"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/synth"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	server := flag.String("server", cfg.ServerURL, "chat relay base URL")
	flag.Parse()

	logger.Init(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := chatclient.New(*server, nil)
	organs, err := loadOrgans(ctx, client, cfg.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "organ catalog: %v\n", err)
		os.Exit(1)
	}

	sounds := synth.New(cfg.Sound.SampleRate, synth.NewOutput(cfg.Sound.Player), nil)

	p := tea.NewProgram(tui.NewModel(ctx, organs, client, sounds), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadOrgans prefers the relay's catalog and falls back to the local one
// when the relay is not reachable yet.
func loadOrgans(ctx context.Context, client *chatclient.Client, cfg config.CatalogConfig) ([]organ.Record, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	records, err := client.Organs(fetchCtx)
	if err == nil && len(records) > 0 {
		return records, nil
	}
	slog.Warn("using local organ catalog", "err", err)

	var catalog *organ.Catalog
	if cfg.File != "" {
		catalog, err = organ.LoadFile(cfg.File)
	} else {
		catalog, err = organ.Default()
	}
	if err != nil {
		return nil, err
	}
	return catalog.List(), nil
}
