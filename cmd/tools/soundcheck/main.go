package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/config"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/logger"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/synth"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadTool()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)
	if envErr != nil {
		slog.Debug("no .env file loaded, using process environment only", "err", envErr)
	}

	outDir := flag.String("out", "sounds", "directory for <kind>.wav files")
	play := flag.Bool("play", false, "play through SOUND_PLAYER instead of writing files")
	only := flag.String("kind", "", "render a single sound kind (default: all)")
	rate := flag.Int("rate", cfg.Sound.SampleRate, "sample rate in Hz")
	flag.Parse()

	kinds := organ.SoundKinds()
	if *only != "" {
		kind := organ.SoundKind(*only)
		if !kind.Valid() {
			slog.Error("unknown sound kind", "kind", *only, "want", kinds)
			os.Exit(2)
		}
		kinds = []organ.SoundKind{kind}
	}

	var output synth.SoundOutput = synth.DirOutput{Dir: *outDir}
	if *play {
		if cfg.Sound.Player == "" {
			slog.Error("-play needs SOUND_PLAYER, e.g. SOUND_PLAYER=\"aplay -q\"")
			os.Exit(2)
		}
		output, err = synth.NewExecOutput(cfg.Sound.Player)
		if err != nil {
			slog.Error("sound player unavailable", "err", err, "player", cfg.Sound.Player)
			os.Exit(1)
		}
	}

	s := synth.New(*rate, output, nil)
	for _, kind := range kinds {
		clip, err := s.Render(kind)
		if err != nil {
			slog.Error("render failed", "kind", kind, "err", err)
			os.Exit(1)
		}
		slog.Info("clip rendered", "kind", kind, "samples", len(clip.Samples), "duration", clip.Duration())

		// one clip at a time
		<-s.PlayClip(clip)
	}

	if !*play {
		abs, _ := filepath.Abs(*outDir)
		slog.Info("clips written", "count", len(kinds), "dir", abs)
	}
}
