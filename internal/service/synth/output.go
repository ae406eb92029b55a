package synth

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mattn/go-shellwords"
)

// SoundOutput is the host audio capability a rendered clip is handed to.
// Play should return once the clip has finished or ctx is done.
type SoundOutput interface {
	Name() string
	Play(ctx context.Context, clip Clip) error
}

// NopOutput discards clips. It stands in when no audio device is available.
type NopOutput struct{}

func (NopOutput) Name() string { return "none" }
func (NopOutput) Play(context.Context, Clip) error { return nil }

// ExecOutput writes each clip to a temporary WAV file and runs a player
// command with the file path appended as its last argument.
type ExecOutput struct {
	cmd []string
}

// NewExecOutput parses command with shell quoting rules, e.g. "aplay -q"
// or "ffplay -nodisp -autoexit -loglevel quiet".
func NewExecOutput(command string) (*ExecOutput, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse sound player command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("sound player command is empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("sound player %q: %w", args[0], err)
	}
	return &ExecOutput{cmd: args}, nil
}

func (e *ExecOutput) Name() string { return e.cmd[0] }

func (e *ExecOutput) Play(ctx context.Context, clip Clip) error {
	file, err := os.CreateTemp("", "organ_sound_*.wav")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())

	if err := EncodeWAV(file, clip); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	args := append(append([]string{}, e.cmd[1:]...), file.Name())
	command := exec.CommandContext(ctx, e.cmd[0], args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return fmt.Errorf("sound player failed: %w: %s", err, stderr.String())
	}
	return nil
}

// DirOutput saves every clip as <dir>/<kind>.wav instead of playing it.
type DirOutput struct {
	Dir string
}

func (d DirOutput) Name() string { return "dir:" + d.Dir }

func (d DirOutput) Play(_ context.Context, clip Clip) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(d.Dir, string(clip.Kind)+".wav")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeWAV(file, clip); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// NewOutput picks the player for command. An empty command, or one whose
// binary cannot be found, yields NopOutput so playback degrades silently.
func NewOutput(command string) SoundOutput {
	if command == "" {
		return NopOutput{}
	}
	out, err := NewExecOutput(command)
	if err != nil {
		slog.Warn("sound output unavailable, clips will be discarded", "error", err)
		return NopOutput{}
	}
	return out
}
