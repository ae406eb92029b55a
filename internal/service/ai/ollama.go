package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zhouzirui/anatomy-explorer/backend/pkg/lineframe"
)

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	Host        string
	Model       string
	Temperature float64
	NumPredict  int
}

// Ollama streams /api/generate, which answers with one JSON object per line.
type Ollama struct {
	cfg  OllamaConfig
	opts Options
}

func NewOllama(cfg OllamaConfig, opts Options) *Ollama {
	return &Ollama{cfg: cfg, opts: opts}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaStreamResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, prompt Prompt, emit DeltaFunc) error {
	body, err := json.Marshal(ollamaRequest{
		Model:  o.cfg.Model,
		Prompt: prompt.User,
		System: prompt.System,
		Stream: true,
		Options: ollamaOptions{
			Temperature: o.cfg.Temperature,
			NumPredict:  o.cfg.NumPredict,
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.opts.client().Do(req)
	if err != nil {
		return fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(o.Name(), resp)
	}

	for line, err := range lineframe.Lines(resp.Body) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("read ollama stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var chunk ollamaStreamResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			slog.Debug("skipping unparsable ollama fragment", "err", err)
			o.opts.skip(err)
			continue
		}
		if chunk.Error != "" {
			return errors.New(chunk.Error)
		}
		if chunk.Response != "" {
			if err := emit(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	return nil
}
