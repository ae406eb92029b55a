package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/config"
)

const maxErrorBody = 2 << 10

// DeltaFunc receives one incremental text fragment. Returning an error stops
// the backend stream and Generate returns that error.
type DeltaFunc func(delta string) error

// SkipFunc is told about backend fragments that could not be parsed and were
// dropped.
type SkipFunc func(err error)

// Backend generates a streamed answer for a prompt. Generate blocks until the
// backend signals end of stream, ctx is cancelled, or an error occurs. A nil
// return means the stream ended normally.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt, emit DeltaFunc) error
}

// StatusError reports a non-success HTTP status from a model backend before
// any delta was produced.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if body == "" {
		body = "no body"
	}
	return fmt.Sprintf("%s error (%d): %s", e.Backend, e.StatusCode, body)
}

func newStatusError(backend string, resp *http.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Backend:    backend,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}

// Options carries collaborators shared by the HTTP adapters.
type Options struct {
	Client *http.Client
	OnSkip SkipFunc
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o Options) skip(err error) {
	if o.OnSkip != nil {
		o.OnSkip(err)
	}
}

// NewBackend builds the adapter selected by cfg.Backend.
func NewBackend(ctx context.Context, cfg config.AIConfig, opts Options) (Backend, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		return NewOllama(OllamaConfig{
			Host:        cfg.OllamaHost,
			Model:       cfg.OllamaModel,
			Temperature: cfg.Temperature,
			NumPredict:  maxTokensOr(cfg.MaxTokens, 220),
		}, opts), nil
	case config.BackendOpenAI:
		return NewOpenAI(OpenAIConfig{
			BaseURL:     cfg.OpenAIBaseURL,
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			MaxTokens:   maxTokensOr(cfg.MaxTokens, 400),
		}, opts), nil
	case config.BackendArk:
		return NewArk(ctx, cfg)
	case config.BackendMock:
		return NewMock(0), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func maxTokensOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}
