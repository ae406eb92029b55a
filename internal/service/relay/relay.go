// Package relay forwards a model backend's deltas to one client stream.
//
// Every stream that starts ends in exactly one Done call unless the client
// went away first; backend failures become a single in-band error event.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/metrics"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/ai"
)

// ErrMissingFields is returned by Validate when organ or question is blank.
var ErrMissingFields = errors.New("Missing organ or question")

// Sink is the client half of a stream. A non-nil error from any method means
// the client is gone and nothing more should be written.
type Sink interface {
	Text(delta string) error
	Error(message string) error
	Done() error
}

// Relay binds a backend to client streams. It holds no per-stream state and
// is safe for concurrent use.
type Relay struct {
	backend ai.Backend
	metrics *metrics.Metrics
}

// New creates a Relay. m may be nil.
func New(backend ai.Backend, m *metrics.Metrics) *Relay {
	return &Relay{backend: backend, metrics: m}
}

// Backend returns the name of the configured backend.
func (r *Relay) Backend() string {
	return r.backend.Name()
}

// Validate trims the organ name and rejects the request if either field is
// blank. The question is kept verbatim.
func Validate(req chat.Request) (chat.Request, error) {
	req.Organ = strings.TrimSpace(req.Organ)
	if req.Organ == "" || strings.TrimSpace(req.Question) == "" {
		return req, ErrMissingFields
	}
	return req, nil
}

// Rejected records a request refused before a stream was opened.
func (r *Relay) Rejected() {
	r.metrics.StreamRejected(r.backend.Name())
}

// Session correlates one client stream with one backend request.
type Session struct {
	ID      string
	Request chat.Request

	relay *Relay
}

// Result summarises a finished session.
type Result struct {
	Outcome  string
	Deltas   int
	Duration time.Duration
	Err      error
}

// NewSession prepares a stream for a validated request.
func (r *Relay) NewSession(req chat.Request) *Session {
	return &Session{ID: uuid.NewString(), Request: req, relay: r}
}

// Run drives the backend and writes its output to sink. Cancelling ctx (the
// client disconnecting) cancels the backend request and suppresses all
// further writes.
func (s *Session) Run(ctx context.Context, sink Sink) (res Result) {
	r := s.relay
	start := time.Now()
	log := slog.With("stream", s.ID, "organ", s.Request.Organ, "backend", r.backend.Name())

	r.metrics.StreamStarted()
	res = Result{Outcome: metrics.OutcomeCompleted}
	defer func() {
		res.Duration = time.Since(start)
		r.metrics.StreamFinished(r.backend.Name(), res.Outcome, res.Duration.Seconds())
	}()

	var sinkErr error
	emit := func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Text(delta); err != nil {
			sinkErr = err
			return err
		}
		res.Deltas++
		r.metrics.DeltaForwarded()
		return nil
	}

	prompt := ai.BuildPrompt(s.Request.Organ, s.Request.Question)
	err := s.generate(ctx, prompt, emit)

	if ctx.Err() != nil || sinkErr != nil {
		res.Outcome = metrics.OutcomeDisconnected
		log.Debug("client disconnected", "deltas", res.Deltas)
		return res
	}

	if err != nil {
		res.Outcome = metrics.OutcomeBackendError
		res.Err = err
		log.Warn("backend stream failed", "err", err, "deltas", res.Deltas)
		if werr := sink.Error(errorMessage(err)); werr != nil {
			res.Outcome = metrics.OutcomeDisconnected
			return res
		}
	}

	if werr := sink.Done(); werr != nil {
		res.Outcome = metrics.OutcomeDisconnected
		return res
	}
	log.Info("stream finished", "outcome", res.Outcome, "deltas", res.Deltas, "duration", time.Since(start))
	return res
}

func (s *Session) generate(ctx context.Context, prompt ai.Prompt, emit ai.DeltaFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while streaming: %v", p)
		}
	}()
	return s.relay.backend.Generate(ctx, prompt, emit)
}

func errorMessage(err error) string {
	var statusErr *ai.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return "AI error: " + err.Error()
}
