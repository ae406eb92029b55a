// Package synth renders the short procedural sound that belongs to each
// organ and hands it to a host audio output.
//
// Clips are rendered offline from small voice graphs (oscillator or noise
// source, biquad filter, automated gain) and mixed through a fixed master
// gain. Each Play is independent; nothing is shared between calls.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/metrics"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
)

// DefaultSampleRate is used when a Synthesizer is built with rate 0.
const DefaultSampleRate = 44100

// ErrUnknownKind is returned when no recipe exists for a sound kind.
var ErrUnknownKind = errors.New("unknown sound kind")

// Clip is rendered mono audio with samples in [-1, 1].
type Clip struct {
	Kind       organ.SoundKind
	SampleRate int
	Samples    []float32
}

// Duration is the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Render builds the clip for kind. The same seed always produces the same
// samples.
func Render(kind organ.SoundKind, sampleRate int, seed uint64) (Clip, error) {
	r, ok := recipes[kind]
	if !ok {
		return Clip{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return Clip{
		Kind:       kind,
		SampleRate: sampleRate,
		Samples:    mix(r.voices(sampleRate, rng), sampleRate, r.length, masterGain),
	}, nil
}

// Lifetime is how long a playback of kind may run before it is torn down.
func Lifetime(kind organ.SoundKind) (time.Duration, bool) {
	r, ok := recipes[kind]
	return r.lifetime, ok
}

// Synthesizer renders clips and plays them on an output.
type Synthesizer struct {
	sampleRate int
	output     SoundOutput
	metrics    *metrics.Metrics
}

// New builds a Synthesizer. A nil output discards clips.
func New(sampleRate int, output SoundOutput, m *metrics.Metrics) *Synthesizer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if output == nil {
		output = NopOutput{}
	}
	return &Synthesizer{sampleRate: sampleRate, output: output, metrics: m}
}

// SampleRate of rendered clips.
func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// Render builds a fresh clip for kind with a random noise seed.
func (s *Synthesizer) Render(kind organ.SoundKind) (Clip, error) {
	clip, err := Render(kind, s.sampleRate, rand.Uint64())
	if err != nil {
		return Clip{}, err
	}
	s.metrics.SoundRendered(string(kind))
	return clip, nil
}

// Play renders kind and plays it in the background. It never blocks and
// never fails: unknown kinds and output errors are logged and dropped.
// The returned channel closes once the playback has been torn down.
//
// Overlapping calls each get their own render and output run. Callers that
// want one sound at a time keep their own "is playing" flag.
func (s *Synthesizer) Play(kind organ.SoundKind) <-chan struct{} {
	if _, ok := Lifetime(kind); !ok {
		slog.Debug("no sound for kind", "kind", kind)
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.start(kind, func() (Clip, error) { return s.Render(kind) })
}

// PlayClip plays an already rendered clip with the same lifetime rules as Play.
func (s *Synthesizer) PlayClip(clip Clip) <-chan struct{} {
	return s.start(clip.Kind, func() (Clip, error) { return clip, nil })
}

func (s *Synthesizer) start(kind organ.SoundKind, clip func() (Clip, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("sound playback panicked", "kind", kind, "panic", r)
			}
		}()

		c, err := clip()
		if err != nil {
			slog.Debug("render sound failed", "kind", kind, "error", err)
			return
		}
		lifetime, ok := Lifetime(kind)
		if !ok {
			// clips built outside the recipe table get a little slack past their length
			lifetime = c.Duration() + 500*time.Millisecond
		}

		ctx, cancel := context.WithTimeout(context.Background(), lifetime)
		defer cancel()
		if err := s.output.Play(ctx, c); err != nil {
			slog.Debug("play sound failed", "kind", kind, "output", s.output.Name(), "error", err)
		}
	}()
	return done
}
