package synth

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
)

const testRate = 8000

func rms(samples []float32, rate int, from, to float64) float64 {
	lo, hi := int(from*float64(rate)), int(to*float64(rate))
	if hi > len(samples) {
		hi = len(samples)
	}
	if hi <= lo {
		return 0
	}
	var sum float64
	for _, s := range samples[lo:hi] {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(hi-lo))
}

func TestRenderEveryKind(t *testing.T) {
	lengths := map[organ.SoundKind]time.Duration{
		organ.SoundHeartbeat:  1100 * time.Millisecond,
		organ.SoundBreath:     2600 * time.Millisecond,
		organ.SoundBrainwave:  2400 * time.Millisecond,
		organ.SoundGurgle:     1900 * time.Millisecond,
		organ.SoundGurgleDeep: 1900 * time.Millisecond,
		organ.SoundBloodflow:  2100 * time.Millisecond,
		organ.SoundFiltration: 2100 * time.Millisecond,
		organ.SoundCrack:      150 * time.Millisecond,
	}
	for _, kind := range organ.SoundKinds() {
		t.Run(string(kind), func(t *testing.T) {
			clip, err := Render(kind, testRate, 7)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if clip.Kind != kind || clip.SampleRate != testRate {
				t.Fatalf("clip = %s@%d", clip.Kind, clip.SampleRate)
			}
			want := lengths[kind]
			if d := clip.Duration() - want; d < -time.Millisecond || d > time.Millisecond {
				t.Fatalf("duration = %v, want %v", clip.Duration(), want)
			}

			var peak float64
			for i, s := range clip.Samples {
				v := float64(s)
				if math.IsNaN(v) || math.IsInf(v, 0) || v < -1 || v > 1 {
					t.Fatalf("sample %d out of range: %v", i, v)
				}
				peak = math.Max(peak, math.Abs(v))
			}
			if peak < 0.01 {
				t.Fatalf("clip is silent, peak %v", peak)
			}

			lifetime, ok := Lifetime(kind)
			if !ok || lifetime <= clip.Duration() {
				t.Fatalf("lifetime %v should outlast clip %v", lifetime, clip.Duration())
			}
		})
	}
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render("whistle", testRate, 1)
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestRenderIsDeterministicPerSeed(t *testing.T) {
	a, _ := Render(organ.SoundBreath, testRate, 42)
	b, _ := Render(organ.SoundBreath, testRate, 42)
	c, _ := Render(organ.SoundBreath, testRate, 43)

	same, differs := true, false
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			same = false
		}
		if a.Samples[i] != c.Samples[i] {
			differs = true
		}
	}
	if !same {
		t.Fatal("same seed rendered different samples")
	}
	if !differs {
		t.Fatal("different seeds rendered identical noise")
	}
}

func TestHeartbeatHasGapBetweenBeats(t *testing.T) {
	clip, _ := Render(organ.SoundHeartbeat, testRate, 1)
	loud := rms(clip.Samples, testRate, 0, 0.2)
	gap := rms(clip.Samples, testRate, 0.45, 0.6)
	second := rms(clip.Samples, testRate, 0.65, 0.85)
	if loud == 0 || second == 0 {
		t.Fatalf("beats missing: first %v second %v", loud, second)
	}
	if gap > loud/20 {
		t.Fatalf("gap rms %v not quiet next to beat rms %v", gap, loud)
	}
}

func TestBrainwaveEnvelope(t *testing.T) {
	clip, _ := Render(organ.SoundBrainwave, testRate, 1)
	if clip.Samples[0] != 0 {
		t.Fatalf("first sample = %v, want 0", clip.Samples[0])
	}
	hold := rms(clip.Samples, testRate, 1.0, 1.5)
	tail := rms(clip.Samples, testRate, 2.3, 2.4)
	if hold < 0.05 {
		t.Fatalf("hold rms %v too low", hold)
	}
	if tail > hold/10 {
		t.Fatalf("tail rms %v should fade out (hold %v)", tail, hold)
	}
}

func TestParamAutomation(t *testing.T) {
	near := func(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

	linear := NewParam(0).SetValueAt(0, 0).LinearRampTo(1, 1)
	if v := linear.At(0.5); !near(v, 0.5) {
		t.Errorf("linear at 0.5 = %v", v)
	}
	if v := linear.At(3); !near(v, 1) {
		t.Errorf("linear after end = %v", v)
	}

	exp := NewParam(1).SetValueAt(1, 0).ExponentialRampTo(0.01, 2)
	if v := exp.At(1); !near(v, 0.1) {
		t.Errorf("exponential at midpoint = %v, want 0.1", v)
	}

	held := NewParam(0).SetValueAt(0, 0).LinearRampTo(0.28, 0.4).SetValueAt(0.28, 1.8).LinearRampTo(0, 2.3)
	if v := held.At(1.0); !near(v, 0.28) {
		t.Errorf("held value = %v", v)
	}
	if v := held.At(2.05); !near(v, 0.14) {
		t.Errorf("release midpoint = %v", v)
	}

	late := NewParam(3).SetValueAt(5, 1)
	if v := late.At(0.5); v != 3 {
		t.Errorf("before first event = %v, want initial 3", v)
	}

	zero := NewParam(0).ExponentialRampTo(1, 1)
	if v := zero.At(0.5); v != 0 {
		t.Errorf("exponential from zero = %v, want held 0", v)
	}
}

type blockingOutput struct {
	err chan error
}

func (blockingOutput) Name() string { return "blocking" }

func (b blockingOutput) Play(ctx context.Context, _ Clip) error {
	<-ctx.Done()
	b.err <- ctx.Err()
	return ctx.Err()
}

type panicOutput struct{}

func (panicOutput) Name() string { return "panic" }
func (panicOutput) Play(context.Context, Clip) error { panic("device fell off") }

func waitDone(t *testing.T, done <-chan struct{}, within time.Duration) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(within):
		t.Fatalf("playback did not finish within %v", within)
	}
}

func TestPlayEveryKindWithoutDevice(t *testing.T) {
	s := New(testRate, nil, nil)
	for _, kind := range organ.SoundKinds() {
		waitDone(t, s.Play(kind), 2*time.Second)
	}
}

func TestPlayUnknownKindIsSilent(t *testing.T) {
	s := New(testRate, NopOutput{}, nil)
	waitDone(t, s.Play("whistle"), time.Second)
}

func TestPlayTearsDownAfterLifetime(t *testing.T) {
	out := blockingOutput{err: make(chan error, 1)}
	s := New(testRate, out, nil)

	start := time.Now()
	waitDone(t, s.Play(organ.SoundCrack), 3*time.Second)
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Fatalf("torn down after %v, before the crack lifetime", elapsed)
	}
	if err := <-out.err; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("output ctx err = %v", err)
	}
}

func TestPlayRecoversFromOutputPanic(t *testing.T) {
	s := New(testRate, panicOutput{}, nil)
	waitDone(t, s.Play(organ.SoundHeartbeat), 2*time.Second)
}

func TestOverlappingPlaysAreIndependent(t *testing.T) {
	s := New(testRate, NopOutput{}, nil)
	a := s.Play(organ.SoundBreath)
	b := s.Play(organ.SoundBreath)
	waitDone(t, a, 2*time.Second)
	waitDone(t, b, 2*time.Second)
}

type recordingOutput struct {
	clips chan Clip
}

func (recordingOutput) Name() string { return "recording" }

func (r recordingOutput) Play(_ context.Context, clip Clip) error {
	r.clips <- clip
	return nil
}

func TestPlayClipUsesGivenClip(t *testing.T) {
	out := recordingOutput{clips: make(chan Clip, 1)}
	s := New(testRate, out, nil)
	clip, _ := Render(organ.SoundCrack, testRate, 9)

	waitDone(t, s.PlayClip(clip), time.Second)
	got := <-out.clips
	if len(got.Samples) != len(clip.Samples) || got.Samples[10] != clip.Samples[10] {
		t.Fatal("output received a different clip")
	}
}
