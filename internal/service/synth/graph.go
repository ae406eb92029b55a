package synth

import (
	"math"
	"math/rand/v2"
)

type source interface {
	next(t float64) float64
}

type sine struct {
	freq  *Param
	phase float64
	dt    float64
}

func newSine(freq *Param, sampleRate int) *sine {
	return &sine{freq: freq, dt: 1 / float64(sampleRate)}
}

func (s *sine) next(t float64) float64 {
	v := math.Sin(s.phase)
	s.phase += 2 * math.Pi * s.freq.At(t) * s.dt
	if s.phase > 2*math.Pi {
		s.phase -= 2 * math.Pi
	}
	return v
}

// noiseBuffer plays a precomputed buffer once and then outputs silence.
type noiseBuffer struct {
	data []float64
	pos  int
}

// newNoise fills seconds of white noise in [-amp, amp]. shape, if non-nil,
// scales sample i of n.
func newNoise(rng *rand.Rand, sampleRate int, seconds, amp float64, shape func(i, n int) float64) *noiseBuffer {
	n := int(float64(sampleRate) * seconds)
	data := make([]float64, n)
	for i := range data {
		v := (rng.Float64()*2 - 1) * amp
		if shape != nil {
			v *= shape(i, n)
		}
		data[i] = v
	}
	return &noiseBuffer{data: data}
}

func (b *noiseBuffer) next(float64) float64 {
	if b.pos >= len(b.data) {
		return 0
	}
	v := b.data[b.pos]
	b.pos++
	return v
}

type filterType int

const (
	lowpass filterType = iota
	highpass
	bandpass
)

// lfo adds depth*sin(2π·rate·t) to a parameter.
type lfo struct {
	rate  float64
	depth float64
}

func (l *lfo) at(t float64) float64 {
	if l == nil {
		return 0
	}
	return l.depth * math.Sin(2*math.Pi*l.rate*t)
}

// biquad is an RBJ cookbook filter. Lowpass and highpass read q as a
// resonance in dB, bandpass as a linear quality factor.
type biquad struct {
	kind       filterType
	freq       float64
	q          float64
	mod        *lfo
	sampleRate float64

	lastFreq           float64
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func newBiquad(kind filterType, freq, q float64, sampleRate int) *biquad {
	return &biquad{kind: kind, freq: freq, q: q, sampleRate: float64(sampleRate), lastFreq: -1}
}

func (f *biquad) design(freq float64) {
	nyquist := f.sampleRate / 2
	freq = math.Min(math.Max(freq, 1), nyquist*0.999)

	w0 := 2 * math.Pi * freq / f.sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)

	var alpha float64
	if f.kind == bandpass {
		alpha = sinW / (2 * math.Max(f.q, 1e-4))
	} else {
		alpha = sinW / (2 * math.Pow(10, f.q/20))
	}

	var b0, b1, b2 float64
	switch f.kind {
	case lowpass:
		b0, b1, b2 = (1-cosW)/2, 1-cosW, (1-cosW)/2
	case highpass:
		b0, b1, b2 = (1+cosW)/2, -(1 + cosW), (1+cosW)/2
	case bandpass:
		b0, b1, b2 = alpha, 0, -alpha
	}
	a0 := 1 + alpha
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = -2*cosW/a0, (1-alpha)/a0
	f.lastFreq = freq
}

func (f *biquad) process(x, t float64) float64 {
	freq := f.freq + f.mod.at(t)
	if freq != f.lastFreq {
		f.design(freq)
	}
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// voice is one source → filter → gain path into the mix. The source runs
// only inside [start, stop); the filter keeps ringing after stop.
type voice struct {
	src    source
	filter *biquad
	gain   *Param
	start  float64
	stop   float64
}

func (v *voice) sample(t float64) float64 {
	x := 0.0
	if t >= v.start && t < v.stop {
		x = v.src.next(t)
	}
	if v.filter != nil {
		x = v.filter.process(x, t)
	}
	return x * v.gain.At(t)
}

// mix renders voices for seconds at sampleRate, scales by master and clamps.
func mix(voices []*voice, sampleRate int, seconds, master float64) []float32 {
	n := int(math.Ceil(float64(sampleRate) * seconds))
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		sum := 0.0
		for _, v := range voices {
			sum += v.sample(t)
		}
		s := sum * master
		if math.IsNaN(s) {
			s = 0
		}
		out[i] = float32(math.Max(-1, math.Min(1, s)))
	}
	return out
}
