package synth

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
)

// masterGain is applied to the sum of all voices.
const masterGain = 0.5

// recipe describes one organ sound.
type recipe struct {
	// length is how much audio is rendered, in seconds.
	length float64
	// lifetime bounds one playback; the output is torn down after it.
	lifetime time.Duration
	voices   func(sampleRate int, rng *rand.Rand) []*voice
}

var recipes = map[organ.SoundKind]recipe{
	organ.SoundHeartbeat: {length: 1.1, lifetime: 2000 * time.Millisecond, voices: heartbeat},
	organ.SoundBreath:    {length: 2.6, lifetime: 3000 * time.Millisecond, voices: breath},
	organ.SoundBrainwave: {length: 2.4, lifetime: 3000 * time.Millisecond, voices: brainwave},
	organ.SoundGurgle: {length: 1.9, lifetime: 2500 * time.Millisecond, voices: func(sr int, rng *rand.Rand) []*voice {
		return gurgle(sr, rng, 260)
	}},
	organ.SoundGurgleDeep: {length: 1.9, lifetime: 2500 * time.Millisecond, voices: func(sr int, rng *rand.Rand) []*voice {
		return gurgle(sr, rng, 160)
	}},
	organ.SoundBloodflow: {length: 2.1, lifetime: 3000 * time.Millisecond, voices: func(sr int, rng *rand.Rand) []*voice {
		return lowRumble(sr, rng, 280)
	}},
	organ.SoundFiltration: {length: 2.1, lifetime: 3000 * time.Millisecond, voices: func(sr int, rng *rand.Rand) []*voice {
		return lowRumble(sr, rng, 550)
	}},
	organ.SoundCrack: {length: 0.15, lifetime: 600 * time.Millisecond, voices: crack},
}

// heartbeat: two "lub-dub" beats, each a pair of falling low sine pulses.
func heartbeat(sr int, _ *rand.Rand) []*voice {
	pulses := []struct{ freq, offset float64 }{{55, 0}, {42, 0.18}}
	var vs []*voice
	for _, beat := range []float64{0, 0.65} {
		for _, p := range pulses {
			t0 := beat + p.offset
			freq := NewParam(p.freq).SetValueAt(p.freq, t0).ExponentialRampTo(22, t0+0.16)
			gain := NewParam(0).SetValueAt(0, t0).LinearRampTo(1, t0+0.02).ExponentialRampTo(0.001, t0+0.2)
			vs = append(vs, &voice{
				src:    newSine(freq, sr),
				filter: newBiquad(lowpass, 100, 1, sr),
				gain:   gain,
				start:  t0,
				stop:   t0 + 0.22,
			})
		}
	}
	return vs
}

// breath: band-passed noise swelling for an inhale and again for an exhale.
func breath(sr int, rng *rand.Rand) []*voice {
	gain := NewParam(0).SetValueAt(0, 0).
		LinearRampTo(0.7, 0.9).
		LinearRampTo(0.1, 1.4).
		LinearRampTo(0.6, 1.9).
		LinearRampTo(0, 2.5)
	return []*voice{{
		src:    newNoise(rng, sr, 2.5, 0.3, nil),
		filter: newBiquad(bandpass, 700, 0.6, sr),
		gain:   gain,
		stop:   2.6,
	}}
}

// brainwave: 200 Hz and 210 Hz sines beating at 10 Hz.
func brainwave(sr int, _ *rand.Rand) []*voice {
	var vs []*voice
	for _, f := range []float64{200, 210} {
		gain := NewParam(0).SetValueAt(0, 0).
			LinearRampTo(0.28, 0.4).
			SetValueAt(0.28, 1.8).
			LinearRampTo(0, 2.3)
		vs = append(vs, &voice{src: newSine(NewParam(f), sr), gain: gain, stop: 2.4})
	}
	return vs
}

// gurgle: resonant band-passed noise whose centre wobbles at 3.5 Hz.
func gurgle(sr int, rng *rand.Rand, centre float64) []*voice {
	filter := newBiquad(bandpass, centre, 3, sr)
	filter.mod = &lfo{rate: 3.5, depth: 90}
	gain := NewParam(0).SetValueAt(0, 0).
		LinearRampTo(0.75, 0.2).
		SetValueAt(0.75, 1.3).
		LinearRampTo(0, 1.8)
	return []*voice{{
		src:    newNoise(rng, sr, 1.8, 1, nil),
		filter: filter,
		gain:   gain,
		stop:   1.9,
	}}
}

// lowRumble: low-passed noise, used for blood flow and filtration.
func lowRumble(sr int, rng *rand.Rand, cutoff float64) []*voice {
	gain := NewParam(0).SetValueAt(0, 0).
		LinearRampTo(0.6, 0.3).
		SetValueAt(0.6, 1.4).
		LinearRampTo(0, 2.0)
	return []*voice{{
		src:    newNoise(rng, sr, 2.0, 0.4, nil),
		filter: newBiquad(lowpass, cutoff, 1, sr),
		gain:   gain,
		stop:   2.1,
	}}
}

// crack: a 120 ms exponentially decaying noise burst through a high-pass.
func crack(sr int, rng *rand.Rand) []*voice {
	decay := func(i, n int) float64 {
		return math.Exp(-float64(i) / (float64(n) * 0.08))
	}
	return []*voice{{
		src:    newNoise(rng, sr, 0.12, 1, decay),
		filter: newBiquad(highpass, 180, 1, sr),
		gain:   NewParam(1.2),
		stop:   0.15,
	}}
}
