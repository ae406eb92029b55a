package synth

import "math"

type rampKind int

const (
	stepTo rampKind = iota
	linearTo
	exponentialTo
)

type paramEvent struct {
	kind  rampKind
	time  float64
	value float64
}

// Param is a time-automated value: a piecewise curve of held steps and
// linear or exponential ramps, evaluated at absolute clip time in seconds.
// Events must be added in chronological order.
type Param struct {
	initial float64
	events  []paramEvent
}

// NewParam returns a Param that holds v until its first event.
func NewParam(v float64) *Param {
	return &Param{initial: v}
}

// SetValueAt jumps to v at time t.
func (p *Param) SetValueAt(v, t float64) *Param {
	p.events = append(p.events, paramEvent{kind: stepTo, time: t, value: v})
	return p
}

// LinearRampTo moves linearly from the previous event's value to v, arriving at t.
func (p *Param) LinearRampTo(v, t float64) *Param {
	p.events = append(p.events, paramEvent{kind: linearTo, time: t, value: v})
	return p
}

// ExponentialRampTo moves geometrically from the previous event's value to v,
// arriving at t. Both endpoints must be positive; otherwise the previous
// value is held until t.
func (p *Param) ExponentialRampTo(v, t float64) *Param {
	p.events = append(p.events, paramEvent{kind: exponentialTo, time: t, value: v})
	return p
}

// At evaluates the curve at time t.
func (p *Param) At(t float64) float64 {
	prevT, prevV := 0.0, p.initial
	for _, ev := range p.events {
		if t < ev.time {
			frac := (t - prevT) / (ev.time - prevT)
			switch ev.kind {
			case linearTo:
				return prevV + (ev.value-prevV)*frac
			case exponentialTo:
				if prevV <= 0 || ev.value <= 0 {
					return prevV
				}
				return prevV * math.Pow(ev.value/prevV, frac)
			default:
				return prevV
			}
		}
		prevT, prevV = ev.time, ev.value
	}
	return prevV
}
