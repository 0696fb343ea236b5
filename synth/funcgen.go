// funcgen.go - function generators that seed wavetables
//
// Grounded on the teacher's per-channel oscillator math in
// audio_chip.go (generateSample: phase accumulator advanced by
// 2*pi*freq/sampleRate, square/triangle/sine/noise cases) but
// repurposed here as one-shot table-filling generators rather than
// per-sample channel oscillators (spec.md §4.E).

package synth

import (
	"math"
	"math/rand"
)

// FuncGenKind selects a waveform generator.
type FuncGenKind int

const (
	FuncGround FuncGenKind = iota
	FuncSin
	FuncSaw
	FuncTriangle
	FuncSquare
	FuncWhiteNoise
)

// FuncGen produces one waveform sample per call, advancing an internal
// phase by 2*pi*freq/sampleRate each time (spec.md §4.E).
type FuncGen struct {
	kind       FuncGenKind
	sampleRate float64
	freq       float64
	duty       float64
	phase      float64
	rng        *rand.Rand
}

// NewFuncGen returns a generator of the given kind at sampleRate/freq.
// duty only matters for FuncSquare. WhiteNoise seeds its PRNG from a
// non-deterministic source (spec.md §4.E).
func NewFuncGen(kind FuncGenKind, sampleRate, freq, duty float64) *FuncGen {
	g := &FuncGen{kind: kind, sampleRate: sampleRate, freq: freq, duty: duty}
	if kind == FuncWhiteNoise {
		g.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return g
}

// Next advances phase and returns the next sample in [-1,1].
func (g *FuncGen) Next() float64 {
	var out float64
	switch g.kind {
	case FuncGround:
		out = 0
	case FuncSin:
		out = math.Sin(g.phase)
	case FuncSaw:
		out = 2*(floorMod(g.phase, 2*math.Pi)/(2*math.Pi)) - 1
	case FuncTriangle:
		p := floorMod(g.phase, 2*math.Pi) / (2 * math.Pi)
		out = 4*math.Abs(p-0.5) - 1
	case FuncSquare:
		p := floorMod(g.phase, 2*math.Pi) / (2 * math.Pi)
		if p < g.duty {
			out = 1
		} else {
			out = -1
		}
	case FuncWhiteNoise:
		out = g.rng.Float64()*2 - 1
	}

	g.phase += 2 * math.Pi * g.freq / g.sampleRate
	g.phase = floorMod(g.phase, 2*math.Pi)
	return out
}

// floorMod is a floored modulo (always returns a value in [0,m) for
// m > 0), unlike math.Mod which can return negative results.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
