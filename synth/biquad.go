// biquad.go - stateful biquadratic IIR filter with cookbook parameterizations
//
// Coefficient derivation follows the RBJ "Audio EQ Cookbook" formulas,
// the same family of cutoff/Q math the teacher engine uses to turn a
// normalised 0-1 cutoff/resonance pair into filter behaviour (see
// audio_chip.go's state-variable filter and sid_engine.go's cutoff
// curve). Here the filter itself is a direct-form-I biquad rather than
// a state-variable filter, so it can express shelving/peaking shapes
// the voice chain needs (spec.md §4.B).

package synth

import "math"

// BiquadKind selects a cookbook parameterization.
type BiquadKind int

const (
	BiquadLowpass BiquadKind = iota
	BiquadHighpass
	BiquadBandpassPeakGain
	BiquadBandpassSkirtGain
	BiquadBandstop
	BiquadAllpass
	BiquadPeaking
	BiquadLowShelf
	BiquadHighShelf
)

// Biquad is a direct-form-I second order IIR filter: six coefficients
// plus two samples of input/output history.
type Biquad struct {
	b0, b1, b2 float64
	a0, a1, a2 float64

	x1, x2 float64
	y1, y2 float64
}

// NewBiquad returns an identity (pass-through) filter.
func NewBiquad() *Biquad {
	b := &Biquad{}
	b.resetParam()
	return b
}

// resetParam sets the filter to identity: y = x.
func (b *Biquad) resetParam() {
	b.a0, b.a1, b.a2 = 1, 0, 0
	b.b0, b.b1, b.b2 = 1, 0, 0
}

// ResetState zeros the input/output history without touching
// coefficients.
func (b *Biquad) ResetState() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// Update runs one sample through the filter and advances history.
func (b *Biquad) Update(x float64) float64 {
	y := (b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2) / b.a0
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

// UpdateFloat32 is a float32 convenience wrapper around Update.
func (b *Biquad) UpdateFloat32(x float32) float32 {
	return float32(b.Update(float64(x)))
}

// SetParam derives coefficients for the given cookbook kind. cutoffHz
// is ω0's frequency, sampleRate is the render sample rate, q is the
// quality factor (it sets alpha, which every kind uses), and
// gainDB is only meaningful for peaking/shelf kinds.
func (b *Biquad) SetParam(kind BiquadKind, cutoffHz, sampleRate, q, gainDB float64) {
	if sampleRate <= 0 {
		b.resetParam()
		return
	}
	if cutoffHz <= 0 {
		cutoffHz = 1
	}
	nyquist := sampleRate / 2
	if cutoffHz > nyquist-1 {
		cutoffHz = nyquist - 1
	}
	if q <= 0 {
		q = 0.707
	}

	w0 := 2 * math.Pi * cutoffHz / sampleRate
	sinW0, cosW0 := math.Sin(w0), math.Cos(w0)
	alpha := sinW0 / (2 * q)
	A := math.Sqrt(math.Pow(10, gainDB/20))

	switch kind {
	case BiquadLowpass:
		b.b0 = (1 - cosW0) / 2
		b.b1 = 1 - cosW0
		b.b2 = (1 - cosW0) / 2
		b.a0 = 1 + alpha
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha
	case BiquadHighpass:
		b.b0 = (1 + cosW0) / 2
		b.b1 = -(1 + cosW0)
		b.b2 = (1 + cosW0) / 2
		b.a0 = 1 + alpha
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha
	case BiquadBandpassPeakGain:
		b.b0 = alpha
		b.b1 = 0
		b.b2 = -alpha
		b.a0 = 1 + alpha
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha
	case BiquadBandpassSkirtGain:
		b.b0 = q * alpha
		b.b1 = 0
		b.b2 = -q * alpha
		b.a0 = 1 + alpha
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha
	case BiquadBandstop:
		b.b0 = 1
		b.b1 = -2 * cosW0
		b.b2 = 1
		b.a0 = 1 + alpha
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha
	case BiquadAllpass:
		b.b0 = 1 - alpha
		b.b1 = -2 * cosW0
		b.b2 = 1 + alpha
		b.a0 = 1 + alpha
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha
	case BiquadPeaking:
		b.b0 = 1 + alpha*A
		b.b1 = -2 * cosW0
		b.b2 = 1 - alpha*A
		b.a0 = 1 + alpha/A
		b.a1 = -2 * cosW0
		b.a2 = 1 - alpha/A
	case BiquadLowShelf:
		beta := math.Sqrt(A) / q
		b.b0 = A * ((A + 1) - (A-1)*cosW0 + beta*sinW0)
		b.b1 = 2 * A * ((A - 1) - (A+1)*cosW0)
		b.b2 = A * ((A + 1) - (A-1)*cosW0 - beta*sinW0)
		b.a0 = (A + 1) + (A-1)*cosW0 + beta*sinW0
		b.a1 = -2 * ((A - 1) + (A+1)*cosW0)
		b.a2 = (A + 1) + (A-1)*cosW0 - beta*sinW0
	case BiquadHighShelf:
		beta := math.Sqrt(A) / q
		b.b0 = A * ((A + 1) + (A-1)*cosW0 + beta*sinW0)
		b.b1 = -2 * A * ((A - 1) + (A+1)*cosW0)
		b.b2 = A * ((A + 1) + (A-1)*cosW0 - beta*sinW0)
		b.a0 = (A + 1) - (A-1)*cosW0 + beta*sinW0
		b.a1 = 2 * ((A - 1) - (A+1)*cosW0)
		b.a2 = (A + 1) - (A-1)*cosW0 - beta*sinW0
	default:
		b.resetParam()
	}
}

// SetParamBandwidth is the bandwidth-driven alpha variant of SetParam,
// for callers that want to specify Q in octaves rather than as a Q
// factor (cookbook: alpha = sin(w0)*sinh(ln(2)/2 * bw * w0/sin(w0))).
func (b *Biquad) SetParamBandwidth(kind BiquadKind, cutoffHz, sampleRate, bandwidthOctaves float64) {
	if sampleRate <= 0 || cutoffHz <= 0 {
		b.resetParam()
		return
	}
	w0 := 2 * math.Pi * cutoffHz / sampleRate
	sinW0 := math.Sin(w0)
	alpha := sinW0 * math.Sinh(math.Ln2/2*bandwidthOctaves*w0/sinW0)
	q := sinW0 / (2 * alpha) // SetParam's alpha = sin(w0)/(2q) then equals this alpha
	b.SetParam(kind, cutoffHz, sampleRate, q, 0)
}
