package synth

import (
	"math"
	"testing"
)

func TestBiquadIdentityPassthrough(t *testing.T) {
	b := NewBiquad()
	for _, x := range []float64{0, 1, -1, 0.5} {
		if got := b.Update(x); got != x {
			t.Errorf("identity filter: Update(%v) = %v", x, got)
		}
	}
}

func TestBiquadLowpassAttenuatesHighFrequency(t *testing.T) {
	sampleRate := 44100.0
	b := NewBiquad()
	b.SetParam(BiquadLowpass, 200, sampleRate, 0.707, 0)

	// Settle filter state, then measure peak amplitude of a
	// high-frequency tone well above the cutoff.
	peak := 0.0
	for i := 0; i < 2000; i++ {
		x := sampleAt(18000, sampleRate, i)
		y := b.Update(x)
		if i > 1000 {
			if abs(y) > peak {
				peak = abs(y)
			}
		}
	}
	if peak > 0.3 {
		t.Errorf("lowpass at 200Hz should attenuate 18kHz tone, got peak %v", peak)
	}
}

func TestBiquadLowpassPassesLowFrequency(t *testing.T) {
	sampleRate := 44100.0
	b := NewBiquad()
	b.SetParam(BiquadLowpass, 2000, sampleRate, 0.707, 0)

	peak := 0.0
	for i := 0; i < 2000; i++ {
		x := sampleAt(100, sampleRate, i)
		y := b.Update(x)
		if i > 1000 && abs(y) > peak {
			peak = abs(y)
		}
	}
	if peak < 0.7 {
		t.Errorf("lowpass at 2kHz should pass 100Hz tone mostly unattenuated, got peak %v", peak)
	}
}

func TestBiquadResetStateZeroesHistory(t *testing.T) {
	b := NewBiquad()
	b.SetParam(BiquadLowpass, 1000, 44100, 0.707, 0)
	b.Update(1)
	b.Update(1)
	b.ResetState()
	// With zeroed history, feeding 0 must produce exactly 0.
	if got := b.Update(0); got != 0 {
		t.Errorf("after ResetState, Update(0) = %v, want 0", got)
	}
}

func sampleAt(freqHz, sampleRate float64, i int) float64 {
	return math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
