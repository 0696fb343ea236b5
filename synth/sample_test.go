package synth

import (
	"math"
	"testing"
)

func TestRequantizeInt32RoundTrip(t *testing.T) {
	cases := []int32{
		0, 1, -1, 1000, -1000, 1 << 20, -(1 << 20),
		1 << 24, -(1 << 24), 123456789, -123456789,
		math.MaxInt32, math.MinInt32,
	}
	for _, y := range cases {
		got := RequantizeFloat64ToInt32(RequantizeInt32ToFloat64(y))
		if got != y {
			t.Errorf("round trip for %d: got %d", y, got)
		}
	}
}

func TestClampFloat32Normalization(t *testing.T) {
	cases := []float32{0, 0.5, -0.5, 1, -1, 2, -2, 1e9, -1e9}
	for _, x := range cases {
		c := ClampFloat32(x)
		if c > 1.0 || c < -1.0 {
			t.Errorf("ClampFloat32(%v) = %v, exceeds abs_max", x, c)
		}
	}
}

func TestPanEnergy(t *testing.T) {
	mono := float32(0.8)
	for _, p := range []float32{0, 0.25, 0.5, 0.75, 1} {
		f := Pan(mono, p)
		wantL := mono * (1 - p)
		wantR := mono * p
		if f.L != wantL || f.R != wantR {
			t.Errorf("Pan(%v,%v) = %+v, want (%v,%v)", mono, p, f, wantL, wantR)
		}
	}
}

func TestFrameAddScale(t *testing.T) {
	a := Frame{L: 0.1, R: 0.2}
	b := Frame{L: 0.3, R: -0.1}
	sum := a.Add(b)
	if sum.L != 0.4 || sum.R != 0.1 {
		t.Errorf("Add = %+v", sum)
	}
	scaled := sum.Scale(2)
	if scaled.L != 0.8 {
		t.Errorf("Scale = %+v", scaled)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(0) || !IsFinite(1.5) {
		t.Error("finite values reported as non-finite")
	}
	zero := RequantizeInt32ToFloat64(0)
	_ = zero
}
