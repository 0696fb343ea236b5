package synth

import (
	"math"
	"testing"
)

func TestWaveTableSineShape(t *testing.T) {
	table := NewWaveTable(FuncSin, 1024, 1, 1.0, 0.5)
	osc := NewWaveTableOscillator(table)
	sampleRate := 44100.0
	freq := 440.0

	peak := float32(0)
	for i := 0; i < int(sampleRate/freq)*4; i++ {
		v := osc.Update(sampleRate, freq)
		if v > peak {
			peak = v
		}
		if v > 1.01 || v < -1.01 {
			t.Fatalf("sine wavetable sample out of range: %v", v)
		}
	}
	if peak < 0.9 {
		t.Errorf("sine wavetable peak too low: %v", peak)
	}
}

func TestWaveTableOscillatorSilentAtZeroFrequency(t *testing.T) {
	table := NewWaveTable(FuncSquare, 256, 1, 1.0, 0.5)
	osc := NewWaveTableOscillator(table)
	// phase never advances, so every sample reads the same table index.
	first := osc.Update(44100, 0)
	second := osc.Update(44100, 0)
	if first != second {
		t.Errorf("zero frequency should read a fixed phase: %v != %v", first, second)
	}
}

func TestWaveTableFactoryMelodyTablesDistinct(t *testing.T) {
	f := NewWaveTableFactory()
	square := f.Melody(WaveFormSquare)
	sine := f.Melody(WaveFormSine)
	if square == sine {
		t.Errorf("square and sine tables should be distinct")
	}
	if f.Drum() != f.Melody(WaveFormNoise) {
		t.Errorf("noise melody table should be the shared drum table")
	}
}

func TestWaveTableDrumCyclesPerTable(t *testing.T) {
	f := NewWaveTableFactory()
	drum := f.Drum()
	if math.Abs(drum.cycles-62.5) > 1e-9 {
		t.Errorf("drum table cycles = %v, want 62.5", drum.cycles)
	}
}
