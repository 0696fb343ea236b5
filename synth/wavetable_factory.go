// wavetable_factory.go - shared, immutable wavetable cache
//
// Wavetables are built once and shared by every voice that references
// them (spec.md §3 "Wavetable" lifecycle, §9 "Shared immutable
// tables"). The factory is constructed before rendering starts and
// never mutated afterward, so readers (voices, on the audio thread)
// need no synchronization once built.

package synth

// WaveTableFactory builds and caches the handful of wavetables the
// engine needs: one per melody WaveForm, plus the drum-noise table
// with its wide cycles-per-table span (spec.md §4.D).
type WaveTableFactory struct {
	melody map[WaveForm]*WaveTable
	drum   *WaveTable
}

// NewWaveTableFactory builds every table up front. The generator phase
// increment only depends on cyclesPerTable and the synthetic
// table-build rate, not on the render sample rate, so table shape is
// sample-rate independent and a single build serves every
// SetSampleRate call.
func NewWaveTableFactory() *WaveTableFactory {
	f := &WaveTableFactory{melody: make(map[WaveForm]*WaveTable)}
	forms := []WaveForm{WaveFormSquare, WaveFormSine, WaveFormTriangle, WaveFormSawtooth, WaveFormNoise}
	for _, w := range forms {
		if w == WaveFormNoise {
			continue
		}
		f.melody[w] = NewWaveTable(w.funcGenKind(), defaultTableLength, 1, 1.0, 0.5)
	}
	// Drum noise: cyclesPerTable ~62.5 so one lookup pass spans ~62
	// perceptually-distinct noise cycles (spec.md §3 "Cycles-per-table").
	f.drum = NewWaveTable(FuncWhiteNoise, defaultTableLength, 62.5, 1.0, 0.5)
	f.melody[WaveFormNoise] = f.drum
	return f
}

// Melody returns the shared table for a melody WaveForm.
func (f *WaveTableFactory) Melody(w WaveForm) *WaveTable {
	if t, ok := f.melody[w]; ok {
		return t
	}
	return f.melody[WaveFormSquare]
}

// Drum returns the shared drum-noise table.
func (f *WaveTableFactory) Drum() *WaveTable {
	return f.drum
}
