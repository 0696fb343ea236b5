// wavetable.go - wavetable oscillator: phase-accumulating lookup with
// pre-amp and "cycles per table" scaling (spec.md §4.D)
//
// Grounded on the teacher's phase-accumulator convention (audio_chip.go
// Channel.phase/phaseInc) generalised from a fixed per-waveform
// generator into a shared, immutable lookup table built once by
// NewWaveTable and referenced by every voice that plays it (spec.md §3
// "Wavetable: built once, shared by all voices ... never mutated").

package synth

const defaultTableLength = 2048

// WaveTable is an immutable, shared lookup table: L samples
// representing N cycles of a waveform, plus a pre-amp scalar applied
// on every read.
type WaveTable struct {
	samples []float32 // length L
	cycles  float64   // N: cycles packed into the table
	preAmp  float32
}

// NewWaveTable builds a table of length tableLen from the given
// generator, sampled across N full cycles, with the given pre-amp.
// N defaults to 1 for melody waveforms; drum noise uses N≈62.5 so one
// lookup pass spans many perceptually-distinct noise cycles.
func NewWaveTable(kind FuncGenKind, tableLen int, cyclesPerTable float64, preAmp float32, duty float64) *WaveTable {
	if tableLen <= 0 {
		tableLen = defaultTableLength
	}
	if cyclesPerTable <= 0 {
		cyclesPerTable = 1
	}
	// Seed the table at a synthetic sample rate of tableLen samples per
	// cycle*N, so that stepping through the whole buffer once produces
	// exactly cyclesPerTable periods of the generator's waveform.
	synthRate := float64(tableLen)
	gen := NewFuncGen(kind, synthRate, cyclesPerTable, duty)
	samples := make([]float32, tableLen)
	for i := range samples {
		samples[i] = float32(gen.Next())
	}
	return &WaveTable{samples: samples, cycles: cyclesPerTable, preAmp: preAmp}
}

// WaveTableOscillator advances phase through a shared WaveTable.
type WaveTableOscillator struct {
	table *WaveTable
	phase float64 // in samples, [0, len(table.samples))
}

// NewWaveTableOscillator creates an oscillator bound to an immutable,
// shared table.
func NewWaveTableOscillator(table *WaveTable) *WaveTableOscillator {
	return &WaveTableOscillator{table: table}
}

// SetTable rebinds the oscillator to a different shared table without
// resetting phase, so a running voice can switch waveform smoothly.
func (o *WaveTableOscillator) SetTable(table *WaveTable) {
	o.table = table
}

// Update advances phase by frequency*N/sampleRate*L samples modulo L
// and returns the linearly interpolated sample times pre-amp (spec.md
// §4.D).
func (o *WaveTableOscillator) Update(sampleRate, frequency float64) float32 {
	if o.table == nil || len(o.table.samples) == 0 || sampleRate <= 0 {
		return 0
	}
	L := float64(len(o.table.samples))
	inc := frequency * o.table.cycles / sampleRate * L

	out := o.interpolate()

	o.phase += inc
	o.phase = floorMod(o.phase, L)
	return out
}

func (o *WaveTableOscillator) interpolate() float32 {
	samples := o.table.samples
	L := len(samples)
	i0 := int(o.phase) % L
	i1 := (i0 + 1) % L
	frac := float32(o.phase - float64(int(o.phase)))
	return (samples[i0]*(1-frac) + samples[i1]*frac) * o.table.preAmp
}
