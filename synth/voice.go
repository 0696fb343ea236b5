// voice.go - a single sounding note (spec.md §3 "Voice", §4.G, §9
// "Polymorphism")
//
// Voice is modeled as one concrete struct tagged by a kind enum rather
// than an interface hierarchy, per spec.md §9: "Do NOT model with deep
// inheritance; two variants are enough." The per-sample DSP chain
// (oscillator -> cutoff biquad -> resonance biquad -> envelope -> gain)
// mirrors the teacher's channel.generateSample pipeline in
// audio_chip.go, generalised from a fixed oscillator to a shared
// wavetable and from a single ADSR envelope to the AHDSFR/AHD pair in
// envelope.go.

package synth

import "math"

// VoiceKind distinguishes the two Voice variants.
type VoiceKind int

const (
	VoiceMelody VoiceKind = iota
	VoiceDrum
)

// Voice is a single sounding note: oscillator, two biquad filters, an
// envelope, gain/pan, and note lifecycle flags (spec.md §3).
type Voice struct {
	id      VoiceID
	channel int // owning channel, 1-based
	kind    VoiceKind

	sampleRate float64
	osc        *WaveTableOscillator

	noteNo      float64 // fractional MIDI note number
	pitchBendST float64 // current pitch bend offset, in semitones
	coarseTune  float64 // semitones
	fineTune    float64 // semitones
	freqHz      float64 // resolved frequency, recomputed on change

	cutoffFilter    *Biquad // "highshelf" tone cutoff
	resonanceFilter *Biquad // "peaking" resonance/overtone emphasis
	cutoffNorm      float64 // 0..1, channel CC74/NRPN(1,32) derived
	resonanceNorm   float64 // 0..1, channel CC71/NRPN(1,33) derived

	env Envelope

	gain      float32 // velocity-derived * instrument volume
	pan       float32 // per-voice pan override
	hasPan    bool    // false => channel pan is used instead

	baseReleaseSeconds float64 // instrument release time before CC72 scaling

	held           bool // CC64 suppresses transition to Release
	pendingNoteOff bool // noteOff arrived while held

	noteNoInt int // integer MIDI note number this voice was triggered with (for noteOff matching)
}

// NewMelodyVoice builds a melody voice from an instrument's resolved
// parameters (spec.md §4.F/§4.G). noteNo/velocity seed the starting
// frequency and gain; pitch bend and tuning start at zero and are
// applied later by the owning channel.
func NewMelodyVoice(id VoiceID, channelNo int, sampleRate float64, table *WaveTable, noteNo, velocity int, p *MelodyParam) *Voice {
	v := &Voice{
		id:         id,
		channel:    channelNo,
		kind:       VoiceMelody,
		sampleRate: sampleRate,
		osc:        NewWaveTableOscillator(table),
		noteNo:     float64(noteNo + p.NoteOffset),
		noteNoInt:  noteNo,
		gain:       melodyVelocityGain(velocity, p.Volume, p.Sustain),
	}
	v.cutoffFilter = NewBiquad()
	v.resonanceFilter = NewBiquad()
	v.recomputeFrequency()
	v.SetFilterParams(0.5, 0)
	if p.DrumLike {
		v.env.SetEnvelopeDrum(sampleRate, p.Curve, p.Attack, p.Hold, p.Decay, 1.0/4096)
	} else {
		v.env.SetEnvelopeMelody(sampleRate, p.Curve, p.Attack, p.Hold, p.Decay, p.Sustain, p.FadeSlope, p.Release, 1.0/4096)
	}
	v.env.NoteOn()
	return v
}

// NewDrumVoice builds a drum voice from a drum-kit note's resolved
// parameters. Pitch overrides the triggering note number so a kit can
// retune a sample independent of which key played it; the owning
// channel's pitch bend and the drum NRPN coarse/fine tuning still shift
// it. Hold/pedal has no audible effect, since the drum envelope ignores
// noteOff (spec.md §4.C, §4.G).
func NewDrumVoice(id VoiceID, channelNo int, sampleRate float64, table *WaveTable, noteNo, velocity int, p *DrumParam) *Voice {
	v := &Voice{
		id:         id,
		channel:    channelNo,
		kind:       VoiceDrum,
		sampleRate: sampleRate,
		osc:        NewWaveTableOscillator(table),
		noteNo:     float64(p.Pitch),
		noteNoInt:  noteNo,
		gain:       p.Volume * velocityGain(velocity),
		pan:        p.Pan,
		hasPan:     true,
	}
	v.cutoffFilter = NewBiquad()
	v.resonanceFilter = NewBiquad()
	v.recomputeFrequency()
	v.SetFilterParams(0.5, 0)
	v.env.SetEnvelopeDrum(sampleRate, p.Curve, p.Attack, p.Hold, p.Decay, 1.0/4096)
	v.env.NoteOn()
	return v
}

// melodyVelocityGain implements spec.md §4.G's velocity-to-volume
// curve exactly:
//
//	volume = 10^(-20*(1-vel/127)/20) * instrumentVolume / max(sustain, 0.8)
//
// The max(sustain, 0.8) clamp is a compatibility adjustment carried
// from the historical implementation (spec.md §9 Open Questions):
// kept exactly rather than "fixed", since the property it enforces
// (gain does not explode at low sustain) still matters here.
func melodyVelocityGain(velocity int, instrumentVolume, sustain float32) float32 {
	vel := float64(velocity)
	if vel < 0 {
		vel = 0
	}
	if vel > 127 {
		vel = 127
	}
	db := -20 * (1 - vel/127)
	lin := math.Pow(10, db/20)
	s := sustain
	if s < 0.8 {
		s = 0.8
	}
	return float32(lin) * instrumentVolume / s
}

// velocityGain is the drum-voice velocity curve: spec.md §4.G gives no
// explicit formula for drums, only melody, so this uses the same
// perceptual-loudness shape (velocity squared) the teacher applies to
// its own ADSR peak scaling in audio_chip.go.
func velocityGain(velocity int) float32 {
	v := float32(velocity) / 127
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v * v
}

// recomputeFrequency derives Hz from note number, pitch bend and
// tuning: A440 equal temperament, semitone = 2^(1/12).
func (v *Voice) recomputeFrequency() {
	semis := v.noteNo + v.pitchBendST + v.coarseTune + v.fineTune
	v.freqHz = 440 * math.Pow(2, (semis-69)/12)
}

// SetPitchBendSemitones updates the voice's resolved pitch bend and
// recomputes frequency (spec.md §4.H "pitchBend").
func (v *Voice) SetPitchBendSemitones(semis float64) {
	v.pitchBendST = semis
	v.recomputeFrequency()
}

// SetTuning updates coarse/fine tuning in semitones.
func (v *Voice) SetTuning(coarse, fine float64) {
	v.coarseTune = coarse
	v.fineTune = fine
	v.recomputeFrequency()
}

// FrequencyHz returns the voice's currently resolved frequency.
func (v *Voice) FrequencyHz() float64 {
	return v.freqHz
}

// SetBaseReleaseSeconds records the instrument's release time before
// any CC72 time-scale is applied, so a later CC72 change can rescale
// from the same reference (spec.md §4.C, §4.H).
func (v *Voice) SetBaseReleaseSeconds(seconds float64) {
	v.baseReleaseSeconds = seconds
}

// BaseReleaseSeconds returns the release time recorded by
// SetBaseReleaseSeconds.
func (v *Voice) BaseReleaseSeconds() float64 {
	return v.baseReleaseSeconds
}

// SetReleaseSeconds updates the voice's envelope release time,
// rescaling elapsed Release progress if the voice is currently
// releasing (spec.md §4.C "If R is changed while in Release...").
func (v *Voice) SetReleaseSeconds(seconds float64) {
	v.env.SetRelease(seconds)
}

// SetFilterParams updates both filter biquads from normalised
// cutoff/resonance in [0,1] (spec.md §4.G "filter cutoff/resonance is
// computed from CC71/74 and NRPN(1,32)/(1,33)").
func (v *Voice) SetFilterParams(cutoffNorm, resonanceNorm float64) {
	v.cutoffNorm = clamp01(cutoffNorm)
	v.resonanceNorm = clamp01(resonanceNorm)

	const minCutoffHz = 200
	const maxCutoffHz = 18000
	cutoffHz := minCutoffHz * math.Pow(maxCutoffHz/minCutoffHz, v.cutoffNorm)
	gainDB := v.resonanceNorm * 18 // up to +18dB shelf emphasis
	v.cutoffFilter.SetParam(BiquadHighShelf, cutoffHz, v.sampleRate, 0.707, gainDB)

	peakHz := minCutoffHz + (maxCutoffHz-minCutoffHz)*v.cutoffNorm
	q := 0.7 + v.resonanceNorm*8
	v.resonanceFilter.SetParam(BiquadPeaking, peakHz, v.sampleRate, q, v.resonanceNorm*12)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// NoteOff marks pendingNoteOff; if the voice is not held (CC64), the
// envelope transitions to Release immediately (spec.md §4.G).
func (v *Voice) NoteOff() {
	v.pendingNoteOff = true
	if !v.held {
		v.env.NoteOff()
	}
}

// SetHold sets the CC64 hold flag on this voice. Releasing hold while
// a noteOff is pending forces the envelope into Release (spec.md
// §4.G/§4.H).
func (v *Voice) SetHold(held bool) {
	v.held = held
	if !held && v.pendingNoteOff {
		v.env.NoteOff()
	}
}

// IsBusy reports whether the voice is still sounding (spec.md §3
// invariant: active iff envelope state != Free).
func (v *Voice) IsBusy() bool {
	return v.env.IsBusy()
}

// EnvelopeLevel and EnvelopeStage support digest() (spec.md §4.I).
func (v *Voice) EnvelopeLevel() float32      { return v.env.Level() }
func (v *Voice) EnvelopeStage() EnvelopeStage { return v.env.Stage() }

// Update produces one mono sample: oscillator -> cutoff biquad ->
// resonance biquad -> envelope -> gain (spec.md §4.G).
func (v *Voice) Update() float32 {
	raw := v.osc.Update(v.sampleRate, v.freqHz)
	shaped := v.cutoffFilter.UpdateFloat32(raw)
	shaped = v.resonanceFilter.UpdateFloat32(shaped)
	envLevel := v.env.Update()
	return shaped * envLevel * v.gain
}

// Pan returns the voice's pan override and whether one is set.
func (v *Voice) Pan() (float32, bool) {
	return v.pan, v.hasPan
}

// SetPan installs a per-voice pan override (spec.md §4.G drum NRPN(28,noteNo)).
func (v *Voice) SetPan(p float32) {
	v.pan = p
	v.hasPan = true
}

// NoteNo returns the integer MIDI note number this voice was triggered
// with, used by the owning channel to match noteOff messages.
func (v *Voice) NoteNo() int {
	return v.noteNoInt
}

// ID returns the voice's process-wide identity.
func (v *Voice) ID() VoiceID {
	return v.id
}

// Kind reports whether this is a melody or drum voice.
func (v *Voice) Kind() VoiceKind {
	return v.kind
}
