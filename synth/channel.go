// channel.go - per-channel MIDI state tracker and voice creation
// (spec.md §3 "Channel state", §4.H)
//
// Grounded on the teacher's per-channel register block in
// audio_chip.go (Channel struct holding oscillator/envelope/filter
// parameters plus the mutex-guarded update path) generalised from one
// fixed voice per channel to an ordered pool of polyphonic voices, and
// from register pokes to the GM/GS/XG CC+RPN/NRPN dispatch table this
// spec requires.

package synth

import (
	"math"
	"math/rand"
)

// VoiceBuildContext carries the engine-wide, read-only inputs a
// channel needs to construct a voice: the render sample rate, the
// active system type (the system key of every instrument lookup), and
// the two shared, already-built tables (spec.md §4.F/§4.G). The
// Synthesizer owns these and builds this context for each MIDI event
// it dispatches to a channel.
type VoiceBuildContext struct {
	SampleRate  float64
	System      SystemType
	Wavetables  *WaveTableFactory
	Instruments *InstrumentTable
}

type rpnNrpnTarget int

const (
	targetNone rpnNrpnTarget = iota
	targetRPN
	targetNRPN
)

type paramAddr [2]uint8

// Channel holds all MIDI controller, RPN/NRPN, pitch-bend, pedal,
// program/bank and drum-mode state for one of the engine's 16 MIDI
// channels, plus its voice pool (spec.md §3/§4.H).
type Channel struct {
	number int // 1-based channel number, for voice/digest tagging
	system SystemType

	program int
	bankMSB uint8
	bankLSB uint8
	drum    bool // true if this channel renders drum-kit voices

	volume     float32 // CC7, 0..1
	pan        float32 // CC10, 0..1 (0.5 = center)
	expression float32 // CC11, 0..1
	pedal      bool     // CC64

	monoMode bool // CC126/127

	attackTimeCC  uint8 // CC73, default 64
	decayTimeCC   uint8 // CC75, default 64
	releaseTimeCC uint8 // CC72, default 64

	timeScaleCeilingMelody float64 // default 190 (spec.md §9)
	timeScaleCeilingDrum   float64 // default 4

	filterCutoffCC     float64 // CC74, 0..1, default ~0.5
	filterResonanceCC  float64 // CC71, 0..1, default 0
	filterCutoffMul    float64 // NRPN(1,32), default 1.0
	filterResonanceMul float64 // NRPN(1,33), default 1.0
	attackTimeScaleMul float64 // NRPN(1,99), default 1.0
	decayTimeScaleMul  float64 // NRPN(1,100), default 1.0

	pitchBendRaw         int16   // -8192..8191
	pitchBendSensitivity float64 // semitones, RPN(0,0)
	fineTuning           float64 // semitones, RPN(0,1)
	coarseTuning         float64 // semitones, RPN(0,2)

	rpnTarget rpnNrpnTarget
	rpnAddr   paramAddr
	dataMSB   uint8
	dataLSB   uint8

	rpnValues  map[paramAddr]paramAddr
	nrpnValues map[paramAddr]paramAddr

	voices []*Voice
}

// maxVoicesPerChannel bounds the voice pool: voice-steal-free
// accounting means a NoteOn arriving with the pool already full is
// dropped rather than stealing an existing voice (SPEC_FULL.md
// "Voice-steal-free fixed pool accounting"). 32 matches typical GM
// hardware polyphony and comfortably covers sustained chords plus
// overlapping release tails.
const maxVoicesPerChannel = 32

// NewChannel returns a channel in its power-on-default state for the
// given system type. Channel 10 (1-based) defaults to drum mode
// (spec.md §3).
func NewChannel(number int, system SystemType) *Channel {
	c := &Channel{
		number:                 number,
		system:                 system,
		drum:                   number == 10,
		volume:                 100.0 / 127,
		pan:                    0.5,
		expression:             1.0,
		attackTimeCC:           64,
		decayTimeCC:            64,
		releaseTimeCC:          64,
		timeScaleCeilingMelody: 190,
		timeScaleCeilingDrum:   4,
		filterCutoffCC:         0.5,
		filterResonanceCC:      0,
		filterCutoffMul:        1.0,
		filterResonanceMul:     1.0,
		attackTimeScaleMul:     1.0,
		decayTimeScaleMul:      1.0,
		pitchBendSensitivity:   system.DefaultPitchBendSensitivity(),
		rpnValues:              make(map[paramAddr]paramAddr),
		nrpnValues:             make(map[paramAddr]paramAddr),
	}
	return c
}

// Reset restores power-on defaults for a (possibly new) system type
// (spec.md §4.I "reset(systemType)"). Program and bank are preserved
// by neither spec nor the teacher's analogous reset path, so they too
// are cleared to defaults, matching GM System Reset semantics.
func (c *Channel) Reset(system SystemType) {
	number := c.number
	*c = *NewChannel(number, system)
}

// NoteOn implements spec.md §4.H. vel<=0 is treated as an implicit
// noteOff, per MIDI running-status convention.
func (c *Channel) NoteOn(noteNo, vel int, ctx VoiceBuildContext) {
	if vel <= 0 {
		c.NoteOff(noteNo, true)
		return
	}
	for _, v := range c.voices {
		if v.NoteNo() == noteNo {
			v.NoteOff()
		}
	}
	if c.monoMode {
		c.discardAllVoices()
	}
	if len(c.voices) >= maxVoicesPerChannel {
		return // pool exhausted: noteOn silently dropped, never steals a voice
	}
	var v *Voice
	if c.drum {
		v = c.createDrumVoice(ctx, noteNo, vel)
	} else {
		v = c.createMelodyVoice(ctx, noteNo, vel)
	}
	c.voices = append(c.voices, v)
}

// NoteOff implements spec.md §4.H.
func (c *Channel) NoteOff(noteNo int, allowTailOff bool) {
	if allowTailOff {
		for _, v := range c.voices {
			if v.NoteNo() == noteNo {
				v.NoteOff()
			}
		}
		return
	}
	kept := c.voices[:0]
	for _, v := range c.voices {
		if v.NoteNo() == noteNo {
			continue
		}
		kept = append(kept, v)
	}
	c.voices = kept
}

// AllNotesOff implements spec.md §4.H.
func (c *Channel) AllNotesOff(allowTailOff bool) {
	for _, v := range c.voices {
		v.NoteOff()
	}
	if !allowTailOff {
		c.voices = nil
	}
}

func (c *Channel) discardAllVoices() {
	c.voices = nil
}

// ProgramChange implements spec.md §4.H: records progId only.
func (c *Channel) ProgramChange(progID int) {
	c.program = progID
}

// ControlChange implements the CC dispatch table of spec.md §4.H.
func (c *Channel) ControlChange(ctrlNo, value int) {
	v8 := uint8(value)
	switch ctrlNo {
	case 0:
		c.bankMSB = v8
	case 32:
		c.bankLSB = v8
	case 7:
		c.volume = float32(value) / 127
	case 10:
		c.pan = clampFloat32((float32(value)-1)/126, 0, 1)
	case 11:
		c.expression = float32(value) / 127
	case 64:
		wasOn := c.pedal
		c.pedal = value >= 0x40
		if wasOn && !c.pedal {
			for _, voice := range c.voices {
				voice.SetHold(false)
			}
		} else {
			for _, voice := range c.voices {
				voice.SetHold(c.pedal)
			}
		}
	case 72:
		c.releaseTimeCC = v8
		releaseScale := clampCeiling(timeScaleCurve(v8), c.timeScaleCeilingMelody)
		for _, voice := range c.voices {
			if voice.Kind() == VoiceMelody && voice.EnvelopeStage() == StageRelease {
				voice.SetReleaseSeconds(voice.BaseReleaseSeconds() * releaseScale)
			}
		}
	case 73:
		c.attackTimeCC = v8
	case 75:
		c.decayTimeCC = v8
	case 74:
		c.filterCutoffCC = float64(value) / 127
	case 71:
		c.filterResonanceCC = float64(value) / 127
	case 98:
		c.nrpnAddrLSB(v8)
	case 99:
		c.nrpnAddrMSB(v8)
	case 100:
		c.rpnAddrLSB(v8)
	case 101:
		c.rpnAddrMSB(v8)
	case 6:
		c.dataMSB = v8
		c.commitDataEntry()
	case 38:
		c.dataLSB = v8
		c.commitDataEntry()
	case 121:
		c.volume = 100.0 / 127
		c.pan = 0.5
		c.expression = 1.0
	case 120:
		c.discardAllVoices()
	case 123:
		c.AllNotesOff(true)
	case 126:
		c.monoMode = true
	case 127:
		c.monoMode = false
	}
}

func clampFloat32(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func (c *Channel) rpnAddrMSB(v uint8) {
	c.rpnTarget = targetRPN
	c.rpnAddr[0] = v
}
func (c *Channel) rpnAddrLSB(v uint8) {
	c.rpnTarget = targetRPN
	c.rpnAddr[1] = v
}
func (c *Channel) nrpnAddrMSB(v uint8) {
	c.rpnTarget = targetNRPN
	c.rpnAddr[0] = v
}
func (c *Channel) nrpnAddrLSB(v uint8) {
	c.rpnTarget = targetNRPN
	c.rpnAddr[1] = v
}

// commitDataEntry is called after CC6 or CC38 arrives: it writes the
// current (MSB,LSB) data pair into whichever address (RPN or NRPN) is
// currently selected and applies any immediate effect (spec.md §4.H).
func (c *Channel) commitDataEntry() {
	switch c.rpnTarget {
	case targetRPN:
		c.rpnValues[c.rpnAddr] = paramAddr{c.dataMSB, c.dataLSB}
		c.applyRPN(c.rpnAddr, c.dataMSB, c.dataLSB)
	case targetNRPN:
		c.nrpnValues[c.rpnAddr] = paramAddr{c.dataMSB, c.dataLSB}
		c.applyNRPN(c.rpnAddr, c.dataMSB, c.dataLSB)
	}
}

func (c *Channel) applyRPN(addr paramAddr, msb, lsb uint8) {
	switch addr {
	case paramAddr{0, 0}:
		c.pitchBendSensitivity = float64(msb) + float64(lsb)/100
	case paramAddr{0, 1}:
		c.fineTuning = centeredCents(msb, lsb) / 100
	case paramAddr{0, 2}:
		c.coarseTuning = float64(msb) - 64
	}
}

func (c *Channel) applyNRPN(addr paramAddr, msb, lsb uint8) {
	switch addr {
	case paramAddr{1, 32}:
		c.filterCutoffMul = float64(msb) / 64
	case paramAddr{1, 33}:
		c.filterResonanceMul = float64(msb) / 64
	case paramAddr{1, 99}:
		c.attackTimeScaleMul = float64(msb) / 64
	case paramAddr{1, 100}:
		c.decayTimeScaleMul = float64(msb) / 64
	default:
		if addr[0] == 127 && c.system == SystemXG {
			c.drum = true
		}
	}
}

// centeredCents interprets a 14-bit RPN/NRPN value as signed cents
// centered at the 0x2000 midpoint (spec.md §4.H "master fine tuning").
func centeredCents(msb, lsb uint8) float64 {
	value := int(msb)<<7 | int(lsb)
	return float64(value-8192) / 8192 * 100
}

// PitchBend implements spec.md §4.H.
func (c *Channel) PitchBend(pitch14 int16) {
	c.pitchBendRaw = pitch14
	semis := c.pitchBendSensitivity*(float64(pitch14)/8192) + c.coarseTuning + c.fineTuning
	for _, v := range c.voices {
		v.SetPitchBendSemitones(semis)
	}
}

// timeScaleCurve implements the CC72/73/75 curve of spec.md §4.H.
func timeScaleCurve(ccValue uint8) float64 {
	return math.Pow(10, 4*(float64(ccValue)-64)/127)
}

func clampCeiling(x, ceiling float64) float64 {
	if ceiling <= 0 {
		return x
	}
	if x > ceiling {
		return ceiling
	}
	if x < 1/ceiling {
		return 1 / ceiling
	}
	return x
}

// createMelodyVoice resolves the instrument, applies CC/NRPN-derived
// time scaling and filter parameters, and builds a melody voice
// (spec.md §4.F/§4.G).
func (c *Channel) createMelodyVoice(ctx VoiceBuildContext, noteNo, vel int) *Voice {
	param := defaultMelodyParam()
	if p := ctx.Instruments.FindMelodyParam(ctx.System, c.bankMSB, c.bankLSB, c.program); p != nil {
		param = *p
	}

	baseRelease := param.Release
	attackScale := clampCeiling(timeScaleCurve(c.attackTimeCC)*c.attackTimeScaleMul, c.timeScaleCeilingMelody)
	decayScale := clampCeiling(timeScaleCurve(c.decayTimeCC)*c.decayTimeScaleMul, c.timeScaleCeilingMelody)
	releaseScale := clampCeiling(timeScaleCurve(c.releaseTimeCC), c.timeScaleCeilingMelody)
	param.Attack *= attackScale
	param.Decay *= decayScale
	param.Release *= releaseScale

	table := ctx.Wavetables.Melody(param.WaveForm)
	v := NewMelodyVoice(newVoiceID(), c.number, ctx.SampleRate, table, noteNo, vel, &param)
	v.SetBaseReleaseSeconds(baseRelease)
	v.SetHold(c.pedal)

	cutoffNorm := clamp01(c.filterCutoffCC * c.filterCutoffMul)
	resonanceNorm := clamp01(c.filterResonanceCC * c.filterResonanceMul)
	v.SetFilterParams(cutoffNorm, resonanceNorm)
	return v
}

// createDrumVoice resolves the drum-kit note, applies NRPN per-note
// pitch/level/pan overrides, and builds a drum voice (spec.md §4.G).
func (c *Channel) createDrumVoice(ctx VoiceBuildContext, noteNo, vel int) *Voice {
	param := defaultDrumParam(noteNo)
	if p := ctx.Instruments.FindDrumParam(ctx.System, c.bankMSB, c.bankLSB, noteNo); p != nil {
		param = *p
	}

	note8 := uint8(noteNo)
	if lv, ok := c.nrpnValues[paramAddr{26, note8}]; ok {
		param.Volume *= float32(lv[0]) / 127
	}

	attackScale := clampCeiling(timeScaleCurve(c.attackTimeCC), c.timeScaleCeilingDrum)
	decayScale := clampCeiling(timeScaleCurve(c.decayTimeCC), c.timeScaleCeilingDrum)
	param.Attack *= attackScale
	param.Decay *= decayScale

	table := ctx.Wavetables.Drum()
	v := NewDrumVoice(newVoiceID(), c.number, ctx.SampleRate, table, noteNo, vel, &param)

	var coarse, fine float64
	if cv, ok := c.nrpnValues[paramAddr{24, note8}]; ok {
		coarse = float64(cv[0]) - 64
	}
	if fv, ok := c.nrpnValues[paramAddr{25, note8}]; ok {
		fine = centeredCents(fv[0], fv[1]) / 100
	}
	if coarse != 0 || fine != 0 {
		v.SetTuning(coarse, fine)
	}

	if pv, ok := c.nrpnValues[paramAddr{28, note8}]; ok {
		if pv[0] == 0 {
			v.SetPan(rand.Float32())
		} else {
			v.SetPan(float32(pv[0]) / 127)
		}
	}
	return v
}

// Update implements spec.md §4.H: mixes every active voice into a
// stereo frame scaled by channel volume and expression, dropping
// voices that have finished sounding.
func (c *Channel) Update() Frame {
	var sum Frame
	kept := c.voices[:0]
	for _, v := range c.voices {
		mono := v.Update()
		if !v.IsBusy() {
			continue
		}
		pan, has := v.Pan()
		if !has {
			pan = c.pan
		}
		sum = sum.Add(Pan(mono, pan))
		kept = append(kept, v)
	}
	c.voices = kept
	sum = sum.Scale(c.volume * c.expression)
	return sum
}

// PolyphonicKeyPressure and ChannelPressure are accepted per spec.md
// §4.I's dispatch list. The base engine routes both into filter cutoff
// as a supplemented feature (SPEC_FULL.md "Channel pressure / poly
// pressure"): poly pressure brightens the matching voice's cutoff, and
// channel pressure brightens every voice on the channel. Neither
// changes voice gain.
func (c *Channel) PolyphonicKeyPressure(noteNo, pressure int) {
	amt := clamp01(float64(pressure) / 127)
	for _, v := range c.voices {
		if v.NoteNo() == noteNo {
			v.SetFilterParams(clamp01(c.filterCutoffCC*c.filterCutoffMul+amt*0.25), v.resonanceNorm)
		}
	}
}

func (c *Channel) ChannelPressure(pressure int) {
	amt := clamp01(float64(pressure) / 127)
	for _, v := range c.voices {
		v.SetFilterParams(clamp01(c.filterCutoffCC*c.filterCutoffMul+amt*0.25), v.resonanceNorm)
	}
}

// PolyphonyCount reports the number of currently busy voices, for digest().
func (c *Channel) PolyphonyCount() int {
	n := 0
	for _, v := range c.voices {
		if v.IsBusy() {
			n++
		}
	}
	return n
}
