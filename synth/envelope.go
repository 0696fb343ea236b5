// envelope.go - AHDSFR (melody) and AHD (drum) envelope state machines
//
// Grounded on the teacher's per-channel envelope state machine in
// audio_chip.go (updateEnvelope: Attack/Decay/Sustain/Release driven by
// a phase enum and a per-phase sample counter) generalised to the
// richer AHDSFR shape spec.md §3/§4.C requires, plus the Exp curve and
// early-cutoff threshold the teacher's simpler ADSR does not have.

package synth

import "math"

// EnvelopeCurve selects the interpolation law used within a stage.
type EnvelopeCurve int

const (
	CurveLinear EnvelopeCurve = iota
	CurveExp
)

// EnvelopeStage is the current life-cycle stage of an envelope.
type EnvelopeStage int

const (
	StageAttack EnvelopeStage = iota
	StageHold
	StageDecay
	StageSustain // melody only: implicit within Fade at p=0 until noteOff
	StageFade
	StageRelease
	StageFree
)

// expTimeConstant is the curve exponent n used by the Exp curve's
// (1 - exp(-p*n)) / (1 - exp(-n)) shape. A fixed value that produces a
// natural-sounding exponential bend without exposing another knob.
const expTimeConstant = 5.0

// Envelope is a single voice's envelope generator. It supports both
// the melody AHDSFR variant and the drum AHD variant; which one is in
// play is selected by which setEnvelope* method was called.
type Envelope struct {
	sampleRate float64
	curve      EnvelopeCurve
	drum       bool

	attackSamples  int
	holdSamples    int
	decaySamples   int
	sustainLevel   float32
	fadeSlope      float32 // level/sample (Linear) or dBFS/sample (Exp)
	releaseSamples int
	threshold      float32

	stage       EnvelopeStage
	stageSample int // samples elapsed within the current stage
	level       float32
	releaseFrom float32 // level at the moment Release began
}

// SetEnvelopeMelody configures the AHDSFR envelope (spec.md §4.C).
// Times are given in seconds and converted to samples at sampleRate.
// The envelope is left idle (Free, level 0) until NoteOn.
func (e *Envelope) SetEnvelopeMelody(sampleRate float64, curve EnvelopeCurve, attack, hold, decay float64, sustain float32, fadeSlope float32, release float64, threshold float32) {
	e.toFree()
	e.sampleRate = sampleRate
	e.curve = curve
	e.drum = false
	e.attackSamples = secondsToSamples(attack, sampleRate)
	e.holdSamples = secondsToSamples(hold, sampleRate)
	e.decaySamples = secondsToSamples(decay, sampleRate)
	e.sustainLevel = sustain
	e.fadeSlope = fadeSlope
	e.releaseSamples = secondsToSamples(release, sampleRate)
	e.threshold = threshold
}

// SetEnvelopeDrum configures the AHD envelope (spec.md §4.C): Attack,
// Hold, Decay, then Free; noteOff is ignored. The envelope is left idle
// (Free, level 0) until NoteOn.
func (e *Envelope) SetEnvelopeDrum(sampleRate float64, curve EnvelopeCurve, attack, hold, decay float64, threshold float32) {
	e.toFree()
	e.sampleRate = sampleRate
	e.curve = curve
	e.drum = true
	e.attackSamples = secondsToSamples(attack, sampleRate)
	e.holdSamples = secondsToSamples(hold, sampleRate)
	e.decaySamples = secondsToSamples(decay, sampleRate)
	e.sustainLevel = 0
	e.threshold = threshold
}

func secondsToSamples(s, sampleRate float64) int {
	n := int(math.Round(s * sampleRate))
	if n < 0 {
		return 0
	}
	return n
}

// NoteOn starts the envelope from Attack at level 0.
func (e *Envelope) NoteOn() {
	e.stage = StageAttack
	e.stageSample = 0
	e.level = 0
}

// NoteOff jumps a melody envelope into Release, starting the curve
// from whatever level it was at when noteOff arrived rather than from
// 1.0 (spec.md §4.C). See SetRelease for the separate requirement that
// a release-time change mid-Release rescales elapsed progress.
func (e *Envelope) NoteOff() {
	if e.drum {
		return // drum envelopes ignore noteOff (spec.md §4.C)
	}
	if e.stage == StageFree || e.stage == StageRelease {
		return
	}
	e.releaseFrom = e.level
	e.stage = StageRelease
	e.stageSample = 0
}

// SetRelease updates the release time (in seconds) and, if the
// envelope is currently in Release, rescales the elapsed sample count
// proportionally so perceived progress through the stage is preserved
// (spec.md §4.C: "If R is changed while in Release, rescale the
// elapsed count so perceived progress is preserved"). Drum envelopes
// have no Release stage and ignore this call.
func (e *Envelope) SetRelease(release float64) {
	if e.drum {
		return
	}
	newSamples := secondsToSamples(release, e.sampleRate)
	if e.stage == StageRelease && e.releaseSamples > 0 {
		e.stageSample = e.stageSample * newSamples / e.releaseSamples
	}
	e.releaseSamples = newSamples
}

// Level returns the current level without advancing state.
func (e *Envelope) Level() float32 {
	return e.level
}

// IsBusy reports whether the envelope has not yet reached Free.
func (e *Envelope) IsBusy() bool {
	return e.stage != StageFree
}

// Stage returns the current life-cycle stage, for digest/observability.
func (e *Envelope) Stage() EnvelopeStage {
	return e.stage
}

// Update advances one sample and returns the new level.
func (e *Envelope) Update() float32 {
	switch e.stage {
	case StageAttack:
		e.level = e.curveValue(0, 1, e.stageSample, e.attackSamples)
		e.advance(e.attackSamples, StageHold)
	case StageHold:
		e.level = 1
		e.advance(e.holdSamples, StageDecay)
	case StageDecay:
		e.level = e.curveValue(1, e.sustainForStage(), e.stageSample, e.decaySamples)
		if e.drum {
			// Drum decay has no Fade/Sustain: it free-runs to Free
			// either by crossing the level threshold or by exhausting
			// decaySamples, whichever comes first (spec.md §4.C).
			e.stageSample++
			if e.level <= e.threshold || e.stageSample >= e.decaySamples {
				e.toFree()
			}
		} else {
			e.advance(e.decaySamples, StageFade)
		}
	case StageFade:
		e.level = e.fadeLevel()
		if e.level <= e.threshold {
			e.toFree()
		}
		e.stageSample++
	case StageRelease:
		e.level = e.curveValue(e.releaseFrom, 0, e.stageSample, e.releaseSamples)
		if e.level <= e.threshold {
			e.toFree()
		} else {
			e.advanceNoNext(e.releaseSamples)
		}
	case StageFree:
		e.level = 0
	}
	return e.level
}

func (e *Envelope) sustainForStage() float32 {
	if e.drum {
		return 0
	}
	return e.sustainLevel
}

func (e *Envelope) toFree() {
	e.stage = StageFree
	e.level = 0
	e.stageSample = 0
}

// advance moves stageSample forward and transitions to next once the
// stage's sample budget (n) is exhausted. A budget of 0 transitions
// immediately on the next call.
func (e *Envelope) advance(n int, next EnvelopeStage) {
	e.stageSample++
	if n <= 0 || e.stageSample >= n {
		e.stage = next
		e.stageSample = 0
	}
}

func (e *Envelope) advanceNoNext(n int) {
	e.stageSample++
	if n <= 0 {
		e.toFree()
	}
}

// fadeLevel computes the Fade-stage level: the level slopes toward 0
// at fadeSlope per sample, in the unit appropriate to the curve
// (linear level/sample, or dBFS/sample converted back to linear).
func (e *Envelope) fadeLevel() float32 {
	switch e.curve {
	case CurveExp:
		// fadeSlope is dBFS/sample; integrate then convert to linear.
		dB := -float64(e.fadeSlope) * float64(e.stageSample)
		startDB := 20 * math.Log10(math.Max(float64(e.sustainLevel), 1e-9))
		lvl := math.Pow(10, (startDB+dB)/20)
		if lvl < 0 {
			lvl = 0
		}
		return float32(lvl)
	default:
		lvl := e.sustainLevel - e.fadeSlope*float32(e.stageSample)
		if lvl < 0 {
			lvl = 0
		}
		return lvl
	}
}

// curveValue evaluates the configured curve between begin and end at
// elapsed/total progress (spec.md §3 "Envelope"):
//
//	Linear: (1-p)*begin + p*end
//	Exp:    begin + (end-begin)*(1-exp(-p*n))/(1-exp(-n))
func (e *Envelope) curveValue(begin, end float32, elapsed, total int) float32 {
	if total <= 0 {
		return end
	}
	p := float64(elapsed) / float64(total)
	if p > 1 {
		p = 1
	}
	switch e.curve {
	case CurveExp:
		n := expTimeConstant
		shape := (1 - math.Exp(-p*n)) / (1 - math.Exp(-n))
		return begin + (end-begin)*float32(shape)
	default:
		return float32((1-p)*float64(begin) + p*float64(end))
	}
}
