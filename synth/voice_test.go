package synth

import (
	"math"
	"testing"
)

func melodyTestParam() *MelodyParam {
	return &MelodyParam{
		Volume: 1.0, Attack: 0.001, Hold: 0, Decay: 0.01,
		Sustain: 0.8, FadeSlope: 0.0001, Release: 0.02,
		WaveForm: WaveFormSquare, Curve: CurveExp,
	}
}

func TestVoicePitchBendSemitoneExact(t *testing.T) {
	table := NewWaveTable(FuncSin, 1024, 1, 1, 0.5)
	v := NewMelodyVoice(newVoiceID(), 1, 44100, table, 69, 100, melodyTestParam())
	base := v.FrequencyHz()
	if math.Abs(base-440) > 1e-6 {
		t.Fatalf("A4 (note 69) should resolve to 440Hz, got %v", base)
	}

	v.SetPitchBendSemitones(2.0)
	want := 440 * math.Pow(2, 2.0/12)
	if math.Abs(v.FrequencyHz()-want) > 1e-3 {
		t.Errorf("pitch bend +2 semitones: got %v, want %v", v.FrequencyHz(), want)
	}

	v.SetPitchBendSemitones(-2.0)
	want = 440 * math.Pow(2, -2.0/12)
	if math.Abs(v.FrequencyHz()-want) > 1e-3 {
		t.Errorf("pitch bend -2 semitones: got %v, want %v", v.FrequencyHz(), want)
	}

	v.SetPitchBendSemitones(0)
	if math.Abs(v.FrequencyHz()-440) > 1e-3 {
		t.Errorf("pitch bend 0 semitones should restore base frequency, got %v", v.FrequencyHz())
	}
}

func TestMelodyVelocityGainFormula(t *testing.T) {
	got := melodyVelocityGain(127, 1.0, 0.8)
	if math.Abs(float64(got)-1.25) > 1e-3 {
		t.Errorf("max velocity gain should be instrumentVolume/max(sustain,0.8) = 1.25, got %v", got)
	}

	// Low sustain should clamp to 0.8 in the denominator, not explode.
	gotLowSustain := melodyVelocityGain(127, 1.0, 0.1)
	if math.Abs(float64(gotLowSustain)-1.25) > 1e-3 {
		t.Errorf("sustain below 0.8 must clamp denominator, got %v", gotLowSustain)
	}
}

func TestVoiceLifetimeReachesFree(t *testing.T) {
	table := NewWaveTable(FuncSin, 1024, 1, 1, 0.5)
	p := melodyTestParam()
	v := NewMelodyVoice(newVoiceID(), 1, 1000, table, 60, 100, p)
	if !v.IsBusy() {
		t.Fatal("freshly created voice should be busy")
	}
	budget := secondsToSamples(p.Attack+p.Hold+p.Decay, 1000) + 500
	for i := 0; i < budget && v.IsBusy(); i++ {
		v.Update()
	}
	v.NoteOff()
	releaseBudget := secondsToSamples(p.Release, 1000) + 10
	for i := 0; i < releaseBudget; i++ {
		if !v.IsBusy() {
			return
		}
		v.Update()
	}
	if v.IsBusy() {
		t.Error("voice did not reach Free within A+H+D+R+epsilon samples of noteOff")
	}
}

func TestVoiceHoldDelaysRelease(t *testing.T) {
	table := NewWaveTable(FuncSin, 1024, 1, 1, 0.5)
	v := NewMelodyVoice(newVoiceID(), 1, 1000, table, 60, 100, melodyTestParam())
	v.SetHold(true)
	v.NoteOff()
	if v.EnvelopeStage() == StageRelease {
		t.Error("held voice must not enter Release on noteOff")
	}
	v.SetHold(false)
	if v.EnvelopeStage() != StageRelease {
		t.Error("releasing hold with a pending noteOff must force Release")
	}
}

func TestVoiceDrumNoteOffIsNoOp(t *testing.T) {
	table := NewWaveTable(FuncWhiteNoise, 1024, 62.5, 1, 0.5)
	p := &DrumParam{Volume: 0.8, Attack: 0.001, Hold: 0, Decay: 0.01, Pan: 0.5, Curve: CurveLinear}
	v := NewDrumVoice(newVoiceID(), 10, 1000, table, 36, 100, p)
	stageBefore := v.EnvelopeStage()
	v.NoteOff()
	if v.EnvelopeStage() != stageBefore {
		t.Error("drum voice noteOff must be a no-op")
	}
}
