package synth

import (
	"math"
	"testing"
)

func testBuildContext() VoiceBuildContext {
	table := NewInstrumentTable()
	table.AddMelodyParam(nil, 0, 0, 0, MelodyParam{
		Volume: 1, Attack: 0.001, Hold: 0, Decay: 0.01,
		Sustain: 0.8, FadeSlope: 0.0001, Release: 0.02,
		WaveForm: WaveFormSquare, Curve: CurveExp,
	})
	table.AddDrumParam(nil, 0, 0, 36, DrumParam{
		Volume: 0.8, Attack: 0.001, Hold: 0, Decay: 0.01, Pan: 0.5, Curve: CurveLinear,
	})
	return VoiceBuildContext{
		SampleRate:  1000,
		System:      SystemGM1,
		Wavetables:  NewWaveTableFactory(),
		Instruments: table,
	}
}

func TestChannel10DefaultsToDrum(t *testing.T) {
	ch := NewChannel(10, SystemGM1)
	if !ch.drum {
		t.Error("channel 10 must default to drum mode")
	}
	ch2 := NewChannel(1, SystemGM1)
	if ch2.drum {
		t.Error("channel 1 must not default to drum mode")
	}
}

func TestChannelNoteOnNoteOffLifecycle(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ctx := testBuildContext()
	ch.NoteOn(60, 100, ctx)
	if len(ch.voices) != 1 {
		t.Fatalf("expected 1 voice after noteOn, got %d", len(ch.voices))
	}
	ch.NoteOff(60, true)
	if ch.voices[0].EnvelopeStage() != StageRelease && ch.voices[0].EnvelopeStage() != StageFree {
		t.Errorf("noteOff(allowTailOff=true) should start release, got stage %v", ch.voices[0].EnvelopeStage())
	}

	ch.NoteOn(61, 100, ctx)
	ch.NoteOff(61, false)
	for _, v := range ch.voices {
		if v.NoteNo() == 61 {
			t.Error("noteOff(allowTailOff=false) should discard the voice immediately")
		}
	}
}

func TestChannelRetriggerSameNoteStopsPrevious(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ctx := testBuildContext()
	ch.NoteOn(60, 100, ctx)
	first := ch.voices[0]
	ch.NoteOn(60, 100, ctx)
	if first.EnvelopeStage() != StageRelease {
		t.Errorf("retriggering the same note must noteOff the previous voice, stage=%v", first.EnvelopeStage())
	}
	if len(ch.voices) != 2 {
		t.Fatalf("expected old+new voice present until old voice finishes, got %d", len(ch.voices))
	}
}

func TestChannelPedalHoldsNote(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ctx := testBuildContext()
	ch.NoteOn(60, 100, ctx)
	ch.ControlChange(64, 127) // pedal on
	ch.NoteOff(60, true)
	if ch.voices[0].EnvelopeStage() == StageRelease {
		t.Error("pedal should hold the note out of Release")
	}
	ch.ControlChange(64, 0) // pedal off
	if ch.voices[0].EnvelopeStage() != StageRelease {
		t.Error("releasing the pedal on a pending noteOff must force Release")
	}
}

func TestChannelPedalAlreadyDownHoldsNewNote(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ctx := testBuildContext()
	ch.ControlChange(64, 127) // pedal already down
	ch.NoteOn(60, 100, ctx)
	ch.NoteOff(60, true)
	if ch.voices[0].EnvelopeStage() == StageRelease {
		t.Error("a note played while the pedal is already down must start held, not release on noteOff")
	}
	ch.ControlChange(64, 0) // pedal off
	if ch.voices[0].EnvelopeStage() != StageRelease {
		t.Error("releasing the pedal on a pending noteOff must force Release")
	}
}

func TestChannelCC72RescalesReleasingVoicesOnly(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ctx := testBuildContext()
	ch.NoteOn(60, 100, ctx)
	ch.NoteOn(64, 100, ctx)
	ch.NoteOff(60, true) // only this voice is releasing
	if ch.voices[0].EnvelopeStage() != StageRelease {
		t.Fatalf("expected voice 0 in Release, got %v", ch.voices[0].EnvelopeStage())
	}
	before := ch.voices[1].BaseReleaseSeconds()
	releasingBefore := ch.voices[0].env.releaseSamples
	ch.ControlChange(72, 100) // raise release time
	if ch.voices[0].env.releaseSamples <= releasingBefore {
		t.Errorf("CC72 must lengthen the releasing voice's release: %d -> %d samples", releasingBefore, ch.voices[0].env.releaseSamples)
	}
	if ch.voices[1].BaseReleaseSeconds() != before {
		t.Error("CC72 must not touch a non-releasing voice's base release time")
	}
}

func TestChannelAllSoundOffDiscardsInstantly(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ctx := testBuildContext()
	ch.NoteOn(60, 100, ctx)
	ch.NoteOn(64, 100, ctx)
	ch.ControlChange(120, 0)
	if len(ch.voices) != 0 {
		t.Errorf("CC120 must discard all voices immediately, got %d remaining", len(ch.voices))
	}
}

func TestChannelVolumePanExpressionCC(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ch.ControlChange(7, 127)
	if ch.volume != 1.0 {
		t.Errorf("CC7=127 should set volume=1.0, got %v", ch.volume)
	}
	ch.ControlChange(11, 0)
	if ch.expression != 0 {
		t.Errorf("CC11=0 should set expression=0, got %v", ch.expression)
	}
	ch.ControlChange(10, 1)
	if ch.pan != 0 {
		t.Errorf("CC10=1 should clamp pan to 0, got %v", ch.pan)
	}
	ch.ControlChange(10, 127)
	if ch.pan != 1 {
		t.Errorf("CC10=127 should clamp pan to 1, got %v", ch.pan)
	}
}

func TestChannelPitchBendSemitoneExact(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ch.pitchBendSensitivity = 2
	ctx := testBuildContext()
	ch.NoteOn(69, 100, ctx)

	ch.PitchBend(8192)
	if ch.voices[0].FrequencyHz() == 0 {
		t.Fatal("voice frequency should not be zero")
	}
	want := 440.0 * math.Pow(2, 2.0/12)
	if !almostEqual(ch.voices[0].FrequencyHz(), want, 1e-3) {
		t.Errorf("pitch bend raw=8192 at sensitivity=2: got %v, want %v", ch.voices[0].FrequencyHz(), want)
	}

	ch.PitchBend(-8192)
	want = 440.0 * math.Pow(2, -2.0/12)
	if !almostEqual(ch.voices[0].FrequencyHz(), want, 1e-3) {
		t.Errorf("pitch bend raw=-8192 at sensitivity=2: got %v, want %v", ch.voices[0].FrequencyHz(), want)
	}

	ch.PitchBend(0)
	if !almostEqual(ch.voices[0].FrequencyHz(), 440.0, 1e-3) {
		t.Errorf("pitch bend raw=0: got %v, want 440", ch.voices[0].FrequencyHz())
	}
}

func TestChannelXGNRPNSwitchesDrumMode(t *testing.T) {
	ch := NewChannel(2, SystemXG)
	if ch.drum {
		t.Fatal("channel 2 should not default to drum")
	}
	ch.ControlChange(99, 127) // NRPN MSB = 127
	ch.ControlChange(98, 0)   // NRPN LSB = 0
	ch.ControlChange(6, 1)    // data entry MSB, any value
	if !ch.drum {
		t.Error("NRPN(127,0) under XG should switch the channel into drum mode")
	}
}

func TestChannelRPNPitchBendSensitivity(t *testing.T) {
	ch := NewChannel(1, SystemGM1)
	ch.ControlChange(101, 0) // RPN MSB = 0
	ch.ControlChange(100, 0) // RPN LSB = 0
	ch.ControlChange(6, 7)   // data entry MSB = 7 semitones
	if ch.pitchBendSensitivity != 7 {
		t.Errorf("RPN(0,0) data MSB=7 should set sensitivity=7, got %v", ch.pitchBendSensitivity)
	}
}

func TestChannelDrumNRPNPanOverride(t *testing.T) {
	ch := NewChannel(10, SystemGS)
	ctx := testBuildContext()
	ch.ControlChange(99, 28) // NRPN MSB = 28 (pan)
	ch.ControlChange(98, 36) // NRPN LSB = noteNo 36
	ch.ControlChange(6, 100) // data MSB = 100
	ch.NoteOn(36, 100, ctx)
	pan, has := ch.voices[0].Pan()
	if !has {
		t.Fatal("drum NRPN pan override should set a per-voice pan")
	}
	want := float32(100) / 127
	if !almostEqualF32(pan, want, 1e-3) {
		t.Errorf("drum NRPN(28,36) pan: got %v, want %v", pan, want)
	}
}

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func almostEqualF32(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
