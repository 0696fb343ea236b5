// synth.go - the top-level Synthesizer (spec.md §4.I)
//
// Grounded on the teacher's SoundChip in audio_chip.go: a small fixed
// set of channels mixed per-sample into a stereo accumulator, then
// run through master filters and a master volume before being written
// to the host's output buffer. Generalised from 4 fixed oscillator
// channels to 16 MIDI channels, and from register pokes to
// handleMidiEvent/renderNextBlock.

package synth

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// MasterAttenuator is the fixed headroom scalar applied after the
// master filters and master volume (spec.md §4.I step 5). The value
// is carried over unchanged from the historical implementation this
// spec distills (spec.md §9).
const MasterAttenuator = 0.075

// Synthesizer is the engine's top-level object: 16 channels, a shared
// voice-building context, two master anti-aliasing filters, and the
// live MIDI event queue (spec.md §4.I, §5).
type Synthesizer struct {
	sampleRate float64
	system     SystemType

	channels [16]*Channel

	wavetables  *WaveTableFactory
	instruments *InstrumentTable

	masterLpfL *Biquad
	masterLpfR *Biquad
	masterVol  float32 // CC-scaled 0..1

	// queueMu guards pending, the short-bounded-lock alternative to a
	// lock-free SPSC queue that spec.md §5 explicitly allows for the
	// delivery path from event-producing threads. It is taken only to
	// append/drain the slice, never while computing samples.
	queueMu sync.Mutex
	pending []Message

	digest atomic.Pointer[Digest]

	// Logger receives one message per block, at most, when a master
	// sample went non-finite and was clamped to 0 (spec.md §7
	// NumericInvalid). Defaults to log.Default(); callers may replace it
	// before the first RenderNextBlock call.
	Logger *log.Logger

	disposed bool
}

// NewSynthesizer builds a synthesizer with the given instrument table
// (already loaded; spec.md §4.F) and initial sample rate/system type.
// The instrument table and wavetable factory are immutable after
// construction and shared by reference with no locking (spec.md §5
// "Immutable data").
func NewSynthesizer(instruments *InstrumentTable, sampleRate float64, system SystemType) *Synthesizer {
	s := &Synthesizer{
		instruments: instruments,
		wavetables:  NewWaveTableFactory(),
		Logger:      log.Default(),
	}
	s.SetSampleRate(sampleRate)
	s.Reset(system)
	return s
}

// SetSampleRate implements spec.md §4.I: reconfigures the master
// filters and resets all channel/voice state.
func (s *Synthesizer) SetSampleRate(sr float64) {
	if sr <= 0 {
		return // InvalidArgument: local clamp, never propagates (spec.md §7)
	}
	s.sampleRate = sr
	s.masterLpfL = NewBiquad()
	s.masterLpfR = NewBiquad()
	s.masterLpfL.SetParam(BiquadLowpass, sr/3, sr, 1, 0)
	s.masterLpfR.SetParam(BiquadLowpass, sr/3, sr, 1, 0)
	s.Reset(s.system)
}

// Reset implements spec.md §4.I: sets all channels to defaults,
// clears pitch-bend/controller state, restores default pitch-bend
// sensitivity for the (possibly new) system type.
func (s *Synthesizer) Reset(system SystemType) {
	s.system = system
	for i := range s.channels {
		s.channels[i] = NewChannel(i+1, system)
	}
	s.masterVol = 1.0
}

func (s *Synthesizer) buildContext() VoiceBuildContext {
	return VoiceBuildContext{
		SampleRate:  s.sampleRate,
		System:      s.system,
		Wavetables:  s.wavetables,
		Instruments: s.instruments,
	}
}

// channelAt clamps a 1-based external channel number into [1,16]
// (spec.md §7 InvalidArgument: "channel out of range [1..16]").
func (s *Synthesizer) channelAt(channel int) *Channel {
	if channel < 1 {
		channel = 1
	}
	if channel > 16 {
		channel = 16
	}
	return s.channels[channel-1]
}

// EnqueueEvent is the delivery point for event-producing threads
// (spec.md §5): a short bounded lock, never held during sample
// computation. The audio thread drains it at the start of each block.
func (s *Synthesizer) EnqueueEvent(msg Message) {
	if s.disposed {
		return
	}
	s.queueMu.Lock()
	s.pending = append(s.pending, msg)
	s.queueMu.Unlock()
}

func (s *Synthesizer) drainQueue() []Message {
	s.queueMu.Lock()
	drained := s.pending
	s.pending = nil
	s.queueMu.Unlock()
	return drained
}

// HandleMidiEvent dispatches one MIDI message to the channel it
// addresses, or to the SysEx handler (spec.md §4.I). It must only be
// called from the audio thread (directly, or via RenderNextBlock's
// drain of queued/scheduled events).
func (s *Synthesizer) HandleMidiEvent(msg Message) {
	if s.disposed {
		return
	}
	if msg.Type == SysEx {
		s.handleSysEx(msg.SysExData)
		return
	}
	ch := s.channelAt(msg.Channel)
	ctx := s.buildContext()
	switch msg.Type {
	case NoteOn:
		ch.NoteOn(int(msg.Data1), int(msg.Data2), ctx)
	case NoteOff:
		ch.NoteOff(int(msg.Data1), true)
	case PolyphonicKeyPressure:
		ch.PolyphonicKeyPressure(int(msg.Data1), int(msg.Data2))
	case ControlChange:
		ch.ControlChange(int(msg.Data1), int(msg.Data2))
	case ProgramChange:
		ch.ProgramChange(int(msg.Data1))
	case ChannelPressure:
		ch.ChannelPressure(int(msg.Data1))
	case PitchBend:
		ch.PitchBend(msg.PitchBend14)
	default:
		// Unsupported: silently ignored (spec.md §7).
	}
}

func (s *Synthesizer) handleSysEx(data []byte) {
	cmd := ParseSysEx(data)
	switch cmd.Kind {
	case SysExGM1SystemOn:
		s.Reset(SystemGM1)
	case SysExGM2SystemOn:
		s.Reset(SystemGM2)
	case SysExGMSystemOff:
		s.Reset(SystemGS)
	case SysExMasterVolume:
		s.masterVol = cmd.MasterVolume
	case SysExGSReset, SysExSystemModeSet1, SysExSystemModeSet2:
		s.Reset(SystemGS)
	case SysExXGReset:
		s.Reset(SystemXG)
	case SysExGSDrumPart:
		ch := s.channelAt(cmd.Part)
		ch.drum = cmd.DrumMapNo != 0
	default:
		// MalformedSysEx / unrecognized: silently ignored (spec.md §7).
	}
}

// RenderNextBlock implements spec.md §4.I's five-step render
// algorithm. midiIn holds this block's scheduled events in addition to
// whatever EnqueueEvent delivered since the previous call; both are
// applied, in order, before any sample in the block is produced.
func (s *Synthesizer) RenderNextBlock(out []Frame, midiIn []TimedMessage, startSample, numSamples int) error {
	if s.disposed {
		return fmt.Errorf("synth: RenderNextBlock called after Dispose")
	}
	if numSamples < 0 {
		return fmt.Errorf("synth: numSamples must be >= 0, got %d", numSamples)
	}
	if numSamples == 0 {
		return nil
	}
	if len(out) < numSamples {
		return fmt.Errorf("synth: out buffer too small: have %d, need %d", len(out), numSamples)
	}

	for _, m := range s.drainQueue() {
		s.HandleMidiEvent(m)
	}
	for _, tm := range midiIn {
		rel := tm.Frame - startSample
		if rel < 0 || rel >= numSamples {
			continue
		}
		s.HandleMidiEvent(tm.Message)
	}

	for i := 0; i < numSamples; i++ {
		out[i] = Frame{}
	}

	loggedNumericInvalid := false
	for i := 0; i < numSamples; i++ {
		var sum Frame
		for _, ch := range s.channels {
			sum = sum.Add(ch.Update())
		}
		l := s.masterLpfL.UpdateFloat32(sum.L)
		r := s.masterLpfR.UpdateFloat32(sum.R)
		l *= s.masterVol * MasterAttenuator
		r *= s.masterVol * MasterAttenuator
		if !IsFinite(l) {
			l = 0
			loggedNumericInvalid = true
		}
		if !IsFinite(r) {
			r = 0
			loggedNumericInvalid = true
		}
		out[i] = Frame{L: l, R: r}
	}
	if loggedNumericInvalid && s.Logger != nil {
		s.Logger.Printf("synth: non-finite sample in block, clamped to 0")
	}

	s.publishDigest()
	return nil
}

// Dispose implements spec.md §5's teardown contract: after Dispose
// returns, RenderNextBlock/HandleMidiEvent/EnqueueEvent become no-ops
// (RenderNextBlock reports an error; the others silently drop, matching
// spec.md §7's "never propagate" InvalidArgument convention). The host
// is responsible for stopping its own audio device and event source
// first, as cmd/gmsynthplay's OtoPlayer.Close/KeyboardHost.Stop do,
// before calling Dispose on the engine itself.
func (s *Synthesizer) Dispose() {
	s.queueMu.Lock()
	s.pending = nil
	s.queueMu.Unlock()
	s.disposed = true
}

// SetMasterVolume sets the CC-scaled master volume (0..1) directly,
// bypassing SysEx Master Volume (useful for a host-level volume knob).
func (s *Synthesizer) SetMasterVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.masterVol = v
}

// Digest returns the most recently published read-only snapshot. Safe
// to call from any thread without blocking the audio thread (spec.md
// §5 "store-release... read without a lock").
func (s *Synthesizer) Digest() *Digest {
	return s.digest.Load()
}
