// digest.go - read-only observer snapshot (spec.md §4.I "digest()",
// §5 "statistics snapshot")
//
// Built once per rendered block on the audio thread and published with
// an atomic store; observer threads load it without a lock. Tearing of
// unrelated fields across a torn read is tolerated per spec.md §5, so
// a plain struct behind atomic.Pointer is sufficient: each load sees
// one complete, consistent snapshot (the pointer swap is atomic), even
// though the snapshot itself may be one block stale by the time it is
// read.

package synth

// VoiceDigest is a read-only snapshot of one active voice.
type VoiceDigest struct {
	Channel        int
	ResolvedFreqHz float64
	EnvelopeLevel  float32
	EnvelopeStage  EnvelopeStage
}

// ChannelDigest is a read-only snapshot of one channel's controller
// state plus its active voices.
type ChannelDigest struct {
	Program    int
	BankMSB    uint8
	BankLSB    uint8
	Volume     float32
	Expression float32
	Pan        float32
	PitchBend  int16
	Pedal      bool
	Drum       bool
	PolyCount  int
	Voices     []VoiceDigest
}

// Digest is the full engine snapshot returned by Synthesizer.Digest().
type Digest struct {
	System       SystemType
	MasterVolume float32
	Channels     [16]ChannelDigest
}

// publishDigest builds a fresh snapshot from current audio-thread-owned
// state and atomically installs it (spec.md §5 "store-release").
func (s *Synthesizer) publishDigest() {
	d := &Digest{System: s.system, MasterVolume: s.masterVol}
	for i, ch := range s.channels {
		cd := ChannelDigest{
			Program:    ch.program,
			BankMSB:    ch.bankMSB,
			BankLSB:    ch.bankLSB,
			Volume:     ch.volume,
			Expression: ch.expression,
			Pan:        ch.pan,
			PitchBend:  ch.pitchBendRaw,
			Pedal:      ch.pedal,
			Drum:       ch.drum,
			PolyCount:  ch.PolyphonyCount(),
		}
		for _, v := range ch.voices {
			if !v.IsBusy() {
				continue
			}
			cd.Voices = append(cd.Voices, VoiceDigest{
				Channel:        v.channel,
				ResolvedFreqHz: v.FrequencyHz(),
				EnvelopeLevel:  v.EnvelopeLevel(),
				EnvelopeStage:  v.EnvelopeStage(),
			})
		}
		d.Channels[i] = cd
	}
	s.digest.Store(d)
}
