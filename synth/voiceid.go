// voiceid.go - process-wide monotonically increasing voice id counter
// (spec.md §3 "Voice id", §9 "Global state")

package synth

import "sync/atomic"

var nextVoiceID uint64

// VoiceID identifies a single voice for the lifetime of the process.
type VoiceID uint64

// newVoiceID issues the next voice id atomically.
func newVoiceID() VoiceID {
	return VoiceID(atomic.AddUint64(&nextVoiceID, 1))
}
