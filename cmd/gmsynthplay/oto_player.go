// oto_player.go - stereo oto/v3 pull-audio backend
//
// Grounded on the teacher's OtoPlayer in audio_backend_oto.go: an
// atomic.Pointer to the live sound source so Read() (called from oto's
// own audio callback goroutine) never blocks behind the mutex that
// guards setup/teardown, generalised from one mono chip's sample ring
// to the engine's own RenderNextBlock and from mono to interleaved
// stereo float32.

package main

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"gmsynth/synth"
)

const framesPerRead = 1024

// OtoPlayer drives an *oto.Player from a *synth.Synthesizer.
type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player

	synth atomic.Pointer[synth.Synthesizer] // lock-free Read() hot path

	frameBuf []synth.Frame
	started  bool
	mutex    sync.Mutex // setup/control only, never held in Read()
}

// NewOtoPlayer opens an oto context at sampleRate, 2-channel float32.
func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4096,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	return &OtoPlayer{ctx: ctx}, nil
}

// SetupPlayer installs the synthesizer and creates the oto player.
func (op *OtoPlayer) SetupPlayer(s *synth.Synthesizer) {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	op.synth.Store(s)
	op.player = op.ctx.NewPlayer(op)
	op.frameBuf = make([]synth.Frame, framesPerRead)
}

// Read implements io.Reader for oto's pull model: render one block of
// frames and interleave it into p as little-endian float32 stereo.
func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	s := op.synth.Load()
	if s == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	const bytesPerFrame = 8 // 2 channels * 4 bytes
	numFrames := len(p) / bytesPerFrame
	if numFrames == 0 {
		return 0, nil
	}
	if len(op.frameBuf) < numFrames {
		op.frameBuf = make([]synth.Frame, numFrames)
	}
	frames := op.frameBuf[:numFrames]

	if err := s.RenderNextBlock(frames, nil, 0, numFrames); err != nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	for i, f := range frames {
		putFloat32LE(p[i*8:], f.L)
		putFloat32LE(p[i*8+4:], f.R)
	}
	return numFrames * bytesPerFrame, nil
}

func putFloat32LE(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func (op *OtoPlayer) Start() {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) Stop() {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if op.started && op.player != nil {
		op.started = false
	}
}

func (op *OtoPlayer) Close() {
	op.Stop()
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if op.player != nil {
		op.player.Close()
		op.player = nil
	}
}
