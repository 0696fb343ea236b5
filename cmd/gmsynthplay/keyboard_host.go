// keyboard_host.go - raw-mode stdin reader driving a toy QWERTY piano
//
// Grounded on the teacher's TerminalHost in terminal_host.go: raw mode
// via golang.org/x/term, a non-blocking syscall.Read loop in its own
// goroutine, stop via a closed channel plus a join on "done". Adapted
// from routing bytes into chip MMIO to routing them into MIDI NoteOn
// events against a fixed one-octave-plus layout.

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"gmsynth/synth"
)

// keymap maps lower-case QWERTY keys to semitone offsets from C4
// (MIDI note 60), white and black keys from C4 up to D5 (one octave
// plus two semitones).
var keymap = map[byte]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12, 'o': 13, 'l': 14,
}

// KeyboardHost reads raw stdin bytes and turns them into NoteOn/NoteOff
// events against one Synthesizer channel.
type KeyboardHost struct {
	eng     *synth.Synthesizer
	channel int

	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State

	down map[byte]bool
}

// NewKeyboardHost returns a host that feeds NoteOn/NoteOff into eng on
// the given 1-based channel.
func NewKeyboardHost(eng *synth.Synthesizer, channel int) *KeyboardHost {
	return &KeyboardHost{
		eng:     eng,
		channel: channel,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		down:    make(map[byte]bool),
	}
}

// Start puts stdin into raw, non-blocking mode and begins reading in a
// goroutine. Call Stop to restore stdin.
func (h *KeyboardHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyboard_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "keyboard_host: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				h.handleByte(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
}

func (h *KeyboardHost) handleByte(b byte) {
	if b == 'q' || b == 3 { // 'q' or Ctrl-C
		h.stopped.Do(func() { close(h.stopCh) })
		return
	}
	semis, ok := keymap[b]
	if !ok {
		return
	}
	if h.down[b] {
		return // key-repeat from held keys, ignore
	}
	h.down[b] = true
	note := 60 + semis
	h.eng.EnqueueEvent(synth.Message{Type: synth.NoteOn, Channel: h.channel, Data1: uint8(note), Data2: 100})
	go h.releaseAfter(b, note, 250*time.Millisecond)
}

// releaseAfter sends NoteOff a fixed duration after a key press, since
// this demo host cannot observe raw-mode key-up events over a plain tty.
func (h *KeyboardHost) releaseAfter(b byte, note int, d time.Duration) {
	time.Sleep(d)
	h.down[b] = false
	h.eng.EnqueueEvent(synth.Message{Type: synth.NoteOff, Channel: h.channel, Data1: uint8(note)})
}

// Stopped reports whether the user asked to quit.
func (h *KeyboardHost) Stopped() <-chan struct{} {
	return h.stopCh
}

// Stop terminates the read goroutine and restores stdin.
func (h *KeyboardHost) Stop() {
	h.stopped.Do(func() { close(h.stopCh) })
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
