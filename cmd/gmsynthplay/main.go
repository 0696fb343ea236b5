// Command gmsynthplay is a small interactive demo host for the gmsynth
// engine: it opens an oto/v3 stereo output stream, loads an optional
// instrument-table TOML file, and maps a raw-mode terminal keyboard to
// NoteOn/NoteOff events on channel 1 (spec.md §1 "a host plugs in an
// audio device and a MIDI source").
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gmsynth/internal/instcfg"
	"gmsynth/synth"
)

func main() {
	sampleRate := flag.Int("rate", 48000, "output sample rate in Hz")
	instrumentsPath := flag.String("instruments", "", "path to an instrument table TOML file (optional)")
	system := flag.String("system", "GS", "default system type: GM1, GM2, GS, or XG")
	flag.Parse()

	sysType, err := parseSystemType(*system)
	if err != nil {
		log.Fatalf("gmsynthplay: %v", err)
	}

	table := synth.NewInstrumentTable()
	if *instrumentsPath != "" {
		if err := instcfg.Load(*instrumentsPath, table); err != nil {
			log.Fatalf("gmsynthplay: loading instrument table: %v", err)
		}
	}

	eng := synth.NewSynthesizer(table, float64(*sampleRate), sysType)

	player, err := NewOtoPlayer(*sampleRate)
	if err != nil {
		log.Fatalf("gmsynthplay: opening audio device: %v", err)
	}
	defer player.Close()
	player.SetupPlayer(eng)
	player.Start()

	fmt.Println("gmsynth demo — keys a,w,s,e,d,f,t,g,y,h,u,j,k,o,l play notes, q quits")

	kb := NewKeyboardHost(eng, 1)
	kb.Start()
	defer kb.Stop()

	<-kb.Stopped()
	kb.Stop()
	player.Close()
	eng.Dispose()
	fmt.Fprintln(os.Stderr, "gmsynthplay: exiting")
}

func parseSystemType(s string) (synth.SystemType, error) {
	switch s {
	case "GM1":
		return synth.SystemGM1, nil
	case "GM2":
		return synth.SystemGM2, nil
	case "GS":
		return synth.SystemGS, nil
	case "XG":
		return synth.SystemXG, nil
	default:
		return 0, fmt.Errorf("unknown system type %q (want GM1, GM2, GS, or XG)", s)
	}
}
