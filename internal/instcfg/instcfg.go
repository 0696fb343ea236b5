// Package instcfg loads instrument-table TOML files into a
// synth.InstrumentTable (spec.md §6 "Configuration surface").
//
// The instrument table's key space is two levels deeper than a plain
// struct maps cleanly onto ([melody.<progId>] and
// [melody.<progId>.<bankMSB>.<bankLSB>]), so this loader decodes into
// the generic map[string]interface{} shape BurntSushi/toml produces
// for untyped tables and walks it by hand, rather than forcing a
// struct schema onto a variable-depth document.
package instcfg

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"gmsynth/synth"
)

var melodyScalarFields = map[string]bool{
	"caption": true, "volume": true, "attack": true, "hold": true,
	"decay": true, "sustain": true, "fade": true, "release": true,
	"wave_form": true, "drum_like": true, "note_offset": true, "system_type": true,
}

var drumScalarFields = map[string]bool{
	"pitch": true, "volume": true, "attack": true, "hold": true,
	"decay": true, "pan": true, "system_type": true,
}

// Load reads path and registers every melody/drum entry it contains
// into table (spec.md §4.F's AddMelodyParam/AddDrumParam).
func Load(path string, table *synth.InstrumentTable) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("instcfg: read %s: %w", path, err)
	}
	return LoadBytes(data, table)
}

// LoadBytes parses raw TOML bytes and registers their contents.
func LoadBytes(data []byte, table *synth.InstrumentTable) error {
	var doc map[string]interface{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return fmt.Errorf("instcfg: decode: %w", err)
	}

	if melody, ok := doc["melody"].(map[string]interface{}); ok {
		for progKey, node := range melody {
			progID, err := strconv.Atoi(progKey)
			if err != nil {
				return fmt.Errorf("instcfg: melody program id %q: %w", progKey, err)
			}
			nodeMap, ok := node.(map[string]interface{})
			if !ok {
				continue
			}
			if err := walkMelody(table, progID, nodeMap); err != nil {
				return err
			}
		}
	}

	if drum, ok := doc["drum"].(map[string]interface{}); ok {
		for noteKey, node := range drum {
			noteNo, err := strconv.Atoi(noteKey)
			if err != nil {
				return fmt.Errorf("instcfg: drum note %q: %w", noteKey, err)
			}
			nodeMap, ok := node.(map[string]interface{})
			if !ok {
				continue
			}
			if err := walkDrum(table, noteNo, nodeMap); err != nil {
				return err
			}
		}
	}

	return nil
}

// walkMelody registers node as a bank(0,0) melody entry (if it has any
// scalar fields) and recurses into any non-scalar keys as bankMSB
// sub-tables (spec.md §6 `[melody.<progId>.<bankMSB>.<bankLSB>]`).
func walkMelody(table *synth.InstrumentTable, progID int, node map[string]interface{}) error {
	if hasScalar(node, melodyScalarFields) {
		p, override, err := decodeMelodyEntry(node)
		if err != nil {
			return fmt.Errorf("instcfg: melody %d: %w", progID, err)
		}
		table.AddMelodyParam(override, 0, 0, progID, p)
	}
	for msbKey, msbNode := range node {
		if melodyScalarFields[msbKey] {
			continue
		}
		msbMap, ok := msbNode.(map[string]interface{})
		if !ok {
			continue
		}
		bankMSB, err := strconv.Atoi(msbKey)
		if err != nil {
			continue
		}
		for lsbKey, lsbNode := range msbMap {
			lsbMap, ok := lsbNode.(map[string]interface{})
			if !ok {
				continue
			}
			bankLSB, err := strconv.Atoi(lsbKey)
			if err != nil {
				continue
			}
			p, override, err := decodeMelodyEntry(lsbMap)
			if err != nil {
				return fmt.Errorf("instcfg: melody %d.%d.%d: %w", progID, bankMSB, bankLSB, err)
			}
			table.AddMelodyParam(override, uint8(bankMSB), uint8(bankLSB), progID, p)
		}
	}
	return nil
}

func walkDrum(table *synth.InstrumentTable, noteNo int, node map[string]interface{}) error {
	if hasScalar(node, drumScalarFields) {
		p, override, err := decodeDrumEntry(noteNo, node)
		if err != nil {
			return fmt.Errorf("instcfg: drum %d: %w", noteNo, err)
		}
		table.AddDrumParam(override, 0, 0, noteNo, p)
	}
	for msbKey, msbNode := range node {
		if drumScalarFields[msbKey] {
			continue
		}
		msbMap, ok := msbNode.(map[string]interface{})
		if !ok {
			continue
		}
		bankMSB, err := strconv.Atoi(msbKey)
		if err != nil {
			continue
		}
		for lsbKey, lsbNode := range msbMap {
			lsbMap, ok := lsbNode.(map[string]interface{})
			if !ok {
				continue
			}
			bankLSB, err := strconv.Atoi(lsbKey)
			if err != nil {
				continue
			}
			p, override, err := decodeDrumEntry(noteNo, lsbMap)
			if err != nil {
				return fmt.Errorf("instcfg: drum %d.%d.%d: %w", noteNo, bankMSB, bankLSB, err)
			}
			table.AddDrumParam(override, uint8(bankMSB), uint8(bankLSB), noteNo, p)
		}
	}
	return nil
}

func hasScalar(node map[string]interface{}, known map[string]bool) bool {
	for k := range node {
		if known[k] {
			return true
		}
	}
	return false
}

func decodeMelodyEntry(node map[string]interface{}) (synth.MelodyParam, *synth.SystemType, error) {
	p := synth.MelodyParam{Volume: 1.0, Sustain: 0.8, Curve: synth.CurveExp}
	p.Caption = strField(node, "caption")
	if v, ok := floatField(node, "volume"); ok {
		p.Volume = float32(v)
	}
	if v, ok := floatField(node, "attack"); ok {
		p.Attack = v
	}
	if v, ok := floatField(node, "hold"); ok {
		p.Hold = v
	}
	if v, ok := floatField(node, "decay"); ok {
		p.Decay = v
	}
	if v, ok := floatField(node, "sustain"); ok {
		p.Sustain = float32(v)
	}
	if v, ok := floatField(node, "fade"); ok {
		p.FadeSlope = float32(v)
	}
	if v, ok := floatField(node, "release"); ok {
		p.Release = v
	}
	if v, ok := node["wave_form"].(string); ok {
		wf, err := parseWaveForm(v)
		if err != nil {
			return p, nil, err
		}
		p.WaveForm = wf
	}
	if v, ok := node["drum_like"].(bool); ok {
		p.DrumLike = v
	}
	if v, ok := floatField(node, "note_offset"); ok {
		p.NoteOffset = int(v)
	}
	override, err := parseSystemOverride(node)
	if err != nil {
		return p, nil, err
	}
	return p, override, nil
}

func decodeDrumEntry(defaultPitch int, node map[string]interface{}) (synth.DrumParam, *synth.SystemType, error) {
	p := synth.DrumParam{Pitch: defaultPitch, Volume: 0.8, Pan: 0.5, Curve: synth.CurveLinear}
	if v, ok := floatField(node, "pitch"); ok {
		p.Pitch = int(v)
	}
	if v, ok := floatField(node, "volume"); ok {
		p.Volume = float32(v)
	}
	if v, ok := floatField(node, "attack"); ok {
		p.Attack = v
	}
	if v, ok := floatField(node, "hold"); ok {
		p.Hold = v
	}
	if v, ok := floatField(node, "decay"); ok {
		p.Decay = v
	}
	if v, ok := floatField(node, "pan"); ok {
		p.Pan = float32(v)
	}
	override, err := parseSystemOverride(node)
	if err != nil {
		return p, nil, err
	}
	return p, override, nil
}

func parseSystemOverride(node map[string]interface{}) (*synth.SystemType, error) {
	v, ok := node["system_type"].(string)
	if !ok {
		return nil, nil
	}
	var sys synth.SystemType
	switch v {
	case "GM1":
		sys = synth.SystemGM1
	case "GM2":
		sys = synth.SystemGM2
	case "GS":
		sys = synth.SystemGS
	case "XG":
		sys = synth.SystemXG
	default:
		return nil, fmt.Errorf("unknown system_type %q", v)
	}
	return &sys, nil
}

func parseWaveForm(v string) (synth.WaveForm, error) {
	switch v {
	case "square":
		return synth.WaveFormSquare, nil
	case "sine":
		return synth.WaveFormSine, nil
	case "triangle":
		return synth.WaveFormTriangle, nil
	case "sawtooth":
		return synth.WaveFormSawtooth, nil
	case "noise":
		return synth.WaveFormNoise, nil
	default:
		return 0, fmt.Errorf("unknown wave_form %q", v)
	}
}

func strField(node map[string]interface{}, key string) string {
	if v, ok := node[key].(string); ok {
		return v
	}
	return ""
}

// floatField reads a numeric TOML value regardless of whether the
// decoder produced an int64 or a float64 for it.
func floatField(node map[string]interface{}, key string) (float64, bool) {
	switch v := node[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
