package synth

import "testing"

func TestParseSysExRecognizedPatterns(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want SysExKind
	}{
		{"GM1 On", []byte{0x7E, 0x7F, 0x09, 0x01}, SysExGM1SystemOn},
		{"GM2 On", []byte{0x7E, 0x7F, 0x09, 0x03}, SysExGM2SystemOn},
		{"GM Off", []byte{0x7E, 0x7F, 0x09, 0x02}, SysExGMSystemOff},
		{"Master Volume", []byte{0x7E, 0x00, 0x04, 0x01, 0x00, 0x64}, SysExMasterVolume},
		{"GS Reset", []byte{0x41, 0x10, 0x42, 0x12, 0x40, 0x00, 0x7F, 0x00, 0x41}, SysExGSReset},
		{"System Mode Set 1", []byte{0x41, 0x10, 0x42, 0x12, 0x00, 0x00, 0x7F, 0x00, 0x01}, SysExSystemModeSet1},
		{"System Mode Set 2", []byte{0x41, 0x10, 0x42, 0x12, 0x00, 0x00, 0x7F, 0x01, 0x00}, SysExSystemModeSet2},
		{"GS Drum Part", []byte{0x41, 0x10, 0x42, 0x12, 0x40, 0x12, 0x15, 0x01}, SysExGSDrumPart},
		{"XG Reset", []byte{0x43, 0x10, 0x4C, 0x00, 0x00, 0x7E, 0x00}, SysExXGReset},
		{"unrecognized", []byte{0x7F, 0x01, 0x02}, SysExUnknown},
	}
	for _, c := range cases {
		got := ParseSysEx(c.data)
		if got.Kind != c.want {
			t.Errorf("%s: ParseSysEx(%v).Kind = %v, want %v", c.name, c.data, got.Kind, c.want)
		}
	}
}

func TestParseSysExGM1RequiresBroadcastDeviceID(t *testing.T) {
	// GM1/GM2/GM-off carry a literal 0x7F at byte[1]; unlike the
	// device-id rows, it is part of the fixed pattern, not a wildcard.
	got := ParseSysEx([]byte{0x7E, 0x05, 0x09, 0x01})
	if got.Kind != SysExUnknown {
		t.Errorf("GM1 On with a non-broadcast device id should not match, got %v", got.Kind)
	}
}

func TestParseSysExDeviceIDWildcard(t *testing.T) {
	for _, dd := range []byte{0x00, 0x10, 0x7F} {
		data := []byte{0x41, dd, 0x42, 0x12, 0x40, 0x00, 0x7F, 0x00, 0x41}
		got := ParseSysEx(data)
		if got.Kind != SysExGSReset {
			t.Errorf("device id %#x should still match GS Reset, got %v", dd, got.Kind)
		}
	}
}

func TestParseSysExMasterVolumeValue(t *testing.T) {
	got := ParseSysEx([]byte{0x7E, 0x00, 0x04, 0x01, 0x00, 127})
	if got.Kind != SysExMasterVolume {
		t.Fatalf("expected SysExMasterVolume, got %v", got.Kind)
	}
	if got.MasterVolume != 1.0 {
		t.Errorf("vv=127 should map to master volume 1.0, got %v", got.MasterVolume)
	}
}

func TestParseSysExGSDrumPartFields(t *testing.T) {
	got := ParseSysEx([]byte{0x41, 0x10, 0x42, 0x12, 0x40, 0x11, 0x15, 7})
	if got.Kind != SysExGSDrumPart {
		t.Fatalf("expected SysExGSDrumPart, got %v", got.Kind)
	}
	if got.Part != 2 {
		t.Errorf("part nibble 0x1 should map to channel 2 (1-based), got %v", got.Part)
	}
	if got.DrumMapNo != 7 {
		t.Errorf("drum map number should be 7, got %v", got.DrumMapNo)
	}
}
