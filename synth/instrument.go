// instrument.go - instrument parameter tables and fallback lookup
// (spec.md §3 "Instrument table", §4.F)

package synth

// SystemType is one of the GM/GS/XG sound-set conventions (spec.md §3).
type SystemType int

const (
	SystemGM1 SystemType = iota
	SystemGM2
	SystemGS
	SystemXG
)

// DefaultPitchBendSensitivity returns the semitone default for a
// system type: 12 for GM1, 2 for everything else (spec.md §3/§4.H).
func (s SystemType) DefaultPitchBendSensitivity() float64 {
	if s == SystemGM1 {
		return 12
	}
	return 2
}

// WaveForm selects which FuncGen seeds a melody voice's wavetable.
type WaveForm int

const (
	WaveFormSquare WaveForm = iota
	WaveFormSine
	WaveFormTriangle
	WaveFormSawtooth
	WaveFormNoise
)

func (w WaveForm) funcGenKind() FuncGenKind {
	switch w {
	case WaveFormSine:
		return FuncSin
	case WaveFormTriangle:
		return FuncTriangle
	case WaveFormSawtooth:
		return FuncSaw
	case WaveFormNoise:
		return FuncWhiteNoise
	default:
		return FuncSquare
	}
}

// MelodyParam is one melody instrument's parameter set (spec.md §3).
type MelodyParam struct {
	Caption         string
	Volume          float32 // instrument volume multiplier
	Attack          float64 // seconds
	Hold            float64 // seconds
	Decay           float64 // seconds
	Sustain         float32 // level 0..1
	FadeSlope       float32 // level/sample or dBFS/sample
	Release         float64 // seconds
	WaveForm        WaveForm
	DrumLike        bool
	NoteOffset      int
	Curve           EnvelopeCurve
}

// DrumParam is one drum-kit note's parameter set (spec.md §3).
type DrumParam struct {
	Pitch   int // note number this drum sound is tuned to
	Volume  float32
	Attack  float64
	Hold    float64
	Decay   float64
	Pan     float32 // 0..1, 0.5 = center
	Curve   EnvelopeCurve
}

// bankKey addresses a (systemType, bankMSB, bankLSB) tuple. A nil
// systemType pointer models the "None" wildcard used by the fallback
// chain (spec.md §4.F): we represent "None" with hasSystem=false so the
// zero value of SystemType never collides with a real entry.
type bankKey struct {
	hasSystem  bool
	system     SystemType
	bankMSB    uint8
	bankLSB    uint8
}

func exactBank(system SystemType, msb, lsb uint8) bankKey {
	return bankKey{hasSystem: true, system: system, bankMSB: msb, bankLSB: lsb}
}

func wildcardSystemBank(msb, lsb uint8) bankKey {
	return bankKey{hasSystem: false, bankMSB: msb, bankLSB: lsb}
}

// InstrumentTable holds melody and drum parameter sets keyed by bank
// and looked up with the four-level fallback chain in spec.md §4.F.
type InstrumentTable struct {
	melody map[bankKey]map[int]*MelodyParam
	drum   map[bankKey]map[int]*DrumParam
}

// NewInstrumentTable returns an empty table; use AddMelodyParam /
// AddDrumParam to populate it (the TOML loader in internal/instcfg
// does this at startup).
func NewInstrumentTable() *InstrumentTable {
	return &InstrumentTable{
		melody: make(map[bankKey]map[int]*MelodyParam),
		drum:   make(map[bankKey]map[int]*DrumParam),
	}
}

// AddMelodyParam registers a melody instrument under the given bank.
// A nil systemOverride registers it under the "None" system wildcard
// bank used by fallback levels 3 and 4.
func (t *InstrumentTable) AddMelodyParam(systemOverride *SystemType, bankMSB, bankLSB uint8, progID int, p MelodyParam) {
	key := keyFor(systemOverride, bankMSB, bankLSB)
	m := t.melody[key]
	if m == nil {
		m = make(map[int]*MelodyParam)
		t.melody[key] = m
	}
	pCopy := p
	m[progID] = &pCopy
}

// AddDrumParam registers a drum-kit note under the given bank.
func (t *InstrumentTable) AddDrumParam(systemOverride *SystemType, bankMSB, bankLSB uint8, noteNo int, p DrumParam) {
	key := keyFor(systemOverride, bankMSB, bankLSB)
	m := t.drum[key]
	if m == nil {
		m = make(map[int]*DrumParam)
		t.drum[key] = m
	}
	pCopy := p
	m[noteNo] = &pCopy
}

func keyFor(systemOverride *SystemType, bankMSB, bankLSB uint8) bankKey {
	if systemOverride == nil {
		return wildcardSystemBank(bankMSB, bankLSB)
	}
	return exactBank(*systemOverride, bankMSB, bankLSB)
}

// FindMelodyParam applies the four-level fallback chain from spec.md
// §4.F and returns the first hit, or nil if nothing matches any level.
func (t *InstrumentTable) FindMelodyParam(system SystemType, bankMSB, bankLSB uint8, progID int) *MelodyParam {
	for _, key := range fallbackKeys(system, bankMSB, bankLSB) {
		if m, ok := t.melody[key]; ok {
			if p, ok := m[progID]; ok {
				return p
			}
		}
	}
	return nil
}

// FindDrumParam is FindMelodyParam's drum-kit twin, keyed by noteNo.
func (t *InstrumentTable) FindDrumParam(system SystemType, bankMSB, bankLSB uint8, noteNo int) *DrumParam {
	for _, key := range fallbackKeys(system, bankMSB, bankLSB) {
		if m, ok := t.drum[key]; ok {
			if p, ok := m[noteNo]; ok {
				return p
			}
		}
	}
	return nil
}

// fallbackKeys returns the four lookup keys in priority order:
//  1. (systemType, bankMSB, bankLSB) exact
//  2. (systemType, 0, 0)
//  3. (None, bankMSB, bankLSB)
//  4. (None, 0, 0)
func fallbackKeys(system SystemType, bankMSB, bankLSB uint8) [4]bankKey {
	return [4]bankKey{
		exactBank(system, bankMSB, bankLSB),
		exactBank(system, 0, 0),
		wildcardSystemBank(bankMSB, bankLSB),
		wildcardSystemBank(0, 0),
	}
}

// defaultMelodyParam is the built-in fallback substituted when a
// lookup (after the full fallback chain) still finds nothing (spec.md
// §7 InvalidArgument handling for "unknown instrument lookup").
func defaultMelodyParam() MelodyParam {
	return MelodyParam{
		Caption:   "default",
		Volume:    1.0,
		Attack:    0.01,
		Hold:      0,
		Decay:     0.1,
		Sustain:   0.8,
		FadeSlope: 0.00002,
		Release:   0.2,
		WaveForm:  WaveFormSquare,
		Curve:     CurveExp,
	}
}

// defaultDrumParam is the built-in fallback for unknown drum notes.
func defaultDrumParam(noteNo int) DrumParam {
	return DrumParam{
		Pitch:  noteNo,
		Volume: 0.8,
		Attack: 0.001,
		Hold:   0,
		Decay:  0.15,
		Pan:    0.5,
		Curve:  CurveLinear,
	}
}
