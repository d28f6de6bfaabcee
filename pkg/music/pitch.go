// Package music implements the mozart music-theory engine: pitches, scales,
// time signatures, the text melody notation, transposition and the Song model.
package music

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// PitchClass is a note name without octave, in semitones above C (0-11).
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// Enharmonic aliases.
const (
	DFlat = CSharp
	EFlat = DSharp
	GFlat = FSharp
	AFlat = GSharp
	BFlat = ASharp
)

// Spelling selects how black keys are displayed.
type Spelling int

const (
	Sharp Spelling = iota
	Flat
)

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// letterSemitones maps natural note letters to pitch classes.
var letterSemitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// NewPitchClass normalizes any semitone count into 0-11.
func NewPitchClass(semitones int) PitchClass {
	return PitchClass(mod(semitones, 12))
}

// Name returns the display name for the requested spelling.
func (pc PitchClass) Name(s Spelling) string {
	if s == Flat {
		return flatNames[pc.norm()]
	}
	return sharpNames[pc.norm()]
}

func (pc PitchClass) String() string {
	return pc.Name(Sharp)
}

// Transpose moves the pitch class by semitones, wrapping around the octave.
func (pc PitchClass) Transpose(semitones int) PitchClass {
	return NewPitchClass(int(pc) + semitones)
}

// IntervalTo returns the ascending distance in semitones to other.
func (pc PitchClass) IntervalTo(other PitchClass) int {
	return mod(int(other)-int(pc), 12)
}

func (pc PitchClass) norm() int {
	return mod(int(pc), 12)
}

// AllPitchClasses returns the 12 classes in chromatic order.
func AllPitchClasses() []PitchClass {
	out := make([]PitchClass, 12)
	for i := range out {
		out[i] = PitchClass(i)
	}
	return out
}

// ParsePitchClass parses names such as "C", "c#", "Db", "F♯" or "Cbb".
func ParsePitchClass(s string) (PitchClass, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, validationErrorf("empty pitch class")
	}
	letter := s[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	base, ok := letterSemitones[letter]
	if !ok {
		return 0, validationErrorf("unknown note letter %q", s[:1])
	}
	shift := 0
	for _, r := range s[1:] {
		switch r {
		case '#', '♯':
			shift++
		case 'b', '♭':
			shift--
		default:
			return 0, validationErrorf("unknown accidental %q in %q", r, s)
		}
	}
	return NewPitchClass(base + shift), nil
}

// Pitch is an absolute pitch as a MIDI note number (0-127, 60 = middle C).
type Pitch int

const (
	MinPitch  Pitch = 0
	MaxPitch  Pitch = 127
	MiddleC   Pitch = 60
	ConcertA4 Pitch = 69
)

// NewPitch builds a pitch from a class and a scientific-pitch octave (C4 = 60).
func NewPitch(pc PitchClass, octave int) (Pitch, error) {
	return PitchFromMIDI(12*(octave+1) + pc.norm())
}

// PitchFromMIDI validates a MIDI note number.
func PitchFromMIDI(n int) (Pitch, error) {
	if n < int(MinPitch) || n > int(MaxPitch) {
		return 0, rangeErrorf("pitch %d outside [0,127]", n)
	}
	return Pitch(n), nil
}

// ParsePitch accepts a pitch name such as "C4" or "Bb3", or a MIDI number.
func ParsePitch(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return PitchFromMIDI(n)
	}
	if s == "" || s[len(s)-1] < '0' || s[len(s)-1] > '9' {
		return 0, validationErrorf("invalid pitch %q", s)
	}
	t, err := ParseToken(s)
	if err != nil {
		return 0, err
	}
	if t.Rest {
		return 0, validationErrorf("invalid pitch %q", s)
	}
	return t.Pitch, nil
}

// Valid reports whether p lies in the MIDI range.
func (p Pitch) Valid() bool {
	return p >= MinPitch && p <= MaxPitch
}

// Class returns the pitch class.
func (p Pitch) Class() PitchClass {
	return NewPitchClass(int(p))
}

// Octave returns the scientific-pitch octave (C4 = 60, C-1 = 0).
func (p Pitch) Octave() int {
	return floorDiv(int(p), 12) - 1
}

// Transpose returns p moved by semitones, or ErrRange if the result leaves [0,127].
func (p Pitch) Transpose(semitones int) (Pitch, error) {
	return PitchFromMIDI(int(p) + semitones)
}

// Name renders the pitch as e.g. "F#5" or "Gb5".
func (p Pitch) Name(s Spelling) string {
	return p.Class().Name(s) + strconv.Itoa(p.Octave())
}

func (p Pitch) String() string {
	return p.Name(Sharp)
}

// Frequency returns the equal-tempered frequency in Hz with A4 = 440.
func (p Pitch) Frequency() float64 {
	return 440.0 * math.Pow(2, float64(p-ConcertA4)/12.0)
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func floorDiv(a, n int) int {
	q := a / n
	if (a%n != 0) && ((a < 0) != (n < 0)) {
		q--
	}
	return q
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
