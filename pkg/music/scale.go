package music

import (
	"fmt"
	"strings"
)

// ScaleType enumerates the supported seven-note scales.
type ScaleType int

const (
	Major ScaleType = iota
	NaturalMinor
	HarmonicMinor
	MelodicMinor
	Dorian
	Phrygian
	Lydian
	Mixolydian
	Locrian
)

// DegreesPerOctave is the step count of every supported scale.
const DegreesPerOctave = 7

// Intervals returns the semitone offsets of the seven degrees above the root.
func (t ScaleType) Intervals() [DegreesPerOctave]int {
	switch t {
	case NaturalMinor:
		return [7]int{0, 2, 3, 5, 7, 8, 10}
	case HarmonicMinor:
		return [7]int{0, 2, 3, 5, 7, 8, 11}
	case MelodicMinor:
		// ascending form
		return [7]int{0, 2, 3, 5, 7, 9, 11}
	case Dorian:
		return [7]int{0, 2, 3, 5, 7, 9, 10}
	case Phrygian:
		return [7]int{0, 1, 3, 5, 7, 8, 10}
	case Lydian:
		return [7]int{0, 2, 4, 6, 7, 9, 11}
	case Mixolydian:
		return [7]int{0, 2, 4, 5, 7, 9, 10}
	case Locrian:
		return [7]int{0, 1, 3, 5, 6, 8, 10}
	default:
		return [7]int{0, 2, 4, 5, 7, 9, 11}
	}
}

// relativeMajorOffset is the distance from the root up to the root of the
// major scale sharing (or approximating) this scale's key signature.
func (t ScaleType) relativeMajorOffset() int {
	switch t {
	case NaturalMinor, HarmonicMinor, MelodicMinor:
		return 3
	case Dorian:
		return 10
	case Phrygian:
		return 8
	case Lydian:
		return 7
	case Mixolydian:
		return 5
	case Locrian:
		return 1
	default:
		return 0
	}
}

// IsMinor reports whether the scale has a minor tonic triad of the minor-key family.
func (t ScaleType) IsMinor() bool {
	return t == NaturalMinor || t == HarmonicMinor || t == MelodicMinor
}

var scaleTypeIDs = [...]string{"Major", "NaturalMinor", "HarmonicMinor", "MelodicMinor", "Dorian", "Phrygian", "Lydian", "Mixolydian", "Locrian"}

var scaleTypeNames = [...]string{"Major", "Natural Minor", "Harmonic Minor", "Melodic Minor", "Dorian", "Phrygian", "Lydian", "Mixolydian", "Locrian"}

// Valid reports whether t is one of the nine scale types.
func (t ScaleType) Valid() bool {
	return t >= Major && t <= Locrian
}

// ID is the stable identifier used in documents, e.g. "NaturalMinor".
func (t ScaleType) ID() string {
	if !t.Valid() {
		return fmt.Sprintf("ScaleType(%d)", int(t))
	}
	return scaleTypeIDs[t]
}

func (t ScaleType) String() string {
	if !t.Valid() {
		return t.ID()
	}
	return scaleTypeNames[t]
}

// AllScaleTypes lists every scale type in declaration order.
func AllScaleTypes() []ScaleType {
	return []ScaleType{Major, NaturalMinor, HarmonicMinor, MelodicMinor, Dorian, Phrygian, Lydian, Mixolydian, Locrian}
}

// ParseScaleType accepts IDs, display names and common abbreviations.
func ParseScaleType(s string) (ScaleType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "major", "maj", "ionian":
		return Major, nil
	case "minor", "min", "naturalminor", "aeolian":
		return NaturalMinor, nil
	case "harmonicminor", "harm":
		return HarmonicMinor, nil
	case "melodicminor", "mel":
		return MelodicMinor, nil
	case "dorian", "dor":
		return Dorian, nil
	case "phrygian", "phryg":
		return Phrygian, nil
	case "lydian", "lyd":
		return Lydian, nil
	case "mixolydian", "mixo":
		return Mixolydian, nil
	case "locrian", "loc":
		return Locrian, nil
	}
	return 0, validationErrorf("unknown scale type %q", s)
}

// Scale is a scale type anchored on a root pitch class.
type Scale struct {
	Root PitchClass
	Type ScaleType
}

// NewScale returns a scale with a normalized root.
func NewScale(root PitchClass, t ScaleType) Scale {
	return Scale{Root: NewPitchClass(int(root)), Type: t}
}

// CMajor is the default key of a new song.
func CMajor() Scale {
	return Scale{Root: C, Type: Major}
}

// ParseScale parses "C major", "F# minor", "Bb dorian"; the type defaults to major.
func ParseScale(s string) (Scale, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Scale{}, validationErrorf("empty scale")
	}
	root, err := ParsePitchClass(fields[0])
	if err != nil {
		return Scale{}, err
	}
	t := Major
	if len(fields) > 1 {
		t, err = ParseScaleType(strings.Join(fields[1:], " "))
		if err != nil {
			return Scale{}, err
		}
	}
	return NewScale(root, t), nil
}

func (s Scale) String() string {
	return s.Root.Name(s.Spelling()) + " " + s.Type.String()
}

// PitchClasses returns the seven classes of the scale in degree order.
func (s Scale) PitchClasses() []PitchClass {
	iv := s.Type.Intervals()
	out := make([]PitchClass, len(iv))
	for i, v := range iv {
		out[i] = s.Root.Transpose(v)
	}
	return out
}

// Contains reports whether pc is a scale tone.
func (s Scale) Contains(pc PitchClass) bool {
	_, ok := s.DegreeOf(pc)
	return ok
}

// DegreeOf returns the 0-based degree of pc, if pc is in the scale.
func (s Scale) DegreeOf(pc PitchClass) (int, bool) {
	interval := s.Root.IntervalTo(pc)
	for i, v := range s.Type.Intervals() {
		if v == interval {
			return i, true
		}
	}
	return 0, false
}

// Degree returns the pitch class at a 0-based degree; the degree wraps.
func (s Scale) Degree(degree int) PitchClass {
	iv := s.Type.Intervals()
	return s.Root.Transpose(iv[mod(degree, DegreesPerOctave)])
}

// Pitches returns the in-range scale pitches starting at the root in the
// given scientific-pitch octave.
func (s Scale) Pitches(octave int) []Pitch {
	base := 12*(octave+1) + s.Root.norm()
	var out []Pitch
	for _, v := range s.Type.Intervals() {
		if p := Pitch(base + v); p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// Position is a pitch expressed relative to a scale: a degree, an octave
// counted from the root at MIDI octave 0, and a chromatic offset above the degree.
type Position struct {
	Degree    int
	Octave    int
	Chromatic int
}

// InScale reports whether the position lies exactly on a scale tone.
func (p Position) InScale() bool {
	return p.Chromatic == 0
}

// Shift moves the position by signed scale steps, carrying whole octaves
// with floor division so downward moves stay consistent.
func (p Position) Shift(degrees int) Position {
	total := p.Degree + degrees
	return Position{
		Degree:    mod(total, DegreesPerOctave),
		Octave:    p.Octave + floorDiv(total, DegreesPerOctave),
		Chromatic: p.Chromatic,
	}
}

// Locate decomposes p against the scale. Out-of-scale pitches round down to
// the nearest lower degree and keep the remaining semitones as Chromatic.
func (s Scale) Locate(p Pitch) Position {
	rel := int(p) - s.Root.norm()
	within := mod(rel, 12)
	iv := s.Type.Intervals()
	degree := 0
	for i, v := range iv {
		if v <= within {
			degree = i
		}
	}
	return Position{
		Degree:    degree,
		Octave:    floorDiv(rel, 12),
		Chromatic: within - iv[degree],
	}
}

// Resolve rebuilds an absolute pitch from a position, re-adding the chromatic
// offset unchanged. It is the inverse of Locate for the same scale.
func (s Scale) Resolve(pos Position) (Pitch, error) {
	if pos.Degree < 0 || pos.Degree >= DegreesPerOctave {
		return 0, validationErrorf("degree %d outside [0,6]", pos.Degree)
	}
	iv := s.Type.Intervals()
	return PitchFromMIDI(s.Root.norm() + 12*pos.Octave + iv[pos.Degree] + pos.Chromatic)
}

// fifthsByRoot maps a major key's root to its signed sharps (+) / flats (-) count.
var fifthsByRoot = [12]int{0, -5, 2, -3, 4, -1, 6, 1, -4, 3, -2, 5}

// KeySignature returns the sharps/flats count of the scale's relative major
// and whether the scale belongs to the minor-key family.
func (s Scale) KeySignature() (sharps int, minor bool) {
	relative := s.Root.Transpose(s.Type.relativeMajorOffset())
	return fifthsByRoot[relative.norm()], s.Type.IsMinor()
}

// Spelling prefers flats for flat keys and sharps otherwise.
func (s Scale) Spelling() Spelling {
	if sharps, _ := s.KeySignature(); sharps < 0 {
		return Flat
	}
	return Sharp
}

// ScaleFromKeySignature maps a MIDI key signature back to a major or natural
// minor scale.
func ScaleFromKeySignature(sharps int, minor bool) (Scale, error) {
	if sharps < -7 || sharps > 7 {
		return Scale{}, rangeErrorf("key signature %d outside [-7,7]", sharps)
	}
	root := NewPitchClass(7 * sharps)
	if minor {
		return NewScale(root.Transpose(-3), NaturalMinor), nil
	}
	return NewScale(root, Major), nil
}
