package music

import (
	"fmt"
	"strings"
)

// Chromatic transposition bounds in semitones.
const (
	MinChromaticShift = -24
	MaxChromaticShift = 24
)

// Transposition rewrites pitches. Implementations are Chromatic, Diatonic
// and Inversion.
type Transposition interface {
	apply(p Pitch) (Pitch, error)
	validate() error
	// Describe returns a human-readable summary such as "up a major 3rd".
	Describe() string
}

// Chromatic shifts every pitch by a fixed number of semitones.
type Chromatic struct {
	Semitones int
}

func (c Chromatic) validate() error {
	if c.Semitones < MinChromaticShift || c.Semitones > MaxChromaticShift {
		return rangeErrorf("chromatic shift %d outside [%d,%d]", c.Semitones, MinChromaticShift, MaxChromaticShift)
	}
	return nil
}

func (c Chromatic) apply(p Pitch) (Pitch, error) {
	return p.Transpose(c.Semitones)
}

var intervalNames = [...]string{"unison", "minor 2nd", "major 2nd", "minor 3rd", "major 3rd", "perfect 4th",
	"tritone", "perfect 5th", "minor 6th", "major 6th", "minor 7th", "major 7th", "octave"}

func direction(n int) string {
	if n < 0 {
		return "down"
	}
	return "up"
}

func withArticle(name string) string {
	if strings.IndexByte("aeiou", name[0]) >= 0 {
		return "an " + name
	}
	return "a " + name
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (c Chromatic) Describe() string {
	n := abs(c.Semitones)
	switch {
	case n == 0:
		return "no transposition"
	case n < len(intervalNames):
		return direction(c.Semitones) + " " + withArticle(intervalNames[n])
	}
	return fmt.Sprintf("%s %d semitones", direction(c.Semitones), n)
}

// Diatonic moves pitches by scale steps in Source and rebuilds them in
// Target. A zero Target means Source (no key change).
type Diatonic struct {
	Source  Scale
	Target  *Scale
	Degrees int
}

// DiatonicIn is a diatonic move that stays in one key.
func DiatonicIn(s Scale, degrees int) Diatonic {
	return Diatonic{Source: s, Degrees: degrees}
}

// KeyChange is a diatonic move from one key into another.
func KeyChange(source, target Scale, degrees int) Diatonic {
	return Diatonic{Source: source, Target: &target, Degrees: degrees}
}

func (d Diatonic) target() Scale {
	if d.Target == nil {
		return d.Source
	}
	return *d.Target
}

func (d Diatonic) validate() error {
	if err := validScale("source", d.Source); err != nil {
		return err
	}
	if d.Target != nil {
		return validScale("target", *d.Target)
	}
	return nil
}

func validScale(role string, s Scale) error {
	if !s.Type.Valid() {
		return validationErrorf("%s scale type %d is not a known scale", role, int(s.Type))
	}
	if s.Root < 0 || s.Root >= 12 {
		return validationErrorf("%s root %d outside [0,11]", role, int(s.Root))
	}
	return nil
}

func (d Diatonic) apply(p Pitch) (Pitch, error) {
	return d.target().Resolve(d.Source.Locate(p).Shift(d.Degrees))
}

var degreeNames = [...]string{"unison", "2nd", "3rd", "4th", "5th", "6th", "7th", "octave"}

func (d Diatonic) Describe() string {
	n := abs(d.Degrees)
	var step string
	if n < len(degreeNames) {
		step = direction(d.Degrees) + " " + withArticle(degreeNames[n])
	} else {
		step = fmt.Sprintf("%s %d degrees", direction(d.Degrees), n)
	}
	if target := d.target(); target != d.Source {
		return fmt.Sprintf("Diatonic %s from %s to %s", step, d.Source, target)
	}
	return fmt.Sprintf("Diatonic %s in %s", step, d.Source)
}

// Inversion mirrors every pitch around Pivot.
type Inversion struct {
	Pivot Pitch
}

func (i Inversion) validate() error {
	if !i.Pivot.Valid() {
		return rangeErrorf("pivot %d outside [0,127]", int(i.Pivot))
	}
	return nil
}

func (i Inversion) apply(p Pitch) (Pitch, error) {
	return PitchFromMIDI(2*int(i.Pivot) - int(p))
}

func (i Inversion) Describe() string {
	return "Inversion around " + i.Pivot.String()
}

// TransposeNotes returns a transposed copy of notes. Only pitches change.
// If any pitch would leave [0,127] the whole request fails and the input is
// untouched.
func TransposeNotes(notes []Note, t Transposition) ([]Note, error) {
	if t == nil {
		return nil, validationErrorf("no transposition given")
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	out := make([]Note, len(notes))
	for i, n := range notes {
		p, err := t.apply(n.Pitch)
		if err != nil {
			return nil, fmt.Errorf("note %d (%s): %w", i, n.Pitch, err)
		}
		n.Pitch = p
		out[i] = n
	}
	return out, nil
}

// TransposePitch applies t to a single pitch.
func TransposePitch(p Pitch, t Transposition) (Pitch, error) {
	if err := t.validate(); err != nil {
		return 0, err
	}
	return t.apply(p)
}
