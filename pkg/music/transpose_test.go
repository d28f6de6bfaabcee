package music

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) []Note {
	t.Helper()
	notes, err := ParseMelody(text)
	require.NoError(t, err)
	return notes
}

func TestDiatonicTranspose(t *testing.T) {
	tests := []struct {
		name   string
		t      Transposition
		input  string
		want   string
		spell  Spelling
	}{
		{"up a third in C major", DiatonicIn(CMajor(), 2), "C4q D4q E4q F4q G4h", "E4q F4q G4q A4q B4h", Sharp},
		{"down a step", DiatonicIn(CMajor(), -1), "C4q E4q", "B3q D4q", Sharp},
		{"octave crossing in A minor", DiatonicIn(NewScale(A, NaturalMinor), 1), "G4q A4q", "A4q B4q", Sharp},
		{"chromatic note keeps offset", DiatonicIn(CMajor(), 1), "C#4q F#4q", "D#4q G#4q", Sharp},
		{"key change", KeyChange(CMajor(), NewScale(D, Major), 2), "C4q D4q E4q F4q G4h", "F#4q G4q A4q B4q C#5h", Sharp},
		{"into flat key", KeyChange(CMajor(), NewScale(F, Major), 0), "C4q B4q", "F4q E5q", Flat},
		{"down an octave", DiatonicIn(NewScale(E, Dorian), -7), "E4q G4q", "E3q G3q", Sharp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransposeNotes(mustParse(t, tt.input), tt.t)
			if err != nil {
				t.Fatalf("TransposeNotes() error = %v", err)
			}
			if s := FormatMelody(got, tt.spell); s != tt.want {
				t.Errorf("TransposeNotes() = %q, want %q", s, tt.want)
			}
		})
	}
}

func TestDiatonicOctavePreservesPosition(t *testing.T) {
	for _, st := range AllScaleTypes() {
		scale := NewScale(D, st)
		for p := MinPitch; p+12 <= MaxPitch; p++ {
			got, err := TransposePitch(p, DiatonicIn(scale, 7))
			require.NoError(t, err)
			before, after := scale.Locate(p), scale.Locate(got)
			assert.Equal(t, before.Degree, after.Degree)
			assert.Equal(t, before.Chromatic, after.Chromatic)
			assert.Equal(t, before.Octave+1, after.Octave)
			assert.Equal(t, p+12, got)
		}
	}
}

func TestChromaticTranspose(t *testing.T) {
	notes := mustParse(t, "C4q E4h")
	notes[1].Velocity = 70

	got, err := TransposeNotes(notes, Chromatic{Semitones: 4})
	require.NoError(t, err)
	assert.Equal(t, []Note{
		{Pitch: 64, Start: 0, Duration: 480, Velocity: 100},
		{Pitch: 68, Start: 480, Duration: 960, Velocity: 70},
	}, got)
	assert.Equal(t, Pitch(60), notes[0].Pitch, "input must not be modified")
}

func TestDiatonicRejectsUnknownScale(t *testing.T) {
	notes := mustParse(t, "C4q E4q")
	bogus := Scale{Root: D, Type: ScaleType(99)}
	tests := []struct {
		name string
		tr   Diatonic
	}{
		{"source", DiatonicIn(bogus, 1)},
		{"target", KeyChange(CMajor(), bogus, 0)},
		{"root", DiatonicIn(Scale{Root: PitchClass(12), Type: Major}, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TransposeNotes(notes, tt.tr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTransposeRangeIsAtomic(t *testing.T) {
	tests := []struct {
		name string
		t    Transposition
	}{
		{"chromatic overflow", Chromatic{Semitones: 12}},
		{"diatonic overflow", DiatonicIn(CMajor(), 14)},
		{"inversion underflow", Inversion{Pivot: 40}},
	}
	notes := []Note{{Pitch: 60, Start: 0, Duration: 480, Velocity: 100}, {Pitch: 120, Start: 480, Duration: 480, Velocity: 100}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransposeNotes(notes, tt.t)
			if !errors.Is(err, ErrRange) {
				t.Fatalf("TransposeNotes() error = %v, want ErrRange", err)
			}
			if got != nil {
				t.Errorf("TransposeNotes() returned %v on error", got)
			}
		})
	}
}

func TestChromaticShiftBounds(t *testing.T) {
	_, err := TransposeNotes(nil, Chromatic{Semitones: 25})
	assert.ErrorIs(t, err, ErrRange)

	_, err = TransposeNotes(nil, Chromatic{Semitones: -24})
	assert.NoError(t, err)

	_, err = TransposeNotes(nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInversion(t *testing.T) {
	got, err := TransposeNotes(mustParse(t, "C4q E4q G4q"), Inversion{Pivot: 60})
	require.NoError(t, err)
	assert.Equal(t, "C4q G#3q F3q", FormatMelody(got, Sharp))

	_, err = TransposePitch(60, Inversion{Pivot: 128})
	assert.ErrorIs(t, err, ErrRange)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		t    Transposition
		want string
	}{
		{Chromatic{Semitones: 4}, "up a major 3rd"},
		{Chromatic{Semitones: -12}, "down an octave"},
		{Chromatic{Semitones: 0}, "no transposition"},
		{Chromatic{Semitones: 19}, "up 19 semitones"},
		{DiatonicIn(CMajor(), 2), "Diatonic up a 3rd in C Major"},
		{DiatonicIn(CMajor(), -9), "Diatonic down 9 degrees in C Major"},
		{KeyChange(CMajor(), NewScale(A, NaturalMinor), 0), "Diatonic up a unison from C Major to A Natural Minor"},
		{Inversion{Pivot: 60}, "Inversion around C4"},
	}
	for _, tt := range tests {
		if got := tt.t.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}

func TestDetectScale(t *testing.T) {
	tests := []struct {
		melody string
		want   Scale
	}{
		{"C4q D4q E4q F4q G4q A4q B4q C5q", CMajor()},
		{"A4q C5q E5q A4q", NewScale(A, NaturalMinor)},
		{"G4q B4q D5q F#5q G5q", NewScale(G, Major)},
		{"E4q G4q B4q E4q", NewScale(E, NaturalMinor)},
	}
	for _, tt := range tests {
		got, ok := DetectScale(mustParse(t, tt.melody))
		if !ok || got != tt.want {
			t.Errorf("DetectScale(%q) = %s, %v, want %s", tt.melody, got, ok, tt.want)
		}
	}

	// the final note is the latest start, not the last one in the slice
	unordered := []Note{
		{Pitch: 72, Start: 1440, Duration: 480, Velocity: 100},
		{Pitch: 69, Start: 0, Duration: 480, Velocity: 100},
		{Pitch: 71, Start: 480, Duration: 480, Velocity: 100},
		{Pitch: 69, Start: 960, Duration: 480, Velocity: 100},
	}
	if got, _ := DetectScale(unordered); got != CMajor() {
		t.Errorf("DetectScale(unordered) = %s, want %s", got, CMajor())
	}

	if _, ok := DetectScale(nil); ok {
		t.Error("DetectScale(nil) reported a key")
	}
}
