package music

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	str = Strong
	med = Medium
	wk  = Weak
)

func TestDefaultAccents(t *testing.T) {
	tests := []struct {
		beats int
		want  []AccentLevel
	}{
		{2, []AccentLevel{str, wk}},
		{3, []AccentLevel{str, wk, wk}},
		{4, []AccentLevel{str, wk, med, wk}},
		{5, []AccentLevel{str, wk, wk, med, wk}},
		{6, []AccentLevel{str, wk, wk, med, wk, wk}},
		{7, []AccentLevel{str, wk, wk, med, wk, med, wk}},
		{8, []AccentLevel{str, wk, wk, med, wk, wk, med, wk}},
		{9, []AccentLevel{str, wk, wk, med, wk, wk, med, wk, wk}},
		{12, []AccentLevel{str, wk, wk, med, wk, wk, med, wk, wk, med, wk, wk}},
	}

	for _, tt := range tests {
		got := DefaultAccents(tt.beats)
		assert.Equal(t, tt.want, got, "DefaultAccents(%d)", tt.beats)
	}
}

func TestAccentLengthInvariant(t *testing.T) {
	for n := MinNumerator; n <= MaxNumerator; n++ {
		for _, den := range []int{4, 8} {
			ts, err := NewTimeSignature(n, den)
			if err != nil {
				t.Fatalf("NewTimeSignature(%d, %d) error = %v", n, den, err)
			}
			if len(ts.Accents()) != n {
				t.Fatalf("%s has %d accents", ts, len(ts.Accents()))
			}
			if a, _ := ts.Accent(0); a != Strong {
				t.Errorf("%s beat 0 = %v, want strong", ts, a)
			}
			for beat := 0; beat < n; beat++ {
				if _, err := ts.CycleAccent(beat); err != nil {
					t.Fatalf("%s CycleAccent(%d) error = %v", ts, beat, err)
				}
				if len(ts.Accents()) != n {
					t.Fatalf("%s accents length changed after cycle", ts)
				}
			}
			other := 2 + (n+3)%14
			changed, err := ts.WithNumerator(other)
			if err != nil {
				t.Fatalf("WithNumerator(%d) error = %v", other, err)
			}
			if len(changed.Accents()) != other {
				t.Fatalf("WithNumerator(%d) has %d accents", other, len(changed.Accents()))
			}
		}
	}
}

func TestNewTimeSignatureValidation(t *testing.T) {
	tests := []struct {
		num, den int
	}{
		{1, 4},
		{16, 4},
		{4, 2},
		{3, 16},
	}
	for _, tt := range tests {
		if _, err := NewTimeSignature(tt.num, tt.den); !errors.Is(err, ErrValidation) {
			t.Errorf("NewTimeSignature(%d, %d) error = %v, want ErrValidation", tt.num, tt.den, err)
		}
	}

	_, err := NewTimeSignatureWithAccents(4, 4, []AccentLevel{str, wk, wk})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewTimeSignatureWithAccents(3, 4, []AccentLevel{str, 0, wk})
	assert.ErrorIs(t, err, ErrValidation)

	ts, err := NewTimeSignatureWithAccents(5, 8, AccentsFromGrouping(2, 3))
	assert.NoError(t, err)
	assert.Equal(t, []AccentLevel{str, wk, med, wk, wk}, ts.Accents())
}

func TestParseTimeSignature(t *testing.T) {
	assert := assert.New(t)

	ts, err := ParseTimeSignature("7/8")
	assert.NoError(err)
	assert.Equal(7, ts.Numerator())
	assert.Equal(8, ts.Denominator())
	assert.Len(ts.Accents(), 7)
	assert.Equal("7/8", ts.String())

	for _, bad := range []string{"7", "x/8", "7/y", "7/16"} {
		_, err := ParseTimeSignature(bad)
		assert.ErrorIs(err, ErrValidation, bad)
	}
}

func TestCycleAccent(t *testing.T) {
	ts := CommonTime()

	want := []AccentLevel{Medium, Strong, Weak}
	for _, level := range want {
		got, err := ts.CycleAccent(1)
		if err != nil {
			t.Fatalf("CycleAccent(1) error = %v", err)
		}
		if got != level {
			t.Errorf("CycleAccent(1) = %v, want %v", got, level)
		}
	}

	if _, err := ts.CycleAccent(4); !errors.Is(err, ErrNotFound) {
		t.Errorf("CycleAccent(4) error = %v, want ErrNotFound", err)
	}
	if err := ts.SetAccent(-1, Strong); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAccent(-1) error = %v, want ErrNotFound", err)
	}
}

func TestSetAccentDoesNotAlias(t *testing.T) {
	a := CommonTime()
	b := a
	if err := b.SetAccent(1, Strong); err != nil {
		t.Fatal(err)
	}
	if got, _ := a.Accent(1); got != Weak {
		t.Errorf("original accent changed to %v", got)
	}
}

func TestTickMath(t *testing.T) {
	assert := assert.New(t)

	common := CommonTime()
	assert.Equal(480, common.TicksPerBeat())
	assert.Equal(1920, common.TicksPerMeasure())
	assert.Equal(1, common.BeatAtTick(480))
	assert.Equal(0, common.BeatAtTick(1920))
	assert.Equal(Medium, common.AccentAtTick(960))
	assert.True(common.IsDownbeat(3840))
	assert.False(common.IsOnBeat(500))
	assert.Equal(">.-.", common.Visual())

	seven, _ := NewTimeSignature(7, 8)
	assert.Equal(240, seven.TicksPerBeat())
	assert.Equal(1680, seven.TicksPerMeasure())
	assert.Equal(">..-.-.", seven.Visual())
}

func TestAccentLevel(t *testing.T) {
	assert.True(t, Weak < Medium && Medium < Strong)
	assert.Equal(t, Weak, Strong.Next())

	a, err := AccentLevelFromValue(2)
	assert.NoError(t, err)
	assert.Equal(t, Medium, a)

	_, err = AccentLevelFromValue(4)
	assert.ErrorIs(t, err, ErrValidation)
}
