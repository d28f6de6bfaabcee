package music

import (
	"fmt"
	"strconv"
	"strings"
)

// TicksPerQuarter is the fixed tick resolution of the engine.
const TicksPerQuarter = 480

// Numerator and denominator bounds for time signatures.
const (
	MinNumerator = 2
	MaxNumerator = 15
)

// AccentLevel is the emphasis given to one beat of a measure.
type AccentLevel int

const (
	Weak   AccentLevel = 1
	Medium AccentLevel = 2
	Strong AccentLevel = 3
)

// Next returns the cyclic successor: Weak -> Medium -> Strong -> Weak.
func (a AccentLevel) Next() AccentLevel {
	switch a {
	case Weak:
		return Medium
	case Medium:
		return Strong
	default:
		return Weak
	}
}

// VelocityMultiplier scales a note's velocity for playback emphasis.
func (a AccentLevel) VelocityMultiplier() float64 {
	switch a {
	case Strong:
		return 1.0
	case Medium:
		return 0.85
	default:
		return 0.7
	}
}

// Valid reports whether a is one of the three levels.
func (a AccentLevel) Valid() bool {
	return a >= Weak && a <= Strong
}

// Symbol is the one-character visual form: '>' strong, '-' medium, '.' weak.
func (a AccentLevel) Symbol() string {
	switch a {
	case Strong:
		return ">"
	case Medium:
		return "-"
	default:
		return "."
	}
}

func (a AccentLevel) String() string {
	switch a {
	case Strong:
		return "strong"
	case Medium:
		return "medium"
	case Weak:
		return "weak"
	}
	return fmt.Sprintf("AccentLevel(%d)", int(a))
}

// AccentLevelFromValue converts 1/2/3 to an accent level.
func AccentLevelFromValue(v int) (AccentLevel, error) {
	a := AccentLevel(v)
	if !a.Valid() {
		return 0, validationErrorf("accent level %d outside [1,3]", v)
	}
	return a, nil
}

// DefaultGrouping splits a measure into beat groups of two and three:
// multiples of three become 3+3+..., others are filled greedily with threes
// and closed with twos (4 = 2+2, 5 = 3+2, 7 = 3+2+2, 8 = 3+3+2).
func DefaultGrouping(beats int) []int {
	var groups []int
	for rem := beats; rem > 0; {
		if rem > 4 || rem == 3 {
			groups = append(groups, 3)
			rem -= 3
			continue
		}
		if rem == 1 {
			// only reachable for a single-beat measure
			groups = append(groups, 1)
			break
		}
		groups = append(groups, 2)
		rem -= 2
	}
	return groups
}

// AccentsFromGrouping builds an accent pattern with Strong on the first beat,
// Medium on the first beat of every later group and Weak elsewhere.
func AccentsFromGrouping(groups ...int) []AccentLevel {
	var accents []AccentLevel
	for i, g := range groups {
		for b := 0; b < g; b++ {
			switch {
			case b > 0:
				accents = append(accents, Weak)
			case i == 0:
				accents = append(accents, Strong)
			default:
				accents = append(accents, Medium)
			}
		}
	}
	return accents
}

// DefaultAccents returns the default accent pattern for a numerator.
func DefaultAccents(beats int) []AccentLevel {
	return AccentsFromGrouping(DefaultGrouping(beats)...)
}

// TimeSignature is a meter with one accent level per beat. The accent slice
// always has exactly Numerator entries.
type TimeSignature struct {
	numerator   int
	denominator int
	accents     []AccentLevel
}

func validateMeter(numerator, denominator int) error {
	if numerator < MinNumerator || numerator > MaxNumerator {
		return validationErrorf("time signature numerator %d outside [%d,%d]", numerator, MinNumerator, MaxNumerator)
	}
	if denominator != 4 && denominator != 8 {
		return validationErrorf("time signature denominator %d must be 4 or 8", denominator)
	}
	return nil
}

// NewTimeSignature creates a meter with the default accent pattern.
func NewTimeSignature(numerator, denominator int) (TimeSignature, error) {
	if err := validateMeter(numerator, denominator); err != nil {
		return TimeSignature{}, err
	}
	return TimeSignature{
		numerator:   numerator,
		denominator: denominator,
		accents:     DefaultAccents(numerator),
	}, nil
}

// NewTimeSignatureWithAccents creates a meter with an explicit accent
// pattern whose length must equal the numerator.
func NewTimeSignatureWithAccents(numerator, denominator int, accents []AccentLevel) (TimeSignature, error) {
	if err := validateMeter(numerator, denominator); err != nil {
		return TimeSignature{}, err
	}
	if err := checkAccents(numerator, accents); err != nil {
		return TimeSignature{}, err
	}
	return TimeSignature{
		numerator:   numerator,
		denominator: denominator,
		accents:     append([]AccentLevel(nil), accents...),
	}, nil
}

// CommonTime is 4/4.
func CommonTime() TimeSignature {
	ts, _ := NewTimeSignature(4, 4)
	return ts
}

// ParseTimeSignature parses "7/8" style strings.
func ParseTimeSignature(s string) (TimeSignature, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return TimeSignature{}, validationErrorf("time signature %q is not of the form n/d", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return TimeSignature{}, validationErrorf("invalid numerator %q", num)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return TimeSignature{}, validationErrorf("invalid denominator %q", den)
	}
	return NewTimeSignature(n, d)
}

func checkAccents(numerator int, accents []AccentLevel) error {
	if len(accents) != numerator {
		return validationErrorf("accent pattern has %d beats, time signature needs %d", len(accents), numerator)
	}
	for i, a := range accents {
		if !a.Valid() {
			return validationErrorf("beat %d has invalid accent level %d", i, int(a))
		}
	}
	return nil
}

func (ts TimeSignature) Numerator() int   { return ts.numerator }
func (ts TimeSignature) Denominator() int { return ts.denominator }

// IsZero reports whether ts is the zero value rather than a constructed meter.
func (ts TimeSignature) IsZero() bool {
	return ts.numerator == 0
}

// Accents returns a copy of the accent pattern.
func (ts TimeSignature) Accents() []AccentLevel {
	return append([]AccentLevel(nil), ts.accents...)
}

// Accent returns the level of a beat.
func (ts TimeSignature) Accent(beat int) (AccentLevel, error) {
	if beat < 0 || beat >= len(ts.accents) {
		return 0, notFoundErrorf("beat %d outside [0,%d)", beat, len(ts.accents))
	}
	return ts.accents[beat], nil
}

// WithNumerator changes the beat count and regenerates the default accents.
func (ts TimeSignature) WithNumerator(numerator int) (TimeSignature, error) {
	return NewTimeSignature(numerator, ts.denominator)
}

// WithAccents replaces the accent pattern; the length must match.
func (ts TimeSignature) WithAccents(accents []AccentLevel) (TimeSignature, error) {
	return NewTimeSignatureWithAccents(ts.numerator, ts.denominator, accents)
}

// SetAccent sets one beat's level in place.
func (ts *TimeSignature) SetAccent(beat int, level AccentLevel) error {
	if beat < 0 || beat >= len(ts.accents) {
		return notFoundErrorf("beat %d outside [0,%d)", beat, len(ts.accents))
	}
	if !level.Valid() {
		return validationErrorf("invalid accent level %d", int(level))
	}
	ts.accents = ts.Accents()
	ts.accents[beat] = level
	return nil
}

// CycleAccent advances one beat to its cyclic successor and returns the new level.
func (ts *TimeSignature) CycleAccent(beat int) (AccentLevel, error) {
	current, err := ts.Accent(beat)
	if err != nil {
		return 0, err
	}
	next := current.Next()
	return next, ts.SetAccent(beat, next)
}

// TicksPerBeat is 480 for quarter-note beats and 240 for eighth-note beats.
func (ts TimeSignature) TicksPerBeat() int {
	return TicksPerQuarter * 4 / ts.denominator
}

// TicksPerMeasure is TicksPerBeat times the numerator.
func (ts TimeSignature) TicksPerMeasure() int {
	return ts.TicksPerBeat() * ts.numerator
}

// BeatAtTick returns the 0-based beat within its measure.
func (ts TimeSignature) BeatAtTick(tick int) int {
	return (tick % ts.TicksPerMeasure()) / ts.TicksPerBeat()
}

// AccentAtTick returns the accent of the beat containing tick.
func (ts TimeSignature) AccentAtTick(tick int) AccentLevel {
	return ts.accents[ts.BeatAtTick(tick)]
}

// IsOnBeat reports whether tick falls on a beat boundary.
func (ts TimeSignature) IsOnBeat(tick int) bool {
	return tick%ts.TicksPerBeat() == 0
}

// IsDownbeat reports whether tick starts a measure.
func (ts TimeSignature) IsDownbeat(tick int) bool {
	return tick%ts.TicksPerMeasure() == 0
}

// Visual renders the accents as e.g. ">.-.".
func (ts TimeSignature) Visual() string {
	var b strings.Builder
	for _, a := range ts.accents {
		b.WriteString(a.Symbol())
	}
	return b.String()
}

// Equal compares meter and accents.
func (ts TimeSignature) Equal(other TimeSignature) bool {
	if ts.numerator != other.numerator || ts.denominator != other.denominator || len(ts.accents) != len(other.accents) {
		return false
	}
	for i := range ts.accents {
		if ts.accents[i] != other.accents[i] {
			return false
		}
	}
	return true
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.numerator, ts.denominator)
}
