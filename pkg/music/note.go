package music

import (
	"cmp"
	"slices"
)

// DefaultVelocity is used for notes entered through notation.
const DefaultVelocity = 100

// Note is one sounding pitch. Start and Duration are in ticks at
// TicksPerQuarter resolution.
type Note struct {
	Pitch    Pitch `json:"pitch" yaml:"pitch" msgpack:"pitch"`
	Start    int   `json:"start" yaml:"start" msgpack:"start"`
	Duration int   `json:"duration" yaml:"duration" msgpack:"duration"`
	Velocity int   `json:"velocity" yaml:"velocity" msgpack:"velocity"`
}

// NewNote builds a validated note.
func NewNote(p Pitch, start, duration, velocity int) (Note, error) {
	n := Note{Pitch: p, Start: start, Duration: duration, Velocity: velocity}
	return n, n.Validate()
}

// Validate checks pitch, tick and velocity bounds.
func (n Note) Validate() error {
	if !n.Pitch.Valid() {
		return rangeErrorf("pitch %d outside [0,127]", int(n.Pitch))
	}
	if n.Start < 0 {
		return rangeErrorf("start tick %d is negative", n.Start)
	}
	if n.Duration <= 0 {
		return rangeErrorf("duration %d must be positive", n.Duration)
	}
	if n.Velocity < 0 || n.Velocity > 127 {
		return rangeErrorf("velocity %d outside [0,127]", n.Velocity)
	}
	return nil
}

// End is the tick at which the note stops sounding.
func (n Note) End() int {
	return n.Start + n.Duration
}

// sortNotes orders notes by start tick, then pitch, keeping insertion order for ties.
func sortNotes(notes []Note) {
	slices.SortStableFunc(notes, func(a, b Note) int {
		if a.Start != b.Start {
			return cmp.Compare(a.Start, b.Start)
		}
		return cmp.Compare(a.Pitch, b.Pitch)
	})
}

// SortedNotes returns a copy of notes in ascending start order.
func SortedNotes(notes []Note) []Note {
	out := append([]Note(nil), notes...)
	sortNotes(out)
	return out
}

// EndTick returns the largest note end, or 0 for no notes.
func EndTick(notes []Note) int {
	end := 0
	for _, n := range notes {
		end = max(end, n.End())
	}
	return end
}
