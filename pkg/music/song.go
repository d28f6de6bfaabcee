package music

import (
	"fmt"
	"math"
	"time"
)

// Song defaults.
const (
	FormatVersion = "1.0"
	DefaultTitle  = "Untitled"
	DefaultTempo  = 120
	MinTempo      = 20
	MaxTempo      = 300
)

var nowFunc = time.Now

// Metadata describes a song. Created and Modified are kept in UTC.
type Metadata struct {
	Title    string
	Composer string
	Created  time.Time
	Modified time.Time
}

// Song is a single note stream with its metadata and settings. Notes keep
// insertion order; readers that need time order use SortedNotes.
//
// Every mutating method either succeeds completely or leaves the song
// unchanged. A Song is not safe for concurrent mutation. Songs are created
// with NewSong; the zero value is not usable.
type Song struct {
	Version  string
	Metadata Metadata

	tempo         int
	timeSignature TimeSignature
	key           Scale
	notes         []Note
}

// NewSong returns an empty 4/4 song in C major at 120 BPM.
func NewSong(title string) *Song {
	if title == "" {
		title = DefaultTitle
	}
	now := nowFunc().UTC()
	return &Song{
		Version: FormatVersion,
		Metadata: Metadata{
			Title:    title,
			Created:  now,
			Modified: now,
		},
		tempo:         DefaultTempo,
		timeSignature: CommonTime(),
		key:           CMajor(),
	}
}

func (s *Song) touch() {
	s.Metadata.Modified = nowFunc().UTC()
}

// Clone returns a deep copy, suitable as an undo snapshot.
func (s *Song) Clone() *Song {
	c := *s
	c.timeSignature.accents = s.timeSignature.Accents()
	c.notes = append([]Note(nil), s.notes...)
	return &c
}

func (s *Song) SetTitle(title string) {
	s.Metadata.Title = title
	s.touch()
}

func (s *Song) SetComposer(composer string) {
	s.Metadata.Composer = composer
	s.touch()
}

// Tempo is in beats per minute, where a beat is one time-signature beat
// (an eighth in x/8). Seconds follow that beat; MIDI export writes the same
// number as quarter notes per minute.
func (s *Song) Tempo() int { return s.tempo }

// SetTempo clamps bpm to [MinTempo,MaxTempo] and returns the stored value.
func (s *Song) SetTempo(bpm int) int {
	s.tempo = clamp(bpm, MinTempo, MaxTempo)
	s.touch()
	return s.tempo
}

// TimeSignature returns a copy of the meter.
func (s *Song) TimeSignature() TimeSignature {
	ts := s.timeSignature
	ts.accents = ts.Accents()
	return ts
}

// SetTimeSignature replaces the meter after revalidating it.
func (s *Song) SetTimeSignature(ts TimeSignature) error {
	checked, err := NewTimeSignatureWithAccents(ts.numerator, ts.denominator, ts.accents)
	if err != nil {
		return err
	}
	s.timeSignature = checked
	s.touch()
	return nil
}

// SetNumerator changes the beat count and resets the accents to the default.
func (s *Song) SetNumerator(numerator int) error {
	ts, err := s.timeSignature.WithNumerator(numerator)
	if err != nil {
		return err
	}
	s.timeSignature = ts
	s.touch()
	return nil
}

// Accents returns a copy of the accent pattern.
func (s *Song) Accents() []AccentLevel {
	return s.timeSignature.Accents()
}

// SetAccents replaces the accent pattern; its length must equal the numerator.
func (s *Song) SetAccents(accents []AccentLevel) error {
	ts, err := s.timeSignature.WithAccents(accents)
	if err != nil {
		return err
	}
	s.timeSignature = ts
	s.touch()
	return nil
}

// SetAccent sets one beat's accent.
func (s *Song) SetAccent(beat int, level AccentLevel) error {
	if err := s.timeSignature.SetAccent(beat, level); err != nil {
		return err
	}
	s.touch()
	return nil
}

// CycleAccent advances one beat's accent and returns the new level.
func (s *Song) CycleAccent(beat int) (AccentLevel, error) {
	level, err := s.timeSignature.CycleAccent(beat)
	if err != nil {
		return 0, err
	}
	s.touch()
	return level, nil
}

// Key returns the song's scale.
func (s *Song) Key() Scale { return s.key }

// SetKey replaces the key without touching notes.
func (s *Song) SetKey(key Scale) error {
	if !key.Type.Valid() {
		return validationErrorf("unknown scale type %d", int(key.Type))
	}
	s.key = NewScale(key.Root, key.Type)
	s.touch()
	return nil
}

// NoteCount returns the number of notes.
func (s *Song) NoteCount() int { return len(s.notes) }

// Notes returns a snapshot of the notes in insertion order.
func (s *Song) Notes() []Note {
	return append([]Note(nil), s.notes...)
}

// SortedNotes returns a snapshot of the notes in start order.
func (s *Song) SortedNotes() []Note {
	return SortedNotes(s.notes)
}

// Note returns the note at index i.
func (s *Song) Note(i int) (Note, error) {
	if i < 0 || i >= len(s.notes) {
		return Note{}, notFoundErrorf("note index %d outside [0,%d)", i, len(s.notes))
	}
	return s.notes[i], nil
}

// AddNote validates and appends n, returning its index.
func (s *Song) AddNote(n Note) (int, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	s.notes = append(s.notes, n)
	s.touch()
	return len(s.notes) - 1, nil
}

// UpdateNote replaces the note at index i.
func (s *Song) UpdateNote(i int, n Note) error {
	if _, err := s.Note(i); err != nil {
		return err
	}
	if err := n.Validate(); err != nil {
		return err
	}
	s.notes[i] = n
	s.touch()
	return nil
}

// RemoveNote deletes and returns the note at index i.
func (s *Song) RemoveNote(i int) (Note, error) {
	n, err := s.Note(i)
	if err != nil {
		return Note{}, err
	}
	s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
	s.touch()
	return n, nil
}

// ClearNotes removes every note.
func (s *Song) ClearNotes() {
	s.notes = nil
	s.touch()
}

// SetNotes replaces all notes. Nothing changes if any note is invalid.
func (s *Song) SetNotes(notes []Note) error {
	for i, n := range notes {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
	}
	s.notes = append([]Note(nil), notes...)
	s.touch()
	return nil
}

// ParseMelody replaces the notes with a parsed melody. On a parse error
// the existing notes are kept.
func (s *Song) ParseMelody(text string) error {
	notes, err := ParseMelody(text)
	if err != nil {
		return err
	}
	s.notes = notes
	s.touch()
	return nil
}

// FormatMelody renders the notes as notation spelled for the song's key.
func (s *Song) FormatMelody() string {
	return FormatMelody(s.notes, s.key.Spelling())
}

// Transpose rewrites every pitch with t and returns the number of notes
// changed. On error no note is modified.
func (s *Song) Transpose(t Transposition) (int, error) {
	notes, err := TransposeNotes(s.notes, t)
	if err != nil {
		return 0, err
	}
	s.notes = notes
	s.touch()
	return len(notes), nil
}

// ChangeKey moves the melody diatonically from the current key into target
// and then adopts target as the key.
func (s *Song) ChangeKey(target Scale, degrees int) (int, error) {
	if !target.Type.Valid() {
		return 0, validationErrorf("unknown scale type %d", int(target.Type))
	}
	n, err := s.Transpose(KeyChange(s.key, target, degrees))
	if err != nil {
		return 0, err
	}
	s.key = NewScale(target.Root, target.Type)
	return n, nil
}

// DetectKey guesses the key from the notes.
func (s *Song) DetectKey() (Scale, bool) {
	return DetectScale(s.notes)
}

// TicksPerBeat follows the time signature denominator.
func (s *Song) TicksPerBeat() int { return s.timeSignature.TicksPerBeat() }

// TicksPerMeasure is TicksPerBeat times the numerator.
func (s *Song) TicksPerMeasure() int { return s.timeSignature.TicksPerMeasure() }

// DurationTicks is the latest note end, independent of note order.
func (s *Song) DurationTicks() int {
	return EndTick(s.notes)
}

// TicksToSeconds converts ticks to seconds at the song's tempo, counting
// one tempo beat per time-signature beat.
func (s *Song) TicksToSeconds(ticks int) float64 {
	return float64(ticks) / float64(s.TicksPerBeat()) * 60.0 / float64(s.tempo)
}

// SecondsToTicks is the inverse of TicksToSeconds, rounded to the nearest tick.
func (s *Song) SecondsToTicks(seconds float64) int {
	return int(math.Round(seconds * float64(s.tempo) / 60.0 * float64(s.TicksPerBeat())))
}

// DurationSeconds is DurationTicks converted to seconds.
func (s *Song) DurationSeconds() float64 {
	return s.TicksToSeconds(s.DurationTicks())
}

// MeasureCount is the number of measures needed to hold every note.
func (s *Song) MeasureCount() int {
	per := s.TicksPerMeasure()
	return (s.DurationTicks() + per - 1) / per
}

// AccentedVelocity scales a note's velocity by the accent of its beat.
func (s *Song) AccentedVelocity(n Note) int {
	level := s.timeSignature.AccentAtTick(n.Start)
	return int(math.Round(float64(n.Velocity) * level.VelocityMultiplier()))
}
