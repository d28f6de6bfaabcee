package codec

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/mozart/pkg/music"
)

// KeySignaturePolicy decides how the song's key becomes a key-signature event.
type KeySignaturePolicy int

const (
	// KeySignatureRelativeMajor writes the signature of the scale's relative
	// major; the minor flag is set for the minor-key family.
	KeySignatureRelativeMajor KeySignaturePolicy = iota
	// KeySignatureDefinite writes a signature only for Major and NaturalMinor.
	KeySignatureDefinite
	// KeySignatureOmit never writes a key signature.
	KeySignatureOmit
)

var keySignaturePolicyNames = map[string]KeySignaturePolicy{
	"relative-major": KeySignatureRelativeMajor,
	"definite":       KeySignatureDefinite,
	"omit":           KeySignatureOmit,
}

// ParseKeySignaturePolicy accepts "relative-major", "definite" or "omit".
func ParseKeySignaturePolicy(s string) (KeySignaturePolicy, error) {
	if p, ok := keySignaturePolicyNames[s]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown key signature policy %q", s)
}

func (p KeySignaturePolicy) String() string {
	for name, v := range keySignaturePolicyNames {
		if v == p {
			return name
		}
	}
	return fmt.Sprintf("KeySignaturePolicy(%d)", int(p))
}

// MIDIConverter writes songs as format-0 Standard MIDI Files and reads any
// SMF back into a song.
type MIDIConverter struct {
	KeySignature KeySignaturePolicy
	// TrackName adds a track-name meta event carrying the song title.
	TrackName bool
	Channel   uint8
}

// NewMIDIConverter returns a converter with the default policy.
func NewMIDIConverter() *MIDIConverter {
	return &MIDIConverter{KeySignature: KeySignatureRelativeMajor}
}

type noteEvent struct {
	tick     int
	on       bool
	key      uint8
	velocity uint8
}

// GenerateMIDI encodes a song. The output depends only on the song, so equal
// songs always produce identical bytes.
func (m *MIDIConverter) GenerateMIDI(song *music.Song) ([]byte, error) {
	if song == nil {
		return nil, errors.New("nil song")
	}
	if m.Channel > 15 {
		return nil, fmt.Errorf("midi channel %d outside [0,15]", m.Channel)
	}

	var track smf.Track

	// integer microseconds per quarter; MetaTempo rounds, so hand it the
	// exact bpm of the truncated value
	usPerQuarter := 60_000_000 / song.Tempo()
	track.Add(0, smf.MetaTempo(60_000_000/float64(usPerQuarter)))

	ts := song.TimeSignature()
	track.Add(0, smf.MetaTimeSig(
		uint8(ts.Numerator()),
		uint8(ts.Denominator()),
		24, // MIDI clocks per metronome click
		8,  // 32nd notes per quarter
	))

	if sharps, minor, ok := m.keySignature(song.Key()); ok {
		num := sharps
		if num < 0 {
			num = -num
		}
		track.Add(0, smf.MetaKey(uint8(song.Key().Root), !minor, uint8(num), sharps < 0))
	}

	if m.TrackName && song.Metadata.Title != "" {
		track.Add(0, smf.MetaTrackSequenceName(song.Metadata.Title))
	}

	notes := song.Notes()
	events := make([]noteEvent, 0, 2*len(notes))
	for _, n := range notes {
		events = append(events,
			noteEvent{tick: n.Start, on: true, key: uint8(n.Pitch), velocity: uint8(n.Velocity)},
			noteEvent{tick: n.End(), on: false, key: uint8(n.Pitch)},
		)
	}
	slices.SortStableFunc(events, func(a, b noteEvent) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		// note-off first so a repeated pitch is not swallowed
		if a.on != b.on {
			if a.on {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.key, b.key)
	})

	last := 0
	for _, ev := range events {
		delta := uint32(ev.tick - last)
		if ev.on {
			track.Add(delta, midi.NoteOn(m.Channel, ev.key, ev.velocity))
		} else {
			track.Add(delta, midi.NoteOff(m.Channel, ev.key))
		}
		last = ev.tick
	}
	track.Close(0)

	// Create SMF with one track, every status byte written out
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(music.TicksPerQuarter)
	s.NoRunningStatus = true
	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *MIDIConverter) keySignature(key music.Scale) (sharps int, minor bool, ok bool) {
	switch m.KeySignature {
	case KeySignatureOmit:
		return 0, false, false
	case KeySignatureDefinite:
		if key.Type != music.Major && key.Type != music.NaturalMinor {
			return 0, false, false
		}
	}
	sharps, minor = key.KeySignature()
	return sharps, minor, true
}

// WriteMIDIFile encodes a song to filename.
func (m *MIDIConverter) WriteMIDIFile(song *music.Song, filename string) error {
	data, err := m.GenerateMIDI(song)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ParseMIDIFile reads a Standard MIDI File from disk.
func (m *MIDIConverter) ParseMIDIFile(filename string) (*music.Song, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

type openNote struct {
	tick     int
	velocity uint8
}

// ParseMIDI reads SMF data of any format into a song. Ticks are rescaled to
// the engine resolution; the first tempo, time signature, key signature and
// track name found become the song settings. Unmatched note-ons end at the
// last event.
func (m *MIDIConverter) ParseMIDI(data []byte) (song *music.Song, err error) {
	// smf.ReadFrom can panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			song, err = nil, fmt.Errorf("%w: malformed MIDI data: %v", music.ErrFormat, r)
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse MIDI: %w", music.ErrFormat, err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt.Resolution() == 0 {
		return nil, formatErrorf("only metric MIDI time formats are supported")
	}
	resolution := int(mt.Resolution())
	scale := func(tick int) int {
		return int(math.Round(float64(tick) * music.TicksPerQuarter / float64(resolution)))
	}

	song = music.NewSong("")
	var (
		notes []music.Note
		seen  seenMeta
	)
	for _, track := range s.Tracks {
		open := map[uint8][]openNote{}
		tick := 0
		for _, ev := range track {
			tick += int(ev.Delta)
			msg := ev.Message

			if readMeta(song, msg, &seen) {
				continue
			}

			var ch, key, vel uint8
			switch {
			case msg.GetNoteOn(&ch, &key, &vel) && vel > 0:
				open[key] = append(open[key], openNote{tick: tick, velocity: vel})
			case msg.GetNoteOff(&ch, &key, &vel), msg.GetNoteOn(&ch, &key, &vel):
				starts := open[key]
				if len(starts) == 0 {
					continue
				}
				notes = append(notes, importedNote(key, starts[0], tick, scale))
				open[key] = starts[1:]
			}
		}
		for key, starts := range open {
			for _, st := range starts {
				notes = append(notes, importedNote(key, st, tick, scale))
			}
		}
	}

	notes = music.SortedNotes(notes)
	if err := song.SetNotes(notes); err != nil {
		return nil, fmt.Errorf("%w: %w", music.ErrFormat, err)
	}
	return song, nil
}

// seenMeta records which settings were already taken from the file.
type seenMeta struct {
	tempo, meter, key, name bool
}

// readMeta applies the first tempo, meter, key and track name to the song.
// It reports whether msg was a meta message.
func readMeta(song *music.Song, msg smf.Message, seen *seenMeta) bool {
	var (
		bpm        float64
		num, denom uint8
		key        smf.Key
		name       string
	)
	switch {
	case msg.GetMetaTempo(&bpm):
		if !seen.tempo && bpm > 0 {
			song.SetTempo(int(math.Round(bpm)))
			seen.tempo = true
		}
	case msg.GetMetaMeter(&num, &denom):
		if !seen.meter {
			if ts, err := music.NewTimeSignature(int(num), int(denom)); err == nil {
				song.SetTimeSignature(ts)
				seen.meter = true
			}
		}
	case msg.GetMetaKey(&key):
		if !seen.key {
			sharps := int(key.Num)
			if key.IsFlat {
				sharps = -sharps
			}
			if scale, err := music.ScaleFromKeySignature(sharps, !key.IsMajor); err == nil {
				song.SetKey(scale)
				seen.key = true
			}
		}
	case msg.GetMetaTrackName(&name):
		if !seen.name && name != "" {
			song.SetTitle(name)
			seen.name = true
		}
	default:
		return msg.IsMeta()
	}
	return true
}

func importedNote(key uint8, start openNote, end int, scale func(int) int) music.Note {
	begin := scale(start.tick)
	return music.Note{
		Pitch:    music.Pitch(key),
		Start:    begin,
		Duration: max(scale(end)-begin, 1),
		Velocity: int(start.velocity),
	}
}
