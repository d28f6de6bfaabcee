// Package codec converts songs to and from their file formats: the native
// JSON document, its YAML rendition, Standard MIDI Files and plain notation.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/james-see/mozart/pkg/music"
)

// SupportedMajorVersion is the document major version this package reads.
const SupportedMajorVersion = 1

// Document is the serialized form of a song.
type Document struct {
	Version  string           `json:"version" yaml:"version" msgpack:"version"`
	Metadata DocumentMetadata `json:"metadata" yaml:"metadata" msgpack:"metadata"`
	Settings DocumentSettings `json:"settings" yaml:"settings" msgpack:"settings"`
	Notes    []music.Note     `json:"notes" yaml:"notes" msgpack:"notes"`
}

type DocumentMetadata struct {
	Title    string `json:"title" yaml:"title" msgpack:"title"`
	Composer string `json:"composer" yaml:"composer" msgpack:"composer"`
	Created  string `json:"created" yaml:"created" msgpack:"created"`
	Modified string `json:"modified" yaml:"modified" msgpack:"modified"`
}

type DocumentSettings struct {
	Tempo         int                   `json:"tempo" yaml:"tempo" msgpack:"tempo"`
	TimeSignature DocumentTimeSignature `json:"timeSignature" yaml:"timeSignature" msgpack:"timeSignature"`
	Key           DocumentKey           `json:"key" yaml:"key" msgpack:"key"`
	AccentPattern []int                 `json:"accentPattern" yaml:"accentPattern" msgpack:"accentPattern"`
}

type DocumentTimeSignature struct {
	Numerator   int `json:"numerator" yaml:"numerator" msgpack:"numerator"`
	Denominator int `json:"denominator" yaml:"denominator" msgpack:"denominator"`
}

// DocumentKey names the key by root spelling and scale ID, e.g. {"Bb", "Major"}.
type DocumentKey struct {
	Root  string `json:"root" yaml:"root" msgpack:"root"`
	Scale string `json:"scale" yaml:"scale" msgpack:"scale"`
}

// NewDocument snapshots a song.
func NewDocument(song *music.Song) Document {
	ts := song.TimeSignature()
	key := song.Key()
	accents := make([]int, 0, ts.Numerator())
	for _, a := range ts.Accents() {
		accents = append(accents, int(a))
	}
	notes := song.Notes()
	if notes == nil {
		notes = []music.Note{}
	}
	return Document{
		Version: song.Version,
		Metadata: DocumentMetadata{
			Title:    song.Metadata.Title,
			Composer: song.Metadata.Composer,
			Created:  formatTime(song.Metadata.Created),
			Modified: formatTime(song.Metadata.Modified),
		},
		Settings: DocumentSettings{
			Tempo: song.Tempo(),
			TimeSignature: DocumentTimeSignature{
				Numerator:   ts.Numerator(),
				Denominator: ts.Denominator(),
			},
			Key: DocumentKey{
				Root:  key.Root.Name(key.Spelling()),
				Scale: key.Type.ID(),
			},
			AccentPattern: accents,
		},
		Notes: notes,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", music.ErrFormat, fmt.Sprintf(format, args...))
}

func formatError(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", music.ErrFormat, field, err)
}

func checkVersion(v string) error {
	if v == "" {
		return formatErrorf("missing version")
	}
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return formatErrorf("malformed version %q", v)
	}
	if n != SupportedMajorVersion {
		return formatErrorf("unsupported version %q", v)
	}
	return nil
}

// Song rebuilds and validates a song. Any invalid field yields ErrFormat
// wrapping the underlying cause.
func (d Document) Song() (*music.Song, error) {
	if err := checkVersion(d.Version); err != nil {
		return nil, err
	}

	song := music.NewSong(d.Metadata.Title)
	song.Version = d.Version
	song.Metadata.Composer = d.Metadata.Composer

	if d.Settings.Tempo < music.MinTempo || d.Settings.Tempo > music.MaxTempo {
		return nil, formatErrorf("tempo %d outside [%d,%d]", d.Settings.Tempo, music.MinTempo, music.MaxTempo)
	}
	song.SetTempo(d.Settings.Tempo)

	ts, err := music.NewTimeSignature(d.Settings.TimeSignature.Numerator, d.Settings.TimeSignature.Denominator)
	if err != nil {
		return nil, formatError("timeSignature", err)
	}
	if len(d.Settings.AccentPattern) > 0 {
		accents := make([]music.AccentLevel, len(d.Settings.AccentPattern))
		for i, v := range d.Settings.AccentPattern {
			if accents[i], err = music.AccentLevelFromValue(v); err != nil {
				return nil, formatError("accentPattern", err)
			}
		}
		if ts, err = ts.WithAccents(accents); err != nil {
			return nil, formatError("accentPattern", err)
		}
	}
	if err := song.SetTimeSignature(ts); err != nil {
		return nil, formatError("timeSignature", err)
	}

	root, err := music.ParsePitchClass(d.Settings.Key.Root)
	if err != nil {
		return nil, formatError("key.root", err)
	}
	st, err := music.ParseScaleType(d.Settings.Key.Scale)
	if err != nil {
		return nil, formatError("key.scale", err)
	}
	if err := song.SetKey(music.NewScale(root, st)); err != nil {
		return nil, formatError("key", err)
	}

	if err := song.SetNotes(d.Notes); err != nil {
		return nil, formatError("notes", err)
	}

	if song.Metadata.Created, err = parseTime(d.Metadata.Created, song.Metadata.Created); err != nil {
		return nil, formatError("metadata.created", err)
	}
	if song.Metadata.Modified, err = parseTime(d.Metadata.Modified, song.Metadata.Created); err != nil {
		return nil, formatError("metadata.modified", err)
	}
	return song, nil
}

func parseTime(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
