package codec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/mozart/pkg/music"
)

// Format represents a file format
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMIDI     Format = "midi"
	FormatNotation Format = "notation"
	FormatUnknown  Format = "unknown"
)

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json", ".mozart":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".mid", ".midi":
		return FormatMIDI
	case ".txt", ".notes":
		return FormatNotation
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	if trimmed[0] == '{' {
		return FormatJSON
	}
	if bytes.HasPrefix(trimmed, []byte("version:")) || bytes.HasPrefix(trimmed, []byte("---")) {
		return FormatYAML
	}
	if _, err := music.ParseMelody(string(trimmed)); err == nil {
		return FormatNotation
	}
	return FormatUnknown
}

// Converter reads and writes songs in every supported format.
type Converter struct {
	midi *MIDIConverter
}

// New creates a Converter using the given MIDI settings; nil means defaults.
func New(midi *MIDIConverter) *Converter {
	if midi == nil {
		midi = NewMIDIConverter()
	}
	return &Converter{midi: midi}
}

// MIDI returns the MIDI converter in use.
func (c *Converter) MIDI() *MIDIConverter {
	return c.midi
}

// Encode renders a song in format f.
func (c *Converter) Encode(song *music.Song, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return EncodeJSON(song)
	case FormatYAML:
		return EncodeYAML(song)
	case FormatMIDI:
		return c.midi.GenerateMIDI(song)
	case FormatNotation:
		return []byte(song.FormatMelody() + "\n"), nil
	}
	return nil, fmt.Errorf("cannot encode format %s", f)
}

// Decode parses data in format f; FormatUnknown sniffs the content.
func (c *Converter) Decode(data []byte, f Format) (*music.Song, error) {
	if f == FormatUnknown {
		f = DetectFormatFromContent(data)
	}
	switch f {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	case FormatMIDI:
		return c.midi.ParseMIDI(data)
	case FormatNotation:
		song := music.NewSong("")
		if err := song.ParseMelody(string(data)); err != nil {
			return nil, err
		}
		return song, nil
	}
	return nil, fmt.Errorf("%w: unrecognized song format", music.ErrFormat)
}

// ReadSong loads a song, detecting the format from the extension first and
// the content second.
func (c *Converter) ReadSong(path string) (*music.Song, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("failed to read input file: %w", err)
	}
	f := DetectFormat(path)
	if f == FormatUnknown {
		f = DetectFormatFromContent(data)
	}
	song, err := c.Decode(data, f)
	if err != nil {
		return nil, f, err
	}
	return song, f, nil
}

// WriteSong saves a song in the format implied by the path's extension.
func (c *Converter) WriteSong(song *music.Song, path string) error {
	f := DetectFormat(path)
	if f == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}
	data, err := c.Encode(song, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	if DetectFormat(outputPath) == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}
	song, _, err := c.ReadSong(inputPath)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return c.WriteSong(song, outputPath)
}

// GetSupportedFormats lists the formats every conversion can read and write.
func GetSupportedFormats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatMIDI, FormatNotation}
}
