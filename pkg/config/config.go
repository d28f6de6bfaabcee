// Package config loads mozart settings.
//
// The configuration file lives under os.UserConfigDir()/mozart/:
//
//	~/Library/Application Support/mozart/config.yaml   (macOS)
//	~/.config/mozart/config.yaml                       (Linux)
//	%AppData%/mozart/config.yaml                       (Windows)
//
// A missing file yields the defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/music"
)

const (
	appDir   = "mozart"
	fileName = "config.yaml"
)

// Config holds user preferences.
type Config struct {
	// Path is the file the config was loaded from.
	Path string `yaml:"-"`

	Song   SongDefaults   `yaml:"song"`
	Server ServerSettings `yaml:"server"`
	MIDI   MIDISettings   `yaml:"midi"`
	// DataDir holds the badger song database; empty keeps songs in memory.
	DataDir string `yaml:"data_dir"`
	// Autosave is the TUI autosave path; empty disables autosave.
	Autosave string `yaml:"autosave"`
}

// SongDefaults seed new songs.
type SongDefaults struct {
	Composer      string `yaml:"composer"`
	Tempo         int    `yaml:"tempo"`
	TimeSignature string `yaml:"time_signature"`
	Key           string `yaml:"key"`
}

type ServerSettings struct {
	Addr string `yaml:"addr"`
}

type MIDISettings struct {
	KeySignature string `yaml:"key_signature"`
	TrackName    bool   `yaml:"track_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Song: SongDefaults{
			Tempo:         music.DefaultTempo,
			TimeSignature: "4/4",
			Key:           "C major",
		},
		Server: ServerSettings{Addr: ":8080"},
		MIDI:   MIDISettings{KeySignature: "relative-major"},
	}
}

// DefaultPath returns os.UserConfigDir()/mozart/config.yaml.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path, falling back to defaults for a
// missing file and for fields the file leaves out.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.Path = path
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to its Path, creating the directory if needed.
func (c *Config) Save() error {
	if c.Path == "" {
		return errors.New("config has no path")
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}
	return os.WriteFile(c.Path, buf.Bytes(), 0644)
}

// Encode writes the config as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Validate checks that every setting parses.
func (c *Config) Validate() error {
	if _, err := c.NewSong(""); err != nil {
		return err
	}
	if _, err := c.MIDIConverter(); err != nil {
		return err
	}
	return nil
}

// NewSong creates an empty song with the configured defaults.
func (c *Config) NewSong(title string) (*music.Song, error) {
	song := music.NewSong(title)
	if c.Song.Composer != "" {
		song.SetComposer(c.Song.Composer)
	}
	if c.Song.Tempo != 0 {
		song.SetTempo(c.Song.Tempo)
	}
	if c.Song.TimeSignature != "" {
		ts, err := music.ParseTimeSignature(c.Song.TimeSignature)
		if err != nil {
			return nil, fmt.Errorf("song.time_signature: %w", err)
		}
		if err := song.SetTimeSignature(ts); err != nil {
			return nil, err
		}
	}
	if c.Song.Key != "" {
		key, err := music.ParseScale(c.Song.Key)
		if err != nil {
			return nil, fmt.Errorf("song.key: %w", err)
		}
		if err := song.SetKey(key); err != nil {
			return nil, err
		}
	}
	return song, nil
}

// MIDIConverter builds a MIDI converter from the midi settings.
func (c *Config) MIDIConverter() (*codec.MIDIConverter, error) {
	conv := codec.NewMIDIConverter()
	if c.MIDI.KeySignature != "" {
		p, err := codec.ParseKeySignaturePolicy(c.MIDI.KeySignature)
		if err != nil {
			return nil, fmt.Errorf("midi.key_signature: %w", err)
		}
		conv.KeySignature = p
	}
	conv.TrackName = c.MIDI.TrackName
	return conv, nil
}
