package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/config"
	"github.com/james-see/mozart/pkg/music"
)

const demoMelody = "C4q D4q E4q F4q G4h Rq G4q A4q B4q C5w"

// errUsage marks a command invoked with missing or bad arguments.
var errUsage = errors.New("usage")

// Result is the outcome of one editor command.
type Result struct {
	Lines []string
	// Changed is set when the song was modified.
	Changed bool
	// Pick asks the UI to open the file picker for loading.
	Pick bool
	// Export is the path of a MIDI export to run in the background.
	Export string
	Quit   bool
}

func (r *Result) printf(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Session holds the song being edited and runs editor commands against it.
type Session struct {
	Song *music.Song
	conv *codec.Converter
	cfg  *config.Config
}

// NewSession starts a session on a new song built from cfg.
func NewSession(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	midi, err := cfg.MIDIConverter()
	if err != nil {
		return nil, err
	}
	song, err := cfg.NewSong("")
	if err != nil {
		return nil, err
	}
	return &Session{Song: song, conv: codec.New(midi), cfg: cfg}, nil
}

type command struct {
	usage string
	help  string
	run   func(s *Session, args string, r *Result) error
}

var commands map[string]command

// commandOrder is the help listing order.
var commandOrder = []string{
	"new", "info", "title", "composer", "demo",
	"tempo", "time", "accent", "key",
	"melody", "notes", "clear",
	"transpose", "invert", "modulate", "detect",
	"save", "load", "midi", "json",
	"scales", "help", "quit",
}

func init() {
	commands = map[string]command{
		"new":       {"new [title]", "Create a new song", (*Session).cmdNew},
		"info":      {"info", "Show song information", (*Session).cmdInfo},
		"title":     {"title [name]", "Get/set song title", (*Session).cmdTitle},
		"composer":  {"composer [name]", "Get/set composer", (*Session).cmdComposer},
		"demo":      {"demo", "Load a demo melody", (*Session).cmdDemo},
		"tempo":     {"tempo [bpm]", "Get/set tempo (20-300)", (*Session).cmdTempo},
		"time":      {"time [n/d]", "Get/set time signature (e.g. 7/8)", (*Session).cmdTime},
		"accent":    {"accent <beat>", "Cycle the accent of a beat (1-based)", (*Session).cmdAccent},
		"key":       {"key [root scale]", "Get/set key (e.g. 'F# dorian')", (*Session).cmdKey},
		"melody":    {"melody [notation]", "Get/set melody (e.g. 'C4q D4q E4h')", (*Session).cmdMelody},
		"notes":     {"notes", "List all notes", (*Session).cmdNotes},
		"clear":     {"clear", "Clear all notes", (*Session).cmdClear},
		"transpose": {"transpose c|d <n>", "Transpose by n semitones or scale degrees", (*Session).cmdTranspose},
		"invert":    {"invert <pitch>", "Mirror the melody around a pitch", (*Session).cmdInvert},
		"modulate":  {"modulate <root scale> [degrees]", "Move the melody into another key", (*Session).cmdModulate},
		"detect":    {"detect", "Detect the scale from notes", (*Session).cmdDetect},
		"save":      {"save <file>", "Save (.mozart.json, .yaml, .mid or .txt)", (*Session).cmdSave},
		"load":      {"load [file]", "Load a file; no argument opens the picker", (*Session).cmdLoad},
		"midi":      {"midi <file>", "Export to MIDI file", (*Session).cmdMIDI},
		"json":      {"json", "Print song as JSON", (*Session).cmdJSON},
		"scales":    {"scales", "List available scale types", (*Session).cmdScales},
		"help":      {"help", "Show this help", (*Session).cmdHelp},
		"quit":      {"quit", "Exit", func(_ *Session, _ string, r *Result) error { r.Quit = true; return nil }},
	}
	commands["exit"] = commands["quit"]
	commands["q"] = commands["quit"]
}

// Exec runs one command line. Errors leave the song unchanged.
func (s *Session) Exec(line string) (Result, error) {
	var r Result
	line = strings.TrimSpace(line)
	if line == "" {
		return r, nil
	}
	name, args, _ := strings.Cut(line, " ")
	cmd, ok := commands[strings.ToLower(name)]
	if !ok {
		return r, fmt.Errorf("unknown command %q, type 'help' for available commands", name)
	}
	if err := cmd.run(s, strings.TrimSpace(args), &r); err != nil {
		if errors.Is(err, errUsage) {
			return r, fmt.Errorf("usage: %s", cmd.usage)
		}
		return r, err
	}
	return r, nil
}

func (s *Session) cmdNew(args string, r *Result) error {
	song, err := s.cfg.NewSong(args)
	if err != nil {
		return err
	}
	s.Song = song
	r.Changed = true
	r.printf("Created new song")
	return nil
}

func (s *Session) cmdInfo(_ string, r *Result) error {
	song := s.Song
	r.printf("Title: %s", song.Metadata.Title)
	if song.Metadata.Composer != "" {
		r.printf("Composer: %s", song.Metadata.Composer)
	}
	r.printf("Tempo: %d BPM", song.Tempo())
	r.printf("Time Signature: %s %s", song.TimeSignature(), song.TimeSignature().Visual())
	r.printf("Key: %s", song.Key())
	r.printf("Notes: %d", song.NoteCount())
	r.printf("Duration: %.2fs", song.DurationSeconds())
	r.printf("Measures: %d", song.MeasureCount())
	return nil
}

func (s *Session) cmdTitle(args string, r *Result) error {
	if args == "" {
		r.printf("Current title: %s", s.Song.Metadata.Title)
		return nil
	}
	s.Song.SetTitle(args)
	r.Changed = true
	r.printf("Title set to: %s", args)
	return nil
}

func (s *Session) cmdComposer(args string, r *Result) error {
	if args == "" {
		r.printf("Current composer: %s", s.Song.Metadata.Composer)
		return nil
	}
	s.Song.SetComposer(args)
	r.Changed = true
	r.printf("Composer set to: %s", args)
	return nil
}

func (s *Session) cmdDemo(_ string, r *Result) error {
	song, err := s.cfg.NewSong("Demo Song")
	if err != nil {
		return err
	}
	song.SetTempo(music.DefaultTempo)
	if err := song.SetKey(music.CMajor()); err != nil {
		return err
	}
	if err := song.ParseMelody(demoMelody); err != nil {
		return err
	}
	s.Song = song
	r.Changed = true
	r.printf("Loaded demo song with %d notes", song.NoteCount())
	r.printf("Melody: %s", song.FormatMelody())
	return nil
}

func (s *Session) cmdTempo(args string, r *Result) error {
	if args == "" {
		r.printf("Current tempo: %d BPM", s.Song.Tempo())
		return nil
	}
	bpm, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("invalid tempo: %s", args)
	}
	r.printf("Tempo set to %d BPM", s.Song.SetTempo(bpm))
	r.Changed = true
	return nil
}

func (s *Session) cmdTime(args string, r *Result) error {
	if args == "" {
		ts := s.Song.TimeSignature()
		r.printf("Current time signature: %s", ts)
		r.printf("Accents: %s", ts.Visual())
		return nil
	}
	ts, err := music.ParseTimeSignature(args)
	if err != nil {
		return err
	}
	if err := s.Song.SetTimeSignature(ts); err != nil {
		return err
	}
	r.Changed = true
	r.printf("Time signature set to %s %s", ts, ts.Visual())
	return nil
}

func (s *Session) cmdAccent(args string, r *Result) error {
	beat, err := strconv.Atoi(args)
	if err != nil {
		return errUsage
	}
	level, err := s.Song.CycleAccent(beat - 1)
	if err != nil {
		return err
	}
	r.Changed = true
	r.printf("Beat %d is now %s: %s", beat, level, s.Song.TimeSignature().Visual())
	return nil
}

func (s *Session) cmdKey(args string, r *Result) error {
	if args == "" {
		key := s.Song.Key()
		names := make([]string, 0, music.DegreesPerOctave)
		for _, pc := range key.PitchClasses() {
			names = append(names, pc.Name(key.Spelling()))
		}
		r.printf("Current key: %s", key)
		r.printf("Scale notes: %s", strings.Join(names, " "))
		return nil
	}
	key, err := music.ParseScale(args)
	if err != nil {
		return err
	}
	if err := s.Song.SetKey(key); err != nil {
		return err
	}
	r.Changed = true
	r.printf("Key set to %s", key)
	return nil
}

func (s *Session) cmdMelody(args string, r *Result) error {
	if args == "" {
		r.printf("Current melody: %s", s.Song.FormatMelody())
		return nil
	}
	if err := s.Song.ParseMelody(args); err != nil {
		return err
	}
	r.Changed = true
	r.printf("Melody set: %d notes", s.Song.NoteCount())
	return nil
}

func (s *Session) cmdNotes(_ string, r *Result) error {
	notes := s.Song.Notes()
	if len(notes) == 0 {
		r.printf("No notes")
		return nil
	}
	spelling := s.Song.Key().Spelling()
	ts := s.Song.TimeSignature()
	for i, n := range notes {
		r.printf("  [%d] %s at tick %d (duration %d, velocity %d, accent %s)",
			i, n.Pitch.Name(spelling), n.Start, n.Duration, s.Song.AccentedVelocity(n), ts.AccentAtTick(n.Start))
	}
	return nil
}

func (s *Session) cmdClear(_ string, r *Result) error {
	s.Song.ClearNotes()
	r.Changed = true
	r.printf("Notes cleared")
	return nil
}

func (s *Session) apply(t music.Transposition, r *Result) error {
	r.printf("Transposing: %s", t.Describe())
	n, err := s.Song.Transpose(t)
	if err != nil {
		return err
	}
	r.Changed = true
	r.printf("Transposed %d notes", n)
	r.printf("New melody: %s", s.Song.FormatMelody())
	return nil
}

func (s *Session) cmdTranspose(args string, r *Result) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return errUsage
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return errUsage
	}
	switch fields[0] {
	case "chromatic", "c":
		return s.apply(music.Chromatic{Semitones: n}, r)
	case "diatonic", "d":
		return s.apply(music.DiatonicIn(s.Song.Key(), n), r)
	}
	return fmt.Errorf("unknown transpose mode: %s", fields[0])
}

func (s *Session) cmdInvert(args string, r *Result) error {
	if args == "" {
		return errUsage
	}
	pivot, err := music.ParsePitch(args)
	if err != nil {
		return err
	}
	return s.apply(music.Inversion{Pivot: pivot}, r)
}

func (s *Session) cmdModulate(args string, r *Result) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return errUsage
	}
	degrees := 0
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			degrees = n
			fields = fields[:len(fields)-1]
		}
	}
	target, err := music.ParseScale(strings.Join(fields, " "))
	if err != nil {
		return err
	}
	from := s.Song.Key()
	n, err := s.Song.ChangeKey(target, degrees)
	if err != nil {
		return err
	}
	r.Changed = true
	r.printf("Moved %d notes from %s to %s", n, from, target)
	r.printf("New melody: %s", s.Song.FormatMelody())
	return nil
}

func (s *Session) cmdDetect(_ string, r *Result) error {
	if s.Song.NoteCount() == 0 {
		r.printf("No notes to analyze")
		return nil
	}
	if key, ok := s.Song.DetectKey(); ok {
		r.printf("Detected scale: %s", key)
	} else {
		r.printf("Could not detect scale")
	}
	return nil
}

// songPath adds the native extension when the name has no known one.
func songPath(name string) string {
	if codec.DetectFormat(name) == codec.FormatUnknown {
		return name + ".mozart.json"
	}
	return name
}

func (s *Session) cmdSave(args string, r *Result) error {
	if args == "" {
		return errUsage
	}
	path := songPath(args)
	if err := s.conv.WriteSong(s.Song, path); err != nil {
		return err
	}
	r.printf("Saved to %s", path)
	return nil
}

func (s *Session) cmdLoad(args string, r *Result) error {
	if args == "" {
		r.Pick = true
		return nil
	}
	return s.Load(args, r)
}

// Load replaces the song with the contents of path.
func (s *Session) Load(path string, r *Result) error {
	song, format, err := s.conv.ReadSong(path)
	if err != nil {
		return err
	}
	s.Song = song
	r.Changed = true
	r.printf("Loaded %s: %s (%d notes)", format, song.Metadata.Title, song.NoteCount())
	return nil
}

func (s *Session) cmdMIDI(args string, r *Result) error {
	if args == "" {
		return errUsage
	}
	path := args
	if codec.DetectFormat(path) != codec.FormatMIDI {
		path += ".mid"
	}
	r.Export = path
	return nil
}

// ExportMIDI writes the song as a Standard MIDI File.
func (s *Session) ExportMIDI(song *music.Song, path string) error {
	return s.conv.MIDI().WriteMIDIFile(song, path)
}

func (s *Session) cmdJSON(_ string, r *Result) error {
	data, err := codec.EncodeJSON(s.Song)
	if err != nil {
		return err
	}
	r.Lines = append(r.Lines, strings.Split(strings.TrimRight(string(data), "\n"), "\n")...)
	return nil
}

func (s *Session) cmdScales(_ string, r *Result) error {
	r.printf("Available scales:")
	for _, t := range music.AllScaleTypes() {
		r.printf("  - %s", t)
	}
	return nil
}

func (s *Session) cmdHelp(_ string, r *Result) error {
	r.printf("Available commands:")
	for _, name := range commandOrder {
		c := commands[name]
		r.printf("  %-34s %s", c.usage, c.help)
	}
	return nil
}
