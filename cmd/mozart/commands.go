package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/james-see/mozart/pkg/api"
	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/music"
	"github.com/james-see/mozart/pkg/store"
	"github.com/james-see/mozart/pkg/tui"
)

// readSong loads a song file; "-" reads stdin and sniffs the format.
func readSong(conv *codec.Converter, path string) (*music.Song, error) {
	if path != "-" {
		song, format, err := conv.ReadSong(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("read song", "path", path, "format", format, "notes", song.NoteCount())
		return song, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return conv.Decode(data, codec.FormatUnknown)
}

// writeResult saves to outputFile, or prints notation when it is empty.
func writeResult(cmd *cobra.Command, conv *codec.Converter, song *music.Song) error {
	if outputFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), song.FormatMelody())
		return nil
	}
	if err := conv.WriteSong(song, outputFile); err != nil {
		return err
	}
	slog.Info("wrote song", "path", outputFile)
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Written to %s\n", outputFile)
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	notes, err := music.ParseMelodyWithVelocity(strings.Join(args, " "), velocity)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		if notes == nil {
			notes = []music.Note{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(notes)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPITCH\tMIDI\tSTART\tDURATION\tVELOCITY")
	for i, n := range notes {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\n", i, n.Pitch, n.Pitch, n.Start, n.Duration, n.Velocity)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d notes, %d ticks\n", len(notes), music.EndTick(notes))
	return nil
}

func runFormat(cmd *cobra.Command, args []string) error {
	conv, err := converter()
	if err != nil {
		return err
	}
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), song.FormatMelody())
	return nil
}

func runTranspose(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("semitones") && !flags.Changed("degrees") && targetKey == "" {
		return errors.New("one of --semitones, --degrees or --to is required")
	}
	conv, err := converter()
	if err != nil {
		return err
	}
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	source := song.Key()
	if sourceKey != "" {
		if source, err = music.ParseScale(sourceKey); err != nil {
			return err
		}
	}

	var t music.Transposition
	switch {
	case flags.Changed("semitones"):
		t = music.Chromatic{Semitones: semitones}
	case targetKey != "":
		target, err := music.ParseScale(targetKey)
		if err != nil {
			return err
		}
		t = music.KeyChange(source, target, degrees)
	default:
		t = music.DiatonicIn(source, degrees)
	}

	n, err := song.Transpose(t)
	if err != nil {
		return fmt.Errorf("transpose failed: %w", err)
	}
	if d, ok := t.(music.Diatonic); ok && d.Target != nil {
		if err := song.SetKey(*d.Target); err != nil {
			return err
		}
	}
	slog.Info("transposed", "notes", n, "description", t.Describe())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d notes\n", t.Describe(), n)
	return writeResult(cmd, conv, song)
}

func runInvert(cmd *cobra.Command, args []string) error {
	p, err := music.ParsePitch(pivot)
	if err != nil {
		return err
	}
	conv, err := converter()
	if err != nil {
		return err
	}
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	t := music.Inversion{Pivot: p}
	n, err := song.Transpose(t)
	if err != nil {
		return fmt.Errorf("inversion failed: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d notes\n", t.Describe(), n)
	return writeResult(cmd, conv, song)
}

func runDetect(cmd *cobra.Command, args []string) error {
	conv, err := converter()
	if err != nil {
		return err
	}
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	key, ok := song.DetectKey()
	if !ok {
		return errors.New("could not detect scale: no notes")
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}

func runScales(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if len(args) == 0 {
		fmt.Fprintln(w, "ID\tNAME\tINTERVALS")
		for _, t := range music.AllScaleTypes() {
			iv := t.Intervals()
			fmt.Fprintf(w, "%s\t%s\t%v\n", t.ID(), t, iv)
		}
		return w.Flush()
	}
	root, err := music.ParsePitchClass(args[0])
	if err != nil {
		return err
	}
	for _, t := range music.AllScaleTypes() {
		s := music.NewScale(root, t)
		names := make([]string, 0, music.DegreesPerOctave)
		for _, pc := range s.PitchClasses() {
			names = append(names, pc.Name(s.Spelling()))
		}
		sharps, _ := s.KeySignature()
		fmt.Fprintf(w, "%s\t%s\t%s\n", s, strings.Join(names, " "), signatureName(sharps))
	}
	return w.Flush()
}

func signatureName(sharps int) string {
	switch {
	case sharps > 0:
		return fmt.Sprintf("%d♯", sharps)
	case sharps < 0:
		return fmt.Sprintf("%d♭", -sharps)
	}
	return "♮"
}

func runAccents(cmd *cobra.Command, args []string) error {
	ts, err := music.ParseTimeSignature(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  grouping %v\n", ts, ts.Visual(), music.DefaultGrouping(ts.Numerator()))
	for i, a := range ts.Accents() {
		fmt.Fprintf(out, "  beat %2d  tick %5d  %-6s  x%.2f\n", i+1, i*ts.TicksPerBeat(), a, a.VelocityMultiplier())
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	conv, err := converter()
	if err != nil {
		return err
	}
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ts := song.TimeSignature()
	fmt.Fprintf(out, "Title:          %s\n", song.Metadata.Title)
	if song.Metadata.Composer != "" {
		fmt.Fprintf(out, "Composer:       %s\n", song.Metadata.Composer)
	}
	fmt.Fprintf(out, "Tempo:          %d BPM\n", song.Tempo())
	fmt.Fprintf(out, "Time Signature: %s %s\n", ts, ts.Visual())
	fmt.Fprintf(out, "Key:            %s\n", song.Key())
	fmt.Fprintf(out, "Notes:          %d\n", song.NoteCount())
	fmt.Fprintf(out, "Duration:       %.2fs (%d ticks)\n", song.DurationSeconds(), song.DurationTicks())
	fmt.Fprintf(out, "Measures:       %d\n", song.MeasureCount())
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	conv, err := converter()
	if err != nil {
		return err
	}
	inputFile := args[0]

	fmt.Fprintf(cmd.ErrOrStderr(), "Converting %s (%s) → %s (%s)\n",
		inputFile, codec.DetectFormat(inputFile), outputFile, codec.DetectFormat(outputFile))

	if err := conv.ConvertFile(inputFile, outputFile); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Successfully converted to %s\n", outputFile)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	midi, err := cfg.MIDIConverter()
	if err != nil {
		return err
	}
	if keySignature != "" {
		if midi.KeySignature, err = codec.ParseKeySignaturePolicy(keySignature); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("track-name") {
		midi.TrackName = trackName
	}
	conv := codec.New(midi)
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	out := outputFile
	if out == "" {
		out = strings.TrimSuffix(args[0], ".mozart.json")
		out = strings.TrimSuffix(out, ".json") + ".mid"
	}
	if err := midi.WriteMIDIFile(song, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported MIDI to %s\n", out)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	conv, err := converter()
	if err != nil {
		return err
	}
	song, err := readSong(conv, args[0])
	if err != nil {
		return err
	}
	results, err := codec.Query(song, args[1])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, v := range results {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg, slog.Default())
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serverPort != 0 {
		addr = fmt.Sprintf(":%d", serverPort)
	}
	dir := cfg.DataDir
	if dataDir != "" {
		dir = dataDir
	}
	st, err := store.Open(dir, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	srv, err := api.NewServer(st, cfg, slog.Default())
	if err != nil {
		return err
	}
	fmt.Printf("Starting mozart API server on %s...\n", addr)
	fmt.Printf("Swagger docs available at http://localhost%s/swagger/index.html\n", addr)
	return srv.Run(addr)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.Path)
	return cfg.Encode(cmd.OutOrStdout())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfg.Path); err == nil {
		return fmt.Errorf("config %s already exists", cfg.Path)
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", cfg.Path)
	return nil
}
