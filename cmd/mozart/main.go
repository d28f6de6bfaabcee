// Package main is the entry point for the mozart CLI
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool

	outputFile   string
	velocity     int
	asJSON       bool
	semitones    int
	degrees      int
	sourceKey    string
	targetKey    string
	pivot        string
	keySignature string
	trackName    bool
	serverPort   int
	dataDir      string
)

// cfg is loaded before every command runs.
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mozart",
	Short: "Melody notation, transposition and MIDI export",
	Long: `mozart is a music-theory toolkit for single-line melodies.

It parses a compact text notation, transposes chromatically, diatonically
or across keys, and exports Standard MIDI Files.

Examples:
  mozart parse "C4q D4q E4h"
  mozart transpose song.mozart.json --degrees 2 -o up.mozart.json
  mozart transpose tune.txt --to "D major"
  mozart convert song.mozart.json -o song.mid
  mozart query song.mozart.json '.notes | length'
  mozart tui
  mozart serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		slog.Debug("config loaded", "path", cfg.Path)
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <notation>...",
	Short: "Parse notation and list the timed notes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var formatCmd = &cobra.Command{
	Use:   "format <input>",
	Short: "Print a song file as notation",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormat,
}

var transposeCmd = &cobra.Command{
	Use:   "transpose <input>",
	Short: "Transpose by semitones, scale degrees or into another key",
	Long: `Transpose every note of a song.

Exactly one of --semitones or --degrees may be given. --to moves the melody
into another key (with --degrees 0 when omitted). The operation is atomic:
if any note would leave the MIDI range nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranspose,
}

var invertCmd = &cobra.Command{
	Use:   "invert <input>",
	Short: "Mirror every note around a pivot pitch",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvert,
}

var detectCmd = &cobra.Command{
	Use:   "detect <input>",
	Short: "Guess the key of a melody",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

var scalesCmd = &cobra.Command{
	Use:   "scales [root]",
	Short: "List scale types, or their notes for a root",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScales,
}

var accentsCmd = &cobra.Command{
	Use:   "accents <n/d>",
	Short: "Show the default accent pattern of a time signature",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccents,
}

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Show song information",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Automatically detects input format and converts to the output format based on file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var exportCmd = &cobra.Command{
	Use:   "export <input>",
	Short: "Export a song to a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var queryCmd = &cobra.Command{
	Use:   "query <input> <jq-expression>",
	Short: "Run a jq expression against the song document",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuery,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the configuration file",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config dir/mozart/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	// parse command
	parseCmd.Flags().IntVar(&velocity, "velocity", 100, "Note velocity (0-127)")
	parseCmd.Flags().BoolVar(&asJSON, "json", false, "Print notes as JSON")

	// transpose command
	transposeCmd.Flags().IntVarP(&semitones, "semitones", "s", 0, "Chromatic shift (-24 to 24)")
	transposeCmd.Flags().IntVarP(&degrees, "degrees", "d", 0, "Diatonic shift in scale steps")
	transposeCmd.Flags().StringVar(&sourceKey, "key", "", "Source key (default: the song's key)")
	transposeCmd.Flags().StringVar(&targetKey, "to", "", "Target key, e.g. \"D major\"")
	transposeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: print notation)")
	transposeCmd.MarkFlagsMutuallyExclusive("semitones", "degrees")
	transposeCmd.MarkFlagsMutuallyExclusive("semitones", "to")

	// invert command
	invertCmd.Flags().StringVar(&pivot, "pivot", "C4", "Pivot pitch, name or MIDI number")
	invertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: print notation)")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	// export command
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	exportCmd.Flags().StringVar(&keySignature, "key-signature", "", "Key signature policy: relative-major, definite or omit")
	exportCmd.Flags().BoolVar(&trackName, "track-name", false, "Write the title as the track name")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default: server.addr from config)")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "Badger data directory (default: data_dir from config, in-memory when empty)")

	// Add commands
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(transposeCmd)
	rootCmd.AddCommand(invertCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(scalesCmd)
	rootCmd.AddCommand(accentsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// converter builds a converter from the loaded config.
func converter() (*codec.Converter, error) {
	midi, err := cfg.MIDIConverter()
	if err != nil {
		return nil, err
	}
	return codec.New(midi), nil
}
