package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags clears flag values left over from a previous Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", "C4q", "Re", "G4h.")
	require.NoError(t, err)
	assert.Contains(t, out, "2 notes, 2160 ticks")
	assert.Contains(t, out, "G4")

	_, err = run(t, "parse", "C4", "X4")
	assert.ErrorContains(t, err, `token 1 "X4"`)
}

func TestTransposeCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tune.txt")
	require.NoError(t, os.WriteFile(in, []byte("C4 E4 G4\n"), 0644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"chromatic", []string{"--semitones", "2"}, "D4q F#4q A4q"},
		{"diatonic", []string{"--degrees", "-1"}, "B3q D4q F4q"},
		{"key change", []string{"--to", "D major"}, "D4q F#4q A4q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"transpose", in}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}

	_, err := run(t, "transpose", in)
	assert.ErrorContains(t, err, "required")
}

func TestConvertAndQueryCommands(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tune.txt")
	doc := filepath.Join(dir, "tune.mozart.json")
	require.NoError(t, os.WriteFile(in, []byte("A4e B4e C5q\n"), 0644))

	_, err := run(t, "convert", in, "-o", doc)
	require.NoError(t, err)

	out, err := run(t, "query", doc, "[.notes[].pitch]")
	require.NoError(t, err)
	assert.JSONEq(t, "[69, 71, 72]", out)

	out, err = run(t, "detect", doc)
	require.NoError(t, err)
	assert.Equal(t, "C Major", strings.TrimSpace(out))
}

func TestAccentsCommand(t *testing.T) {
	out, err := run(t, "accents", "7/8")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "7/8  >..-.-.  grouping [3 2 2]"))
}
