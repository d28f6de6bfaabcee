// Package tui provides a terminal user interface for mozart
package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/mozart/pkg/config"
	"github.com/james-see/mozart/pkg/music"
)

// autosaveDelay is the quiet period before an edit is written to disk.
const autosaveDelay = 2 * time.Second

// maxLog bounds the scrollback.
const maxLog = 200

// Parchment color scheme
var (
	ink       = lipgloss.Color("#F5E6C8")
	gold      = lipgloss.Color("#D4A017")
	burgundy  = lipgloss.Color("#8B1E3F")
	slateGray = lipgloss.Color("#3A3A4A")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ink).
			Background(burgundy).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(gold).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(ink)

	strongStyle = lipgloss.NewStyle().Foreground(burgundy).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(gold)
	weakStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	statusStyle = lipgloss.NewStyle().
			Foreground(gold).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gold).
			Background(slateGray).
			Padding(0, 1)
)

// State represents the current TUI state
type State int

const (
	StateEdit State = iota
	StateFilePicker
	StateExporting
)

// Model represents the TUI model
type Model struct {
	state      State
	session    *Session
	input      textinput.Model
	filePicker filepicker.Model
	spinner    spinner.Model
	log        []logLine
	exporting  string
	history    []string
	histPos    int

	autosavePath string
	autosave     func(func())
	saved        chan autosaveMsg
	logger       *slog.Logger

	width  int
	height int
}

type logLine struct {
	text string
	err  bool
}

// exportDoneMsg signals MIDI export completion
type exportDoneMsg struct {
	path string
	err  error
}

// autosaveMsg reports a finished autosave
type autosaveMsg struct {
	path string
	err  error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForAutosave())
}

// New creates a new TUI model
func New(cfg *config.Config, logger *slog.Logger) (Model, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	session, err := NewSession(cfg)
	if err != nil {
		return Model{}, err
	}

	// Command line
	ti := textinput.New()
	ti.Placeholder = "melody C4q D4q E4h"
	ti.Prompt = "mozart> "
	ti.PromptStyle = labelStyle
	ti.CharLimit = 1024
	ti.Focus()

	// File picker for load
	fp := filepicker.New()
	fp.AllowedTypes = []string{".json", ".mozart", ".yaml", ".yml", ".mid", ".midi", ".txt", ".notes"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Spinner for exports
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(gold)

	m := Model{
		state:        StateEdit,
		session:      session,
		input:        ti,
		filePicker:   fp,
		spinner:      s,
		autosavePath: cfg.Autosave,
		saved:        make(chan autosaveMsg, 1),
		logger:       logger,
	}
	if m.autosavePath != "" {
		m.autosave = debounce.New(autosaveDelay)
	}
	m.print("Mozart melody editor. Type 'help' for available commands.")
	return m, nil
}

func (m *Model) print(lines ...string) {
	for _, l := range lines {
		m.log = append(m.log, logLine{text: l})
	}
	m.trimLog()
}

func (m *Model) printErr(err error) {
	m.log = append(m.log, logLine{text: "Error: " + err.Error(), err: true})
	m.trimLog()
}

func (m *Model) trimLog() {
	if n := len(m.log) - maxLog; n > 0 {
		m.log = m.log[n:]
	}
}

// scheduleAutosave writes a snapshot of the song once edits pause.
func (m *Model) scheduleAutosave() {
	if m.autosave == nil {
		return
	}
	snapshot := m.session.Song.Clone()
	path, conv, saved := m.autosavePath, m.session.conv, m.saved
	m.autosave(func() {
		err := conv.WriteSong(snapshot, path)
		select {
		case saved <- autosaveMsg{path: path, err: err}:
		default:
		}
	})
}

func (m Model) waitForAutosave() tea.Cmd {
	saved := m.saved
	return func() tea.Msg {
		return <-saved
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(autosaveMsg); ok {
		return m.handleAutosave(msg)
	}

	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateEdit
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.state = StateEdit
			var r Result
			if err := m.session.Load(path, &r); err != nil {
				m.printErr(err)
			} else {
				m.print(r.Lines...)
				m.scheduleAutosave()
			}
			return m, nil
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-12, 20)
		m.filePicker.SetHeight(max(msg.Height-10, 5))
		return m, nil

	case tea.KeyMsg:
		if m.state == StateExporting {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		return m.updateEdit(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case exportDoneMsg:
		m.state = StateEdit
		m.exporting = ""
		if msg.err != nil {
			m.printErr(msg.err)
		} else {
			m.print("Exported MIDI to " + msg.path)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleAutosave(msg autosaveMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("autosave failed", "path", msg.path, "err", msg.err)
		m.printErr(fmt.Errorf("autosave: %w", msg.err))
	} else {
		m.logger.Debug("autosaved", "path", msg.path)
	}
	return m, m.waitForAutosave()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up":
		if m.histPos > 0 {
			m.histPos--
			m.input.SetValue(m.history[m.histPos])
			m.input.CursorEnd()
		}
		return m, nil
	case "down":
		if m.histPos < len(m.history)-1 {
			m.histPos++
			m.input.SetValue(m.history[m.histPos])
		} else {
			m.histPos = len(m.history)
			m.input.SetValue("")
		}
		m.input.CursorEnd()
		return m, nil
	case "enter":
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if line == "" {
			return m, nil
		}
		m.history = append(m.history, line)
		m.histPos = len(m.history)
		return m.run(line)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run executes a command line and reacts to its result.
func (m Model) run(line string) (tea.Model, tea.Cmd) {
	m.print(m.input.Prompt + line)
	r, err := m.session.Exec(line)
	if err != nil {
		m.printErr(err)
		return m, nil
	}
	m.print(r.Lines...)
	if r.Changed {
		m.scheduleAutosave()
	}
	switch {
	case r.Quit:
		return m, tea.Quit
	case r.Pick:
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case r.Export != "":
		m.state = StateExporting
		m.exporting = r.Export
		return m, tea.Batch(m.spinner.Tick, m.performExport(r.Export))
	}
	return m, nil
}

func (m Model) performExport(path string) tea.Cmd {
	snapshot := m.session.Song.Clone()
	session := m.session
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: session.ExportMIDI(snapshot, path)}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" MOZART "))
	s.WriteString("\n")
	s.WriteString(m.viewHeader())
	s.WriteString("\n")

	switch m.state {
	case StateEdit:
		s.WriteString(m.viewLog())
		s.WriteString("\n")
		s.WriteString(m.input.View())
	case StateFilePicker:
		s.WriteString(labelStyle.Render("Select a song file"))
		s.WriteString("\n\n")
		s.WriteString(m.filePicker.View())
	case StateExporting:
		s.WriteString(fmt.Sprintf("%s Exporting %s...", m.spinner.View(), filepath.Base(m.exporting)))
	}

	// Footer help
	s.WriteString("\n")
	switch m.state {
	case StateFilePicker:
		s.WriteString(helpStyle.Render("enter: open • esc: back • ctrl+c: quit"))
	default:
		s.WriteString(helpStyle.Render("enter: run • ↑/↓: history • esc: quit"))
	}

	return s.String()
}

func (m Model) viewHeader() string {
	song := m.session.Song
	ts := song.TimeSignature()
	field := func(label, value string) string {
		return labelStyle.Render(label+" ") + valueStyle.Render(value)
	}
	row := strings.Join([]string{
		field("Title", song.Metadata.Title),
		field("Tempo", fmt.Sprintf("%d", song.Tempo())),
		field("Time", ts.String()) + " " + renderAccents(ts.Accents()),
		field("Key", song.Key().String()),
		field("Notes", fmt.Sprintf("%d", song.NoteCount())),
		field("Length", fmt.Sprintf("%.1fs", song.DurationSeconds())),
	}, "  ")
	if m.autosavePath != "" {
		row += "\n" + statusStyle.Render("autosave: "+m.autosavePath)
	}
	return boxStyle.Render(row)
}

func renderAccents(accents []music.AccentLevel) string {
	var b strings.Builder
	for _, a := range accents {
		switch a {
		case music.Strong:
			b.WriteString(strongStyle.Render(a.Symbol()))
		case music.Medium:
			b.WriteString(mediumStyle.Render(a.Symbol()))
		default:
			b.WriteString(weakStyle.Render(a.Symbol()))
		}
	}
	return b.String()
}

func (m Model) viewLog() string {
	lines := m.log
	if visible := m.height - 10; visible > 0 && len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	var s strings.Builder
	for _, l := range lines {
		if l.err {
			s.WriteString(errorStyle.Render(l.text))
		} else {
			s.WriteString(l.text)
		}
		s.WriteString("\n")
	}
	return s.String()
}

// Run starts the TUI application
func Run(cfg *config.Config, logger *slog.Logger) error {
	m, err := New(cfg, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
