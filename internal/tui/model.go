// Package tui is the terminal reader: it shows the word being narrated with
// its recognition point highlighted and maps keys onto playback controls.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/index"
	"github.com/metcalfc/readaloud/internal/playback"
)

// Controller is the playback surface the reader drives.
type Controller interface {
	Toggle() error
	Pause() error
	JumpTo(index int) error
	NextChapter() error
	PreviousChapter() error
	AddBookmark(label string) (document.Bookmark, error)
	Snapshot() playback.Snapshot
	Updates() <-chan playback.Snapshot
	Done() <-chan struct{}
	Words() *index.Words
	Title() string
}

// Speed is an adjustable narration pace in words per minute.
type Speed interface {
	WPM() int
	SetWPM(wpm int) int
}

const contextWords = 4

type keyMap struct {
	Toggle   key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Back     key.Binding
	Forward  key.Binding
	PrevChap key.Binding
	NextChap key.Binding
	Bookmark key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		Faster:   key.NewBinding(key.WithKeys("+", "=", "up"), key.WithHelp("↑/+", "faster")),
		Slower:   key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("↓/-", "slower")),
		Back:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "paragraph back")),
		Forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "paragraph forward")),
		PrevChap: key.NewBinding(key.WithKeys("p", "["), key.WithHelp("p", "previous chapter")),
		NextChap: key.NewBinding(key.WithKeys("n", "]"), key.WithHelp("n", "next chapter")),
		Bookmark: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Faster, k.Slower, k.Back, k.Forward, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Faster, k.Slower},
		{k.Back, k.Forward, k.PrevChap, k.NextChap},
		{k.Bookmark, k.Help, k.Quit},
	}
}

type snapshotMsg playback.Snapshot

type closedMsg struct{}

type model struct {
	ctrl  Controller
	speed Speed
	words *index.Words

	snap     playback.Snapshot
	started  bool
	notice   string
	quitting bool
	width    int
	height   int

	keys keyMap
	help help.Model
	bar  progress.Model
}

func newModel(ctrl Controller, speed Speed) model {
	return model{
		ctrl:   ctrl,
		speed:  speed,
		words:  ctrl.Words(),
		snap:   ctrl.Snapshot(),
		width:  80,
		height: 24,
		keys:   defaultKeys(),
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func waitForUpdate(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-ctrl.Updates():
			return snapshotMsg(s)
		case <-ctrl.Done():
			return closedMsg{}
		}
	}
}

func (m model) Init() tea.Cmd {
	return waitForUpdate(m.ctrl)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = playback.Snapshot(msg)
		return m, waitForUpdate(m.ctrl)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Pause()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		m.started = true
		err = m.ctrl.Toggle()

	case key.Matches(msg, m.keys.Faster):
		if m.speed != nil {
			wpm := m.speed.SetWPM(m.speed.WPM() + playback.WPMStep)
			m.notice = fmt.Sprintf("%d WPM", wpm)
		}

	case key.Matches(msg, m.keys.Slower):
		if m.speed != nil {
			wpm := m.speed.SetWPM(m.speed.WPM() - playback.WPMStep)
			m.notice = fmt.Sprintf("%d WPM", wpm)
		}

	case key.Matches(msg, m.keys.Back):
		err = m.ctrl.JumpTo(m.previousBlockStart())

	case key.Matches(msg, m.keys.Forward):
		if k, ok := m.words.Find(m.snap.Cursor); ok && k+1 < m.words.Len() {
			err = m.ctrl.JumpTo(m.words.Block(k + 1).Start)
		}

	case key.Matches(msg, m.keys.PrevChap):
		err = m.ctrl.PreviousChapter()

	case key.Matches(msg, m.keys.NextChap):
		err = m.ctrl.NextChapter()

	case key.Matches(msg, m.keys.Bookmark):
		var b document.Bookmark
		if b, err = m.ctrl.AddBookmark(""); err == nil {
			m.notice = "Bookmarked: " + b.Label
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	default:
		return m, nil
	}

	if err != nil {
		m.notice = err.Error()
	}
	m.snap = m.ctrl.Snapshot()
	return m, nil
}

// previousBlockStart is the start of the cursor's block, or of the block
// before it when the cursor already sits at a block start.
func (m model) previousBlockStart() int {
	k, ok := m.words.Find(m.snap.Cursor)
	if !ok {
		return 0
	}
	start := m.words.Block(k).Start
	if m.snap.Cursor > start || k == 0 {
		return start
	}
	return m.words.Block(k - 1).Start
}

func (m model) atEnd() bool {
	return !m.snap.Playing && m.started && m.snap.Total > 0 && m.snap.Cursor >= m.snap.Total-1
}

// currentWord returns the narrated word and its block.
func (m model) currentWord() (string, []string, int) {
	k, ok := m.words.Find(m.snap.Cursor)
	if !ok {
		return "", nil, 0
	}
	b := m.words.Block(k)
	i := m.snap.Cursor - b.Start
	if i < 0 || i >= len(b.Words) {
		return "", b.Words, 0
	}
	return b.Words[i], b.Words, i
}

func (m model) View() string {
	if m.quitting {
		if m.atEnd() {
			return completeStyle.Render("\n  Reading complete!\n")
		}
		return ""
	}
	if m.snap.Total == 0 {
		return "No text to read."
	}

	word, block, i := m.currentWord()

	var header strings.Builder
	header.WriteString(titleStyle.Render(m.ctrl.Title()))
	if m.snap.ChapterTitle != "" {
		header.WriteString(statusStyle.Render("· " + m.snap.ChapterTitle))
	}

	status := fmt.Sprintf("Word %d/%d", m.snap.Cursor+1, m.snap.Total)
	if m.speed != nil {
		status += fmt.Sprintf(" | %d WPM", m.speed.WPM())
	}
	status += " | " + m.snap.Backend
	line := statusStyle.Render(status)
	if !m.snap.Playing {
		line += pausedStyle.Render(" [PAUSED]")
	}
	if m.snap.FellBack {
		line += fallbackStyle.Render(" [remote voice unavailable]")
	}

	before, after := around(block, i, contextWords)
	focus := anchorORP(formatWord(word), word, m.width)
	ctx := contextStyle.Render(before) + "  " + contextStyle.Render(after)

	percent := 0.0
	if m.snap.Total > 1 {
		percent = float64(m.snap.Cursor) / float64(m.snap.Total-1)
	}

	footer := m.help.View(m.keys)
	if m.notice != "" {
		footer = statusStyle.Render(m.notice) + "\n" + footer
	}

	// Header, status and progress on top, context and footer below.
	top := 3
	bottom := 2 + strings.Count(footer, "\n") + 1
	avail := m.height - top - bottom
	if avail < 1 {
		avail = 1
	}
	vPad := avail / 2

	var sb strings.Builder
	sb.WriteString(header.String())
	sb.WriteString("\n")
	sb.WriteString(line)
	sb.WriteString("\n")
	sb.WriteString("  " + m.bar.ViewAs(percent))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("\n", vPad))
	sb.WriteString(focus)
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, ctx))
	sb.WriteString(strings.Repeat("\n", avail-vPad))
	sb.WriteString(footer)
	return sb.String()
}
