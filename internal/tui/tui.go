package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Options tune the reader.
type Options struct {
	// Autoplay starts narration as soon as the reader opens.
	Autoplay bool
}

// Run shows the reader until the user quits. Playback is paused on exit;
// closing the controller is left to the caller.
func Run(ctrl Controller, speed Speed, opts Options) error {
	m := newModel(ctrl, speed)
	if opts.Autoplay {
		m.started = true
		if err := ctrl.Toggle(); err != nil {
			return err
		}
		m.snap = ctrl.Snapshot()
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
