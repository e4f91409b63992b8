// Package cli implements the readaloud commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/metcalfc/readaloud/internal/app"
	"github.com/metcalfc/readaloud/internal/config"
	"github.com/metcalfc/readaloud/internal/logger"
	"github.com/metcalfc/readaloud/internal/state"
)

// BuildInfo is injected via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type options struct {
	configPath string
	backend    string
	wpm        int
}

// NewRootCmd builds the command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "readaloud [file|id]",
		Short: "Read documents aloud in the terminal",
		Long: `readaloud narrates EPUB, PDF, Markdown and plain text documents while
following along word by word. Your place is saved as you listen.

Give it a file to import and start reading, the id of a document already in
your library, or pipe text on stdin.`,
		Example: `  readaloud book.epub              Import and read book.epub
  readaloud 3f9a2c                 Resume a library document by id prefix
  readaloud --fresh book.epub      Start over from the first word
  readaloud --backend remote a.pdf Narrate with the configured synthesizer
  cat notes.txt | readaloud        Read from stdin`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/readaloud/config.yaml)")
	pf.StringVar(&opts.backend, "backend", "", "Narration backend: system or remote")
	pf.IntVarP(&opts.wpm, "wpm", "w", 0, "System voice speed in words per minute")

	read := &readOptions{options: opts}
	cmd.Flags().BoolVar(&read.fresh, "fresh", false, "Start from the beginning instead of the saved position")
	cmd.Flags().BoolVar(&read.paused, "paused", false, "Open paused instead of narrating right away")
	cmd.Flags().StringVar(&read.bookmark, "bookmark", "", "Start at the bookmark with this id")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runRead(cmd, read, args)
	}

	cmd.AddCommand(
		newImportCmd(opts),
		newListCmd(opts),
		newBookmarksCmd(opts),
		newRemoveCmd(opts),
		newVersionCmd(info),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(info BuildInfo) int {
	if err := NewRootCmd(info).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file and applies command line overrides.
func (o *options) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.backend != "" {
		cfg.Playback.Backend = o.backend
	}
	if o.wpm != 0 {
		cfg.Playback.WPM = o.wpm
	}
	return cfg, cfg.Validate()
}

// openApp loads config, builds the logger and opens the library. With
// toFile the log goes to a file so it cannot draw over the terminal UI.
func (o *options) openApp(cmd *cobra.Command, toFile bool) (*app.App, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var (
		l      *log.Logger
		closer io.Closer
	)
	switch {
	case cfg.Log.File != "":
		l, closer, err = logger.Open(cfg.Log.File, cfg.Log)
	case toFile:
		l, closer, err = logger.Open(filepath.Join(state.StateDir(), "readaloud.log"), cfg.Log)
	default:
		l, err = logger.New(cmd.ErrOrStderr(), cfg.Log)
	}
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(cfg, l)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			l.Warn("close", "err", err)
		}
		if closer != nil {
			closer.Close()
		}
	}
	return a, cleanup, nil
}

var errNoInput = errors.New("no input provided. Provide a file, a library id, or pipe text to stdin")
