// Package app wires the library, the narration backends and the playback
// controller together from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/metcalfc/readaloud/internal/config"
	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/playback"
	"github.com/metcalfc/readaloud/internal/reader"
	"github.com/metcalfc/readaloud/internal/state"
	"github.com/metcalfc/readaloud/internal/synth"
	"github.com/metcalfc/readaloud/internal/telemetry"
)

// App owns the long-lived pieces shared by every open document.
type App struct {
	cfg    config.Config
	log    *log.Logger
	store  state.Gateway
	output *playback.Output
	voice  *playback.PacedVoice

	synth       synth.Synthesizer
	closeSynth  func()
	stopMetrics func(context.Context) error
}

// New opens the configured library and installs telemetry.
func New(cfg config.Config, logger *log.Logger) (*App, error) {
	store, err := OpenStore(cfg.Library)
	if err != nil {
		return nil, err
	}
	stop, err := telemetry.Setup(cfg.Telemetry.PrometheusBind, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	return &App{
		cfg:         cfg,
		log:         logger,
		store:       store,
		output:      playback.NewOutput(),
		voice:       playback.NewPacedVoice(cfg.Playback.WPM),
		stopMetrics: stop,
	}, nil
}

// OpenStore opens the library store named by cfg.
func OpenStore(cfg config.LibraryConfig) (state.Gateway, error) {
	switch cfg.Store {
	case "memory":
		return state.NewMemoryStore(), nil
	case "json":
		dir := cfg.Path
		if dir == "" {
			dir = state.StateDir()
		}
		return state.NewFileStore(dir)
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(state.StateDir(), "library.db")
		}
		return state.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown library store %q", cfg.Store)
	}
}

// Store returns the library store.
func (a *App) Store() state.Gateway { return a.store }

// Output returns the shared narration output.
func (a *App) Output() *playback.Output { return a.output }

// Voice returns the paced system voice, whose speed the UI adjusts.
func (a *App) Voice() *playback.PacedVoice { return a.voice }

// Import reads and parses the file at path. See ImportBytes.
func (a *App) Import(ctx context.Context, path string, onProgress reader.ProgressFunc) (*document.Document, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file '%s': %w", path, err)
	}
	return a.ImportBytes(ctx, path, data, onProgress)
}

// ImportBytes adds a document to the library. The format is chosen from
// name's extension. Content already in the library is not parsed again;
// the stored document is returned with existed set.
func (a *App) ImportBytes(ctx context.Context, name string, data []byte, onProgress reader.ProgressFunc) (doc *document.Document, existed bool, err error) {
	id := state.ComputeHash(data)
	if doc, err := a.store.Get(ctx, id); err == nil {
		a.log.Debug("document already imported", "id", id, "title", doc.Title)
		return doc, true, nil
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, false, err
	}

	tag := reader.Detect(name)
	start := time.Now()
	res, err := reader.Parse(data, tag, reader.Options{
		OnProgress:   onProgress,
		ChapterEvery: a.cfg.Parser.ChapterEveryPages,
	})
	if err != nil {
		return nil, false, err
	}

	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	doc = &document.Document{
		ID:         id,
		Title:      title,
		Author:     res.Author,
		Format:     tag,
		Blocks:     res.Blocks,
		Chapters:   res.Chapters,
		ImportedAt: time.Now().UTC(),
	}
	if tag == document.FormatPDF {
		doc.Raw = data
	}
	if err := a.store.Put(ctx, doc); err != nil {
		return nil, false, fmt.Errorf("save document: %w", err)
	}
	a.log.Info("imported document",
		"id", id,
		"title", title,
		"format", tag,
		"words", doc.TotalWords(),
		"chapters", len(doc.Chapters),
		"took", time.Since(start).Round(time.Millisecond))
	return doc, false, nil
}

// Resolve finds a stored document by id or unique id prefix.
func (a *App) Resolve(ctx context.Context, ref string) (*document.Document, error) {
	if doc, err := a.store.Get(ctx, ref); err == nil {
		return doc, nil
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	list, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var match string
	for _, s := range list {
		if !strings.HasPrefix(s.ID, ref) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("%q matches more than one document", ref)
		}
		match = s.ID
	}
	if match == "" {
		return nil, fmt.Errorf("%q: %w", ref, state.ErrNotFound)
	}
	return a.store.Get(ctx, match)
}

// Open returns a playback controller for doc. With fresh the cursor starts
// over at the first word.
func (a *App) Open(ctx context.Context, doc *document.Document, fresh bool) (*playback.Controller, error) {
	if fresh && doc.Cursor != 0 {
		doc.Cursor = 0
		if err := a.store.UpdateProgress(ctx, doc.ID, 0); err != nil {
			return nil, err
		}
	}
	backends, err := a.backends()
	if err != nil {
		return nil, err
	}
	pc := a.cfg.Playback
	return playback.New(doc, a.store, backends, playback.Options{
		SettleDelay:  pc.SettleDelay(),
		PersistEvery: pc.PersistEvery,
		NextSlack:    pc.NextSlack,
		PrevSlack:    pc.PrevSlack,
		Logger:       a.log,
		Output:       a.output,
	})
}

// backends builds the narration backends for the configured mode. The
// system voice always backs up remote synthesis.
func (a *App) backends() (playback.Backends, error) {
	system := playback.NewEventBackend(a.voice)
	if a.cfg.Playback.Backend != "remote" {
		return playback.Backends{Primary: system}, nil
	}
	s, err := a.synthesizer()
	if err != nil {
		return playback.Backends{}, err
	}
	remote := playback.NewFixedRateBackend(s, playback.FixedRateOptions{
		Rate:    a.cfg.Playback.Rate,
		Tick:    a.cfg.Playback.Tick(),
		Timeout: a.cfg.Synthesis.Timeout(),
	})
	return playback.Backends{Primary: remote, Fallback: system}, nil
}

func (a *App) synthesizer() (synth.Synthesizer, error) {
	if a.synth != nil {
		return a.synth, nil
	}
	sc := a.cfg.Synthesis
	switch sc.Mode {
	case "exec":
		e, err := synth.NewExec(sc.Command, sc.Voice, sc.SampleRate)
		if err != nil {
			return nil, err
		}
		a.synth = e
	case "nats":
		n, err := synth.DialNATS(synth.NATSOptions{
			URL:        sc.NATSURL,
			Subject:    sc.Subject,
			Voice:      sc.Voice,
			SampleRate: sc.SampleRate,
			Timeout:    sc.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		a.synth = n
		a.closeSynth = n.Close
	default:
		a.synth = synth.NewMock(sc.SampleRate, a.cfg.Playback.WPM)
	}
	a.log.Debug("synthesizer ready", "mode", sc.Mode)
	return a.synth, nil
}

// List returns the library, newest first.
func (a *App) List(ctx context.Context) ([]document.Summary, error) {
	return a.store.List(ctx)
}

// Remove deletes a document and its bookmarks.
func (a *App) Remove(ctx context.Context, id string) error {
	doc, err := a.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := a.store.Delete(ctx, doc.ID); err != nil {
		return err
	}
	a.log.Info("removed document", "id", doc.ID, "title", doc.Title)
	return nil
}

// Close releases the store, the synthesizer and telemetry.
func (a *App) Close() error {
	if a.closeSynth != nil {
		a.closeSynth()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.stopMetrics(ctx), a.store.Close())
}
