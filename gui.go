//go:build gui

package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/readaloud/internal/app"
	"github.com/metcalfc/readaloud/internal/config"
	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/logger"
	"github.com/metcalfc/readaloud/internal/playback"
	"github.com/metcalfc/readaloud/internal/reader"
	"github.com/metcalfc/readaloud/internal/state"
	"github.com/metcalfc/readaloud/internal/tui"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func createWordDisplay(word string, fontSize float32, windowWidth float32) *fyne.Container {
	runes := []rune(word)
	if len(runes) == 0 {
		return container.NewWithoutLayout()
	}
	orp := tui.ORPPosition(word)

	beforeText := canvas.NewText(string(runes[:orp]), color.White)
	focusText := canvas.NewText(string(runes[orp]), color.RGBA{R: 255, G: 0, B: 0, A: 255})
	afterText := canvas.NewText(string(runes[orp+1:]), color.White)
	for _, t := range []*canvas.Text{beforeText, focusText, afterText} {
		t.TextSize = fontSize
		t.TextStyle.Bold = true
	}

	// Anchor the recognition point at the horizontal center.
	centerX := windowWidth / 2
	beforeX := centerX - beforeText.MinSize().Width
	if beforeX < 0 {
		beforeX = 0
	}
	beforeText.Move(fyne.NewPos(beforeX, 0))
	focusText.Move(fyne.NewPos(centerX, 0))
	afterText.Move(fyne.NewPos(centerX+focusText.MinSize().Width, 0))

	return &fyne.Container{
		Layout:  &centerVerticalLayout{},
		Objects: []fyne.CanvasObject{beforeText, focusText, afterText},
	}
}

type centerVerticalLayout struct{}

func (l *centerVerticalLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var maxH float32
	for _, o := range objects {
		if h := o.MinSize().Height; h > maxH {
			maxH = h
		}
	}
	return fyne.NewSize(0, maxH)
}

func (l *centerVerticalLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	maxH := l.MinSize(objects).Height
	y := (size.Height - maxH) / 2
	if y < 0 {
		y = 0
	}
	for _, o := range objects {
		o.Move(fyne.NewPos(o.Position().X, y))
		o.Resize(o.MinSize())
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "Config file")
	backend := flag.String("backend", "", "Narration backend: system or remote")
	wpm := flag.Int("w", 0, "System voice speed in words per minute")
	showVersion := flag.Bool("version", false, "Show version information")
	showChapters := flag.Bool("toc", false, "Show the chapter list at startup")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "readaloud - read documents aloud\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  readaloud [options] <file|id>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("readaloud %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("%v", err)
	}
	if *backend != "" {
		cfg.Playback.Backend = *backend
	}
	if *wpm != 0 {
		cfg.Playback.WPM = *wpm
	}
	if err := cfg.Validate(); err != nil {
		fail("%v", err)
	}
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(state.StateDir(), "readaloud.log")
	}
	l, logFile, err := logger.Open(logPath, cfg.Log)
	if err != nil {
		fail("%v", err)
	}
	defer logFile.Close()

	lib, err := app.New(cfg, l)
	if err != nil {
		fail("%v", err)
	}
	defer lib.Close()

	ctx := context.Background()
	var doc *document.Document
	if _, err := os.Stat(flag.Arg(0)); err == nil {
		doc, _, err = lib.Import(ctx, flag.Arg(0), nil)
		if err != nil {
			fail("%s", reader.UserMessage(err))
		}
	} else if doc, err = lib.Resolve(ctx, flag.Arg(0)); err != nil {
		fail("%v", err)
	}

	ctrl, err := lib.Open(ctx, doc, *freshStart)
	if err != nil {
		fail("%v", err)
	}
	defer ctrl.Close()

	run(ctrl, lib.Voice(), *showChapters)
}

func run(ctrl *playback.Controller, voice *playback.PacedVoice, showChapters bool) {
	var (
		fontSize float32 = 72
		snap             = ctrl.Snapshot()
		words            = ctrl.Words()
		chapters         = ctrl.Chapters().List()
	)

	a := fyneapp.New()
	w := a.NewWindow(ctrl.Title() + " - readaloud")

	statusLabel := widget.NewLabel("")
	statusLabel.Alignment = fyne.TextAlignCenter
	noticeLabel := widget.NewLabel("")
	noticeLabel.Alignment = fyne.TextAlignCenter

	chapterHint := ""
	if len(chapters) > 0 {
		chapterHint = "  N/P: chapter  T: contents"
	}
	controlsLabel := widget.NewLabel("SPACE: play/pause  ↑/↓: speed  +/-: font  ←/→: paragraph  B: bookmark" + chapterHint + "  F: fullscreen  Q: quit")
	controlsLabel.Alignment = fyne.TextAlignCenter

	wordContainer := container.NewStack()

	updateDisplay := func() {
		word := ""
		if k, ok := words.Find(snap.Cursor); ok {
			b := words.Block(k)
			if i := snap.Cursor - b.Start; i >= 0 && i < len(b.Words) {
				word = b.Words[i]
			}
		}
		canvasWidth := w.Canvas().Size().Width
		if canvasWidth <= 0 {
			canvasWidth = 800
		}
		wordContainer.Objects = []fyne.CanvasObject{createWordDisplay(word, fontSize, canvasWidth)}
		wordContainer.Refresh()

		status := fmt.Sprintf("Word %d/%d | %d WPM | %s", snap.Cursor+1, snap.Total, voice.WPM(), snap.Backend)
		if snap.ChapterTitle != "" {
			status = snap.ChapterTitle + " | " + status
		}
		if !snap.Playing {
			status += " [PAUSED]"
		}
		if snap.FellBack {
			status += " [remote voice unavailable]"
		}
		statusLabel.SetText(status)
	}

	act := func(err error) {
		noticeLabel.SetText("")
		if err != nil {
			noticeLabel.SetText(err.Error())
		}
		snap = ctrl.Snapshot()
		updateDisplay()
	}

	readingContent := container.NewBorder(
		container.NewVBox(statusLabel, noticeLabel),
		controlsLabel,
		nil, nil,
		wordContainer,
	)

	var (
		split   *container.Split
		content fyne.CanvasObject = readingContent
	)
	if len(chapters) > 0 {
		list := widget.NewList(
			func() int { return len(chapters) },
			func() fyne.CanvasObject { return widget.NewLabel("Chapter") },
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				obj.(*widget.Label).SetText(chapters[id].Title)
			},
		)
		list.OnSelected = func(id widget.ListItemID) {
			act(ctrl.JumpToChapter(id))
		}
		contents := container.NewBorder(widget.NewLabel("Contents"), nil, nil, nil, list)
		split = container.NewHSplit(contents, readingContent)
		split.Offset = 0.3
		if !showChapters {
			contents.Hide()
		}
		content = split
	}

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			act(ctrl.Toggle())
		case fyne.KeyUp:
			voice.SetWPM(voice.WPM() + playback.WPMStep)
			updateDisplay()
		case fyne.KeyDown:
			voice.SetWPM(voice.WPM() - playback.WPMStep)
			updateDisplay()
		case fyne.KeyLeft:
			if k, ok := words.Find(snap.Cursor); ok {
				start := words.Block(k).Start
				if snap.Cursor == start && k > 0 {
					start = words.Block(k - 1).Start
				}
				act(ctrl.JumpTo(start))
			}
		case fyne.KeyRight:
			if k, ok := words.Find(snap.Cursor); ok && k+1 < words.Len() {
				act(ctrl.JumpTo(words.Block(k + 1).Start))
			}
		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
		case fyne.KeyQ:
			w.Close()
		}
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 'n', 'N':
			act(ctrl.NextChapter())
		case 'p', 'P':
			act(ctrl.PreviousChapter())
		case 'b', 'B':
			b, err := ctrl.AddBookmark("")
			act(err)
			if err == nil {
				noticeLabel.SetText("Bookmarked: " + b.Label)
			}
		case 'r', 'R':
			act(ctrl.JumpTo(0))
		case 't', 'T':
			if split != nil {
				if split.Leading.Visible() {
					split.Leading.Hide()
				} else {
					split.Leading.Show()
				}
				split.Refresh()
			}
		case '+', '=':
			if fontSize < 200 {
				fontSize += 5
				updateDisplay()
			}
		case '-':
			if fontSize > 20 {
				fontSize -= 5
				updateDisplay()
			}
		}
	})

	go func() {
		for {
			select {
			case s := <-ctrl.Updates():
				fyne.Do(func() {
					snap = s
					updateDisplay()
				})
			case <-ctrl.Done():
				return
			}
		}
	}()

	w.SetOnClosed(func() {
		ctrl.Pause()
	})

	w.Resize(fyne.NewSize(800, 600))
	w.SetContent(content)
	updateDisplay()
	w.ShowAndRun()
}
