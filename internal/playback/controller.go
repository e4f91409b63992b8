package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/index"
	"github.com/metcalfc/readaloud/internal/logger"
	"github.com/metcalfc/readaloud/internal/state"
)

// Defaults for Options.
const (
	DefaultSettleDelay  = 40 * time.Millisecond
	DefaultPersistEvery = 200
	snippetWords        = 8
	storeTimeout        = 5 * time.Second
)

// Options tune a Controller. Zero values take the defaults.
type Options struct {
	// SettleDelay separates a jump from the narration that resumes after
	// it, so the canceled utterance can wind down first.
	SettleDelay time.Duration

	// PersistEvery is how far the cursor may move during playback before
	// the position is written.
	PersistEvery int

	NextSlack int
	PrevSlack int

	Logger *log.Logger
	Output *Output
}

func (o *Options) defaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.PersistEvery <= 0 {
		o.PersistEvery = DefaultPersistEvery
	}
	if o.NextSlack <= 0 {
		o.NextSlack = index.DefaultNextSlack
	}
	if o.PrevSlack <= 0 {
		o.PrevSlack = index.DefaultPrevSlack
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
}

// Backends selects narration backends. Fallback, when set, takes over for
// the rest of the open document after Primary fails a synthesis request.
type Backends struct {
	Primary  Backend
	Fallback Backend
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	SessionID    uint64
	Cursor       int
	Total        int
	Playing      bool
	Block        int
	Chapter      int // -1 without chapters
	ChapterTitle string
	Backend      string
	FellBack     bool
}

// Controller is the playback state machine for one open document. All state
// changes run on a single loop goroutine; public methods post work to it and
// wait, backend events post work and return.
type Controller struct {
	doc      *document.Document
	words    *index.Words
	chapters *index.Chapters
	store    state.Gateway
	backends Backends
	opts     Options
	log      *log.Logger
	metrics  *metrics
	entropy  *rand.Rand

	// Loop-owned.
	session  Session
	fellBack bool
	settle   *time.Timer

	ops       chan func()
	done      chan struct{}
	closeOnce sync.Once
	updates   chan Snapshot
}

// New opens doc for playback at its last persisted cursor.
func New(doc *document.Document, store state.Gateway, backends Backends, opts Options) (*Controller, error) {
	if backends.Primary == nil {
		return nil, errors.New("no narration backend")
	}
	opts.defaults()

	c := &Controller{
		doc:      doc,
		words:    index.NewWords(doc.Blocks),
		chapters: index.NewChapters(doc.Chapters, opts.NextSlack, opts.PrevSlack),
		store:    store,
		backends: backends,
		opts:     opts,
		log:      opts.Logger.With("component", "playback", "doc", doc.ID),
		metrics:  newMetrics(),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
		ops:      make(chan func()),
		done:     make(chan struct{}),
		updates:  make(chan Snapshot, 1),
	}
	c.session.cursor = c.words.Clamp(doc.Cursor)
	c.session.persisted = c.session.cursor

	go c.run()
	c.publish()
	return c, nil
}

func (c *Controller) run() {
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.done:
			return
		}
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(fn func()) error {
	ack := make(chan struct{})
	select {
	case c.ops <- func() {
		fn()
		c.publish()
		close(ack)
	}:
	case <-c.done:
		return ErrClosed
	}
	select {
	case <-ack:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// post hands fn to the loop without waiting for it to run. Work posted
// after Close is dropped.
func (c *Controller) post(fn func()) {
	select {
	case c.ops <- func() {
		fn()
		c.publish()
	}:
	case <-c.done:
	}
}

// Play starts narration at the cursor.
func (c *Controller) Play() error { return c.call(c.play) }

// Pause stops narration and persists the cursor.
func (c *Controller) Pause() error { return c.call(c.pause) }

// Stop is Pause.
func (c *Controller) Stop() error { return c.call(c.pause) }

// Toggle plays when stopped and pauses when playing.
func (c *Controller) Toggle() error {
	return c.call(func() {
		if c.session.playing {
			c.pause()
		} else {
			c.play()
		}
	})
}

// JumpTo moves the cursor to index, clamped into the document.
func (c *Controller) JumpTo(index int) error {
	return c.call(func() { c.jumpTo(index) })
}

// NextChapter jumps to the start of the next chapter, if any.
func (c *Controller) NextChapter() error {
	return c.call(func() {
		if k, ok := c.chapters.Next(c.session.cursor); ok {
			c.jumpTo(c.chapters.At(k).Start)
		}
	})
}

// PreviousChapter jumps to the start of the previous chapter, if any.
func (c *Controller) PreviousChapter() error {
	return c.call(func() {
		if k, ok := c.chapters.Previous(c.session.cursor); ok {
			c.jumpTo(c.chapters.At(k).Start)
		}
	})
}

// JumpToChapter jumps to the k-th chapter.
func (c *Controller) JumpToChapter(k int) error {
	return c.call(func() {
		if k >= 0 && k < c.chapters.Len() {
			c.jumpTo(c.chapters.At(k).Start)
		}
	})
}

// AddBookmark marks the cursor. An empty label becomes a snippet of the
// words at the cursor.
func (c *Controller) AddBookmark(label string) (document.Bookmark, error) {
	var (
		b   document.Bookmark
		err error
	)
	callErr := c.call(func() {
		now := time.Now()
		idx := c.session.cursor
		if strings.TrimSpace(label) == "" {
			label = c.doc.Snippet(idx, snippetWords)
		}
		b = document.Bookmark{
			ID:        ulid.MustNew(ulid.Timestamp(now), c.entropy).String(),
			Index:     idx,
			Label:     label,
			CreatedAt: now.UTC(),
		}
		c.doc.Bookmarks = append(c.doc.Bookmarks, b)
		sort.SliceStable(c.doc.Bookmarks, func(i, j int) bool {
			return c.doc.Bookmarks[i].Index < c.doc.Bookmarks[j].Index
		})
		err = c.saveDocument()
	})
	if callErr != nil {
		return document.Bookmark{}, callErr
	}
	return b, err
}

// RemoveBookmark deletes the bookmark with id.
func (c *Controller) RemoveBookmark(id string) error {
	var err error
	callErr := c.call(func() {
		kept := c.doc.Bookmarks[:0]
		found := false
		for _, b := range c.doc.Bookmarks {
			if b.ID == id {
				found = true
				continue
			}
			kept = append(kept, b)
		}
		if !found {
			err = fmt.Errorf("bookmark %s not found", id)
			return
		}
		c.doc.Bookmarks = kept
		err = c.saveDocument()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// JumpToBookmark jumps to the bookmark with id.
func (c *Controller) JumpToBookmark(id string) error {
	var err error
	callErr := c.call(func() {
		for _, b := range c.doc.Bookmarks {
			if b.ID == id {
				c.jumpTo(b.Index)
				return
			}
		}
		err = fmt.Errorf("bookmark %s not found", id)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Bookmarks returns the document's bookmarks ordered by position.
func (c *Controller) Bookmarks() ([]document.Bookmark, error) {
	var out []document.Bookmark
	if err := c.call(func() {
		out = append(out, c.doc.Bookmarks...)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	var s Snapshot
	if err := c.call(func() { s = c.snapshot() }); err != nil {
		return Snapshot{Chapter: -1, Total: c.words.Total()}
	}
	return s
}

// Updates delivers the latest snapshot after every state change. Slow
// readers only see the most recent one.
func (c *Controller) Updates() <-chan Snapshot { return c.updates }

// Done is closed when the controller shuts down.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Words returns the document's word index.
func (c *Controller) Words() *index.Words { return c.words }

// Chapters returns the document's chapter index.
func (c *Controller) Chapters() *index.Chapters { return c.chapters }

// Title returns the document title.
func (c *Controller) Title() string { return c.doc.Title }

// DocumentID returns the open document's id.
func (c *Controller) DocumentID() string { return c.doc.ID }

// Close stops narration, persists the cursor and ends the loop.
func (c *Controller) Close() error {
	err := c.call(func() {
		c.session.playing = false
		c.session.bump()
		c.cancelActive()
		c.release()
		c.persist("close")
	})
	c.closeOnce.Do(func() { close(c.done) })
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (c *Controller) play() {
	if c.session.playing || c.words.Total() == 0 {
		return
	}
	sid := c.session.bump()
	c.session.playing = true
	if c.opts.Output != nil {
		c.opts.Output.Acquire(c)
	}
	c.log.Debug("play", "session", sid, "cursor", c.session.cursor)
	c.speak(c.session.cursor, sid)
}

func (c *Controller) pause() {
	c.session.playing = false
	sid := c.session.bump()
	c.cancelActive()
	c.release()
	c.persist("pause")
	c.log.Debug("pause", "session", sid, "cursor", c.session.cursor)
}

func (c *Controller) jumpTo(idx int) {
	idx = c.words.Clamp(idx)
	sid := c.session.bump()
	c.session.cursor = idx
	c.cancelActive()
	c.persist("jump")
	c.log.Debug("jump", "session", sid, "cursor", idx)

	if !c.session.playing {
		return
	}
	c.settle = time.AfterFunc(c.opts.SettleDelay, func() {
		c.post(func() {
			if !c.session.Live(sid) || !c.session.playing {
				return
			}
			c.speak(c.session.cursor, sid)
		})
	})
}

// speak dispatches the narration unit starting at idx.
func (c *Controller) speak(idx int, sid uint64) {
	k, offset, words, ok := c.words.Unit(idx)
	if !ok {
		return
	}
	seg := Segment{
		SessionID: sid,
		Block:     k,
		Start:     c.words.Block(k).Start + offset,
		Words:     words,
		Text:      strings.Join(words, " "),
		live:      c.session.Live,
	}
	backend := c.backend()
	c.metrics.segment(backend.Name())
	backend.Speak(seg, Events{
		Progress: func(i int) {
			c.post(func() { c.onProgress(sid, i) })
		},
		Complete: func(err error) {
			c.post(func() { c.onComplete(seg, backend, err) })
		},
	})
}

func (c *Controller) backend() Backend {
	if c.fellBack && c.backends.Fallback != nil {
		return c.backends.Fallback
	}
	return c.backends.Primary
}

func (c *Controller) onProgress(sid uint64, idx int) {
	if !c.session.Live(sid) {
		c.metrics.dropped("progress")
		return
	}
	if idx >= c.words.Total() {
		return
	}
	if c.session.Advance(sid, idx) {
		c.maybePersist()
	}
}

func (c *Controller) onComplete(seg Segment, backend Backend, err error) {
	if !c.session.Live(seg.SessionID) {
		c.metrics.dropped("complete")
		return
	}
	if IsCanceled(err) {
		return
	}

	var synthErr *SynthesisError
	if errors.As(err, &synthErr) && backend == c.backends.Primary && c.backends.Fallback != nil && !c.fellBack {
		c.fellBack = true
		c.metrics.fallback()
		c.log.Warn("remote synthesis failed, using system voice", "err", err)
		c.speak(c.session.cursor, seg.SessionID)
		return
	}
	if err != nil {
		c.log.Warn("segment failed", "block", seg.Block, "backend", backend.Name(), "err", err)
	}

	next := c.words.Block(seg.Block).End()
	if next < c.words.Total() && c.session.playing {
		c.session.cursor = next
		c.maybePersist()
		c.speak(next, seg.SessionID)
		return
	}

	c.session.playing = false
	c.persist("end")
	c.release()
	c.log.Info("end of document", "cursor", c.session.cursor)
}

func (c *Controller) cancelActive() {
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
	c.backends.Primary.Cancel()
	if c.backends.Fallback != nil {
		c.backends.Fallback.Cancel()
	}
}

func (c *Controller) release() {
	if c.opts.Output != nil {
		c.opts.Output.Release(c)
	}
}

func (c *Controller) maybePersist() {
	d := c.session.cursor - c.session.persisted
	if d < 0 {
		d = -d
	}
	if d >= c.opts.PersistEvery {
		c.persist("progress")
	}
}

func (c *Controller) persist(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	idx := c.session.cursor
	if err := c.store.UpdateProgress(ctx, c.doc.ID, idx); err != nil {
		c.log.Error("failed to save position", "cursor", idx, "err", err)
		return
	}
	c.session.persisted = idx
	c.doc.Cursor = idx
	c.metrics.write(reason)
}

func (c *Controller) saveDocument() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	c.doc.Cursor = c.session.cursor
	if err := c.store.Put(ctx, c.doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	c.session.persisted = c.session.cursor
	return nil
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		SessionID: c.session.ID(),
		Cursor:    c.session.cursor,
		Total:     c.words.Total(),
		Playing:   c.session.playing,
		Chapter:   -1,
		Backend:   c.backend().Name(),
		FellBack:  c.fellBack,
	}
	if k, ok := c.words.Find(c.session.cursor); ok {
		s.Block = k
	}
	if k, ok := c.chapters.Current(c.session.cursor); ok {
		s.Chapter = k
		s.ChapterTitle = c.chapters.At(k).Title
	}
	return s
}

// publish replaces any unread snapshot with the current one.
func (c *Controller) publish() {
	s := c.snapshot()
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- s:
	default:
	}
}
