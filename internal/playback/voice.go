package playback

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Voice is an event-driven speech engine. Speak blocks until text has been
// spoken or ctx is done, calling onBoundary with the byte offset of each
// word as it starts.
type Voice interface {
	Speak(ctx context.Context, text string, onBoundary func(charIndex int)) error
}

// EventBackend adapts a Voice. Boundary offsets become global word indexes by
// counting the words of the segment text before the offset.
type EventBackend struct {
	voice Voice

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEventBackend wraps voice.
func NewEventBackend(voice Voice) *EventBackend {
	return &EventBackend{voice: voice}
}

func (b *EventBackend) Name() string { return "system" }

func (b *EventBackend) Speak(seg Segment, ev Events) {
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.mu.Unlock()

	go func() {
		defer cancel()
		err := b.voice.Speak(ctx, seg.Text, func(charIndex int) {
			if seg.Stale() {
				return
			}
			ev.Progress(seg.Start + wordsBefore(seg.Text, charIndex, len(seg.Words)))
		})
		if seg.Stale() {
			return
		}
		if err == nil && ctx.Err() != nil {
			err = ErrCanceled
		}
		ev.Complete(err)
	}()
}

func (b *EventBackend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// wordsBefore counts the words of text that start before charIndex,
// capped so the result stays inside the segment.
func wordsBefore(text string, charIndex, n int) int {
	if charIndex < 0 {
		charIndex = 0
	}
	if charIndex > len(text) {
		charIndex = len(text)
	}
	count := len(strings.Fields(text[:charIndex]))
	if count > n-1 {
		count = n - 1
	}
	if count < 0 {
		count = 0
	}
	return count
}

// WPM bounds for the paced voice.
const (
	MinWPM     = 100
	MaxWPM     = 1500
	DefaultWPM = 300
	WPMStep    = 50
)

// PacedVoice is a silent voice that emits word boundaries at a fixed words
// per minute rate. It is the system voice when no speech engine is wired in.
type PacedVoice struct {
	mu  sync.Mutex
	wpm int
}

// NewPacedVoice returns a voice at wpm, clamped to [MinWPM, MaxWPM].
func NewPacedVoice(wpm int) *PacedVoice {
	v := &PacedVoice{}
	v.SetWPM(wpm)
	return v
}

// SetWPM changes the pace. It takes effect at the next word.
func (v *PacedVoice) SetWPM(wpm int) int {
	if wpm < MinWPM {
		wpm = MinWPM
	}
	if wpm > MaxWPM {
		wpm = MaxWPM
	}
	v.mu.Lock()
	v.wpm = wpm
	v.mu.Unlock()
	return wpm
}

// WPM returns the current pace.
func (v *PacedVoice) WPM() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wpm
}

// Delay returns how long each word is held.
func (v *PacedVoice) Delay() time.Duration {
	return time.Duration(60.0/float64(v.WPM())*1000) * time.Millisecond
}

func (v *PacedVoice) Speak(ctx context.Context, text string, onBoundary func(charIndex int)) error {
	for _, off := range wordOffsets(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		onBoundary(off)
		t := time.NewTimer(v.Delay())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// wordOffsets returns the byte offset where each word of text begins.
func wordOffsets(text string) []int {
	var offsets []int
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			offsets = append(offsets, i)
		}
		inWord = !space
	}
	return offsets
}
