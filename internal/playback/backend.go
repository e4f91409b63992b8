// Package playback drives narration of an open document: it owns the word
// cursor and the session id, dispatches narration units to a backend and
// reconciles the backend's progress and completion events.
package playback

import (
	"context"
	"errors"
	"fmt"
)

// ErrCanceled marks an utterance that stopped because it was superseded.
var ErrCanceled = errors.New("narration canceled")

// ErrClosed is returned by controller methods after Close.
var ErrClosed = errors.New("playback controller closed")

// SynthesisError is a failed fixed-rate synthesis request. It switches the
// controller to its fallback backend for the rest of the open document.
type SynthesisError struct {
	Backend string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis failed: %v", e.Backend, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// IsCanceled reports whether err is cancellation-class.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// Segment is one narration unit: the suffix of a single block starting at
// the cursor.
type Segment struct {
	SessionID uint64
	Block     int      // position of the block in the document
	Start     int      // global index of Words[0]
	Words     []string
	Text      string

	live func(uint64) bool
}

// Stale reports whether the session that issued the segment has been
// superseded. Backends drop every pending event of a stale segment.
func (s Segment) Stale() bool {
	return s.live != nil && !s.live(s.SessionID)
}

// End returns the global index one past the segment's last word.
func (s Segment) End() int { return s.Start + len(s.Words) }

// Events are the callbacks a backend reports through. Progress takes the
// global index of the word being spoken. Complete is called at most once.
type Events struct {
	Progress func(index int)
	Complete func(err error)
}

// Backend narrates segments. Speak must return without waiting for audio
// and must not invoke ev synchronously. Cancel stops whatever is playing
// without waiting for it to wind down.
type Backend interface {
	Name() string
	Speak(seg Segment, ev Events)
	Cancel()
}
