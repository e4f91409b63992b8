package playback

import "sync/atomic"

// Session is the live playback state of an open document. The id is read
// from backend goroutines; everything else belongs to the controller loop.
type Session struct {
	id        atomic.Uint64
	cursor    int
	playing   bool
	persisted int
}

// ID returns the live session id.
func (s *Session) ID() uint64 { return s.id.Load() }

// Live reports whether id is still the live session.
func (s *Session) Live(id uint64) bool { return s.id.Load() == id }

// bump invalidates all work issued under the previous id.
func (s *Session) bump() uint64 { return s.id.Add(1) }

// Advance moves the cursor forward to idx if id is live. Backward and
// duplicate positions are rejected.
func (s *Session) Advance(id uint64, idx int) bool {
	if !s.Live(id) || idx < s.cursor {
		return false
	}
	s.cursor = idx
	return true
}

// Cursor returns the current word index.
func (s *Session) Cursor() int { return s.cursor }

// Playing reports whether narration is running.
func (s *Session) Playing() bool { return s.playing }
