package playback

import (
	"fmt"
	"sync"
)

// Transport is the set of controls an external surface (media keys, a
// remote, another window) may drive.
type Transport interface {
	Play() error
	Pause() error
	JumpTo(index int) error
	NextChapter() error
	PreviousChapter() error
}

// Command is a transport request from an external surface.
type Command struct {
	Action string // play, pause, toggle, seek, next, previous
	Index  int    // seek target
}

// Output is the exclusive narration output. One transport holds it at a
// time; acquiring it pauses the previous holder.
type Output struct {
	mu     sync.Mutex
	holder Transport
}

// NewOutput returns an idle output.
func NewOutput() *Output { return &Output{} }

// Acquire makes t the holder. A different previous holder is paused
// asynchronously so that two controllers never wait on each other.
func (o *Output) Acquire(t Transport) {
	o.mu.Lock()
	prev := o.holder
	o.holder = t
	o.mu.Unlock()
	if prev != nil && prev != t {
		go prev.Pause()
	}
}

// Release gives up the output if t holds it.
func (o *Output) Release(t Transport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.holder == t {
		o.holder = nil
	}
}

// Holder returns the current holder or nil.
func (o *Output) Holder() Transport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.holder
}

// Dispatch routes cmd to the holder, or to fallback when nothing holds the
// output. Commands go through the same methods a local key press uses.
func (o *Output) Dispatch(cmd Command, fallback Transport) error {
	t := o.Holder()
	if t == nil {
		t = fallback
	}
	if t == nil {
		return fmt.Errorf("no transport for %q", cmd.Action)
	}
	switch cmd.Action {
	case "play":
		return t.Play()
	case "pause":
		return t.Pause()
	case "toggle":
		if o.Holder() != nil {
			return t.Pause()
		}
		return t.Play()
	case "seek":
		return t.JumpTo(cmd.Index)
	case "next":
		return t.NextChapter()
	case "previous":
		return t.PreviousChapter()
	default:
		return fmt.Errorf("unknown transport action %q", cmd.Action)
	}
}
