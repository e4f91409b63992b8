// Package synth talks to speech synthesizers that return a whole rendered
// utterance at once.
package synth

import (
	"context"
	"errors"
)

// DefaultSampleRate is used when a synthesizer does not report one.
const DefaultSampleRate = 22050

// ErrNoAudio is returned when a synthesizer finished without producing PCM.
var ErrNoAudio = errors.New("synthesizer returned no audio")

// Audio is one rendered utterance: signed 16-bit little-endian mono PCM.
type Audio struct {
	PCM        []byte
	SampleRate int
}

// Synthesizer renders text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Func adapts a function to Synthesizer.
type Func func(ctx context.Context, text string) (Audio, error)

func (f Func) Synthesize(ctx context.Context, text string) (Audio, error) {
	return f(ctx, text)
}
