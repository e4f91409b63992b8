package synth

import (
	"context"
	"strings"
	"time"
)

// Mock renders silence whose length follows the word count of the text. It
// stands in for a real voice in demos and tests.
type Mock struct {
	SampleRate int
	PerWord    time.Duration
	Latency    time.Duration
}

// NewMock returns a Mock at the given words per minute.
func NewMock(sampleRate, wpm int) *Mock {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if wpm <= 0 {
		wpm = 180
	}
	return &Mock{
		SampleRate: sampleRate,
		PerWord:    time.Minute / time.Duration(wpm),
		Latency:    50 * time.Millisecond,
	}
}

func (m *Mock) Synthesize(ctx context.Context, text string) (Audio, error) {
	select {
	case <-ctx.Done():
		return Audio{}, ctx.Err()
	case <-time.After(m.Latency):
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return Audio{}, ErrNoAudio
	}
	samples := int(time.Duration(words) * m.PerWord * time.Duration(m.SampleRate) / time.Second)
	return Audio{PCM: make([]byte, 2*samples), SampleRate: m.SampleRate}, nil
}
