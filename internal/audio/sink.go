package audio

import (
	"context"
	"time"

	"github.com/gopxl/beep/v2"
)

// Sink plays a streamer until it is drained or ctx is canceled. Play blocks;
// on cancellation it returns ctx.Err().
type Sink interface {
	Play(ctx context.Context, s beep.Streamer, rate beep.SampleRate) error
}

// ClockSink consumes a stream in real time without an output device. It is
// the sink when no speaker is compiled in.
type ClockSink struct {
	// Chunk is how much audio is consumed per tick.
	Chunk time.Duration
}

func (s ClockSink) Play(ctx context.Context, st beep.Streamer, rate beep.SampleRate) error {
	chunk := s.Chunk
	if chunk <= 0 {
		chunk = 20 * time.Millisecond
	}
	n := rate.N(chunk)
	if n < 1 {
		n = 1
	}
	buf := make([][2]float64, n)

	ticker := time.NewTicker(chunk)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		got, ok := st.Stream(buf)
		if !ok || got < len(buf) {
			return st.Err()
		}
	}
}
