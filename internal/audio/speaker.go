//go:build speaker

package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerSink plays through the system audio device. The device is opened
// once, at the rate of the first clip; later clips are resampled to it.
type SpeakerSink struct {
	mu   sync.Mutex
	rate beep.SampleRate
}

// DefaultSink returns the device sink.
func DefaultSink() Sink { return &SpeakerSink{} }

func (s *SpeakerSink) init(rate beep.SampleRate) (beep.SampleRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rate == 0 {
		if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
			return 0, err
		}
		s.rate = rate
	}
	return s.rate, nil
}

func (s *SpeakerSink) Play(ctx context.Context, st beep.Streamer, rate beep.SampleRate) error {
	deviceRate, err := s.init(rate)
	if err != nil {
		return err
	}
	if deviceRate != rate {
		st = beep.Resample(4, rate, deviceRate, st)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Seq(st, beep.Callback(func() { close(done) }))}
	speaker.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}
