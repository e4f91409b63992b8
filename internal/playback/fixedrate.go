package playback

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metcalfc/readaloud/internal/audio"
	"github.com/metcalfc/readaloud/internal/synth"
)

// DefaultTick is the timeline resolution of the fixed-rate backend.
const DefaultTick = 25 * time.Millisecond

// FixedRateBackend narrates through a synthesizer that returns a whole
// utterance with no word timing. Progress is estimated by spreading the
// rate-adjusted clip duration evenly over the segment's words.
type FixedRateBackend struct {
	synth   synth.Synthesizer
	sink    audio.Sink
	tick    time.Duration
	timeout time.Duration
	rate    atomic.Uint64 // math.Float64bits

	mu     sync.Mutex
	cancel context.CancelFunc
}

// FixedRateOptions configures a FixedRateBackend.
type FixedRateOptions struct {
	Sink    audio.Sink
	Rate    float64
	Tick    time.Duration
	Timeout time.Duration // per synthesis request
}

// NewFixedRateBackend returns a backend rendering through s.
func NewFixedRateBackend(s synth.Synthesizer, opts FixedRateOptions) *FixedRateBackend {
	if opts.Sink == nil {
		opts.Sink = audio.DefaultSink()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	b := &FixedRateBackend{
		synth:   s,
		sink:    opts.Sink,
		tick:    opts.Tick,
		timeout: opts.Timeout,
	}
	b.SetRate(opts.Rate)
	return b
}

func (b *FixedRateBackend) Name() string { return "remote" }

// SetRate sets the playback speed multiplier for following segments.
func (b *FixedRateBackend) SetRate(rate float64) {
	if rate <= 0 {
		rate = 1
	}
	b.rate.Store(math.Float64bits(rate))
}

// Rate returns the playback speed multiplier.
func (b *FixedRateBackend) Rate() float64 {
	return math.Float64frombits(b.rate.Load())
}

func (b *FixedRateBackend) Speak(seg Segment, ev Events) {
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.mu.Unlock()

	go func() {
		defer cancel()
		err := b.narrate(ctx, seg, ev)
		if seg.Stale() {
			return
		}
		ev.Complete(err)
	}()
}

func (b *FixedRateBackend) narrate(ctx context.Context, seg Segment, ev Events) error {
	synthCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	out, err := b.synth.Synthesize(synthCtx, seg.Text)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCanceled
		}
		return &SynthesisError{Backend: b.Name(), Err: err}
	}
	if seg.Stale() {
		return ErrCanceled
	}

	rate := b.Rate()
	clip := audio.NewClip(out.PCM, out.SampleRate)
	timeline := newTimeline(audio.ScaledDuration(clip.Duration(), rate), len(seg.Words))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.track(seg, ev, timeline, done)
	}()
	err = b.sink.Play(ctx, audio.WithRate(clip, rate), clip.SampleRate())
	close(done)
	wg.Wait()
	return err
}

// track reports elapsed-time word positions until done is closed.
func (b *FixedRateBackend) track(seg Segment, ev Events, tl timeline, done <-chan struct{}) {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()
	start := time.Now()
	last := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		if seg.Stale() {
			return
		}
		if idx := tl.wordAt(time.Since(start)); idx > last {
			last = idx
			ev.Progress(seg.Start + idx)
		}
	}
}

func (b *FixedRateBackend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// timeline maps elapsed playback time to a word offset within a segment.
type timeline struct {
	perWord time.Duration
	words   int
}

func newTimeline(total time.Duration, words int) timeline {
	if words <= 0 {
		return timeline{}
	}
	return timeline{perWord: total / time.Duration(words), words: words}
}

func (t timeline) wordAt(elapsed time.Duration) int {
	if t.words == 0 {
		return 0
	}
	if t.perWord <= 0 {
		return t.words - 1
	}
	idx := int(elapsed / t.perWord)
	if idx > t.words-1 {
		idx = t.words - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
