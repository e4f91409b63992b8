//go:build !speaker

package audio

// DefaultSink returns a ClockSink. Build with -tags speaker to play through
// the audio device.
func DefaultSink() Sink { return ClockSink{} }
