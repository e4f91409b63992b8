// Package audio decodes synthesized speech and plays it through a sink.
package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// DecodePCM16 converts little-endian signed 16-bit mono PCM to samples
// normalized by 32768. A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float64 {
	out := make([]float64, len(data)/2)
	for i := range out {
		sample16 := int16(data[2*i]) | int16(data[2*i+1])<<8
		out[i] = float64(sample16) / 32768.0
	}
	return out
}

// Clip is a decoded mono clip. It implements beep.StreamSeeker and plays the
// mono channel on both sides.
type Clip struct {
	samples    []float64
	sampleRate beep.SampleRate
	position   int
}

// NewClip decodes a PCM16 payload recorded at sampleRate.
func NewClip(pcm []byte, sampleRate int) *Clip {
	return &Clip{
		samples:    DecodePCM16(pcm),
		sampleRate: beep.SampleRate(sampleRate),
	}
}

func (c *Clip) Stream(samples [][2]float64) (n int, ok bool) {
	if c.position >= len(c.samples) {
		return 0, false
	}
	n = copyMono(samples, c.samples[c.position:])
	c.position += n
	return n, true
}

func copyMono(dst [][2]float64, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}

func (c *Clip) Err() error { return nil }

func (c *Clip) Len() int { return len(c.samples) }

func (c *Clip) Position() int { return c.position }

func (c *Clip) Seek(p int) error {
	if p < 0 {
		p = 0
	}
	if p > len(c.samples) {
		p = len(c.samples)
	}
	c.position = p
	return nil
}

// SampleRate returns the clip's sample rate.
func (c *Clip) SampleRate() beep.SampleRate { return c.sampleRate }

// Format describes the clip for beep consumers.
func (c *Clip) Format() beep.Format {
	return beep.Format{SampleRate: c.sampleRate, NumChannels: 1, Precision: 2}
}

// Duration is the clip length at normal speed.
func (c *Clip) Duration() time.Duration {
	if c.sampleRate <= 0 {
		return 0
	}
	return c.sampleRate.D(len(c.samples))
}

// WithRate plays s faster (rate > 1) or slower (rate < 1) by resampling.
func WithRate(s beep.Streamer, rate float64) beep.Streamer {
	if rate <= 0 || rate == 1 {
		return s
	}
	return beep.ResampleRatio(4, rate, s)
}

// ScaledDuration returns d as heard at the given playback rate.
func ScaledDuration(d time.Duration, rate float64) time.Duration {
	if rate <= 0 {
		return d
	}
	return time.Duration(float64(d) / rate)
}
