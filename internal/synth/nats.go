package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the request subject remote synthesizers listen on.
const DefaultSubject = "tts.synthesize"

// NATSRequest is the request payload sent to a remote synthesizer.
type NATSRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

// NATSReply is the remote synthesizer's answer. PCM is base64 on the wire.
type NATSReply struct {
	PCM        []byte `json:"pcm"`
	SampleRate int    `json:"sample_rate"`
	Error      string `json:"error,omitempty"`
}

// NATS requests synthesis from a remote service over NATS request/reply.
type NATS struct {
	conn       *nats.Conn
	subject    string
	voice      string
	sampleRate int
	timeout    time.Duration
}

// NATSOptions configures a NATS synthesizer.
type NATSOptions struct {
	URL        string
	Subject    string
	Voice      string
	SampleRate int
	Timeout    time.Duration
}

// DialNATS connects to the server at opts.URL.
func DialNATS(opts NATSOptions) (*NATS, error) {
	if opts.URL == "" {
		return nil, errors.New("no NATS url configured")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	conn, err := nats.Connect(opts.URL,
		nats.Name("readaloud"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewNATS(conn, opts), nil
}

// NewNATS wraps an existing connection.
func NewNATS(conn *nats.Conn, opts NATSOptions) *NATS {
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &NATS{
		conn:       conn,
		subject:    opts.Subject,
		voice:      opts.Voice,
		sampleRate: opts.SampleRate,
		timeout:    opts.Timeout,
	}
}

func (n *NATS) Synthesize(ctx context.Context, text string) (Audio, error) {
	data, err := json.Marshal(NATSRequest{Text: text, Voice: n.voice, SampleRate: n.sampleRate})
	if err != nil {
		return Audio{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	msg, err := n.conn.RequestWithContext(ctx, n.subject, data)
	if err != nil {
		return Audio{}, fmt.Errorf("request synthesis: %w", err)
	}
	return decodeReply(msg.Data, n.sampleRate)
}

func decodeReply(data []byte, fallbackRate int) (Audio, error) {
	var reply NATSReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Audio{}, fmt.Errorf("decode synthesis reply: %w", err)
	}
	if reply.Error != "" {
		return Audio{}, fmt.Errorf("remote synthesis: %s", reply.Error)
	}
	if len(reply.PCM) == 0 {
		return Audio{}, ErrNoAudio
	}
	rate := reply.SampleRate
	if rate <= 0 {
		rate = fallbackRate
	}
	return Audio{PCM: reply.PCM, SampleRate: rate}, nil
}

// Close drains and closes the connection.
func (n *NATS) Close() {
	if n == nil || n.conn == nil {
		return
	}
	_ = n.conn.Drain()
	n.conn.Close()
}
