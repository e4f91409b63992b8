package synth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// Exec runs a local command per utterance. The command reads one JSON request
// on stdin and writes newline-delimited JSON chunks with base64 PCM to stdout.
type Exec struct {
	cmd        []string
	voice      string
	sampleRate int
	mu         sync.Mutex
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64  string `json:"pcm_base64"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Final      bool   `json:"final"`
}

// NewExec parses command with shell quoting rules.
func NewExec(command, voice string, sampleRate int) (*Exec, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synth command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synth command empty")
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Exec{cmd: args, voice: voice, sampleRate: sampleRate}, nil
}

// Synthesize runs the command once. Calls are serialized.
func (e *Exec) Synthesize(ctx context.Context, text string) (Audio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(execRequest{
		Text:       text,
		Voice:      e.voice,
		SampleRate: e.sampleRate,
		Channels:   1,
	})
	if err != nil {
		return Audio{}, err
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Audio{}, err
	}
	if err := cmd.Start(); err != nil {
		return Audio{}, fmt.Errorf("start synth command: %w", err)
	}

	out := Audio{SampleRate: e.sampleRate}
	var pcm bytes.Buffer
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			cmd.Wait()
			return Audio{}, fmt.Errorf("decode synth output: %w", err)
		}
		chunk, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
		if err != nil {
			cmd.Wait()
			return Audio{}, fmt.Errorf("decode synth pcm: %w", err)
		}
		pcm.Write(chunk)
		if resp.SampleRate > 0 {
			out.SampleRate = resp.SampleRate
		}
		if resp.Final {
			break
		}
	}
	scanErr := scanner.Err()
	io.Copy(io.Discard, stdout)
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return Audio{}, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Audio{}, fmt.Errorf("synth command: %w: %s", err, msg)
		}
		return Audio{}, fmt.Errorf("synth command: %w", err)
	}
	if scanErr != nil {
		return Audio{}, scanErr
	}
	if pcm.Len() == 0 {
		return Audio{}, ErrNoAudio
	}
	out.PCM = pcm.Bytes()
	return out, nil
}
