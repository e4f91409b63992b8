package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Library.Store)
	assert.Equal(t, "system", cfg.Playback.Backend)
	assert.Equal(t, 200, cfg.Playback.PersistEvery)
	assert.Equal(t, 40*time.Millisecond, cfg.Playback.SettleDelay())
	assert.Equal(t, 10, cfg.Parser.ChapterEveryPages)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
library:
  store: memory
playback:
  backend: remote
  persist_every_words: 50
  rate: 1.5
synthesis:
  mode: exec
  command: "piper --model en_US"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Library.Store)
	assert.Equal(t, "remote", cfg.Playback.Backend)
	assert.Equal(t, 50, cfg.Playback.PersistEvery)
	assert.Equal(t, 1.5, cfg.Playback.Rate)
	assert.Equal(t, "piper --model en_US", cfg.Synthesis.Command)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Playback.PrevSlack)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("playback: [unclosed"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("READALOUD_LIBRARY_STORE", "json")
	t.Setenv("READALOUD_PLAYBACK_BACKEND", "remote")
	t.Setenv("READALOUD_PLAYBACK_WORDS_PER_MINUTE", "450")
	t.Setenv("READALOUD_PLAYBACK_RATE", "0.75")
	t.Setenv("READALOUD_PLAYBACK_CHAPTER_PREV_SLACK", "8")
	t.Setenv("READALOUD_SYNTHESIS_MODE", "nats")
	t.Setenv("READALOUD_SYNTHESIS_NATS_URL", "nats://tts:4222")
	t.Setenv("READALOUD_PLAYBACK_TICK_MS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Library.Store)
	assert.Equal(t, "remote", cfg.Playback.Backend)
	assert.Equal(t, 450, cfg.Playback.WPM)
	assert.Equal(t, 0.75, cfg.Playback.Rate)
	assert.Equal(t, 8, cfg.Playback.PrevSlack)
	assert.Equal(t, "nats://tts:4222", cfg.Synthesis.NATSURL)
	assert.Equal(t, 25, cfg.Playback.TickMS)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    string
	}{
		{"bad store", func(c *Config) { c.Library.Store = "postgres" }, "library.store"},
		{"bad backend", func(c *Config) { c.Playback.Backend = "cloud" }, "playback.backend"},
		{"zero threshold", func(c *Config) { c.Playback.PersistEvery = 0 }, "persist_every_words"},
		{"zero slack", func(c *Config) { c.Playback.NextSlack = 0 }, "slack"},
		{"rate too high", func(c *Config) { c.Playback.Rate = 10 }, "playback.rate"},
		{"exec without command", func(c *Config) {
			c.Playback.Backend = "remote"
			c.Synthesis.Mode = "exec"
		}, "synthesis.command"},
		{"nats without url", func(c *Config) {
			c.Playback.Backend = "remote"
			c.Synthesis.Mode = "nats"
		}, "synthesis.nats_url"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.err)
		})
	}

	assert.NoError(t, Default().Validate())
}
