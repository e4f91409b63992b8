// Package config loads readaloud settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`
}

type LibraryConfig struct {
	Store string `yaml:"store"` // sqlite, json, memory
	Path  string `yaml:"path"`
}

type ParserConfig struct {
	ChapterEveryPages int `yaml:"chapter_every_pages"`
}

type PlaybackConfig struct {
	Backend       string  `yaml:"backend"` // system, remote
	SettleDelayMS int     `yaml:"settle_delay_ms"`
	PersistEvery  int     `yaml:"persist_every_words"`
	NextSlack     int     `yaml:"chapter_next_slack"`
	PrevSlack     int     `yaml:"chapter_prev_slack"`
	WPM           int     `yaml:"words_per_minute"`
	Rate          float64 `yaml:"rate"`
	TickMS        int     `yaml:"tick_ms"`
}

type SynthesisConfig struct {
	Mode       string `yaml:"mode"` // exec, nats, mock
	Command    string `yaml:"command"`
	NATSURL    string `yaml:"nats_url"`
	Subject    string `yaml:"subject"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

type TelemetryConfig struct {
	PrometheusBind string `yaml:"prometheus_bind"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Library   LibraryConfig   `yaml:"library"`
	Parser    ParserConfig    `yaml:"parser"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Library: LibraryConfig{
			Store: "sqlite",
		},
		Parser: ParserConfig{
			ChapterEveryPages: 10,
		},
		Playback: PlaybackConfig{
			Backend:       "system",
			SettleDelayMS: 40,
			PersistEvery:  200,
			NextSlack:     1,
			PrevSlack:     5,
			WPM:           300,
			Rate:          1.0,
			TickMS:        25,
		},
		Synthesis: SynthesisConfig{
			Mode:       "mock",
			Subject:    "tts.synthesize",
			SampleRate: 22050,
			TimeoutMS:  30000,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/readaloud/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "readaloud", "config.yaml")
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
	case os.IsNotExist(err):
		return cfg, fmt.Errorf("config file not found: %w", err)
	default:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Log.Level, "READALOUD_LOG_LEVEL")
	overrideString(&cfg.Log.Format, "READALOUD_LOG_FORMAT")
	overrideString(&cfg.Log.File, "READALOUD_LOG_FILE")
	overrideString(&cfg.Library.Store, "READALOUD_LIBRARY_STORE")
	overrideString(&cfg.Library.Path, "READALOUD_LIBRARY_PATH")
	overrideInt(&cfg.Parser.ChapterEveryPages, "READALOUD_PARSER_CHAPTER_EVERY_PAGES")
	overrideString(&cfg.Playback.Backend, "READALOUD_PLAYBACK_BACKEND")
	overrideInt(&cfg.Playback.SettleDelayMS, "READALOUD_PLAYBACK_SETTLE_DELAY_MS")
	overrideInt(&cfg.Playback.PersistEvery, "READALOUD_PLAYBACK_PERSIST_EVERY_WORDS")
	overrideInt(&cfg.Playback.NextSlack, "READALOUD_PLAYBACK_CHAPTER_NEXT_SLACK")
	overrideInt(&cfg.Playback.PrevSlack, "READALOUD_PLAYBACK_CHAPTER_PREV_SLACK")
	overrideInt(&cfg.Playback.WPM, "READALOUD_PLAYBACK_WORDS_PER_MINUTE")
	overrideFloat(&cfg.Playback.Rate, "READALOUD_PLAYBACK_RATE")
	overrideInt(&cfg.Playback.TickMS, "READALOUD_PLAYBACK_TICK_MS")
	overrideString(&cfg.Synthesis.Mode, "READALOUD_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Command, "READALOUD_SYNTHESIS_COMMAND")
	overrideString(&cfg.Synthesis.NATSURL, "READALOUD_SYNTHESIS_NATS_URL")
	overrideString(&cfg.Synthesis.Subject, "READALOUD_SYNTHESIS_SUBJECT")
	overrideString(&cfg.Synthesis.Voice, "READALOUD_SYNTHESIS_VOICE")
	overrideInt(&cfg.Synthesis.SampleRate, "READALOUD_SYNTHESIS_SAMPLE_RATE")
	overrideInt(&cfg.Synthesis.TimeoutMS, "READALOUD_SYNTHESIS_TIMEOUT_MS")
	overrideString(&cfg.Telemetry.PrometheusBind, "READALOUD_TELEMETRY_PROMETHEUS_BIND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate checks value ranges and mode names.
func (cfg Config) Validate() error {
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return errors.New("log.format must be one of text|json")
	}
	switch cfg.Library.Store {
	case "sqlite", "json", "memory":
	default:
		return errors.New("library.store must be one of sqlite|json|memory")
	}
	if cfg.Parser.ChapterEveryPages <= 0 {
		return errors.New("parser.chapter_every_pages must be positive")
	}
	switch cfg.Playback.Backend {
	case "system", "remote":
	default:
		return errors.New("playback.backend must be one of system|remote")
	}
	if cfg.Playback.SettleDelayMS < 0 {
		return errors.New("playback.settle_delay_ms must be >= 0")
	}
	if cfg.Playback.PersistEvery <= 0 {
		return errors.New("playback.persist_every_words must be positive")
	}
	if cfg.Playback.NextSlack <= 0 || cfg.Playback.PrevSlack <= 0 {
		return errors.New("playback chapter slack values must be positive")
	}
	if cfg.Playback.WPM <= 0 {
		return errors.New("playback.words_per_minute must be positive")
	}
	if cfg.Playback.Rate < 0.25 || cfg.Playback.Rate > 4 {
		return errors.New("playback.rate must be between 0.25 and 4")
	}
	if cfg.Playback.TickMS <= 0 {
		return errors.New("playback.tick_ms must be positive")
	}
	switch cfg.Synthesis.Mode {
	case "exec", "nats", "mock":
	default:
		return errors.New("synthesis.mode must be one of exec|nats|mock")
	}
	if cfg.Playback.Backend == "remote" {
		if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
			return errors.New("synthesis.command must be set when mode=exec")
		}
		if cfg.Synthesis.Mode == "nats" && cfg.Synthesis.NATSURL == "" {
			return errors.New("synthesis.nats_url must be set when mode=nats")
		}
	}
	if cfg.Synthesis.SampleRate <= 0 {
		return errors.New("synthesis.sample_rate must be positive")
	}
	if cfg.Synthesis.TimeoutMS <= 0 {
		return errors.New("synthesis.timeout_ms must be positive")
	}
	return nil
}

func (c PlaybackConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func (c PlaybackConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c SynthesisConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
