// Package audio captures spoken answers as WAV artifacts.
package audio

import (
	"context"
	"time"

	"github.com/spigell/evalia/internal/domain"
)

// ErrNoAudio is returned when a capture finished without any audio data.
var ErrNoAudio = domain.ErrNoAudio

// StopFunc blocks until the user ends the recording.
type StopFunc func(ctx context.Context) error

// Config describes the capture device and limits.
type Config struct {
	Command     string `mapstructure:"recorder-command"`
	InputFormat string `mapstructure:"input-format"`
	InputDevice string `mapstructure:"input-device"`
	SampleRate  int    `mapstructure:"sample-rate"`
	// MaxDuration ends a recording automatically. Zero means no limit.
	MaxDuration time.Duration `mapstructure:"max-duration"`
}

const (
	defaultCommand     = "ffmpeg"
	defaultInputFormat = "pulse"
	defaultInputDevice = "default"
	defaultSampleRate  = 16000
	channels           = 1

	mimeWAV = "audio/wav"
)

func (c Config) withDefaults() Config {
	if c.Command == "" {
		c.Command = defaultCommand
	}
	if c.InputFormat == "" {
		c.InputFormat = defaultInputFormat
	}
	if c.InputDevice == "" {
		c.InputDevice = defaultInputDevice
	}
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.MaxDuration < 0 {
		c.MaxDuration = 0
	}
	return c
}
