// Package tts defines the interface for text-to-speech synthesis.
//
// Backends return a complete 16-bit PCM WAV file. The speaking rate is the
// only caller-controlled parameter; the voice is fixed by configuration.
package tts

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultRate is the speaking rate used when a request does not set one.
	DefaultRate = 100

	// MinRate and MaxRate bound the accepted speaking rate in words per minute.
	MinRate = 60
	MaxRate = 200
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("tts: empty text for synthesis")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Rate is the speaking rate in words per minute.
	Rate int
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "espeak", "piper").
	Name() string

	// Synthesize generates a WAV file from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the synthesized audio as a WAV file.
	Audio []byte

	// ContentType is the MIME type of the audio ("audio/wav").
	ContentType string

	// SampleRate is the audio sample rate in Hz (e.g., 22050).
	SampleRate int

	// Channels is the number of audio channels (typically 1).
	Channels int
}

// ValidateRate checks rate against the accepted range. Zero is allowed and
// means DefaultRate.
func ValidateRate(rate int) (int, error) {
	if rate == 0 {
		return DefaultRate, nil
	}
	if rate < MinRate || rate > MaxRate {
		return 0, fmt.Errorf("rate %d out of range [%d, %d]", rate, MinRate, MaxRate)
	}
	return rate, nil
}
