// Package asr defines the contracts between the transcription pipeline and
// the speech recognition engines that back it.
//
// An engine is reached through a Loader, which turns a model file on disk into
// a loaded Model bound to a device. A Model decodes one audio file at a time
// and hands back a SegmentStream: a lazy, finite, forward-only producer of
// recognized text. Streams cannot be replayed; decode errors may only surface
// once the stream is fully drained.
package asr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Tier names a model-size class.
type Tier string

const (
	// TierFast is the small model used for quick language identification.
	TierFast Tier = "fast"

	// TierFull is the larger model used for the final transcript.
	TierFull Tier = "full"
)

// Segment is one ordered unit of recognized text.
type Segment struct {
	// Index is the zero-based emission position within its stream.
	Index int

	// Start and End are offsets from the beginning of the audio.
	Start time.Duration
	End   time.Duration

	// Text is the raw segment text as emitted by the model.
	Text string
}

// DecodeOptions controls one decoding pass.
type DecodeOptions struct {
	// BeamSize is the decoding search breadth; 1 selects greedy decoding.
	BeamSize int

	// Language is the ISO-639-1 code to decode with. Empty means auto-detect.
	Language string

	// VADFilter skips non-speech spans instead of emitting empty segments.
	VADFilter bool
}

// SegmentStream is a single-pass producer of segments.
type SegmentStream interface {
	// Next returns the next segment in emission order. It returns io.EOF once
	// the stream is exhausted and the decoder finished cleanly, or a
	// *DecodeError if decoding failed. Any call after that terminal result
	// returns ErrStreamConsumed.
	Next() (Segment, error)

	// Language is the language code reported by the decoder. It is only
	// meaningful after Next has returned io.EOF and may be empty.
	Language() string

	// Close aborts decoding if it is still running and releases the stream.
	Close() error
}

// LoadSpec describes a model to load.
type LoadSpec struct {
	// ModelID is the catalog identifier (e.g., "tiny", "small.en").
	ModelID string

	// Path is the resolved model file on disk.
	Path string

	// Device is "cpu" or an accelerator identifier such as "cuda" or "cuda:1".
	Device string

	// VADModelPath is the voice-activity model used when VADFilter is set.
	// Empty disables voice-activity filtering for this model.
	VADModelPath string
}

// Model is a loaded inference model.
type Model interface {
	// ID returns the catalog identifier the model was loaded from.
	ID() string

	// Decode starts a decoding pass over the audio file at audioPath.
	Decode(ctx context.Context, audioPath string, opts DecodeOptions) (SegmentStream, error)

	// Close releases the model.
	Close() error
}

// Loader loads models for an engine.
type Loader interface {
	// Name returns the engine identifier (e.g., "whispercpp").
	Name() string

	// Load binds the model described by spec to its device.
	Load(ctx context.Context, spec LoadSpec) (Model, error)
}

// ErrStreamConsumed is returned when a SegmentStream is read past its
// terminal result.
var ErrStreamConsumed = errors.New("asr: segment stream already consumed")

// DecodeError reports a failure during a detection or transcription pass.
type DecodeError struct {
	ModelID string
	Detail  string
	Err     error
}

// Error formats the decode failure.
func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode with model %q failed", e.ModelID)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }
