// Package message defines the request and result types shared by every
// voicebox transport.
package message

import (
	"io"
	"time"
)

// TranscribeRequest is an uploaded media file to transcribe.
type TranscribeRequest struct {
	// ID is a unique identifier for this request (UUID).
	ID string `json:"id"`

	// Filename is the client-supplied name of the upload. Only its base name
	// is used, and only as a hint for the container format.
	Filename string `json:"filename"`

	// Device selects where inference runs ("cpu", "cuda", "cuda:1", ...).
	Device string `json:"device"`

	// Media is the raw upload. It is read once.
	Media io.Reader `json:"-"`

	// OnStage, when set, receives pipeline state names as the run progresses.
	OnStage func(stage string) `json:"-"`
}

// TranscribeResult is the outcome of a transcription request.
type TranscribeResult struct {
	// Transcript is the assembled text.
	Transcript string `json:"transcript"`

	// Language is the ISO-639-1 code detected during the fast pass.
	Language string `json:"language"`

	// StoredAt is the archive location of the transcript, if one is configured.
	StoredAt string `json:"stored_at,omitempty"`
}

// SynthesizeRequest is a text-to-speech request.
type SynthesizeRequest struct {
	// Text is the input to speak.
	Text string `json:"text"`

	// Rate is the speaking rate in words per minute (60-200). Zero selects
	// the default of 100.
	Rate int `json:"rate,omitempty"`
}

// EventType names a progress event on the streaming transcription socket.
type EventType string

const (
	// EventStage reports a pipeline state transition.
	EventStage EventType = "stage"

	// EventResult carries the final transcript.
	EventResult EventType = "result"

	// EventError reports a terminal failure.
	EventError EventType = "error"
)

// Event is one message on the streaming transcription socket.
type Event struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"request_id"`
	Stage      string    `json:"stage,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Language   string    `json:"language,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
