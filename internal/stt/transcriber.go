package stt

import (
	"context"

	"github.com/nadzzz/voicebox/internal/asr"
	"github.com/nadzzz/voicebox/internal/media"
)

// Transcript is the final result of a run.
type Transcript struct {
	Text     string `json:"transcript"`
	Language string `json:"language"`
}

// Transcriber runs the accurate pass over the full artifact.
type Transcriber struct {
	BeamSize  int
	VADFilter bool
}

// DefaultTranscriber uses beam 5 with voice-activity filtering.
func DefaultTranscriber() Transcriber {
	return Transcriber{BeamSize: 5, VADFilter: true}
}

// Transcribe decodes full with the language fixed and assembles the
// segments into a transcript.
func (t Transcriber) Transcribe(ctx context.Context, full media.Artifact, h Decoder, language string) (Transcript, error) {
	stream, err := h.Decode(ctx, full.Path, asr.DecodeOptions{
		BeamSize:  t.BeamSize,
		Language:  language,
		VADFilter: t.VADFilter,
	})
	if err != nil {
		return Transcript{}, asDecodeError(err)
	}

	text, err := Assemble(stream)
	if err != nil {
		return Transcript{}, asDecodeError(err)
	}
	return Transcript{Text: text, Language: language}, nil
}
