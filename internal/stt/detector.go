package stt

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nadzzz/voicebox/internal/asr"
	"github.com/nadzzz/voicebox/internal/media"
)

// DefaultLanguage is reported when the fast pass detects nothing.
const DefaultLanguage = "en"

// Decoder runs decoding passes; *modelpool.Handle implements it.
type Decoder interface {
	Decode(ctx context.Context, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error)
}

// Detection is the outcome of the fast pass. Only Language is used
// downstream.
type Detection struct {
	Language string
	Segments []asr.Segment
}

// Detector identifies the spoken language of a short probe.
type Detector struct {
	// Fallback is reported when the model gives no language. Defaults to "en".
	Fallback string
}

// Detect runs one greedy, auto-detect pass over probe. The probe file is only
// read.
func (d Detector) Detect(ctx context.Context, probe media.Artifact, h Decoder) (Detection, error) {
	stream, err := h.Decode(ctx, probe.Path, asr.DecodeOptions{BeamSize: 1})
	if err != nil {
		return Detection{}, asDecodeError(err)
	}

	segs, err := Drain(stream)
	if err != nil {
		return Detection{}, asDecodeError(err)
	}

	lang := strings.ToLower(strings.TrimSpace(stream.Language()))
	if lang == "" {
		lang = d.fallback()
		slog.Debug("no language detected, using fallback", "language", lang)
	}
	return Detection{Language: lang, Segments: segs}, nil
}

func (d Detector) fallback() string {
	if d.Fallback == "" {
		return DefaultLanguage
	}
	return d.Fallback
}

// asDecodeError makes sure decode failures carry the DecodeError type.
func asDecodeError(err error) error {
	var dErr *asr.DecodeError
	if errors.As(err, &dErr) {
		return err
	}
	return &asr.DecodeError{Err: err}
}
