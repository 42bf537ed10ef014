package stt

import (
	"errors"
	"io"
	"strings"

	"github.com/nadzzz/voicebox/internal/asr"
)

// Drain reads every segment from s in emission order and closes it. A stream
// that was already drained elsewhere yields asr.ErrStreamConsumed.
func Drain(s asr.SegmentStream) ([]asr.Segment, error) {
	defer s.Close()

	var segs []asr.Segment
	for {
		seg, err := s.Next()
		if errors.Is(err, io.EOF) {
			return segs, nil
		}
		if err != nil {
			return segs, err
		}
		segs = append(segs, seg)
	}
}

// Join trims each segment and joins the non-empty ones with a single space.
// Order is preserved and nothing is deduplicated.
func Join(segs []asr.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Assemble drains s exactly once and returns the joined transcript text.
func Assemble(s asr.SegmentStream) (string, error) {
	segs, err := Drain(s)
	if err != nil {
		return "", err
	}
	return Join(segs), nil
}
