package stt

import (
	"context"
	"errors"
	"testing"

	"github.com/nadzzz/voicebox/internal/asr"
	"github.com/nadzzz/voicebox/internal/asr/asrtest"
	"github.com/nadzzz/voicebox/internal/media"
)

// TestAssembleJoinsTrimmedSegments checks ordering and spacing.
func TestAssembleJoinsTrimmedSegments(t *testing.T) {
	cases := []struct {
		name  string
		texts []string
		want  string
	}{
		{"two words", []string{"Hello", "world"}, "Hello world"},
		{"padded", []string{"  Hello ", "\tworld\n"}, "Hello world"},
		{"empty segment", []string{"one", "   ", "two"}, "one two"},
		{"repeats kept", []string{"yes", "yes"}, "yes yes"},
		{"none", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Assemble(asrtest.NewStream("en", tc.texts...))
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("Assemble() = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestAssembleRejectsConsumedStream checks the single-pass contract.
func TestAssembleRejectsConsumedStream(t *testing.T) {
	s := asrtest.NewStream("en", "once")
	if _, err := Assemble(s); err != nil {
		t.Fatalf("first Assemble() error = %v", err)
	}
	if !s.Closed() {
		t.Fatal("stream not closed after drain")
	}
	if _, err := Assemble(s); !errors.Is(err, asr.ErrStreamConsumed) {
		t.Fatalf("second Assemble() error = %v, want ErrStreamConsumed", err)
	}
}

// decoderFunc adapts a function to Decoder.
type decoderFunc func(ctx context.Context, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error)

func (f decoderFunc) Decode(ctx context.Context, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error) {
	return f(ctx, audioPath, opts)
}

// TestDetectorUsesConfiguredFallback checks the fallback language.
func TestDetectorUsesConfiguredFallback(t *testing.T) {
	h := decoderFunc(func(context.Context, string, asr.DecodeOptions) (asr.SegmentStream, error) {
		return asrtest.NewStream("", "hola"), nil
	})

	det, err := Detector{Fallback: "es"}.Detect(context.Background(), media.Artifact{Path: "probe.wav"}, h)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det.Language != "es" || len(det.Segments) != 1 {
		t.Fatalf("detection = %+v", det)
	}

	det, err = Detector{}.Detect(context.Background(), media.Artifact{Path: "probe.wav"}, h)
	if err != nil || det.Language != "en" {
		t.Fatalf("default fallback = %q, %v", det.Language, err)
	}
}

// TestDetectorNormalizesReportedCode checks language code cleanup.
func TestDetectorNormalizesReportedCode(t *testing.T) {
	h := decoderFunc(func(context.Context, string, asr.DecodeOptions) (asr.SegmentStream, error) {
		return asrtest.NewStream(" PT "), nil
	})
	det, err := Detector{}.Detect(context.Background(), media.Artifact{Path: "probe.wav"}, h)
	if err != nil || det.Language != "pt" {
		t.Fatalf("Detect() = %+v, %v", det, err)
	}
}
