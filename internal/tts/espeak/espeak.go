// Package espeak implements the TTS Synthesizer with the espeak-ng command.
//
// The speaking rate maps directly onto espeak's words-per-minute setting.
// Text is passed on stdin so it never appears in the process list.
package espeak

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/tts"
)

// runFunc runs name with args, feeding stdin, and returns stderr on failure.
type runFunc func(ctx context.Context, stdin string, name string, args ...string) (string, error)

// Synthesizer implements tts.Synthesizer with espeak-ng.
type Synthesizer struct {
	binary string
	voice  string
	run    runFunc
}

// New creates a new espeak synthesizer from config.
func New(cfg config.EspeakConfig) *Synthesizer {
	binary := cfg.Binary
	if binary == "" {
		binary = "espeak-ng"
	}
	return &Synthesizer{binary: binary, voice: cfg.Voice, run: execRun}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "espeak" }

// Synthesize speaks text into a temporary WAV file and returns its contents.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	rate, err := tts.ValidateRate(opts.Rate)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "voicebox-tts-*")
	if err != nil {
		return nil, fmt.Errorf("creating tts temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "speech.wav")
	args := buildArgs(out, rate, s.voice)

	slog.Debug("espeak synthesize", "text_length", len(text), "rate", rate, "voice", s.voice)
	if stderr, err := s.run(ctx, text, s.binary, args...); err != nil {
		if stderr = strings.TrimSpace(stderr); stderr != "" {
			return nil, fmt.Errorf("espeak failed: %w: %s", err, stderr)
		}
		return nil, fmt.Errorf("espeak failed: %w", err)
	}

	audio, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading espeak output: %w", err)
	}
	sampleRate, channels, err := tts.DecodeWAVInfo(audio)
	if err != nil {
		return nil, fmt.Errorf("espeak output: %w", err)
	}

	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: "audio/wav",
		SampleRate:  sampleRate,
		Channels:    channels,
	}, nil
}

// Close is a no-op; each call runs its own process.
func (s *Synthesizer) Close() error { return nil }

// buildArgs builds espeak-ng args that read text from stdin and write a WAV file.
func buildArgs(out string, rate int, voice string) []string {
	args := []string{"-w", out, "-s", strconv.Itoa(rate)}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, "--stdin")
}

func execRun(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}
