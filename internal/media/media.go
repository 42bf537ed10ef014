// Package media converts arbitrary audio or video containers into the
// canonical recognizer input: mono, 16 kHz, 16-bit PCM WAV.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

const (
	// SampleRate is the canonical sample rate in Hz.
	SampleRate = 16000

	// Channels is the canonical channel count.
	Channels = 1

	stderrTail = 2048
)

// Artifact is a normalized audio file owned by a single pipeline run.
type Artifact struct {
	Path       string
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// TranscodeError reports that the input could not be decoded as media.
type TranscodeError struct {
	Input    string
	ExitCode int
	Stderr   string
	Err      error
}

// Error formats the transcode failure with the tail of ffmpeg's stderr.
func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcode %s failed", e.Input)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *TranscodeError) Unwrap() error { return e.Err }

// Normalizer runs ffmpeg and verifies its output.
type Normalizer struct {
	ffmpegPath string
	runner     Runner
}

// NewNormalizer returns a Normalizer that executes ffmpegPath.
func NewNormalizer(ffmpegPath string) *Normalizer {
	return NewNormalizerForTests(ffmpegPath, ExecRunner{})
}

// NewNormalizerForTests constructs a Normalizer with an injected runner.
func NewNormalizerForTests(ffmpegPath string, runner Runner) *Normalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Normalizer{ffmpegPath: ffmpegPath, runner: runner}
}

// Normalize converts inputPath into a canonical WAV at outputPath, replacing
// any existing file. A positive maxDuration truncates the output to that
// length from the start of the input.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string, maxDuration time.Duration) (Artifact, error) {
	args := buildFFmpegArgs(inputPath, outputPath, maxDuration)

	res, err := n.runner.Run(ctx, n.ffmpegPath, args...)
	if err != nil {
		return Artifact{}, &TranscodeError{
			Input:    inputPath,
			ExitCode: res.ExitCode,
			Stderr:   tail(res.Stderr, stderrTail),
			Err:      err,
		}
	}

	art, err := inspect(outputPath)
	if err != nil {
		return Artifact{}, &TranscodeError{Input: inputPath, Err: err}
	}

	slog.Debug("media normalized",
		"input", inputPath,
		"output", outputPath,
		"duration", art.Duration,
		"max_duration", maxDuration,
	)
	return art, nil
}

// inspect reads the WAV header at path and checks the canonical format.
func inspect(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("opening normalized output: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return Artifact{}, fmt.Errorf("normalized output is not a valid WAV: %w", err)
	}
	if int(dec.NumChans) != Channels || int(dec.SampleRate) != SampleRate || dec.BitDepth != 16 {
		return Artifact{}, fmt.Errorf("normalized output is %d ch / %d Hz / %d bit, want mono 16000 Hz 16 bit",
			dec.NumChans, dec.SampleRate, dec.BitDepth)
	}

	bytesPerSecond := int64(SampleRate * Channels * 2)
	duration := time.Duration(dec.PCMLen()) * time.Second / time.Duration(bytesPerSecond)

	return Artifact{
		Path:       path,
		Duration:   duration,
		SampleRate: SampleRate,
		Channels:   Channels,
	}, nil
}

// buildFFmpegArgs builds the conversion args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outputPath string, maxDuration time.Duration) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
	}
	if maxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(maxDuration.Seconds(), 'f', -1, 64))
	}
	return append(args, outputPath)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
