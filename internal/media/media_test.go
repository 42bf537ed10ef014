package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// fakeRunner simulates ffmpeg.
type fakeRunner struct {
	run   func(ctx context.Context, name string, args ...string) (CommandResult, error)
	calls [][]string
}

// Run records the call and delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.run == nil {
		return CommandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

// writeWAV writes a 16-bit WAV file of the given length.
func writeWAV(t *testing.T, path string, rate, channels int, length time.Duration) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	frames := int(length.Seconds() * float64(rate))
	data := make([]int, frames*channels)
	for i := range data {
		data[i] = (i % 200) - 100
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}

// TestNormalizeProducesCanonicalArtifact checks the happy path and ffmpeg args.
func TestNormalizeProducesCanonicalArtifact(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "talk.mp4")
	out := filepath.Join(dir, "probe.wav")

	runner := &fakeRunner{run: func(_ context.Context, _ string, args ...string) (CommandResult, error) {
		writeWAV(t, args[len(args)-1], SampleRate, Channels, 2*time.Second)
		return CommandResult{}, nil
	}}

	n := NewNormalizerForTests("ffmpeg-custom", runner)
	art, err := n.Normalize(context.Background(), in, out, 30*time.Second)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if art.Path != out || art.SampleRate != 16000 || art.Channels != 1 {
		t.Fatalf("artifact = %+v", art)
	}
	if art.Duration != 2*time.Second {
		t.Fatalf("duration = %v, want 2s", art.Duration)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(runner.calls))
	}
	call := runner.calls[0]
	if call[0] != "ffmpeg-custom" {
		t.Fatalf("command = %q", call[0])
	}
	joined := strings.Join(call[1:], " ")
	for _, want := range []string{"-loglevel error", "-i " + in, "-vn", "-ac 1", "-ar 16000", "-c:a pcm_s16le", "-t 30"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
	if call[len(call)-1] != out {
		t.Fatalf("output path must be last arg, got %q", call[len(call)-1])
	}
}

// TestNormalizeWithoutCapOmitsDurationFlag checks the full-length conversion.
func TestNormalizeWithoutCapOmitsDurationFlag(t *testing.T) {
	args := buildFFmpegArgs("in.mp3", "out.wav", 0)
	for _, arg := range args {
		if arg == "-t" {
			t.Fatalf("unexpected -t in %v", args)
		}
	}
	args = buildFFmpegArgs("in.mp3", "out.wav", 1500*time.Millisecond)
	if strings.Join(args, " ") != "-hide_banner -loglevel error -nostdin -y -i in.mp3 -vn -ac 1 -ar 16000 -c:a pcm_s16le -t 1.5 out.wav" {
		t.Fatalf("args = %v", args)
	}
}

// TestNormalizeFailureIsTranscodeError checks that ffmpeg failures are typed.
func TestNormalizeFailureIsTranscodeError(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(context.Context, string, ...string) (CommandResult, error) {
		return CommandResult{ExitCode: 1, Stderr: "notes.txt: Invalid data found when processing input\n"}, errors.New("exit status 1")
	}}

	n := NewNormalizerForTests("", runner)
	_, err := n.Normalize(context.Background(), filepath.Join(dir, "notes.txt"), filepath.Join(dir, "full.wav"), 0)

	var tErr *TranscodeError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want *TranscodeError", err)
	}
	if tErr.ExitCode != 1 || !strings.Contains(tErr.Stderr, "Invalid data") {
		t.Fatalf("transcode error = %+v", tErr)
	}
	if runner.calls[0][0] != "ffmpeg" {
		t.Fatalf("default binary = %q, want ffmpeg", runner.calls[0][0])
	}
}

// TestNormalizeRejectsNonCanonicalOutput checks the header verification.
func TestNormalizeRejectsNonCanonicalOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "full.wav")

	cases := map[string]func(){
		"stereo":  func() { writeWAV(t, out, SampleRate, 2, time.Second) },
		"44k":     func() { writeWAV(t, out, 44100, 1, time.Second) },
		"not wav": func() { _ = os.WriteFile(out, []byte("definitely not riff"), 0o644) },
		"missing": func() { _ = os.Remove(out) },
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			runner := &fakeRunner{run: func(context.Context, string, ...string) (CommandResult, error) {
				prepare()
				return CommandResult{}, nil
			}}
			_, err := NewNormalizerForTests("ffmpeg", runner).Normalize(context.Background(), "in.bin", out, 0)
			var tErr *TranscodeError
			if !errors.As(err, &tErr) {
				t.Fatalf("error = %v, want *TranscodeError", err)
			}
		})
	}
}

// TestNormalizeEmptyAudio checks that a zero-length stream is still valid.
func TestNormalizeEmptyAudio(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "silence.wav")
	runner := &fakeRunner{run: func(context.Context, string, ...string) (CommandResult, error) {
		writeWAV(t, out, SampleRate, Channels, 0)
		return CommandResult{}, nil
	}}

	art, err := NewNormalizerForTests("ffmpeg", runner).Normalize(context.Background(), "in.wav", out, 30*time.Second)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if art.Duration != 0 {
		t.Fatalf("duration = %v, want 0", art.Duration)
	}
}
