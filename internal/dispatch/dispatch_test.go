package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nadzzz/voicebox/internal/media"
	"github.com/nadzzz/voicebox/internal/message"
	"github.com/nadzzz/voicebox/internal/storage"
	"github.com/nadzzz/voicebox/internal/stt"
	"github.com/nadzzz/voicebox/internal/tts"
)

// fakePipeline records its input and checks the upload while running.
type fakePipeline struct {
	t       *testing.T
	in      stt.Input
	content string
	result  stt.Transcript
	err     error
}

func (f *fakePipeline) Run(_ context.Context, in stt.Input) (stt.Transcript, error) {
	f.in = in
	data, err := os.ReadFile(in.MediaPath)
	if err != nil {
		f.t.Fatalf("upload not readable during run: %v", err)
	}
	f.content = string(data)
	if in.OnStage != nil {
		in.OnStage(stt.StageReceived)
		in.OnStage(stt.StageCleaned)
	}
	return f.result, f.err
}

// fakeSynth returns canned audio.
type fakeSynth struct {
	opts tts.SynthesizeOpts
	err  error
}

func (f *fakeSynth) Name() string { return "fake" }
func (f *fakeSynth) Close() error { return nil }
func (f *fakeSynth) Synthesize(_ context.Context, _ string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &tts.SynthesizeResult{Audio: []byte("RIFF"), ContentType: "audio/wav"}, nil
}

// TestTranscribePersistsUploadAndCleansUp checks the upload lifecycle.
func TestTranscribePersistsUploadAndCleansUp(t *testing.T) {
	p := &fakePipeline{t: t, result: stt.Transcript{Text: "Hello world", Language: "en"}}
	svc := New(p, nil, nil)
	svc.tempDir = t.TempDir()

	var stages []string
	res, err := svc.Transcribe(context.Background(), &message.TranscribeRequest{
		Filename: "../../etc/clip.mp3",
		Media:    strings.NewReader("media bytes"),
		OnStage:  func(s string) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if res.Transcript != "Hello world" || res.Language != "en" || res.StoredAt != "" {
		t.Fatalf("result = %+v", res)
	}
	if p.content != "media bytes" {
		t.Fatalf("upload content = %q", p.content)
	}
	if filepath.Base(p.in.MediaPath) != "clip.mp3" {
		t.Fatalf("upload path = %q", p.in.MediaPath)
	}
	if p.in.Device != "cpu" {
		t.Fatalf("device = %q, want cpu", p.in.Device)
	}
	if len(stages) != 2 || stages[0] != "received" || stages[1] != "cleaned" {
		t.Fatalf("stages = %v", stages)
	}

	entries, _ := os.ReadDir(svc.tempDir)
	if len(entries) != 0 {
		t.Fatalf("upload dir not removed: %v", entries)
	}
}

// TestTranscribeArchivesToSink checks that the sink receives the transcript.
func TestTranscribeArchivesToSink(t *testing.T) {
	out := t.TempDir()
	p := &fakePipeline{t: t, result: stt.Transcript{Text: "Bonjour", Language: "fr"}}
	svc := New(p, nil, storage.NewFileSink(out))
	svc.tempDir = t.TempDir()

	res, err := svc.Transcribe(context.Background(), &message.TranscribeRequest{
		Filename: "interview.wav",
		Device:   "cuda",
		Media:    strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	want := filepath.Join(out, "interview_transcript.txt")
	if res.StoredAt != want {
		t.Fatalf("stored at = %q, want %q", res.StoredAt, want)
	}
	if p.in.Device != "cuda" {
		t.Fatalf("device = %q", p.in.Device)
	}
	data, _ := os.ReadFile(want)
	if string(data) != "Bonjour" {
		t.Fatalf("archived = %q", data)
	}
}

// TestTranscribePropagatesPipelineError checks error passthrough and cleanup.
func TestTranscribePropagatesPipelineError(t *testing.T) {
	terr := &stt.StageError{Stage: stt.StageNormalized, Err: &media.TranscodeError{Input: "x"}}
	p := &fakePipeline{t: t, err: terr}
	svc := New(p, nil, nil)
	svc.tempDir = t.TempDir()

	_, err := svc.Transcribe(context.Background(), &message.TranscribeRequest{Filename: "a.txt", Media: strings.NewReader("text")})
	var tErr *media.TranscodeError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want TranscodeError", err)
	}
	entries, _ := os.ReadDir(svc.tempDir)
	if len(entries) != 0 {
		t.Fatalf("upload dir not removed after failure: %v", entries)
	}
}

// TestTranscribeRequiresMedia checks the nil upload guard.
func TestTranscribeRequiresMedia(t *testing.T) {
	svc := New(&fakePipeline{t: t}, nil, nil)
	if _, err := svc.Transcribe(context.Background(), &message.TranscribeRequest{}); !errors.Is(err, ErrNoMedia) {
		t.Fatalf("error = %v, want ErrNoMedia", err)
	}
}

// TestTranscribeFileArchivesBesideSource checks the CLI path.
func TestTranscribeFileArchivesBesideSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "podcast.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &fakePipeline{t: t, result: stt.Transcript{Text: "episode one", Language: "en"}}
	res, err := New(p, nil, storage.NewFileSink("")).TranscribeFile(context.Background(), src, "", nil)
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if p.in.MediaPath != src {
		t.Fatalf("media path = %q, want the source itself", p.in.MediaPath)
	}
	if res.StoredAt != filepath.Join(dir, "podcast_transcript.txt") {
		t.Fatalf("stored at = %q", res.StoredAt)
	}
}

// TestSynthesizeValidation checks rate and text validation.
func TestSynthesizeValidation(t *testing.T) {
	synth := &fakeSynth{}
	svc := New(nil, synth, nil)

	if _, err := svc.Synthesize(context.Background(), message.SynthesizeRequest{Text: "hi", Rate: 250}); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("rate error = %v, want ErrInvalidRate", err)
	}
	if _, err := svc.Synthesize(context.Background(), message.SynthesizeRequest{Text: " "}); !errors.Is(err, tts.ErrEmptyText) {
		t.Fatalf("text error = %v, want ErrEmptyText", err)
	}

	res, err := svc.Synthesize(context.Background(), message.SynthesizeRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if synth.opts.Rate != tts.DefaultRate || res.ContentType != "audio/wav" {
		t.Fatalf("opts = %+v, result = %+v", synth.opts, res)
	}

	if _, err := New(nil, nil, nil).Synthesize(context.Background(), message.SynthesizeRequest{Text: "hi"}); !errors.Is(err, ErrNoSynthesizer) {
		t.Fatalf("error = %v, want ErrNoSynthesizer", err)
	}
}

// TestUploadName checks client file name sanitizing.
func TestUploadName(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":            "clip.mp4",
		"../../etc/passwd":    "passwd",
		`C:\Users\a\song.mp3`: "song.mp3",
		"":                    "upload",
		"..":                  "upload",
	}
	for in, want := range cases {
		if got := uploadName(in); got != want {
			t.Fatalf("uploadName(%q) = %q, want %q", in, got, want)
		}
	}
}
