// Package dispatch implements the request handling shared by every voicebox
// shell.
//
// The service persists an upload into a scoped temporary directory, runs the
// transcription pipeline on it and archives the transcript, or validates and
// forwards a synthesis request. Transports and the CLI only translate their
// wire formats into these calls.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/voicebox/internal/message"
	"github.com/nadzzz/voicebox/internal/storage"
	"github.com/nadzzz/voicebox/internal/stt"
	"github.com/nadzzz/voicebox/internal/tts"
)

// DefaultDevice is used when a request does not name one.
const DefaultDevice = "cpu"

var (
	// ErrInvalidRate is returned for a speaking rate outside the accepted range.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrNoMedia is returned when a transcription request carries no upload.
	ErrNoMedia = errors.New("no media in request")

	// ErrNoSynthesizer is returned when speech synthesis is not configured.
	ErrNoSynthesizer = errors.New("speech synthesis is not configured")
)

// Transcriber runs one transcription; *stt.Pipeline implements it.
type Transcriber interface {
	Run(ctx context.Context, in stt.Input) (stt.Transcript, error)
}

// Service is the request handling core.
type Service struct {
	pipeline    Transcriber
	synthesizer tts.Synthesizer // nil if TTS is disabled
	sink        storage.Sink    // nil if archiving is disabled
	tempDir     string
}

// New creates a Service.
func New(pipeline Transcriber, synthesizer tts.Synthesizer, sink storage.Sink) *Service {
	return &Service{
		pipeline:    pipeline,
		synthesizer: synthesizer,
		sink:        sink,
	}
}

// Transcribe persists req.Media, transcribes it and archives the result.
// The upload is removed before Transcribe returns.
func (s *Service) Transcribe(ctx context.Context, req *message.TranscribeRequest) (*message.TranscribeResult, error) {
	if req.Media == nil {
		return nil, ErrNoMedia
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := slog.With("request_id", req.ID)

	dir, err := os.MkdirTemp(s.tempDir, "voicebox-upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("removing upload dir", "error", err)
		}
	}()

	name := uploadName(req.Filename)
	path := filepath.Join(dir, name)
	n, err := writeUpload(path, req.Media)
	if err != nil {
		return nil, err
	}
	logger.Info("upload received", "filename", name, "bytes", n, "device", device(req.Device))

	return s.run(ctx, logger, path, name, req.Device, req.OnStage)
}

// TranscribeFile transcribes a media file already on disk. The file is
// never modified.
func (s *Service) TranscribeFile(ctx context.Context, path, dev string, onStage func(string)) (*message.TranscribeResult, error) {
	logger := slog.With("request_id", uuid.NewString())
	return s.run(ctx, logger, path, path, dev, onStage)
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, path, source, dev string, onStage func(string)) (*message.TranscribeResult, error) {
	start := time.Now()

	tr, err := s.pipeline.Run(ctx, stt.Input{
		MediaPath: path,
		Device:    device(dev),
		OnStage: func(st stt.Stage) {
			if onStage != nil {
				onStage(string(st))
			}
		},
	})
	if err != nil {
		return nil, err
	}

	result := &message.TranscribeResult{Transcript: tr.Text, Language: tr.Language}
	if s.sink != nil {
		loc, err := s.sink.Store(ctx, source, tr.Text)
		if err != nil {
			logger.Warn("archiving transcript failed", "sink", s.sink.Name(), "error", err)
		} else {
			result.StoredAt = loc
		}
	}

	logger.Info("transcribe complete",
		"language", result.Language,
		"chars", len(result.Transcript),
		"duration", time.Since(start),
	)
	return result, nil
}

// Synthesize speaks req.Text at req.Rate.
func (s *Service) Synthesize(ctx context.Context, req message.SynthesizeRequest) (*tts.SynthesizeResult, error) {
	if s.synthesizer == nil {
		return nil, ErrNoSynthesizer
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, tts.ErrEmptyText
	}
	rate, err := tts.ValidateRate(req.Rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}

	res, err := s.synthesizer.Synthesize(ctx, req.Text, tts.SynthesizeOpts{Rate: rate})
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	slog.Info("tts synthesis complete", "backend", s.synthesizer.Name(), "rate", rate, "audio_bytes", len(res.Audio))
	return res, nil
}

func writeUpload(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating upload file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("writing upload: %w", err)
	}
	return n, nil
}

// uploadName reduces a client file name to a safe base name.
func uploadName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" || strings.HasPrefix(name, "..") {
		return "upload"
	}
	return name
}

func device(d string) string {
	if d = strings.TrimSpace(d); d == "" {
		return DefaultDevice
	}
	return d
}
