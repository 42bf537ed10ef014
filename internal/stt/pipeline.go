// Package stt implements two-pass adaptive transcription.
//
// A run normalizes the input into a full-length artifact and a short probe,
// identifies the language on the probe with the fast model, swaps it for the
// full model chosen by that language and transcribes the full artifact. Every
// temporary file and model handle is scoped to the run.
package stt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nadzzz/voicebox/internal/asr"
	"github.com/nadzzz/voicebox/internal/media"
	"github.com/nadzzz/voicebox/internal/modelpool"
)

// DefaultProbeDuration is the length of the language identification probe.
const DefaultProbeDuration = 30 * time.Second

// Normalizer converts media into canonical WAV artifacts.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string, maxDuration time.Duration) (media.Artifact, error)
}

// ModelPool hands out model handles by tier.
type ModelPool interface {
	Acquire(ctx context.Context, tier asr.Tier, device, language string) (*modelpool.Handle, error)
	Release(h *modelpool.Handle)
	PurgeCache(tier asr.Tier)
}

// Options tunes a Pipeline.
type Options struct {
	// ProbeDuration caps the probe artifact. Defaults to 30s.
	ProbeDuration time.Duration

	// PurgeFastCache deletes the fast model's cache entries after detection.
	PurgeFastCache bool

	// FallbackLanguage is used when detection reports nothing. Defaults to "en".
	FallbackLanguage string

	// TempDir is the parent of per-run workspaces. Empty means os.TempDir.
	TempDir string
}

// Input is one transcription request.
type Input struct {
	MediaPath string
	Device    string

	// OnStage, when set, observes every state transition of the run.
	OnStage func(Stage)
}

// Pipeline sequences normalization, detection, model swap, transcription
// and cleanup.
type Pipeline struct {
	normalizer  Normalizer
	pool        ModelPool
	detector    Detector
	transcriber Transcriber
	opts        Options
}

// NewPipeline wires a pipeline over n and pool.
func NewPipeline(n Normalizer, pool ModelPool, opts Options) *Pipeline {
	if opts.ProbeDuration <= 0 {
		opts.ProbeDuration = DefaultProbeDuration
	}
	return &Pipeline{
		normalizer:  n,
		pool:        pool,
		detector:    Detector{Fallback: opts.FallbackLanguage},
		transcriber: DefaultTranscriber(),
		opts:        opts,
	}
}

// Run transcribes in.MediaPath. The returned error, if any, is a
// *StageError. Temporary files are removed before Run returns on every path.
func (p *Pipeline) Run(ctx context.Context, in Input) (tr Transcript, err error) {
	log := slog.With("media", in.MediaPath, "device", in.Device)
	started := time.Now()

	emit(in.OnStage, StageReceived)

	ws, err := newWorkspace(p.opts.TempDir)
	if err != nil {
		emit(in.OnStage, StageFailed)
		return Transcript{}, &StageError{Stage: StageNormalized, Err: fmt.Errorf("creating workspace: %w", err)}
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			log.Warn("removing workspace", "error", cerr)
		}
		if err != nil {
			log.Error("transcription failed", "error", err)
			emit(in.OnStage, StageFailed)
			return
		}
		emit(in.OnStage, StageCleaned)
	}()

	full, probe, err := p.normalize(ctx, in.MediaPath, ws)
	if err != nil {
		return Transcript{}, &StageError{Stage: StageNormalized, Err: err}
	}
	emit(in.OnStage, StageNormalized)
	log.Debug("media normalized", "duration", full.Duration)

	lang, err := p.detect(ctx, probe, in.Device)
	if err != nil {
		return Transcript{}, &StageError{Stage: StageLanguageDetected, Err: err}
	}
	emit(in.OnStage, StageLanguageDetected)
	log.Info("language detected", "language", lang)

	tr, err = p.transcribe(ctx, full, in.Device, lang)
	if err != nil {
		return Transcript{}, &StageError{Stage: StageTranscribed, Err: err}
	}
	emit(in.OnStage, StageTranscribed)

	log.Info("transcription complete",
		"language", tr.Language,
		"chars", len(tr.Text),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return tr, nil
}

func (p *Pipeline) normalize(ctx context.Context, mediaPath string, ws *workspace) (full, probe media.Artifact, err error) {
	if _, err := os.Stat(mediaPath); err != nil {
		return full, probe, &media.TranscodeError{Input: mediaPath, Err: err}
	}

	full, err = p.normalizer.Normalize(ctx, mediaPath, ws.path("full.wav"), 0)
	if err != nil {
		return full, probe, err
	}
	probe, err = p.normalizer.Normalize(ctx, mediaPath, ws.path("probe.wav"), p.opts.ProbeDuration)
	return full, probe, err
}

// detect holds the fast handle only for the duration of the call.
func (p *Pipeline) detect(ctx context.Context, probe media.Artifact, device string) (string, error) {
	h, err := p.pool.Acquire(ctx, asr.TierFast, device, "")
	if err != nil {
		return "", err
	}
	defer func() {
		p.pool.Release(h)
		if p.opts.PurgeFastCache {
			p.pool.PurgeCache(asr.TierFast)
		}
	}()

	det, err := p.detector.Detect(ctx, probe, h)
	if err != nil {
		return "", err
	}
	return det.Language, nil
}

func (p *Pipeline) transcribe(ctx context.Context, full media.Artifact, device, language string) (Transcript, error) {
	h, err := p.pool.Acquire(ctx, asr.TierFull, device, language)
	if err != nil {
		return Transcript{}, err
	}
	defer p.pool.Release(h)

	return p.transcriber.Transcribe(ctx, full, h, language)
}

func emit(cb func(Stage), s Stage) {
	if cb != nil {
		cb(s)
	}
}
