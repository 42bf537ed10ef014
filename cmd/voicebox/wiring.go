package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nadzzz/voicebox/internal/asr/whispercpp"
	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/diagnostics"
	"github.com/nadzzz/voicebox/internal/media"
	"github.com/nadzzz/voicebox/internal/modelpool"
	"github.com/nadzzz/voicebox/internal/storage"
	"github.com/nadzzz/voicebox/internal/stt"
	"github.com/nadzzz/voicebox/internal/tts"
	"github.com/nadzzz/voicebox/internal/tts/espeak"
	"github.com/nadzzz/voicebox/internal/tts/piper"
)

func newModelPool(cfg *config.Config) *modelpool.Pool {
	engine := whispercpp.New(whispercpp.Config{
		Binary:  cfg.Whisper.Binary,
		Threads: cfg.Whisper.Threads,
	})
	return modelpool.New(modelpool.Config{
		CacheDir:         cfg.Models.CacheDir,
		Download:         cfg.Models.Download,
		BaseURL:          cfg.Models.BaseURL,
		FastModel:        cfg.Models.Fast,
		FullEnglish:      cfg.Models.FullEnglish,
		FullMultilingual: cfg.Models.FullMultilingual,
		VADModel:         cfg.Models.VADModel,
	}, engine)
}

func newPipeline(cfg *config.Config, pool *modelpool.Pool) *stt.Pipeline {
	// A purged model only comes back through a download.
	purge := cfg.Models.PurgeFastCache && cfg.Models.Download
	return stt.NewPipeline(media.NewNormalizer(cfg.Media.FFmpegPath), pool, stt.Options{
		ProbeDuration:    time.Duration(cfg.Media.ProbeSeconds) * time.Second,
		PurgeFastCache:   purge,
		FallbackLanguage: cfg.Language.Fallback,
	})
}

func newSynthesizer(cfg *config.Config) (tts.Synthesizer, error) {
	switch cfg.TTS.Backend {
	case "espeak":
		return espeak.New(cfg.TTS.Espeak), nil
	case "piper":
		return piper.New(cfg.TTS.Piper), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
	}
}

// newSink returns the configured transcript archive, or nil for "none".
func newSink(ctx context.Context, cfg *config.Config) (storage.Sink, error) {
	switch cfg.Storage.Backend {
	case "", "none":
		return nil, nil
	case "file":
		return storage.NewFileSink(cfg.Storage.File.Dir), nil
	case "s3":
		sink, err := storage.NewS3Sink(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// configuredModels lists the model ids the pipeline may load.
func configuredModels(cfg *config.Config) []string {
	ids := []string{cfg.Models.Fast, cfg.Models.FullEnglish, cfg.Models.FullMultilingual}
	if cfg.Models.VADModel != "" {
		ids = append(ids, cfg.Models.VADModel)
	}
	return ids
}

func diagnosticSettings(cfg *config.Config, pool *modelpool.Pool) diagnostics.Settings {
	s := diagnostics.Settings{
		Tools: map[string]string{
			"ffmpeg":  cfg.Media.FFmpegPath,
			"whisper": cfg.Whisper.Binary,
		},
		CacheDir: pool.Config().CacheDir,
		Models:   make(map[string]string),
		Download: cfg.Models.Download,
	}
	if cfg.TTS.Backend == "espeak" {
		s.Tools["espeak"] = cfg.TTS.Espeak.Binary
	}
	for _, id := range configuredModels(cfg) {
		s.Models[id] = pool.Path(id)
	}
	return s
}
