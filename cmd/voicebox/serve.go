package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/diagnostics"
	"github.com/nadzzz/voicebox/internal/dispatch"
	"github.com/nadzzz/voicebox/internal/health"
	"github.com/nadzzz/voicebox/internal/transport"
	grpctransport "github.com/nadzzz/voicebox/internal/transport/grpc"
	httptransport "github.com/nadzzz/voicebox/internal/transport/http"
)

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("voicebox starting", "version", version)

	if err := config.LoadAPIKey(cfg); err != nil {
		return err
	}

	pool := newModelPool(cfg)
	pipeline := newPipeline(cfg, pool)

	synth, err := newSynthesizer(cfg)
	if err != nil {
		return err
	}
	defer synth.Close()
	slog.Info("using tts backend", "backend", synth.Name())

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	if sink != nil {
		slog.Info("archiving transcripts", "backend", sink.Name())
	}

	svc := dispatch.New(pipeline, synth, sink)

	// Initialize enabled transports.
	var transports []transport.Transport
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP, cfg.Auth.APIKey))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	// Report missing tools and models up front; readiness keeps checking.
	checker := diagnostics.NewChecker()
	settings := diagnosticSettings(cfg, pool)
	for _, item := range checker.Run(settings).Items {
		if item.Status != diagnostics.StatusPass {
			slog.Warn("startup check", "check", item.Name, "status", item.Status, "message", item.Message)
		}
	}

	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.AddCheck("dependencies", func() error { return checker.Run(settings).Err() })
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, svc); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	healthServer.SetReady(true)
	slog.Info("voicebox ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort,
		"fast_model", cfg.Models.Fast,
		"full_models", []string{cfg.Models.FullEnglish, cfg.Models.FullMultilingual})

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("voicebox stopped")
	return nil
}
