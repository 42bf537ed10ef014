// Package http implements the HTTP/WebSocket transport for voicebox.
//
// This transport exposes a REST API for transcription and speech synthesis
// and a WebSocket endpoint that streams pipeline progress while a
// transcription runs. Every route except /health and the Swagger UI requires
// the X-API-Key header.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/transport"
)

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	cfg    config.HTTPConfig
	apiKey string
	server *http.Server
}

// New creates a new HTTP transport. apiKey must be non-empty.
func New(cfg config.HTTPConfig, apiKey string) *Transport {
	return &Transport{cfg: cfg, apiKey: apiKey}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.cfg.Port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.cfg.Port, "rate_limit", t.cfg.RateLimit)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Handler builds the router. It is exported for tests.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	h := &handlers{svc: svc, maxUpload: int64(t.cfg.MaxUploadMB) << 20}
	if h.maxUpload <= 0 {
		h.maxUpload = 512 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	if t.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(t.cfg.RateLimit, time.Minute))
	}

	r.Get("/health", handleHealth)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Group(func(pr chi.Router) {
		pr.Use(requireAPIKey(t.apiKey))
		pr.Post("/transcribe", h.transcribe)
		pr.Post("/tts", h.synthesize)
		pr.Get("/ws/transcribe", h.streamTranscribe)
	})

	return r
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
