// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP/WebSocket, gRPC) implements this interface and is
// started by the serve command. Transports translate their wire format into
// Service calls and never touch the pipeline directly.
package transport

import (
	"context"

	"github.com/nadzzz/voicebox/internal/message"
	"github.com/nadzzz/voicebox/internal/tts"
)

// Service handles decoded requests. *dispatch.Service implements it.
type Service interface {
	// Transcribe runs the two-pass pipeline on an uploaded media file.
	Transcribe(ctx context.Context, req *message.TranscribeRequest) (*message.TranscribeResult, error)

	// Synthesize speaks text and returns a WAV file.
	Synthesize(ctx context.Context, req message.SynthesizeRequest) (*tts.SynthesizeResult, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting requests and hands them to svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
