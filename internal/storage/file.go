package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes transcripts into a local directory.
type FileSink struct {
	dir string
}

// NewFileSink returns a sink writing into dir. An empty dir writes each
// transcript beside its source media.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Name returns the backend identifier.
func (s *FileSink) Name() string { return "file" }

// Store writes text to <dir>/<stem>_transcript.txt, replacing any previous file.
func (s *FileSink) Store(_ context.Context, source, text string) (string, error) {
	dir := s.dir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating transcript dir: %w", err)
	}

	path := filepath.Join(dir, TranscriptName(source))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}
