// Package storage archives finished transcripts.
package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// Sink stores transcript text under a name derived from the source media.
type Sink interface {
	// Name returns the backend identifier (e.g., "file", "s3").
	Name() string

	// Store writes text for the media called source and returns where it
	// was written.
	Store(ctx context.Context, source, text string) (string, error)
}

// TranscriptName returns "<stem>_transcript.txt" for a media file name.
func TranscriptName(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "media"
	}
	return stem + "_transcript.txt"
}
