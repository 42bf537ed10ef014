package modelpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// download fetches url into dest atomically: the body is written to a temp
// file in the same directory and renamed into place once complete.
func download(ctx context.Context, client *http.Client, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating model cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s failed: HTTP %d", url, resp.StatusCode)
	}

	// The temp name must not match the ggml-<id>* purge pattern.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	pw := &progressWriter{
		writer: tmp,
		total:  resp.ContentLength,
		label:  filepath.Base(dest),
		next:   progressStep,
	}
	slog.Info("downloading model",
		"url", url,
		"dest", dest,
		"size", sizeLabel(resp.ContentLength),
	)

	written, err := io.Copy(pw, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return fmt.Errorf("download %s returned an empty body", url)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	slog.Info("model downloaded", "dest", dest, "size", humanize.Bytes(uint64(written)))
	return nil
}

const progressStep = 0.25

// progressWriter logs download progress at fixed fractions of the total.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
	next    float64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		frac := float64(pw.written) / float64(pw.total)
		if frac >= pw.next && frac < 1 {
			slog.Debug("download progress",
				"file", pw.label,
				"written", humanize.Bytes(uint64(pw.written)),
				"total", humanize.Bytes(uint64(pw.total)),
				"percent", int(frac*100),
			)
			for pw.next <= frac {
				pw.next += progressStep
			}
		}
	}
	return n, err
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}
