package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/dispatch"
	"github.com/nadzzz/voicebox/internal/storage"
)

// previewChars is how much of the transcript the CLI echoes.
const previewChars = 800

var stageLabels = map[string]string{
	"normalized":        "Audio extracted",
	"language_detected": "Language detected",
	"transcribed":       "Full transcription finished",
}

func runTranscribe(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	device := fs.String("device", dispatch.DefaultDevice, "inference device: cpu | cuda | cuda:N")
	outDir := fs.String("out-dir", "", "directory for the transcript (default: beside the input)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := fs.Arg(0)
	if path == "" {
		var err error
		if path, err = promptLine(stdin, stdout, "Enter the path to your media file: "); err != nil {
			return err
		}
	}
	if path == "" {
		return errors.New("no media file given")
	}

	svc := dispatch.New(newPipeline(cfg, newModelPool(cfg)), nil, storage.NewFileSink(*outDir))
	res, err := svc.TranscribeFile(ctx, path, *device, func(stage string) {
		if label, ok := stageLabels[stage]; ok {
			fmt.Fprintf(stdout, "• %s\n", label)
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "  Detected language: %s\n", res.Language)
	if res.StoredAt != "" {
		fmt.Fprintf(stdout, "\nTranscript saved to: %s\n", res.StoredAt)
	}
	fmt.Fprintf(stdout, "\nTranscript preview:\n\n%s\n", preview(res.Transcript, previewChars))
	return nil
}

// promptLine asks for one line on stdin, trimming whitespace and quotes
// left by drag-and-drop into a terminal.
func promptLine(stdin io.Reader, stdout io.Writer, prompt string) (string, error) {
	fmt.Fprint(stdout, prompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	return strings.Trim(line, `"'`), nil
}

// preview returns the first n runes of s, with "..." when truncated.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
