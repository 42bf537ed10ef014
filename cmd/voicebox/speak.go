package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/dispatch"
	"github.com/nadzzz/voicebox/internal/message"
	"github.com/nadzzz/voicebox/internal/tts"
)

func runSpeak(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	text := fs.String("t", "", "text to convert (prompted for when empty)")
	out := fs.String("o", "output.wav", "output WAV file")
	rate := fs.Int("r", tts.DefaultRate, fmt.Sprintf("speech rate in wpm (%d-%d)", tts.MinRate, tts.MaxRate))
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *text == "" {
		var err error
		if *text, err = promptLine(stdin, stdout, "Enter text:\n> "); err != nil {
			return err
		}
	}
	if strings.TrimSpace(*text) == "" {
		return errors.New("no text given")
	}

	synth, err := newSynthesizer(cfg)
	if err != nil {
		return err
	}
	defer synth.Close()

	res, err := dispatch.New(nil, synth, nil).Synthesize(ctx, message.SynthesizeRequest{Text: *text, Rate: *rate})
	if err != nil {
		return err
	}

	path := wavPath(*out)
	if err := os.WriteFile(path, res.Audio, 0o644); err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(stdout, "Saved → %s (%s)\n", abs, humanize.Bytes(uint64(len(res.Audio))))
	return nil
}

// wavPath forces a .wav extension on the output name.
func wavPath(name string) string {
	if name == "" {
		name = "output"
	}
	if strings.EqualFold(filepath.Ext(name), ".wav") {
		return name
	}
	return name + ".wav"
}
