// Voicebox transcribes audio and video files with a two-pass whisper
// pipeline (fast language detection, then a full pass with a model chosen
// for that language) and speaks text back through a local TTS engine.
//
// Usage:
//
//	voicebox [--config file] [command] [flags]
//
// Commands:
//
//	serve       run the HTTP/gRPC service (default)
//	transcribe  transcribe one media file to <stem>_transcript.txt
//	speak       synthesize text to a WAV file
//	pull        download the configured models into the cache
//	doctor      check tools, models and the model cache
//	config      print the effective configuration
//	version     print the version
//
// @title                      voicebox API
// @version                    1.0
// @description                Two-pass adaptive transcription and text-to-speech.
// @BasePath                   /
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-Key
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/nadzzz/voicebox/docs"
	"github.com/nadzzz/voicebox/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/voicebox.yaml)")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("voicebox %s\n", version)
		return
	}

	command, args := "serve", flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if command == "version" {
		fmt.Printf("voicebox %s\n", version)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// The service logs to stdout like any daemon; one-shot commands keep
	// stdout for their own output.
	if command == "serve" {
		config.SetupLogging(cfg.Logging)
	} else {
		config.SetupLoggingTo(os.Stderr, cfg.Logging)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch command {
	case "serve":
		runErr = runServe(ctx, cfg)
	case "transcribe":
		runErr = runTranscribe(ctx, cfg, args, os.Stdin, os.Stdout)
	case "speak":
		runErr = runSpeak(ctx, cfg, args, os.Stdin, os.Stdout)
	case "pull":
		runErr = runPull(ctx, cfg)
	case "doctor":
		runErr = runDoctor(cfg, os.Stdout)
	case "config":
		runErr = runConfig(cfg, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		slog.Error(command+" failed", "error", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: voicebox [--config file] [command] [flags]

Commands:
  serve       run the HTTP/gRPC service (default)
  transcribe  transcribe one media file to <stem>_transcript.txt
  speak       synthesize text to a WAV file
  pull        download the configured models into the cache
  doctor      check tools, models and the model cache
  config      print the effective configuration
  version     print the version

Flags:
`)
	flag.PrintDefaults()
}
