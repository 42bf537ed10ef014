// Package whispercpp implements asr.Loader on top of the whisper.cpp
// command-line tool (whisper-cli).
//
// Each decoding pass spawns one whisper-cli process. Segments are parsed from
// its stdout while the process is still running, so callers see them in the
// order whisper emits them. The auto-detected language is read from stderr
// once the process has exited.
package whispercpp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nadzzz/voicebox/internal/asr"
)

// Config configures the whisper.cpp engine.
type Config struct {
	// Binary is the whisper-cli executable name or path.
	Binary string

	// Threads is the CPU thread count passed to whisper (0 = whisper default).
	Threads int
}

// Engine loads whisper.cpp models.
type Engine struct {
	cfg      Config
	start    startFunc
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
}

// New creates a whisper.cpp engine.
func New(cfg Config) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = "whisper-cli"
	}
	return &Engine{
		cfg:      cfg,
		start:    execStart,
		lookPath: exec.LookPath,
		stat:     os.Stat,
	}
}

// Name returns the engine identifier.
func (e *Engine) Name() string { return "whispercpp" }

// Load validates the binary, model file and device, then returns a model
// bound to them. whisper-cli maps the weights itself on every pass, so there
// is no in-process state to allocate here.
func (e *Engine) Load(_ context.Context, spec asr.LoadSpec) (asr.Model, error) {
	binary, err := e.lookPath(e.cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", e.cfg.Binary, err)
	}

	info, err := e.stat(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("model weights for %q: %w", spec.ModelID, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("model weights for %q at %s are not a usable file", spec.ModelID, spec.Path)
	}

	deviceArgs, err := parseDevice(spec.Device)
	if err != nil {
		return nil, err
	}

	if spec.VADModelPath != "" {
		if _, err := e.stat(spec.VADModelPath); err != nil {
			return nil, fmt.Errorf("vad model: %w", err)
		}
	}

	slog.Debug("whisper model loaded", "model", spec.ModelID, "path", spec.Path, "device", spec.Device)
	return &model{
		engine:     e,
		binary:     binary,
		spec:       spec,
		deviceArgs: deviceArgs,
	}, nil
}

type model struct {
	engine     *Engine
	binary     string
	spec       asr.LoadSpec
	deviceArgs []string
	closed     bool
}

func (m *model) ID() string { return m.spec.ModelID }

// Decode spawns whisper-cli for one pass over audioPath.
func (m *model) Decode(ctx context.Context, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error) {
	if m.closed {
		return nil, &asr.DecodeError{ModelID: m.spec.ModelID, Detail: "model is closed"}
	}

	args := buildArgs(m.spec, m.deviceArgs, m.engine.cfg.Threads, audioPath, opts)
	slog.Debug("whisper decode", "model", m.spec.ModelID, "args", args)

	runCtx, cancel := context.WithCancel(ctx)
	proc, err := m.engine.start(runCtx, m.binary, args...)
	if err != nil {
		cancel()
		return nil, &asr.DecodeError{ModelID: m.spec.ModelID, Detail: "starting whisper", Err: err}
	}
	return newStream(m.spec.ModelID, opts.Language, proc, cancel), nil
}

func (m *model) Close() error {
	m.closed = true
	return nil
}

// buildArgs builds whisper-cli args for one decoding pass.
func buildArgs(spec asr.LoadSpec, deviceArgs []string, threads int, audioPath string, opts asr.DecodeOptions) []string {
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	beam := opts.BeamSize
	if beam < 1 {
		beam = 1
	}

	args := []string{
		"-m", spec.Path,
		"-f", audioPath,
		"-l", lang,
		"-bs", strconv.Itoa(beam),
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	args = append(args, deviceArgs...)
	if opts.VADFilter && spec.VADModelPath != "" {
		args = append(args, "--vad", "-vm", spec.VADModelPath, "-sns")
	}
	return args
}

// parseDevice maps a device selector to whisper-cli flags.
func parseDevice(device string) ([]string, error) {
	d := strings.ToLower(strings.TrimSpace(device))
	switch d {
	case "", "cpu":
		return []string{"-ng"}, nil
	case "gpu", "cuda", "metal", "vulkan":
		return []string{"-dev", "0"}, nil
	}

	name, idx, ok := strings.Cut(d, ":")
	if ok && (name == "cuda" || name == "gpu") {
		n, err := strconv.Atoi(idx)
		if err == nil && n >= 0 {
			return []string{"-dev", strconv.Itoa(n)}, nil
		}
	}
	return nil, fmt.Errorf("unsupported device %q", device)
}
