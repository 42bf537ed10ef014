// Package diagnostics checks the external tools, model files and directories
// voicebox depends on, for the doctor command and the readiness probe.
package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Item is one diagnostic result.
type Item struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
	Hint    string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Report is the combined result of a run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	HasFailures bool      `json:"has_failures" yaml:"has_failures"`
	Items       []Item    `json:"items" yaml:"items"`
}

// Err returns an error naming the failed checks, or nil.
func (r Report) Err() error {
	var failed []string
	for _, it := range r.Items {
		if it.Status == StatusFail {
			failed = append(failed, it.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("failed checks: %s", strings.Join(failed, ", "))
}

// Settings is what gets checked.
type Settings struct {
	// Tools maps a display name to the executable to find.
	Tools map[string]string

	// CacheDir must be creatable and writable.
	CacheDir string

	// Models maps model ids to their expected weight files.
	Models map[string]string

	// Download reports whether missing models are fetched on demand, which
	// downgrades a missing model from a failure to a warning.
	Download bool
}

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
) *Checker {
	c := NewChecker()
	c.lookPath = lookPath
	c.stat = stat
	return c
}

// Run executes all checks in a stable order.
func (c *Checker) Run(s Settings) Report {
	var items []Item
	for _, name := range sortedKeys(s.Tools) {
		items = append(items, c.checkTool(name, s.Tools[name]))
	}
	items = append(items, c.checkCacheDir(s.CacheDir))
	for _, id := range sortedKeys(s.Models) {
		items = append(items, c.checkModel(id, s.Models[id], s.Download))
	}

	report := Report{GeneratedAt: time.Now().UTC(), Items: items}
	for _, it := range items {
		if it.Status == StatusFail {
			report.HasFailures = true
			break
		}
	}
	return report
}

// checkTool verifies a required executable is on PATH.
func (c *Checker) checkTool(name, binary string) Item {
	item := Item{ID: "tool_" + name, Name: name}
	path, err := c.lookPath(binary)
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Tool not found in PATH: %s", binary)
		item.Hint = "Install it or set its path in the voicebox config."
		return item
	}
	item.Status = StatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkCacheDir validates that model files can be written.
func (c *Checker) checkCacheDir(dir string) Item {
	item := Item{ID: "cache_dir", Name: "Model cache"}
	if strings.TrimSpace(dir) == "" {
		item.Status = StatusFail
		item.Message = "Model cache directory is empty."
		item.Hint = "Set models.cache_dir."
		return item
	}
	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Cannot create model cache: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}
	f, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Model cache is not writable: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}
	name := f.Name()
	_ = f.Close()
	_ = c.remove(name)

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// checkModel reports whether a configured model is present.
func (c *Checker) checkModel(id, path string, download bool) Item {
	item := Item{ID: "model_" + id, Name: "Model " + id}
	info, err := c.stat(path)
	switch {
	case err == nil && !info.IsDir() && info.Size() > 0:
		item.Status = StatusPass
		item.Message = fmt.Sprintf("Found %s (%s)", path, humanize.Bytes(uint64(info.Size())))
	case err != nil && !errors.Is(err, os.ErrNotExist):
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Cannot access %s: %v", path, err)
	case download:
		item.Status = StatusWarn
		item.Message = fmt.Sprintf("Not cached yet: %s", path)
		item.Hint = "It is downloaded on first use; run `voicebox pull` to fetch it now."
	default:
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Missing: %s", path)
		item.Hint = "Run `voicebox pull` or enable models.download."
	}
	return item
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
