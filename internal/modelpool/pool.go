// Package modelpool hands out speech models by tier and keeps the on-disk
// model cache in shape.
//
// A run acquires a fast-tier handle for language identification, releases it,
// then acquires a full-tier handle chosen by the detected language. Release
// closes the model and asks the runtime to return freed memory to the OS, so
// the two tiers are never resident together within a run.
package modelpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nadzzz/voicebox/internal/asr"
)

// Config configures model selection and the model cache.
type Config struct {
	// CacheDir is the cache root. Its layout is opaque to callers.
	CacheDir string

	// Download fetches missing models from BaseURL when true.
	Download bool

	BaseURL    string
	VADBaseURL string

	// FastModel is the language identification model.
	FastModel string

	// FullEnglish is used when the detected language is English.
	FullEnglish string

	// FullMultilingual is used for every other language.
	FullMultilingual string

	// VADModel is the voice-activity model for the full pass. Empty disables
	// voice-activity filtering.
	VADModel string
}

// DefaultConfig returns the stock tier mapping.
func DefaultConfig() Config {
	return Config{
		CacheDir:         DefaultCacheDir(),
		Download:         true,
		BaseURL:          DefaultBaseURL,
		VADBaseURL:       DefaultVADBaseURL,
		FastModel:        "tiny",
		FullEnglish:      "small.en",
		FullMultilingual: "small",
		VADModel:         "silero-v5.1.2",
	}
}

// DefaultCacheDir returns ~/.cache/voicebox/models, or a temp-dir fallback
// when the user cache directory cannot be determined.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "voicebox", "models")
	}
	return filepath.Join(os.TempDir(), "voicebox", "models")
}

// LoadError reports that a model could not be resolved or loaded.
type LoadError struct {
	Tier    asr.Tier
	ModelID string
	Device  string
	Err     error
}

// Error formats the load failure.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s model %q on %s: %v", e.Tier, e.ModelID, e.Device, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }

// ErrReleased is returned when a released handle is used.
var ErrReleased = errors.New("modelpool: handle already released")

// Pool acquires and releases model handles. It is safe for concurrent use.
type Pool struct {
	cfg    Config
	loader asr.Loader
	client *http.Client
	group  singleflight.Group

	// reclaim returns freed memory to the OS after a release.
	reclaim func()

	mu    sync.Mutex
	live  int
	inUse map[string]int
}

// New creates a pool backed by loader.
func New(cfg Config, loader asr.Loader) *Pool {
	def := DefaultConfig()
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.VADBaseURL == "" {
		cfg.VADBaseURL = def.VADBaseURL
	}
	if cfg.FastModel == "" {
		cfg.FastModel = def.FastModel
	}
	if cfg.FullEnglish == "" {
		cfg.FullEnglish = def.FullEnglish
	}
	if cfg.FullMultilingual == "" {
		cfg.FullMultilingual = def.FullMultilingual
	}

	return &Pool{
		cfg:     cfg,
		loader:  loader,
		client:  http.DefaultClient,
		reclaim: reclaimMemory,
		inUse:   make(map[string]int),
	}
}

// Config returns the effective pool configuration.
func (p *Pool) Config() Config { return p.cfg }

// ModelFor returns the model id used for tier. For the full tier the choice
// depends only on language.
func (p *Pool) ModelFor(tier asr.Tier, language string) string {
	if tier == asr.TierFast {
		return p.cfg.FastModel
	}
	if strings.EqualFold(strings.TrimSpace(language), "en") {
		return p.cfg.FullEnglish
	}
	return p.cfg.FullMultilingual
}

// Acquire resolves, downloads if needed, and loads the model for tier on
// device. language is only consulted for the full tier.
func (p *Pool) Acquire(ctx context.Context, tier asr.Tier, device, language string) (*Handle, error) {
	modelID := p.ModelFor(tier, language)
	fail := func(err error) (*Handle, error) {
		return nil, &LoadError{Tier: tier, ModelID: modelID, Device: device, Err: err}
	}

	// The file is busy from before it is resolved until the handle is
	// released, so a concurrent purge never removes it under this run.
	path := p.Path(modelID)
	p.mu.Lock()
	p.inUse[path]++
	p.mu.Unlock()
	failBusy := func(err error) (*Handle, error) {
		p.mu.Lock()
		p.unmark(path)
		p.mu.Unlock()
		return fail(err)
	}

	if _, err := p.Resolve(ctx, modelID); err != nil {
		return failBusy(err)
	}

	spec := asr.LoadSpec{ModelID: modelID, Path: path, Device: device}
	if tier == asr.TierFull && p.cfg.VADModel != "" {
		vadPath, err := p.Resolve(ctx, p.cfg.VADModel)
		if err != nil {
			return failBusy(fmt.Errorf("vad model: %w", err))
		}
		spec.VADModelPath = vadPath
	}

	model, err := p.loader.Load(ctx, spec)
	if err != nil {
		return failBusy(err)
	}

	p.mu.Lock()
	p.live++
	live := p.live
	p.mu.Unlock()

	slog.Info("model acquired",
		"tier", tier,
		"model", modelID,
		"device", device,
		"engine", p.loader.Name(),
		"live", live,
	)
	return &Handle{
		Tier:    tier,
		Device:  device,
		ModelID: modelID,
		path:    path,
		model:   model,
		pool:    p,
	}, nil
}

// Release closes the handle's model and reclaims memory. Releasing a handle
// twice is a no-op.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	model := h.model
	h.model = nil
	h.mu.Unlock()

	if err := model.Close(); err != nil {
		slog.Warn("closing model", "model", h.ModelID, "error", err)
	}

	p.mu.Lock()
	p.live--
	p.unmark(h.path)
	live := p.live
	p.mu.Unlock()

	p.reclaim()
	slog.Info("model released", "tier", h.Tier, "model", h.ModelID, "live", live)
}

// unmark drops one busy reference; p.mu must be held.
func (p *Pool) unmark(path string) {
	if p.inUse[path] <= 1 {
		delete(p.inUse, path)
		return
	}
	p.inUse[path]--
}

// PurgeCache removes cached files for the model ids of tier. Files that are
// in use by another run in this process are kept. Errors are logged and
// otherwise ignored.
func (p *Pool) PurgeCache(tier asr.Tier) {
	ids := []string{p.cfg.FastModel}
	if tier == asr.TierFull {
		ids = []string{p.cfg.FullEnglish, p.cfg.FullMultilingual}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		// Direct file paths belong to the user, never to the cache.
		if isFilePath(id) {
			continue
		}
		pattern := filepath.Join(p.cfg.CacheDir, strings.TrimSuffix(fileName(id), ".bin")+"*")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			slog.Debug("purge glob failed", "pattern", pattern, "error", err)
			continue
		}
		for _, m := range matches {
			if p.inUse[m] > 0 {
				slog.Debug("purge skipped, model in use", "path", m)
				continue
			}
			if err := os.RemoveAll(m); err != nil {
				slog.Debug("purge failed", "path", m, "error", err)
				continue
			}
			slog.Debug("purged cached model", "path", m)
		}
	}
}

// Live returns the number of handles currently acquired.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Path returns where modelID lives on disk, without checking or fetching it.
func (p *Pool) Path(modelID string) string {
	if isFilePath(modelID) {
		return modelID
	}
	return filepath.Join(p.cfg.CacheDir, Lookup(modelID).FileName)
}

// Resolve returns the on-disk path for modelID, downloading it into the
// cache when it is missing and downloads are enabled. Concurrent calls for
// the same file share one download.
func (p *Pool) Resolve(ctx context.Context, modelID string) (string, error) {
	if modelID == "" {
		return "", errors.New("model id is empty")
	}
	if isFilePath(modelID) {
		if _, err := os.Stat(modelID); err != nil {
			return "", fmt.Errorf("model file: %w", err)
		}
		return modelID, nil
	}

	entry := Lookup(modelID)
	path := p.Path(modelID)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}
	if !p.cfg.Download {
		return "", fmt.Errorf("model %q not found in %s and downloads are disabled", modelID, p.cfg.CacheDir)
	}

	base := p.cfg.BaseURL
	if isVAD(modelID) {
		base = p.cfg.VADBaseURL
	}
	url := strings.TrimSuffix(base, "/") + "/" + entry.FileName

	// The download is shared by every waiter, so it runs detached from the
	// first caller's cancellation. Each waiter still gives up on its own ctx.
	dl := context.WithoutCancel(ctx)
	ch := p.group.DoChan(path, func() (any, error) {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return nil, nil
		}
		return nil, download(dl, p.client, url, path)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("model download shared", "model", modelID)
		}
		return path, nil
	}
}

// Handle is an acquired model bound to a tier and device.
type Handle struct {
	Tier    asr.Tier
	Device  string
	ModelID string

	path  string
	pool  *Pool
	mu    sync.Mutex
	model asr.Model

	released bool
}

// Decode runs one decoding pass with the handle's model.
func (h *Handle) Decode(ctx context.Context, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error) {
	h.mu.Lock()
	model := h.model
	h.mu.Unlock()
	if model == nil {
		return nil, ErrReleased
	}
	return model.Decode(ctx, audioPath, opts)
}

// Release returns the handle to its pool.
func (h *Handle) Release() { h.pool.Release(h) }

func reclaimMemory() {
	runtime.GC()
	debug.FreeOSMemory()
}
