// Package asrtest provides in-memory asr engines for tests.
package asrtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nadzzz/voicebox/internal/asr"
)

// Stream replays a fixed list of segments exactly once.
type Stream struct {
	Segments []asr.Segment
	Lang     string
	// Err, when set, is returned in place of io.EOF at the end of the stream.
	Err error

	pos    int
	done   bool
	closed bool
}

// NewStream builds a stream emitting texts in order and reporting lang.
func NewStream(lang string, texts ...string) *Stream {
	segs := make([]asr.Segment, len(texts))
	for i, text := range texts {
		segs[i] = asr.Segment{Index: i, Text: text}
	}
	return &Stream{Segments: segs, Lang: lang}
}

// Next implements asr.SegmentStream.
func (s *Stream) Next() (asr.Segment, error) {
	if s.done {
		return asr.Segment{}, asr.ErrStreamConsumed
	}
	if s.pos < len(s.Segments) {
		seg := s.Segments[s.pos]
		s.pos++
		return seg, nil
	}
	s.done = true
	if s.Err != nil {
		return asr.Segment{}, s.Err
	}
	return asr.Segment{}, io.EOF
}

// Language implements asr.SegmentStream.
func (s *Stream) Language() string { return s.Lang }

// Close implements asr.SegmentStream.
func (s *Stream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool { return s.closed }

// DecodeCall records one Decode invocation.
type DecodeCall struct {
	ModelID   string
	AudioPath string
	Opts      asr.DecodeOptions
}

// Loader is a fake asr.Loader that tracks how many models are alive at once.
type Loader struct {
	// Decoder produces the stream for each Decode call. When nil, an empty
	// English stream is returned.
	Decoder func(modelID, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error)

	// LoadErr fails Load for the given model ids.
	LoadErr map[string]error

	// StatWeights makes Load fail when spec.Path does not exist, like a real
	// engine mapping its weights.
	StatWeights bool

	mu      sync.Mutex
	loads   []asr.LoadSpec
	decodes []DecodeCall
	live    int
	maxLive int
}

// Name implements asr.Loader.
func (l *Loader) Name() string { return "fake" }

// Load implements asr.Loader.
func (l *Loader) Load(_ context.Context, spec asr.LoadSpec) (asr.Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loads = append(l.loads, spec)
	if err := l.LoadErr[spec.ModelID]; err != nil {
		return nil, err
	}
	if l.StatWeights {
		if _, err := os.Stat(spec.Path); err != nil {
			return nil, fmt.Errorf("model weights: %w", err)
		}
	}
	l.live++
	if l.live > l.maxLive {
		l.maxLive = l.live
	}
	return &model{loader: l, id: spec.ModelID}, nil
}

// Loads returns the specs passed to Load, in order.
func (l *Loader) Loads() []asr.LoadSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]asr.LoadSpec(nil), l.loads...)
}

// Decodes returns every Decode call, in order.
func (l *Loader) Decodes() []DecodeCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]DecodeCall(nil), l.decodes...)
}

// Live returns the number of loaded, unclosed models.
func (l *Loader) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// MaxLive returns the highest number of models that were alive together.
func (l *Loader) MaxLive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxLive
}

type model struct {
	loader *Loader
	id     string
	closed bool
}

func (m *model) ID() string { return m.id }

func (m *model) Decode(_ context.Context, audioPath string, opts asr.DecodeOptions) (asr.SegmentStream, error) {
	m.loader.mu.Lock()
	m.loader.decodes = append(m.loader.decodes, DecodeCall{ModelID: m.id, AudioPath: audioPath, Opts: opts})
	decoder := m.loader.Decoder
	m.loader.mu.Unlock()

	if decoder == nil {
		return NewStream("en"), nil
	}
	return decoder(m.id, audioPath, opts)
}

func (m *model) Close() error {
	m.loader.mu.Lock()
	defer m.loader.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.loader.live--
	}
	return nil
}
