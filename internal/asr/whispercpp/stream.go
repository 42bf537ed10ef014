package whispercpp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/voicebox/internal/asr"
)

var (
	// [00:00:00.000 --> 00:00:02.480]   And so my fellow Americans
	segmentLine = regexp.MustCompile(`^\[(\d+):(\d{2}):(\d{2})\.(\d{3}) --> (\d+):(\d{2}):(\d{2})\.(\d{3})\]\s?(.*)$`)

	// whisper_full_with_state: auto-detected language: en (p = 0.967854)
	detectedLanguage = regexp.MustCompile(`auto-detected language: ([a-z]{2,3})\b`)
)

// process is a started whisper-cli invocation.
type process interface {
	Stdout() io.Reader
	Wait() error
	Stderr() string
}

// startFunc starts a process; tests replace it with a fake.
type startFunc func(ctx context.Context, name string, args ...string) (process, error)

// execProcess wraps os/exec with a piped stdout and a bounded stderr tail.
type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr *tailBuffer
}

func execStart(ctx context.Context, name string, args ...string) (process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{max: 64 << 10}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }
func (p *execProcess) Stderr() string    { return p.stderr.String() }

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// stream turns whisper-cli stdout into an asr.SegmentStream.
type stream struct {
	modelID  string
	fixed    string
	proc     process
	cancel   context.CancelFunc
	scanner  *bufio.Scanner
	next     int
	language string
	done     bool
	waited   bool
}

func newStream(modelID, fixedLanguage string, proc process, cancel context.CancelFunc) *stream {
	sc := bufio.NewScanner(proc.Stdout())
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	return &stream{
		modelID: modelID,
		fixed:   fixedLanguage,
		proc:    proc,
		cancel:  cancel,
		scanner: sc,
	}
}

// Next returns the next parsed segment. Lines that are not segment lines
// (progress output, blank lines) are skipped.
func (s *stream) Next() (asr.Segment, error) {
	if s.done {
		return asr.Segment{}, asr.ErrStreamConsumed
	}

	for s.scanner.Scan() {
		seg, ok := parseSegment(s.scanner.Text())
		if !ok {
			continue
		}
		seg.Index = s.next
		s.next++
		return seg, nil
	}

	s.done = true
	scanErr := s.scanner.Err()
	if scanErr != nil {
		// whisper-cli may still be writing; stop it and empty the pipe before
		// reaping so Wait cannot block on a full stdout.
		s.cancel()
		_, _ = io.Copy(io.Discard, s.proc.Stdout())
	}
	waitErr := s.wait()
	stderr := s.proc.Stderr()

	if waitErr != nil || scanErr != nil {
		err := errors.Join(waitErr, scanErr)
		return asr.Segment{}, &asr.DecodeError{ModelID: s.modelID, Detail: lastLine(stderr), Err: err}
	}

	s.language = s.fixed
	if m := detectedLanguage.FindStringSubmatch(stderr); m != nil {
		s.language = m[1]
	}
	return asr.Segment{}, io.EOF
}

// Language returns the detected language, or the fixed decode language.
func (s *stream) Language() string { return s.language }

// Close kills whisper-cli if it is still running and reaps it.
func (s *stream) Close() error {
	s.done = true
	s.cancel()
	if !s.waited {
		_, _ = io.Copy(io.Discard, s.proc.Stdout())
		_ = s.wait()
	}
	return nil
}

func (s *stream) wait() error {
	if s.waited {
		return nil
	}
	s.waited = true
	err := s.proc.Wait()
	s.cancel()
	return err
}

func parseSegment(line string) (asr.Segment, bool) {
	m := segmentLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return asr.Segment{}, false
	}
	return asr.Segment{
		Start: timestamp(m[1], m[2], m[3], m[4]),
		End:   timestamp(m[5], m[6], m[7], m[8]),
		Text:  m[9],
	}, true
}

func timestamp(h, m, s, ms string) time.Duration {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mss, _ := strconv.Atoi(ms)
	return time.Duration(hh)*time.Hour +
		time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second +
		time.Duration(mss)*time.Millisecond
}

// lastLine returns the last non-empty line of whisper's stderr.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
