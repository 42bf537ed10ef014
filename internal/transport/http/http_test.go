package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/nadzzz/voicebox/internal/config"
	"github.com/nadzzz/voicebox/internal/dispatch"
	"github.com/nadzzz/voicebox/internal/media"
	"github.com/nadzzz/voicebox/internal/message"
	"github.com/nadzzz/voicebox/internal/stt"
	"github.com/nadzzz/voicebox/internal/tts"
)

const testKey = "secret-key"

// fakeService records requests and returns canned results.
type fakeService struct {
	req       *message.TranscribeRequest
	media     string
	stages    []string
	result    *message.TranscribeResult
	err       error
	synthReq  message.SynthesizeRequest
	synthResp *tts.SynthesizeResult
	synthErr  error
}

func (f *fakeService) Transcribe(_ context.Context, req *message.TranscribeRequest) (*message.TranscribeResult, error) {
	f.req = req
	data, _ := io.ReadAll(req.Media)
	f.media = string(data)
	for _, s := range f.stages {
		if req.OnStage != nil {
			req.OnStage(s)
		}
	}
	return f.result, f.err
}

func (f *fakeService) Synthesize(_ context.Context, req message.SynthesizeRequest) (*tts.SynthesizeResult, error) {
	f.synthReq = req
	return f.synthResp, f.synthErr
}

func newHandler(svc *fakeService, cfg config.HTTPConfig) http.Handler {
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 1
	}
	return New(cfg, testKey).Handler(svc)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

// TestHealthNeedsNoKey checks GET /health.
func TestHealthNeedsNoKey(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&fakeService{}, config.HTTPConfig{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

// TestProtectedRoutesRequireKey checks the API key guard.
func TestProtectedRoutesRequireKey(t *testing.T) {
	h := newHandler(&fakeService{}, config.HTTPConfig{})

	for _, path := range []string{"/transcribe", "/tts?text=hi"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, rec.Code)
		}
		var body ErrorResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Detail != "Invalid or missing API key" {
			t.Fatalf("%s detail = %q", path, body.Detail)
		}
	}
}

// TestTranscribeUpload checks the multipart upload path.
func TestTranscribeUpload(t *testing.T) {
	svc := &fakeService{result: &message.TranscribeResult{Transcript: "Hello world", Language: "en"}}
	body, ctype := multipartBody(t, "file", "clip.mp4", "video bytes")

	req := httptest.NewRequest(http.MethodPost, "/transcribe?device=cuda", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	newHandler(svc, config.HTTPConfig{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var got message.TranscribeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Transcript != "Hello world" || got.Language != "en" {
		t.Fatalf("response = %+v", got)
	}
	if svc.req.Filename != "clip.mp4" || svc.req.Device != "cuda" || svc.media != "video bytes" {
		t.Fatalf("request = %+v media=%q", svc.req, svc.media)
	}
	if rec.Header().Get("X-Request-ID") != svc.req.ID || svc.req.ID == "" {
		t.Fatalf("request id header = %q, id = %q", rec.Header().Get("X-Request-ID"), svc.req.ID)
	}
}

// TestTranscribeMissingFile checks the 400 for a form without "file".
func TestTranscribeMissingFile(t *testing.T) {
	body, ctype := multipartBody(t, "other", "a.wav", "x")
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	newHandler(&fakeService{}, config.HTTPConfig{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestTranscribeErrorStatus checks the error mapping.
func TestTranscribeErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not media", &stt.StageError{Stage: stt.StageNormalized, Err: &media.TranscodeError{Input: "a.txt", ExitCode: 1}}, http.StatusUnprocessableEntity},
		{"load failure", &stt.StageError{Stage: stt.StageLanguageDetected, Err: errors.New("no weights")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ctype := multipartBody(t, "file", "a.txt", "plain text")
			req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
			req.Header.Set("Content-Type", ctype)
			req.Header.Set("X-API-Key", testKey)
			rec := httptest.NewRecorder()
			newHandler(&fakeService{err: tc.err}, config.HTTPConfig{}).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

// TestSynthesize checks POST /tts.
func TestSynthesize(t *testing.T) {
	svc := &fakeService{synthResp: &tts.SynthesizeResult{Audio: []byte("RIFFdata"), ContentType: "audio/wav"}}
	req := httptest.NewRequest(http.MethodPost, "/tts?text=hello+there&rate=150", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	newHandler(svc, config.HTTPConfig{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "audio/wav" || rec.Body.String() != "RIFFdata" {
		t.Fatalf("response = %q %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if svc.synthReq.Text != "hello there" || svc.synthReq.Rate != 150 {
		t.Fatalf("request = %+v", svc.synthReq)
	}
}

// TestSynthesizeBadRequests checks the 400 paths of POST /tts.
func TestSynthesizeBadRequests(t *testing.T) {
	cases := map[string]*fakeService{
		"/tts?text=hi&rate=fast": {},
		"/tts?text=hi&rate=500":  {synthErr: dispatch.ErrInvalidRate},
		"/tts?text=":             {synthErr: tts.ErrEmptyText},
	}
	for path, svc := range cases {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-API-Key", testKey)
		rec := httptest.NewRecorder()
		newHandler(svc, config.HTTPConfig{}).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", path, rec.Code)
		}
	}
}

// TestRateLimit checks the per-IP limiter.
func TestRateLimit(t *testing.T) {
	h := newHandler(&fakeService{}, config.HTTPConfig{RateLimit: 1})

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("statuses = %d, %d", first.Code, second.Code)
	}
}

// TestCORSPreflight checks that browsers may call the API from any origin.
func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/transcribe", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newHandler(&fakeService{}, config.HTTPConfig{}).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}

// TestStreamTranscribe checks the WebSocket event sequence.
func TestStreamTranscribe(t *testing.T) {
	svc := &fakeService{
		stages: []string{"received", "normalized", "cleaned"},
		result: &message.TranscribeResult{Transcript: "Hola", Language: "es"},
	}
	srv := httptest.NewServer(newHandler(svc, config.HTTPConfig{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transcribe?api_key=" + testKey + "&filename=a.ogg"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("ogg bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var events []message.Event
	for {
		var ev message.Event
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		events = append(events, ev)
	}

	if len(events) != 4 {
		t.Fatalf("events = %+v", events)
	}
	for i, want := range svc.stages {
		if events[i].Type != message.EventStage || events[i].Stage != want {
			t.Fatalf("event %d = %+v, want stage %s", i, events[i], want)
		}
	}
	last := events[3]
	if last.Type != message.EventResult || last.Transcript != "Hola" || last.Language != "es" || last.RequestID == "" {
		t.Fatalf("result event = %+v", last)
	}
	if svc.media != "ogg bytes" || svc.req.Filename != "a.ogg" {
		t.Fatalf("request = %+v media=%q", svc.req, svc.media)
	}
}

// TestStreamTranscribeRejectsTextFrames checks the binary-only contract.
func TestStreamTranscribeRejectsTextFrames(t *testing.T) {
	srv := httptest.NewServer(newHandler(&fakeService{}, config.HTTPConfig{}))
	defer srv.Close()

	header := http.Header{"X-API-Key": []string{testKey}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/transcribe", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	var ev message.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != message.EventError {
		t.Fatalf("event = %+v, want error", ev)
	}
}
