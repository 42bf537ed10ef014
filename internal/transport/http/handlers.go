package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nadzzz/voicebox/internal/dispatch"
	"github.com/nadzzz/voicebox/internal/media"
	"github.com/nadzzz/voicebox/internal/message"
	"github.com/nadzzz/voicebox/internal/transport"
	"github.com/nadzzz/voicebox/internal/tts"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

type handlers struct {
	svc       transport.Service
	maxUpload int64
}

// handleHealth reports liveness.
//
// @Summary     Health check
// @Tags        health
// @Produce     json
// @Success     200  {object}  HealthResponse
// @Router      /health [get]
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// transcribe processes a POST /transcribe request.
//
// @Summary     Transcribe an audio or video file
// @Description The upload is normalized to 16 kHz mono, its language is detected on the
// @Description first 30 seconds with a small model, and the whole file is then transcribed
// @Description with the larger model matching that language.
// @Tags        stt
// @Accept      multipart/form-data
// @Produce     json
// @Param       X-API-Key  header    string  true   "API key"
// @Param       file       formData  file    true   "Audio or video file"
// @Param       device     query     string  false  "Inference device (cpu, cuda, cuda:1)"  default(cpu)
// @Success     200  {object}  message.TranscribeResult
// @Failure     400  {object}  ErrorResponse  "Missing file field"
// @Failure     401  {object}  ErrorResponse  "Invalid or missing API key"
// @Failure     413  {object}  ErrorResponse  "Upload too large"
// @Failure     422  {object}  ErrorResponse  "Input is not decodable media"
// @Failure     500  {object}  ErrorResponse  "Model load or decode failure"
// @Router      /transcribe [post]
func (h *handlers) transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(h.maxUpload>>20, 10)+" MB")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	req := &message.TranscribeRequest{
		ID:       uuid.NewString(),
		Filename: header.Filename,
		Device:   r.URL.Query().Get("device"),
		Media:    file,
	}
	w.Header().Set("X-Request-ID", req.ID)

	result, err := h.svc.Transcribe(r.Context(), req)
	if err != nil {
		slog.Error("transcribe failed", "request_id", req.ID, "error", err)
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// synthesize processes a POST /tts request.
//
// @Summary     Convert text to speech
// @Tags        tts
// @Produce     audio/wav
// @Param       X-API-Key  header  string  true   "API key"
// @Param       text       query   string  true   "Text to speak"
// @Param       rate       query   int     false  "Speaking rate, 60-200 words per minute"  default(100)
// @Success     200  {file}    binary
// @Failure     400  {object}  ErrorResponse  "Empty text or rate out of range"
// @Failure     401  {object}  ErrorResponse  "Invalid or missing API key"
// @Failure     500  {object}  ErrorResponse  "Synthesis failure"
// @Router      /tts [post]
func (h *handlers) synthesize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var rate int
	if raw := strings.TrimSpace(q.Get("rate")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "rate must be an integer")
			return
		}
		rate = n
	}

	res, err := h.svc.Synthesize(r.Context(), message.SynthesizeRequest{Text: q.Get("text"), Rate: rate})
	if err != nil {
		slog.Error("tts failed", "error", err)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var transcodeErr *media.TranscodeError
	switch {
	case errors.As(err, &transcodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dispatch.ErrInvalidRate),
		errors.Is(err, dispatch.ErrNoMedia),
		errors.Is(err, tts.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrNoSynthesizer):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
