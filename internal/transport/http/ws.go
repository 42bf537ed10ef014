package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nadzzz/voicebox/internal/message"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 4 << 10,
	// CORS is allow-all for the REST routes; the socket follows suit.
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamTranscribe handles GET /ws/transcribe.
//
// The client sends the media file as one binary message. The server answers
// with a "stage" event per pipeline state, then a single "result" or "error"
// event, and closes the socket.
//
// @Summary     Transcribe with progress events
// @Description WebSocket. Send the media as one binary message; receive JSON events.
// @Tags        stt
// @Param       api_key   query  string  true   "API key (or X-API-Key header)"
// @Param       filename  query  string  false  "Original file name, used as a format hint"
// @Param       device    query  string  false  "Inference device"  default(cpu)
// @Success     101  {object}  message.Event
// @Router      /ws/transcribe [get]
func (h *handlers) streamTranscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	id := uuid.NewString()
	send := func(ev message.Event) bool {
		ev.RequestID = id
		ev.Timestamp = time.Now().UTC()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			slog.Debug("websocket write failed", "request_id", id, "error", err)
			return false
		}
		return true
	}

	conn.SetReadLimit(h.maxUpload)
	kind, data, err := conn.ReadMessage()
	if err != nil {
		send(message.Event{Type: message.EventError, Error: "reading media: " + err.Error()})
		return
	}
	if kind != websocket.BinaryMessage {
		send(message.Event{Type: message.EventError, Error: "media must be sent as a binary message"})
		return
	}

	q := r.URL.Query()
	req := &message.TranscribeRequest{
		ID:       id,
		Filename: q.Get("filename"),
		Device:   q.Get("device"),
		Media:    bytes.NewReader(data),
		OnStage: func(stage string) {
			send(message.Event{Type: message.EventStage, Stage: stage})
		},
	}

	result, err := h.svc.Transcribe(r.Context(), req)
	if err != nil {
		slog.Error("transcribe failed", "request_id", id, "error", err)
		send(message.Event{Type: message.EventError, Error: err.Error()})
	} else {
		send(message.Event{
			Type:       message.EventResult,
			Transcript: result.Transcript,
			Language:   result.Language,
		})
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
