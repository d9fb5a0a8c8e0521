package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/QQHKX/rollcall-module/pkg/audio"
)

const (
	EventTypeConnected = "connected"
	EventTypeCue       = "cue"
	EventTypeHeartbeat = "heartbeat"
)

// AudioHandler bridges audio.Service to HTTP routes (SSE + WebSocket).
// Cues are forwarded as they arrive; a tick that reaches the client late is
// worthless, so there is no batching and a slow consumer drops cues at the
// broadcaster instead of backing up the stream.
type AudioHandler struct {
	svc             *audio.Service
	app             *App
	logger          zerolog.Logger
	heartbeatPeriod time.Duration
	upgrader        websocket.Upgrader
}

// NewAudioHandler creates an audio stream handler.
func NewAudioHandler(app *App, svc *audio.Service) *AudioHandler {
	return &AudioHandler{
		svc:             svc,
		app:             app,
		logger:          app.logger.With().Str("handler", "audio").Logger(),
		heartbeatPeriod: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// CueEvent is one stream message.
type CueEvent struct {
	Type      string     `json:"type"`
	Timestamp int64      `json:"timestamp"`
	Cue       *audio.Cue `json:"cue,omitempty"`
}

// StreamCues opens SSE connection and streams audio cues.
// Route: GET /api/rollcall/audio/stream
func (h *AudioHandler) StreamCues(c *gin.Context) {
	if h.svc == nil {
		ErrorWithMessage(c, http.StatusServiceUnavailable, "audio service not available")
		return
	}

	// Setup SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeader(http.StatusOK)

	sender := &sseSender{writer: c.Writer}
	h.streamCues(c.Request.Context(), sender)
}

// StreamCuesWebSocket opens WebSocket connection and streams audio cues.
// Route: GET /api/rollcall/audio/stream/ws
func (h *AudioHandler) StreamCuesWebSocket(c *gin.Context) {
	if h.svc == nil {
		ErrorWithMessage(c, http.StatusServiceUnavailable, "audio service not available")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	writeDeadline := 10 * time.Second
	conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute)) //nolint:errcheck
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
			} else {
				h.logger.Debug().Err(err).Msg("WebSocket closed normally")
			}
		}
	}()

	// Send ping to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	go func() {
		defer pingTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					h.logger.Debug().Err(err).Msg("Failed to send ping")
					return
				}
			}
		}
	}()

	sender := &wsSender{
		conn:          conn,
		done:          done,
		logger:        h.logger,
		writeDeadline: writeDeadline,
	}
	h.streamCues(c.Request.Context(), sender)
}

// streamCues handles the common streaming logic for both SSE and WebSocket.
func (h *AudioHandler) streamCues(ctx context.Context, sender messageSender) {
	cues, cancel := h.svc.Listen(ctx)
	defer cancel()

	// Send connected event
	if err := sender.Send(&CueEvent{
		Type:      EventTypeConnected,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send connected event, stopping stream")
		return
	}

	heartbeat := time.NewTicker(h.heartbeatPeriod)
	defer heartbeat.Stop()

	// Check if sender has a done channel (for WebSocket)
	var doneChan <-chan struct{}
	if ws, ok := sender.(*wsSender); ok {
		doneChan = ws.done
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-doneChan:
			h.logger.Debug().Msg("WebSocket connection closed, stopping stream")
			return
		case <-heartbeat.C:
			if err := sender.Send(&CueEvent{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send heartbeat, stopping stream")
				return
			}
		case cue, ok := <-cues:
			if !ok {
				return
			}
			if err := sender.Send(&CueEvent{
				Type:      EventTypeCue,
				Timestamp: time.Now().Unix(),
				Cue:       &cue,
			}); err != nil {
				h.logger.Warn().Err(err).Str("cue_type", string(cue.Type)).Msg("Failed to send cue, stopping stream")
				return
			}
		}
	}
}

// messageSender interface for sending messages (SSE or WebSocket).
type messageSender interface {
	Send(*CueEvent) error
}

// sseSender sends messages via SSE.
type sseSender struct {
	writer http.ResponseWriter
}

func (s *sseSender) Send(event *CueEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("data: " + string(payload) + "\n\n"))
	if err != nil {
		return err
	}
	s.writer.(http.Flusher).Flush()
	return nil
}

// wsSender sends messages via WebSocket.
type wsSender struct {
	conn          *websocket.Conn
	done          <-chan struct{}
	logger        zerolog.Logger
	writeDeadline time.Duration
}

func (s *wsSender) Send(event *CueEvent) error {
	// Check if connection is already closed
	select {
	case <-s.done:
		s.logger.Debug().Str("event_type", event.Type).Msg("Connection already closed, skipping send")
		return io.EOF
	default:
	}

	// Set write deadline before each write
	deadline := time.Now().Add(s.writeDeadline)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to marshal event")
		return err
	}

	err = s.conn.WriteMessage(websocket.TextMessage, payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Warn().
				Err(err).
				Str("event_type", event.Type).
				Msg("WebSocket WriteMessage failed: connection closed (EOF)")
		} else if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			s.logger.Warn().
				Err(err).
				Str("event_type", event.Type).
				Msg("WebSocket WriteMessage failed: unexpected close error")
		} else {
			s.logger.Warn().
				Err(err).
				Str("event_type", event.Type).
				Msg("WebSocket WriteMessage failed")
		}
		return err
	}

	return nil
}
