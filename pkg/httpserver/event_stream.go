package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mselser95/polymarket-lp/internal/events"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// EventStreamHandler pushes recorded events to websocket clients as
// structured JSON. Clients get the already-structured event records, never
// reformatted log text.
type EventStreamHandler struct {
	recorder events.Recorder
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventStreamHandler creates a websocket event stream handler.
func NewEventStreamHandler(recorder events.Recorder, logger *zap.Logger) *EventStreamHandler {
	return &EventStreamHandler{
		recorder: recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}
	defer conn.Close()

	feed, cancel := h.recorder.Subscribe()
	defer cancel()

	// Drain client frames so pings and close handshakes are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("ws-write-failed", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
