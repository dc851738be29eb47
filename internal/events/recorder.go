// Package events provides the append-only structured event log. Every
// meaningful action in the system (selection results, rotations, heartbeats,
// shutdown summaries) is recorded as one JSON line and fanned out to any
// live subscribers.
package events

import (
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Event types recorded by the core components.
const (
	TypeSelection       = "selection"
	TypeRotation        = "rotation"
	TypeHeartbeat       = "heartbeat"
	TypeOrderPlaced     = "order_placed"
	TypeOrderCancelled  = "order_cancelled"
	TypeWorkerStarted   = "worker_started"
	TypeWorkerStopped   = "worker_stopped"
	TypeShutdownSummary = "shutdown_summary"
)

// Event is one structured record in the event log.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Recorder accepts structured event records. Implementations must be safe
// for concurrent use.
type Recorder interface {
	Record(eventType string, payload map[string]any)
	Subscribe() (<-chan Event, func())
	Close() error
}

// FileRecorder appends one JSON line per event to a size-rotated file and
// broadcasts each event to subscribers.
type FileRecorder struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	hub    *hub
	logger *zap.Logger
}

// NewFileRecorder creates a recorder writing to path. Rotation keeps a few
// generations so the log can run unattended.
func NewFileRecorder(path string, logger *zap.Logger) *FileRecorder {
	return &FileRecorder{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		},
		hub:    newHub(),
		logger: logger,
	}
}

// Record appends one event line. Write failures are logged, never surfaced;
// event recording must not disturb the trading path.
func (r *FileRecorder) Record(eventType string, payload map[string]any) {
	event := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Payload:   payload,
	}

	line, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("event-marshal-failed", zap.String("type", eventType), zap.Error(err))
		return
	}

	r.mu.Lock()
	_, err = r.writer.Write(append(line, '\n'))
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("event-write-failed", zap.String("type", eventType), zap.Error(err))
	}

	EventsRecordedTotal.WithLabelValues(eventType).Inc()

	r.hub.broadcast(event)
}

// Subscribe registers a live event feed. The returned cancel func must be
// called to release the subscription. Slow consumers drop events rather
// than block the recorder.
func (r *FileRecorder) Subscribe() (<-chan Event, func()) {
	return r.hub.subscribe()
}

// Close flushes and closes the underlying log file.
func (r *FileRecorder) Close() error {
	r.hub.close()
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) Record(string, map[string]any) {}

func (NopRecorder) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	return ch, func() {}
}

func (NopRecorder) Close() error { return nil }
