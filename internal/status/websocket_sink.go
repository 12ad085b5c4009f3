package status

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketSink live-tails the bus to a single websocket connection. It
// satisfies C10's "sinks must not block" requirement by pushing onto its
// own buffered queue and writing from a dedicated goroutine; a full queue
// drops the event rather than blocking the publisher (spec.md §4.10).
type WebSocketSink struct {
	conn   *websocket.Conn
	queue  chan OperationStatus
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewWebSocketSink wraps conn and starts its writer goroutine.
func NewWebSocketSink(ctx context.Context, conn *websocket.Conn, queueSize int, logger *slog.Logger) *WebSocketSink {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &WebSocketSink{
		conn:   conn,
		queue:  make(chan OperationStatus, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run(ctx)
	return s
}

// HandleStatus implements Sink: a non-blocking send, dropping the event if
// the queue is full.
func (s *WebSocketSink) HandleStatus(event OperationStatus) {
	select {
	case s.queue <- event:
	default:
		s.logger.Warn("websocket status sink queue full, dropping event", "operation_id", event.OperationID)
	}
}

func (s *WebSocketSink) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.queue:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(event); err != nil {
				s.logger.Debug("websocket status sink write failed, closing", "error", err)
				return
			}
		}
	}
}

// Close stops the writer goroutine and closes the underlying connection.
func (s *WebSocketSink) Close() error {
	s.once.Do(func() { close(s.queue) })
	<-s.done
	return s.conn.Close()
}
