package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leadkit/drip/internal/notify"
)

const (
	// wsPingInterval is the interval between ping frames sent to the client.
	wsPingInterval = 30 * time.Second
	// wsPongTimeout is how long to wait for a pong response before closing.
	wsPongTimeout = 10 * time.Second
	// wsWriteTimeout is the deadline for writing a message to the client.
	wsWriteTimeout = 5 * time.Second
	// wsSendBuffer bounds queued events per client; slow clients drop events.
	wsSendBuffer = 32
)

// handleEventsWebSocket upgrades the connection and streams notification
// events in real time. On connect it sends the events still inside the
// display window, then pushes new events as they are published.
func (s *Server) handleEventsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("events WS upgrade error", slog.Any("error", err))
		return
	}

	s.log.Info("events WebSocket connected", slog.String("remote", r.RemoteAddr))

	// Subscribe before sending history to avoid gaps. An event published in
	// between lands in both the replay and the channel; the replayed set
	// filters the second copy.
	eventCh := make(chan notify.Event, wsSendBuffer)
	unsubscribe := s.engine.Sink().Subscribe(func(e notify.Event) {
		select {
		case eventCh <- e:
		default:
			// Slow client; the feed is ephemeral, dropping is fine.
		}
	})
	defer unsubscribe()

	replayed := make(map[string]struct{})
	for _, event := range s.engine.Sink().Events() {
		if err := writeEvent(conn, event); err != nil {
			_ = conn.Close()
			return
		}
		replayed[event.ID] = struct{}{}
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))

	// Read pump: drain client messages (none expected) and detect disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	defer func() { _ = conn.Close() }()

	for {
		select {
		case <-done:
			s.log.Info("events WebSocket disconnected", slog.String("remote", r.RemoteAddr))
			return
		case event := <-eventCh:
			if _, ok := replayed[event.ID]; ok {
				delete(replayed, event.ID)
				continue
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event notify.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(notificationEvent{Type: "notification", Event: event})
}
