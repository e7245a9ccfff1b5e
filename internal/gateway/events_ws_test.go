package gateway

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialEvents(t *testing.T, rig *apiRig) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(rig.ts.URL, "http") + "/ws/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readAllEvents drains the feed until no frame arrives for a quiet period.
func readAllEvents(t *testing.T, conn *websocket.Conn) []notificationEvent {
	t.Helper()
	var events []notificationEvent
	for {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var ev notificationEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return events
		}
		events = append(events, ev)
	}
}

func TestEventsWebSocketDeliversOnce(t *testing.T) {
	rig := newAPIRig(t)
	rig.engine.Sink().Publish("before connect", time.Now().UTC())

	conn := dialEvents(t, rig)
	rig.engine.Sink().Publish("after connect", time.Now().UTC())

	events := readAllEvents(t, conn)

	// An event live in the history window while also arriving on the
	// subscription must reach the client exactly once.
	seen := make(map[string]int)
	for _, ev := range events {
		if ev.Type != "notification" {
			t.Errorf("event type = %q, want notification", ev.Type)
		}
		seen[ev.Event.ID]++
	}
	if len(seen) != 2 {
		t.Fatalf("distinct events = %d, want 2 (got %+v)", len(seen), events)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("event %s delivered %d times, want 1", id, n)
		}
	}
}
