package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/astroremedis/astrochat/internal/domain"
)

// wsServer accepts connections and registers them in the hub under a fixed
// session ID, holding them open until the test finishes.
func wsServer(t *testing.T, hub *Hub, sessionID string) string {
	t.Helper()

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(sessionID, conn)
		<-done
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitRegistered(t *testing.T, hub *Hub, sessionID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Connected(sessionID) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("connection never registered")
}

func readEvent(t *testing.T, conn *websocket.Conn) event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func TestEventsReachRegisteredConnection(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	url := wsServer(t, hub, "s1")

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	waitRegistered(t, hub, "s1")

	hub.Typing("s1", true)
	if ev := readEvent(t, conn); ev.Type != "typing" || !ev.On {
		t.Fatalf("event = %+v", ev)
	}

	hub.Message("s1", domain.Message{ID: 1, Sender: domain.SenderAssistant, Text: "Namaste"})
	ev := readEvent(t, conn)
	if ev.Type != "message" || ev.Message == nil || ev.Message.Text != "Namaste" {
		t.Fatalf("event = %+v", ev)
	}

	hub.Refresh("s1")
	if ev := readEvent(t, conn); ev.Type != "refresh" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestRegisterReplacesPreviousConnection(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	url := wsServer(t, hub, "s1")
	ctx := context.Background()

	first, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	waitRegistered(t, hub, "s1")
	hub.Typing("s1", true)
	readEvent(t, first)

	second, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close(websocket.StatusNormalClosure, "done")

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, _, err := first.Read(readCtx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("first conn not closed normally: %v", err)
	}

	// Events now go to the replacement only.
	hub.Typing("s1", false)
	if ev := readEvent(t, second); ev.Type != "typing" || ev.On {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSendWithoutConnectionIsDropped(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	// Must not panic or block.
	hub.Typing("ghost", true)
	hub.Message("ghost", domain.Message{ID: 1, Text: "hello"})
	hub.Refresh("ghost")
}
