package dmdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsServer runs handler on an upgraded websocket connection and returns the
// ws:// URL to dial.
func wsServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSocket_DeliversDataFrames(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		// Expect the start message first.
		var start startMessage
		if err := conn.ReadJSON(&start); err != nil {
			t.Errorf("read start: %v", err)
			return
		}
		if start.Type != "start" || len(start.Classifications) != 1 || start.Classifications[0] != "telegram.earthquake" {
			t.Errorf("unexpected start message: %+v", start)
		}

		data, _ := json.Marshal(socketFrame{
			Type: "data", ID: "tg-ws-1",
			Head: TelegramHead{Type: "VXSE53"}, Format: "json", Encoding: "base64", Body: "AAAA",
		})
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
		// Keep the connection up until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewSocket(url, []string{"telegram.earthquake"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case item := <-s.Subscribe():
		if item.ID != "tg-ws-1" || item.Head.Type != "VXSE53" {
			t.Fatalf("unexpected item: %+v", item)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for pushed telegram")
	}
	if !s.IsOpen() {
		t.Fatalf("state = %v, want open", s.State())
	}
}

func TestSocket_AnswersPing(t *testing.T) {
	gotPong := make(chan socketFrame, 1)
	url := wsServer(t, func(conn *websocket.Conn) {
		var start startMessage
		_ = conn.ReadJSON(&start)

		ping, _ := json.Marshal(socketFrame{Type: "ping", PingID: "p-1"})
		_ = conn.WriteMessage(websocket.TextMessage, ping)

		var pong socketFrame
		if err := conn.ReadJSON(&pong); err == nil {
			gotPong <- pong
		}
	})

	s := NewSocket(url, []string{"telegram.earthquake"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case pong := <-gotPong:
		if pong.Type != "pong" || pong.PingID != "p-1" {
			t.Fatalf("unexpected pong: %+v", pong)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for pong")
	}
}

func TestSocket_ClosesOnCancel(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewSocket(url, []string{"telegram.earthquake"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Give Run a moment to connect, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
}
