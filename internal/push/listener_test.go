package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-shop/internal/eventbus"
)

type staticHeaders map[string]string

func (h staticHeaders) Headers() map[string]string { return h }

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":   "ws://localhost:8080",
		"https://shop.example":    "wss://shop.example",
		"http://localhost:8080/":  "ws://localhost:8080",
		"https://shop.example///": "wss://shop.example",
	}
	for in, want := range cases {
		assert.Equal(t, want, wsURL(in), "input %s", in)
	}
}

func TestListenerEmitsSyncRequestOnCartUpdate(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	gotSession := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/updates", func(w http.ResponseWriter, r *http.Request) {
		gotSession <- r.Header.Get("x-session-id")

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"other.event"}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"cart.updated"}`)))

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	bus := eventbus.New()
	synced := make(chan eventbus.SyncRequestedPayload, 2)
	bus.On(eventbus.CartSyncRequested, func(payload any) {
		synced <- payload.(eventbus.SyncRequestedPayload)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewListener(srv.URL, staticHeaders{"x-session-id": "sess-1"}, bus)
	go listener.Run(ctx)

	select {
	case sessionID := <-gotSession:
		assert.Equal(t, "sess-1", sessionID, "the feed is scoped by session headers")
	case <-time.After(3 * time.Second):
		t.Fatal("listener never connected")
	}

	select {
	case payload := <-synced:
		assert.Equal(t, "server push", payload.Reason)
	case <-time.After(3 * time.Second):
		t.Fatal("no sync request after a cart.updated push")
	}

	// The unrelated event must not have produced a second request.
	select {
	case <-synced:
		t.Fatal("unexpected sync request for an unrelated event")
	case <-time.After(100 * time.Millisecond):
	}
}
