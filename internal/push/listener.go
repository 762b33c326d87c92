// Package push keeps a WebSocket subscription to the backend's update feed
// and turns pushed cart-change notices into cart sync requests on the event
// bus. Delivery stays best-effort: a dropped connection only means the next
// reload happens later.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/observability"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // must be less than pongWait
	maxMessage = 4096
)

// HeaderSource supplies the same session headers API calls carry, so the
// feed is scoped to the current session.
type HeaderSource interface {
	Headers() map[string]string
}

// update is the wire shape of a pushed notice.
type update struct {
	Event string `json:"event"`
}

// Listener maintains the subscription and re-dials with exponential backoff.
type Listener struct {
	url     string
	headers HeaderSource
	bus     *eventbus.Bus
	dialer  *websocket.Dialer
}

// NewListener creates a listener for the backend at baseURL.
func NewListener(baseURL string, headers HeaderSource, bus *eventbus.Bus) *Listener {
	return &Listener{
		url:     wsURL(baseURL) + "/ws/updates",
		headers: headers,
		bus:     bus,
		dialer:  websocket.DefaultDialer,
	}
}

func wsURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u
}

// Run connects and listens until ctx is cancelled, reconnecting with
// exponential backoff after failures. It blocks; run it in a goroutine.
func (l *Listener) Run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // retry for as long as the process runs

	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Debug("update feed disconnected", slog.String("error", err.Error()))
		} else {
			// A clean read loop exit still resets the retry budget.
			policy.Reset()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(policy.NextBackOff()):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	header := http.Header{}
	for k, v := range l.headers.Headers() {
		header.Set(k, v)
	}

	conn, resp, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	observability.PushConnectionsActive.Inc()
	defer observability.PushConnectionsActive.Dec()
	slog.Debug("update feed connected")

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go l.pingLoop(ctx, conn, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return err
			}
			return nil
		}

		var u update
		if err := json.Unmarshal(raw, &u); err != nil {
			slog.Warn("invalid update payload", slog.String("error", err.Error()))
			continue
		}

		observability.PushMessagesReceived.WithLabelValues(u.Event).Inc()
		if u.Event == "cart.updated" {
			l.bus.Emit(eventbus.CartSyncRequested, eventbus.SyncRequestedPayload{Reason: "server push"})
		}
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
