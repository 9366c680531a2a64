package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yz4230/sitehost/internal/entity"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	closed   bool
}

func (r *recordingSubscriber) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func TestHubBroadcastsToOrderSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	hub.now = func() time.Time { return at }

	watching := &recordingSubscriber{}
	other := &recordingSubscriber{}
	broken := &recordingSubscriber{err: errors.New("gone")}
	hub.Register("order-1", watching)
	hub.Register("order-1", broken)
	hub.Register("order-2", other)

	hub.OrderStale(context.Background(), "order-1")

	require.Len(t, watching.payloads, 1)
	var ev Event
	require.NoError(t, json.Unmarshal(watching.payloads[0], &ev))
	assert.Equal(t, Event{Type: EventOrderStale, OrderID: "order-1", At: at}, ev)

	assert.Empty(t, other.payloads)
	assert.True(t, broken.closed)
	assert.Equal(t, 1, hub.Subscribers("order-1"))

	hub.Unregister("order-1", watching)
	assert.Zero(t, hub.Subscribers("order-1"))
}

type countingNotifier struct{ calls []entity.ID }

func (c *countingNotifier) OrderStale(_ context.Context, orderID entity.ID) {
	c.calls = append(c.calls, orderID)
}

func TestMulti(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	Multi{a, NewLogNotifier(zerolog.Nop()), b, Nop{}}.OrderStale(context.Background(), "o")
	assert.Equal(t, []entity.ID{"o"}, a.calls)
	assert.Equal(t, []entity.ID{"o"}, b.calls)
}

func TestClientOverWebsocket(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	registered := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn)
		hub.Register("order-1", client)
		close(registered)
		client.Wait()
		hub.Unregister("order-1", client)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	<-registered

	hub.OrderStale(context.Background(), "order-1")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventOrderStale, ev.Type)
	assert.Equal(t, entity.ID("order-1"), ev.OrderID)
}
