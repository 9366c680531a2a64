package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/yz4230/sitehost/internal/entity"
)

const writeTimeout = 5 * time.Second

// Subscriber is one streaming client of an order page.
type Subscriber interface {
	Send(payload []byte) error
	Close()
}

// Event is the payload pushed to subscribers.
type Event struct {
	Type    string    `json:"type"`
	OrderID entity.ID `json:"order_id"`
	At      time.Time `json:"at"`
}

const EventOrderStale = "order_stale"

// Hub keeps the subscribers of each order and broadcasts stale events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[entity.ID]map[Subscriber]struct{}
	now     func() time.Time
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: map[entity.ID]map[Subscriber]struct{}{},
		now:     time.Now,
		log:     log,
	}
}

func (h *Hub) Register(orderID entity.ID, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[orderID]; !ok {
		h.clients[orderID] = map[Subscriber]struct{}{}
	}
	h.clients[orderID][client] = struct{}{}
}

func (h *Hub) Unregister(orderID entity.ID, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[orderID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, orderID)
		}
	}
}

// Subscribers returns the number of clients watching orderID.
func (h *Hub) Subscribers(orderID entity.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orderID])
}

// OrderStale implements Notifier. Clients whose send fails are dropped.
func (h *Hub) OrderStale(ctx context.Context, orderID entity.ID) {
	payload, err := json.Marshal(Event{Type: EventOrderStale, OrderID: orderID, At: h.now().UTC()})
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	clients := make([]Subscriber, 0, len(h.clients[orderID]))
	for c := range h.clients[orderID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.Send(payload); err != nil {
			h.log.Debug().Err(err).Str("order_id", orderID.String()).Msg("dropping subscriber")
			c.Close()
			h.Unregister(orderID, c)
		}
	}
}

// Client adapts a websocket connection to Subscriber.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) Close() {
	_ = c.conn.Close()
}

// Wait reads from the connection until the peer goes away. Incoming
// messages are ignored.
func (c *Client) Wait() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
