package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
)

const AdminRoom = "admin"

// Client es una conexión websocket con el usuario ya autenticado.
type Client struct {
	UserID  string
	IsAdmin bool
	Send    chan []byte

	hub    *Hub
	mu     sync.Mutex
	closed bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.Send)
}

// Hub mantiene las salas y hace broadcast. Si no hay nadie conectado el evento se pierde.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewHub(log *logger.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		log:     log,
		metrics: m,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast manda payload a la sala sin bloquear. Devuelve a cuántos clientes llegó.
func (h *Hub) Broadcast(room string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		if c.trySend(data) {
			delivered++
		}
	}
	return delivered
}

func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Publish entrega un evento ya armado (lo usa el relay de Rabbit).
func (h *Hub) Publish(ctx context.Context, evt dto.OrderEvent) {
	n := h.Broadcast(AdminRoom, evt)
	h.metrics.IncNotification(evt.Event, "websocket")
	if n == 0 {
		h.log.Debug(ctx, "no admin connected, order event dropped")
	}
}

func (h *Hub) NotifyNewOrder(ctx context.Context, o *model.Order) {
	h.Publish(ctx, dto.OrderEvent{Event: dto.EventOrderCreated, Order: o})
}

func (h *Hub) NotifyOrderStatusChanged(ctx context.Context, o *model.Order) {
	h.Publish(ctx, dto.OrderEvent{Event: dto.EventOrderStatusChanged, Order: o})
}
