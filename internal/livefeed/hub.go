package livefeed

import (
	"context"
	"sync"

	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/metrics"
)

// Hub fans dispatch-core events out to every connected Client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewHub returns an idle Hub; call Run to start its loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopCh:     make(chan struct{}),
	}
}

// Run processes (un)registrations and broadcasts until ctx is cancelled or
// Stop is called.
func (h *Hub) Run(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ctx.Done():
				h.closeAllClients()
				return
			case <-h.stopCh:
				h.closeAllClients()
				return
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				h.mu.Unlock()
				metrics.SetWebSocketConnections(float64(h.ClientCount()))

			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					close(client.send)
				}
				h.mu.Unlock()
				metrics.SetWebSocketConnections(float64(h.ClientCount()))

			case event := <-h.broadcast:
				h.broadcastEvent(event)
			}
		}
	}()

	logger.Info().Msg("live feed hub started")
}

// Stop drains and closes every connected client, then returns once the
// hub's loop has exited.
func (h *Hub) Stop() {
	close(h.stopCh)
	h.wg.Wait()
}

// Register adds a client to the broadcast set.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the broadcast set.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish enqueues an event for broadcast. Non-blocking: a full buffer
// drops the event rather than stall the caller (the dispatch core's commit
// path must never wait on an operator dashboard).
func (h *Hub) Publish(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		logger.Warn().Msg("live feed broadcast buffer full, dropping event")
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastEvent(event *Event) {
	data, err := event.toJSON()
	if err != nil {
		logger.Error().Err(err).Msg("failed to serialize live feed event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
			metrics.RecordWebSocketMessage(string(event.Type))
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
