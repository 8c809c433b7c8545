package torqueclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType mirrors internal/livefeed's event taxonomy.
type EventType string

const (
	EventClaimed   EventType = "claimed"
	EventCompleted EventType = "completed"
	EventRetry     EventType = "retry"
	EventFailed    EventType = "failed"
)

// Event is a single transition notification read off the live feed.
type Event struct {
	Type       EventType `json:"type"`
	TaskID     string    `json:"task_id"`
	Attempts   int       `json:"attempts"`
	StatusCode *int      `json:"status_code,omitempty"`
	Err        string    `json:"error,omitempty"`
	Timestamp  int64     `json:"timestamp"`
}

// EventStream is a read-only connection to the ingress server's
// /admin/events live feed. The feed is best-effort: a slow or
// disconnected reader simply misses events, never blocks the server.
type EventStream struct {
	conn      *websocket.Conn
	events    chan *Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events opens the live feed and returns a stream of transition events.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("torqueclient: invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/admin/events"

	headers := make(map[string][]string)
	if c.opts.bearerToken != "" {
		headers["Authorization"] = []string{"Bearer " + c.opts.bearerToken}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("torqueclient: live feed dial failed: %w", err)
	}

	es := &EventStream{
		conn:   conn,
		events: make(chan *Event, 100),
		done:   make(chan struct{}),
	}
	go es.readLoop()
	return es, nil
}

func (es *EventStream) readLoop() {
	defer close(es.events)
	for {
		_, message, err := es.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			continue
		}
		select {
		case es.events <- &ev:
		case <-es.done:
			return
		}
	}
}

// Events returns the channel of incoming transition events, closed when
// the stream ends.
func (es *EventStream) Events() <-chan *Event {
	return es.events
}

// Close terminates the live feed connection.
func (es *EventStream) Close() error {
	var err error
	es.closeOnce.Do(func() {
		close(es.done)
		err = es.conn.Close()
	})
	return err
}
