package livefeed

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/torquehq/torque/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Operator dashboards are typically served from a different origin
	// than the API; the endpoint sits behind the same shared-credential
	// authenticate gate as the ingress endpoints.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the request to a WebSocket and streams hub events to it
// until the client disconnects.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("live feed upgrade failed")
			return
		}

		client := NewClient(hub, conn)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
