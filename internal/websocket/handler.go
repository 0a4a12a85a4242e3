package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// Handler upgrades requests to WebSocket connections on the hub. An empty
// origins list accepts any origin.
func Handler(hub *Hub, origins []string) http.HandlerFunc {
	opts := &ws.AcceptOptions{OriginPatterns: origins}
	if len(origins) == 0 {
		opts.InsecureSkipVerify = true
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			hub.logger.Warn("accept", "error", err, "remote", r.RemoteAddr)
			return
		}
		NewClient(hub, conn).Run(r.Context())
	}
}
