package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// API key auth provides access control, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// areaFilter parses ?area=kitchen&area=desk or ?area=kitchen,desk.
func areaFilter(r *http.Request) []string {
	var areas []string
	for _, v := range r.URL.Query()["area"] {
		for a := range strings.SplitSeq(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				areas = append(areas, a)
			}
		}
	}
	return areas
}

// Handler returns an http.HandlerFunc that upgrades connections to WebSocket
// and registers the client with the hub. Auth is handled at the Chi middleware
// layer (RawAPIKeyAuth) before this handler is called.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		areas := areaFilter(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("ws: upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}

		client := hub.NewClient(conn, areas...)
		hub.Register(client)
		logger.Debug("ws: client subscribed", "client", client.ID(), "areas", areas)

		go client.WritePump()
		go client.ReadPump()
	}
}
