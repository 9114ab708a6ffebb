package realtime

import (
	"net/http"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Authorizer decides whether a request may open a real-time connection and
// which rooms it joins.
type Authorizer func(r *http.Request) (rooms []string, ok bool)

type WSHandler struct {
	hub       *Hub
	authorize Authorizer
	upgrader  websocket.Upgrader
	logger    core.Logger
}

func NewWSHandler(hub *Hub, authorize Authorizer, logger core.Logger) *WSHandler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &WSHandler{
		hub:       hub,
		authorize: authorize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger: logger.With("component", "WSHandler"),
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rooms, ok := h.authorize(r)
	if !ok {
		core.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.Register(rooms...)
	h.logger.Info("websocket connected", "client_id", client.ID(), "remote_addr", r.RemoteAddr)

	go h.writePump(conn, client)
	h.readPump(conn)

	h.hub.Unregister(client)
	h.logger.Info("websocket disconnected", "client_id", client.ID())
}

// readPump only consumes control frames; clients do not send events.
func (h *WSHandler) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Info("websocket write failed", "client_id", client.ID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
