package notify

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wireToast is the JSON shape browsers receive; timeout is in milliseconds.
type wireToast struct {
	Type     Type   `json:"type"`
	Message  string `json:"message"`
	Position string `json:"position"`
	Timeout  int64  `json:"timeout"`
	Group    bool   `json:"group"`
}

func toWire(t Toast) wireToast {
	return wireToast{
		Type:     t.Type,
		Message:  t.Message,
		Position: t.Position,
		Timeout:  t.Timeout.Milliseconds(),
		Group:    t.Group,
	}
}

// WSServer upgrades requests and streams a hub's toasts over the socket.
type WSServer struct {
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewWSServer builds a websocket endpoint. checkOrigin may be nil to use
// gorilla's same-origin check.
func NewWSServer(logger logging.Logger, checkOrigin func(r *http.Request) bool) *WSServer {
	return &WSServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Serve blocks until the client goes away or the request context ends.
func (s *WSServer) Serve(w http.ResponseWriter, r *http.Request, hub *Hub) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	toasts, cancel := hub.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case <-closed:
			return
		case t, ok := <-toasts:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toWire(t)); err != nil {
				s.logger.Debug(ctx, "websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
