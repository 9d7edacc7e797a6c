package netlink

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// EchoServer greets each client with "hello" and answers every text message
// with "echo:" plus the message. It is the counterpart the device talks to
// during bench tests.
type EchoServer struct {
	Logger *slog.Logger

	upgrader websocket.Upgrader
}

func NewEchoServer(log *slog.Logger) *EchoServer {
	if log == nil {
		log = slog.Default()
	}
	return &EchoServer{
		Logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *EchoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("ws_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()
	log := s.Logger.With("remote", r.RemoteAddr)
	log.Info("ws_client_connected")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		return
	}
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			log.Info("ws_client_disconnected", "error", err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, append([]byte("echo:"), msg...)); err != nil {
			return
		}
	}
}
