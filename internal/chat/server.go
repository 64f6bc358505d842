package chat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"example.com/fitplan/internal/auth"
)

// DefaultMaxConnectionsPerUser caps concurrent sockets per user.
const DefaultMaxConnectionsPerUser = 5

// ServerConfig holds WebSocket server tunables.
type ServerConfig struct {
	ReadBufferSize        int
	WriteBufferSize       int
	MaxConnectionsPerUser int
	CheckOrigin           func(r *http.Request) bool
}

// Server upgrades authenticated requests and serves chat over the socket.
type Server struct {
	hub      *Hub
	chatter  Chatter
	upgrader websocket.Upgrader
	maxConns int
	logger   *zap.Logger
}

// NewServer constructs a Server. Zero config values fall back to defaults.
func NewServer(hub *Hub, chatter Chatter, cfg ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = 1024
	}
	if cfg.MaxConnectionsPerUser == 0 {
		cfg.MaxConnectionsPerUser = DefaultMaxConnectionsPerUser
	}
	return &Server{
		hub:     hub,
		chatter: chatter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		maxConns: cfg.MaxConnectionsPerUser,
		logger:   logger,
	}
}

// ServeHTTP upgrades the connection and blocks until the peer goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeChat) {
		writeError(w, http.StatusForbidden, "forbidden", "scope chat required")
		return
	}
	if s.hub.CountForUser(claims.Subject) >= s.maxConns {
		writeError(w, http.StatusTooManyRequests, "too_many_connections", "connection limit reached")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := newClient(claims.Subject, conn, s.logger)
	if !s.hub.TryAdd(client, s.maxConns) {
		// Lost the race for the last slot after the upgrade.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit reached"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer func() {
		s.hub.Remove(client)
		client.Close()
	}()

	go client.writePump()
	client.enqueueFrame(FrameConnected, map[string]string{"connection_id": client.ID(), "user_id": client.UserID()})

	client.readPump(r.Context(), s.chatter)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
