package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades gate display requests to WebSockets.
type Server struct {
	baseCtx      context.Context
	cancel       context.CancelFunc
	manager      *Manager
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(manager *Manager, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		baseCtx:      baseCtx,
		cancel:       cancel,
		manager:      manager,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is HTTP handler for /ws/gates.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	gateID := r.URL.Query().Get("gate_id")
	if gateID == "" {
		http.Error(w, "gate_id is required", http.StatusBadRequest)
		return
	}
	if s.baseCtx.Err() != nil {
		http.Error(w, "gate feed is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	connection := NewConnection(gateID, conn, s.writeTimeout, s.logger, func(c *Connection) {
		s.manager.Remove(c)
		cancel()
	})
	s.manager.Add(connection)

	go connection.Start(ctx)
	s.logger.Info("gate display connected", zap.String("gate_id", gateID))
}

// Close disconnects every gate display and refuses new ones. Hijacked sockets are not
// covered by the HTTP server's graceful shutdown.
func (s *Server) Close() {
	s.cancel()
}
