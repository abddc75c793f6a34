package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/models"
)

// SessionHandler is a Processor that can also drop a conversation
type SessionHandler interface {
	Processor
	CloseSession(sessionID string)
}

// WebSocketServer serves one conversation per websocket connection. Every
// message on a connection belongs to the same session.
type WebSocketServer struct {
	handler  SessionHandler
	upgrader websocket.Upgrader
	timeout  time.Duration
	logger   *zap.Logger
	server   *http.Server
}

func NewWebSocketServer(addr string, handler SessionHandler, timeout time.Duration, logger *zap.Logger) *WebSocketServer {
	s := &WebSocketServer{
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		timeout: timeout,
		logger:  logger.With(zap.String("component", "websocket")),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes exposes /ws and /healthz
func (s *WebSocketServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start listens in the background
func (s *WebSocketServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("HTTP listener started", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeWS upgrades the connection and runs its request loop. The session id
// comes from the session_id query parameter or is generated.
func (s *WebSocketServer) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	logger := s.logger.With(zap.String("session_id", sessionID))
	logger.Info("Websocket session started")

	defer func() {
		s.handler.CloseSession(sessionID)
		logger.Info("Websocket session ended")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}

		resp := s.process(r.Context(), sessionID, data)
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("Failed to write response", zap.Error(err))
			return
		}
	}
}

func (s *WebSocketServer) process(parent context.Context, sessionID string, data []byte) *models.AssistResponse {
	var request models.AssistRequest
	if err := json.Unmarshal(data, &request); err != nil {
		request.SessionID = sessionID
		return errorResponse(&request, models.ErrorParseError, "Invalid request format")
	}
	request.SessionID = sessionID

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	return s.handler.Process(ctx, &request)
}
