package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/oracle"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod is how often pings are sent. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// clientBuffer is the per-client outbound queue size.
	clientBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WSClient is a single WebSocket subscriber.
type WSClient struct {
	conn *websocket.Conn
	send chan oracle.Event
}

// WSServer streams oracle events to WebSocket subscribers.
type WSServer struct {
	addr    string
	server  *http.Server
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewWSServer creates a new WebSocket event server.
func NewWSServer(addr string, logger *logging.Logger) *WSServer {
	return &WSServer{
		addr:    addr,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Start starts the WebSocket server.
func (s *WSServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", s.handleConnection)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("WebSocket server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the WebSocket server and closes all client
// connections.
func (s *WSServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	for client := range s.clients {
		close(client.send)
		_ = client.conn.Close()
	}
	s.clients = make(map[*WSClient]struct{})
	s.mu.Unlock()

	if s.server != nil {
		s.logger.Info("Stopping WebSocket server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Broadcast sends an event to all connected clients. Slow clients are
// disconnected rather than allowed to block the broadcast.
func (s *WSServer) Broadcast(ev oracle.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- ev:
		default:
			s.logger.Warn("WebSocket client queue full, dropping connection")
			go s.removeClient(client)
		}
	}
}

// handleConnection upgrades an HTTP request to a WebSocket connection.
func (s *WSServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan oracle.Event, clientBuffer),
	}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("WebSocket client connected", "remote", conn.RemoteAddr().String(), "clients", count)

	go s.writePump(client)
	go s.readPump(client)
}

// writePump serializes events to the client and keeps the connection alive
// with periodic pings.
func (s *WSServer) writePump(client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("Failed to marshal event", "error", err)
				continue
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.removeClient(client)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.removeClient(client)
				return
			}
		}
	}
}

// readPump discards inbound messages and detects disconnects.
func (s *WSServer) readPump(client *WSClient) {
	defer s.removeClient(client)

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// removeClient drops a client from the registry and closes its connection.
func (s *WSServer) removeClient(client *WSClient) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
	s.mu.Unlock()

	_ = client.conn.Close()
}
