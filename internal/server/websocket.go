package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/pcstyle/termsim/internal/errors"
	"github.com/pcstyle/termsim/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Default period between pings. A peer that misses a pong for writeWait
	// is dropped.
	defaultPingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sessionIDLength = 12
)

// Client is one /ws/transcript subscriber.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan TranscriptMessage
	hub        *Hub
	logger     logging.Logger
	pingPeriod time.Duration
}

// Hub fans transcript updates out to every subscriber.
type Hub struct {
	clients    map[*Client]struct{}
	mutex      sync.RWMutex
	broadcast  chan TranscriptMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     logging.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan TranscriptMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info(ctx, "Client connected", "session", client.id, "total", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info(ctx, "Client disconnected", "session", client.id, "total", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn(ctx, nil, "Dropping slow client", "session", client.id)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Broadcast queues message for every client. It never blocks once the hub
// has stopped.
func (h *Hub) Broadcast(message TranscriptMessage) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// handleTranscript upgrades to a websocket that receives the current
// transcript immediately and again after every reload.
func (s *PreviewServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conn, sessionID, ok := s.accept(w, r)
	if !ok {
		return
	}

	client := &Client{
		id:         sessionID,
		conn:       conn,
		send:       make(chan TranscriptMessage, 8),
		hub:        s.hub,
		logger:     s.logger.With("session", sessionID),
		pingPeriod: s.pingPeriod,
	}

	initial, err := s.transcriptMessage(s.Transcript())
	if err != nil {
		s.errHandler.Handle(r.Context(), err)
		conn.Close(websocket.StatusInternalError, "render failed")
		return
	}
	client.send <- initial

	if !s.hub.add(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go client.writePump(s.ctx)
	client.readPump(s.ctx)
}

// accept validates the origin, upgrades the connection and assigns a session
// id.
func (s *PreviewServer) accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, string, bool) {
	if !s.checkOrigin(r) {
		s.errHandler.Handle(r.Context(), errors.ErrInvalidOrigin(r.Header.Get("Origin")))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return nil, "", false
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// checkOrigin has already run.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return nil, "", false
	}
	conn.SetReadLimit(maxMessageSize)

	sessionID, err := gonanoid.New(sessionIDLength)
	if err != nil {
		sessionID = fmt.Sprintf("%d", time.Now().UnixNano())
	}

	return conn, sessionID, true
}

// checkOrigin accepts same-origin requests, the configured host and port,
// loopback on the configured port, and any configured allowed origin.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if s.isAllowedOrigin(origin) {
		return true
	}

	port := s.config.Server.Port
	allowedHosts := []string{
		r.Host,
		fmt.Sprintf("%s:%d", s.config.Server.Host, port),
		fmt.Sprintf("localhost:%d", port),
		fmt.Sprintf("127.0.0.1:%d", port),
	}

	for _, allowed := range allowedHosts {
		if allowed != "" && originURL.Host == allowed {
			return true
		}
	}

	return false
}

// readPump discards client messages and notices disconnects. Subscribers
// may stay silent indefinitely; dead peers are found by writePump's pings,
// which also need this loop running to receive their pongs.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.CloseNow()
	}()

	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway && ctx.Err() == nil {
				c.logger.Debug(ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}
	}
}

// writePump delivers queued messages and keeps the connection alive.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, c.conn, message)
			cancel()
			if err != nil {
				c.logger.Warn(ctx, err, "WebSocket write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
