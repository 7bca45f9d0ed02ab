package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// MessageGameState is the first message on a new connection.
const MessageGameState = "GAME_STATE"

// WSMessage is what clients receive. Data is a game.View for GAME_STATE and
// an engine.Notification otherwise.
type WSMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Data   any    `json:"data"`
}

// Client is one websocket connection watching one game.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

type broadcast struct {
	gameID string
	data   []byte
}

// Hub fans game notifications out to the clients watching each game.
type Hub struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
}

// NewHub creates a hub. An empty allowedOrigins accepts any origin.
func NewHub(logger *zap.Logger, m *metrics.Metrics, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:     logger,
		metrics:    m,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 256),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
	return h
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[origin] || set[u.Host]
	}
}

// Run owns the client registry until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
			}
			h.clients = map[string]map[*Client]bool{}
			return

		case c := <-h.register:
			if h.clients[c.gameID] == nil {
				h.clients[c.gameID] = make(map[*Client]bool)
			}
			h.clients[c.gameID][c] = true
			h.metrics.ClientConnected(1)
			if h.logger != nil {
				h.logger.Debug("websocket client registered", zap.String("game_id", c.gameID))
			}

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.clients[msg.gameID] {
				select {
				case c.send <- msg.data:
				default:
					// Too slow to keep up; drop it.
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	clients := h.clients[c.gameID]
	if !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, c.gameID)
	}
	close(c.send)
	h.metrics.ClientConnected(-1)
	if h.logger != nil {
		h.logger.Debug("websocket client unregistered", zap.String("game_id", c.gameID))
	}
}

// Notify queues a notification for the game's clients. It is an
// engine.NotificationHandler.
func (h *Hub) Notify(n engine.Notification) {
	data, err := json.Marshal(WSMessage{Type: n.Type, GameID: n.GameID, Data: n})
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("failed to encode notification", zap.String("game_id", n.GameID), zap.Error(err))
		}
		return
	}
	select {
	case h.broadcast <- broadcast{gameID: n.GameID, data: data}:
	case <-h.done:
	}
}

// ServeWS upgrades the request and streams the game to the client, starting
// with view.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, view game.View) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Debug("websocket upgrade failed", zap.Error(err))
		}
		return
	}

	first, err := json.Marshal(WSMessage{Type: MessageGameState, GameID: view.ID, Data: view})
	if err != nil {
		conn.Close()
		return
	}
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		gameID: view.ID,
	}
	c.send <- first

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// readPump only watches for close and pong frames.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
