package web

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	// clientBuffer is the per-client outbound queue size.
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans status updates out to websocket clients. Every frame is the
// JSON snapshot exactly as published on <prefix>/updated. Slow clients are
// disconnected when their queue fills.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// PublishUpdate queues payload for every client. It never blocks.
func (h *Hub) PublishUpdate(payload []byte) error {
	var slow []*client

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c, "slow client")
	}
	return nil
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.closed = true
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	// Closing send makes the write pump send a close frame and exit.
	close(c.send)
	log.Printf("ws: %s disconnected (%s), %d clients", c.remoteAddr, reason, n)
}

// serve upgrades the request, queues initial as the first frame and runs
// the client until it disconnects.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, initial []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:       conn,
		send:       make(chan []byte, clientBuffer),
		remoteAddr: r.RemoteAddr,
	}
	c.send <- initial
	if !h.add(c) {
		conn.Close()
		return
	}
	log.Printf("ws: %s connected", c.remoteAddr)

	// The pumps outlive the handler; the hub and socket errors end them.
	go c.writePump()
	go func() {
		c.readPump()
		h.remove(c, "closed")
	}()
}

// writePump writes queued frames and keep-alive pings. It exits on write
// error or when send is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Printf("ws: %s write error: %v", c.remoteAddr, err)
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages so control frames are handled and a
// disconnect is noticed.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
