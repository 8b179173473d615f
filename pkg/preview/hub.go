package preview

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/metrics"
	"github.com/yaklabco/themepipe/pkg/task"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Browsers only ever send hellos; anything larger is a misbehaving peer.
	maxMessageSize = 512

	// Pending messages per client before it is considered too slow and dropped.
	sendBuffer = 16
)

// Message is what the reload channel sends to browsers.
type Message struct {
	Command string `json:"command"`
	ID      string `json:"id"`
}

// CommandReload tells the browser to reload the page.
const CommandReload = "reload"

type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// Hub is the live-reload channel: it holds the connected browsers and
// broadcasts reload messages to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	originPatterns []string
	metrics        *metrics.Recorder
}

// NewHub returns an empty hub. rec may be nil.
func NewHub(rec *metrics.Recorder) *Hub {
	return &Hub{
		clients:        make(map[*client]struct{}),
		originPatterns: []string{"localhost:*", "127.0.0.1:*", "[::1]:*"},
		metrics:        rec,
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and keeps it registered until
// the browser goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Debug("livereload upgrade failed", slog.String(log.Addr, r.RemoteAddr), slog.Any(log.Error, err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), addr: r.RemoteAddr}
	if !h.add(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	go c.writePump()

	// Block reading until the peer disconnects.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				slog.Debug("livereload client error", slog.String(log.Addr, c.addr), slog.Any(log.Error, err))
			}
			break
		}
	}
	h.remove(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetReloadClients(n)
	slog.Debug("livereload client connected", slog.String(log.Addr, c.addr), slog.Int(log.Clients, n))
	return true
}

// remove unregisters c and closes its send channel. Only the caller that
// actually removes c closes the channel.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.SetReloadClients(n)
		slog.Debug("livereload client disconnected", slog.String(log.Addr, c.addr), slog.Int(log.Clients, n))
	}
}

// Reload tells every connected browser to reload and returns how many were
// notified. With no clients it does nothing. A client whose queue is full is
// dropped rather than allowed to stall the others.
func (h *Hub) Reload() int {
	msg, err := json.Marshal(Message{Command: CommandReload, ID: uuid.NewString()})
	if err != nil {
		slog.Error("encoding reload message", slog.Any(log.Error, err))
		return 0
	}

	h.mu.Lock()
	var slow []*client
	sent := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		slog.Warn("dropping slow livereload client", slog.String(log.Addr, c.addr))
		h.remove(c)
		c.conn.CloseNow()
	}

	if sent == 0 {
		slog.Debug("reload requested with no connected browsers")
		return 0
	}
	h.metrics.IncReload()
	slog.Info("reloading browsers", slog.Int(log.Clients, sent))
	return sent
}

// Task returns Reload as the "reload" task.
func (h *Hub) Task() task.Task {
	return task.Describe(task.Func("reload", func(context.Context) error {
		h.Reload()
		return nil
	}), "Tell connected browsers to reload")
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				slog.Debug("livereload write failed", slog.String(log.Addr, c.addr), slog.Any(log.Error, err))
				c.conn.CloseNow()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.conn.CloseNow()
				return
			}
		}
	}
}
