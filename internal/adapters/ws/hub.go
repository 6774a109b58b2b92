// Package ws streams match frames to browser displays over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

const (
	defaultSendBuffer = 16
	writeWait         = 5 * time.Second
)

// ErrHubClosed is returned when subscribing to a closed hub.
var ErrHubClosed = errors.New("hub closed")

// Hub fans frames out to the clients watching each match. A slow client
// loses frames rather than stalling the others.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	count   int
	closed  bool

	upgrader   websocket.Upgrader
	sendBuffer int
	logger     logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) stop() { c.once.Do(func() { close(c.send) }) }

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*client]struct{}),
		sendBuffer: defaultSendBuffer,
		logger:     logger.Nop(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish sends f to every client watching f.MatchID.
func (h *Hub) Publish(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	h.mu.RLock()
	defer h.mu.RUnlock()

	watchers := h.clients[f.MatchID]
	if len(watchers) == 0 {
		return nil
	}
	msg, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	for c := range watchers {
		select {
		case c.send <- msg:
		default:
			metrics.RecordFrameDropped()
		}
	}
	return nil
}

// Serve upgrades the request and streams frames of matchID until the peer
// goes away. The first frame is sent immediately when initial is non-nil.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, matchID string, initial *model.Frame) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	if initial != nil {
		if msg, err := json.Marshal(initial); err == nil {
			c.send <- msg
		}
	}
	if err := h.add(matchID, c); err != nil {
		_ = conn.Close()
		return err
	}

	h.logger.Debug(r.Context(), "display connected",
		logger.String("match_id", matchID), logger.String("remote", conn.RemoteAddr().String()))

	go h.read(matchID, c)
	h.write(c)
	return nil
}

// Watchers returns the number of clients watching matchID.
func (h *Hub) Watchers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

// Drop disconnects every client watching matchID.
func (h *Hub) Drop(matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[matchID] {
		c.stop()
	}
	h.count -= len(h.clients[matchID])
	delete(h.clients, matchID)
	metrics.UpdateWSClients(h.count)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, watchers := range h.clients {
		for c := range watchers {
			c.stop()
		}
		delete(h.clients, id)
	}
	h.count = 0
	metrics.UpdateWSClients(0)
	return nil
}

func (h *Hub) add(matchID string, c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if h.clients[matchID] == nil {
		h.clients[matchID] = make(map[*client]struct{})
	}
	h.clients[matchID][c] = struct{}{}
	h.count++
	metrics.UpdateWSClients(h.count)
	return nil
}

func (h *Hub) remove(matchID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	watchers := h.clients[matchID]
	if _, ok := watchers[c]; !ok {
		return
	}
	delete(watchers, c)
	if len(watchers) == 0 {
		delete(h.clients, matchID)
	}
	h.count--
	c.stop()
	metrics.UpdateWSClients(h.count)
}

// read discards peer messages and unregisters the client when it leaves.
func (h *Hub) read(matchID string, c *client) {
	defer h.remove(matchID, c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) write(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			metrics.RecordErrorByComponent("ws", "write_error")
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
