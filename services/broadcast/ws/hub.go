// Package wsbroadcast pushes mode transitions to the websocket clients watching a child.
package wsbroadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/emotion"
)

// Event types
const (
	TypeStateInit   = "state_init"
	TypeModeChanged = "mode_changed"
)

const (
	defaultSendBuf = 16

	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// envelope is the wire format of every message: {type, ts, data}.
type envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data interface{} `json:"data,omitempty"`
}

func encode(typ string, ts time.Time, data interface{}) ([]byte, error) {
	return json.Marshal(envelope{Type: typ, Ts: ts.UTC(), Data: data})
}

type client struct {
	childID string
	conn    *websocket.Conn
	send    chan []byte
	once    sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub tracks the connected clients per child. A client too slow to keep up is disconnected.
type Hub struct {
	logger   core.Logger
	upgrader websocket.Upgrader
	sendBuf  int

	mu      sync.Mutex
	clients map[string]map[*client]struct{} // {childID: clients}
}

func NewHub(logger core.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		logger:  logger,
		sendBuf: defaultSendBuf,
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Publish sends t to the child's clients. It never blocks.
func (h *Hub) Publish(childID string, t emotion.Transition) {
	msg, err := encode(TypeModeChanged, t.At, t)
	if err != nil {
		h.logger.Error(fmt.Sprintf("encoding transition: %v", err), errors.Wrap(err, "encoding transition"))
		return
	}

	var slow []*client
	h.mu.Lock()
	for c := range h.clients[childID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c)
	}
}

// Clients returns how many clients watch the child.
func (h *Hub) Clients(childID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[childID])
}

// Serve upgrades the request and streams the child's transitions, starting with snapshot.
// It returns once the client is gone.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, childID string, snapshot emotion.State) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	c := &client{childID: childID, conn: conn, send: make(chan []byte, h.sendBuf)}
	init, err := encode(TypeStateInit, time.Now(), snapshot)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "encoding snapshot")
	}
	c.send <- init
	h.add(c)

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.childID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.childID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.childID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.childID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards incoming messages; it only detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(fmt.Sprintf("ws client of %s: %v", c.childID, err))
			}
			return
		}
	}
}
