// Package ws pushes server events to browsers over WebSocket using
// gorilla/websocket. Connections are grouped by user so a message can be
// delivered to every open tab of one account.
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//	r.Get("/ws/orders", "ws.orders", func(w http.ResponseWriter, r *http.Request) {
//	    hub.Serve(w, r, userID)
//	})
//	hub.SendTo(userID, payload)
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send control frames
	sendBuffer     = 32
)

// client is one connection.
type client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

type envelope struct {
	userID string
	data   []byte
}

// Hub owns every connection. All map access happens on the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	users      map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	direct     chan envelope
	count      chan chan int
	done       chan struct{}
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin ...func(r *http.Request) bool) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		users:      make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		direct:     make(chan envelope, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
	if len(checkOrigin) > 0 && checkOrigin[0] != nil {
		h.upgrader.CheckOrigin = checkOrigin[0]
	}
	return h
}

// Run is the hub event loop. It closes every connection when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, set := range h.users {
				for c := range set {
					close(c.send)
				}
			}
			h.users = make(map[string]map[*client]struct{})
			return

		case c := <-h.register:
			set, ok := h.users[c.userID]
			if !ok {
				set = make(map[*client]struct{})
				h.users[c.userID] = set
			}
			set[c] = struct{}{}
			logger.Debug("ws: client connected", "user_id", c.userID, "connections", len(set))

		case c := <-h.unregister:
			h.drop(c)

		case env := <-h.direct:
			for c := range h.users[env.userID] {
				select {
				case c.send <- env.data:
				default:
					// Slow consumer: cut it loose rather than block the hub.
					h.drop(c)
				}
			}

		case reply := <-h.count:
			n := 0
			for _, set := range h.users {
				n += len(set)
			}
			reply <- n
		}
	}
}

func (h *Hub) drop(c *client) {
	set, ok := h.users[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
}

// SendTo queues data for every connection of userID. It never blocks; when
// the hub is saturated the message is dropped and false is returned.
func (h *Hub) SendTo(userID string, data []byte) bool {
	select {
	case h.direct <- envelope{userID: userID, data: data}:
		return true
	default:
		logger.Warn("ws: hub saturated, message dropped", "user_id", userID)
		return false
	}
}

// ClientCount returns the number of open connections, 0 once Run returned.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Serve upgrades the request and attaches the connection to userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only services control frames; inbound data is discarded.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
