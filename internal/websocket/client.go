package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Application-level ping cadence. The desktop client answers with a
	// pong frame; two missed pings in a row close the connection.
	pingInterval = 60 * time.Second

	// Read deadline: two ping intervals plus slack. Any inbound frame
	// refreshes it.
	pongWait = 2*pingInterval + 10*time.Second

	// Maximum message size allowed from peer (512KB).
	maxMessageSize = 512 * 1024

	// Outbound buffer size per connection.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a single gateway websocket connection. A connection is anonymous
// until its first frame, which must be an identify.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	connectionID string

	// Owned by the read pump until registration, then guarded by hub.mu.
	summonerName string
	identified   bool

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
}

func newClient(hub *Hub, conn *websocket.Conn, connectionID string) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		connectionID: connectionID,
		inflight:     make(map[string]struct{}),
	}
}

// trySend queues a frame without blocking. A full buffer means the peer has
// stopped draining; the caller decides whether that kills the connection.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) trackRequest(id string) {
	c.mu.Lock()
	c.inflight[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) untrackRequest(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

func (c *Client) drainInflight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.inflight))
	for id := range c.inflight {
		ids = append(ids, id)
	}
	c.inflight = make(map[string]struct{})
	return ids
}

// readPump pumps frames from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client: read error (conn=%s player=%s): %v", c.connectionID, c.summonerName, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if closeConn := c.hub.routeFrame(c, data); closeConn {
			return
		}
	}
}

// writePump pumps frames from the send channel to the websocket connection
// and emits the periodic application-level ping.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
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
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			ping := encodeFrame(PingFrame{Type: FrameTypePing, Ts: time.Now().UnixMilli()})
			if err := c.conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return
			}
		}
	}
}
