package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second // Relaxed to 60s for mobile stability

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Client is one channel: a single websocket connection from one tab or device.
// It is unbound until the hub processes register_user for it.
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	mu       sync.Mutex
	userID   string
	focus    string // room currently viewed on this channel
	presence bool   // subscribed to online_users
	closed   bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:      uuid.New().String(),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.opts.SendBufferSize),
		limiter: rate.NewLimiter(hub.opts.EventRate, hub.opts.EventBurst),
	}
}

// UserID returns the bound user, or "" before register_user
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) setUserID(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// Focus returns the room this channel is viewing, or "" for none
func (c *Client) Focus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

func (c *Client) setFocus(roomID string) {
	c.mu.Lock()
	c.focus = roomID
	c.mu.Unlock()
}

func (c *Client) wantsPresence() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence && !c.closed
}

func (c *Client) subscribePresence() {
	c.mu.Lock()
	c.presence = true
	c.mu.Unlock()
}

// Send adds a message to the client's send queue.
// It never blocks; false means the frame was dropped.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		// Buffer full
		return false
	}
}

// close shuts the send queue; WritePump then closes the socket
func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// ReadPump pumps frames from the websocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("Channel closed unexpectedly", "channel_id", c.ID, "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.hub.rejectRateLimited(c)
			continue
		}

		c.hub.Dispatch(c, message)
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per event keeps client-side parsing trivial
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
