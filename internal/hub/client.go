package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tableside/internal/broadcast"
	"tableside/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	actor domain.Actor
	rooms []string

	mu     sync.Mutex
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
}

// close deregisters the client and closes its send channel. The connection
// itself stays open until writePump drains what is already queued, so a final
// ack still reaches the peer.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.hub.leave(c)
}

// trySend reports false when the client is closed or its buffer is full.
// It never blocks and never panics on a concurrently closed client.
func (c *Client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// joinRequest is the first frame a client must send: role plus the scope that
// determines its rooms.
type joinRequest struct {
	Type         string      `json:"type"`
	Role         domain.Role `json:"role"`
	RestaurantID string      `json:"restaurant_id"`
	SessionID    string      `json:"session_id,omitempty"`
	Station      string      `json:"station,omitempty"`
	Actor        string      `json:"actor,omitempty"`
}

type joinedReply struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}

func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if !c.handleJoin() {
		return
	}

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleRPC(msg)
	}
}

// handleJoin validates the join frame and registers the client's rooms:
// customers get their session room, chefs their station room, waiters and
// managers the restaurant room.
func (c *Client) handleJoin() bool {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return false
	}
	var req joinRequest
	if err := json.Unmarshal(msg, &req); err != nil || req.Type != "join" {
		c.sendAck("", false, "bad_join")
		return false
	}

	var rooms []string
	switch req.Role {
	case domain.RoleCustomer:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		sess, err := c.hub.sessions.Get(ctx, req.SessionID)
		cancel()
		if err != nil || sess.Status != domain.SessionActive {
			c.sendAck("", false, "session_not_found")
			return false
		}
		rooms = []string{broadcast.SessionRoom(sess.ID)}
		req.RestaurantID = sess.RestaurantID
	case domain.RoleChef:
		if req.RestaurantID == "" || req.Station == "" {
			c.sendAck("", false, "bad_join")
			return false
		}
		rooms = []string{broadcast.StationRoom(req.RestaurantID, req.Station)}
	case domain.RoleWaiter, domain.RoleManager:
		if req.RestaurantID == "" {
			c.sendAck("", false, "bad_join")
			return false
		}
		rooms = []string{broadcast.RestaurantRoom(req.RestaurantID)}
	default:
		c.sendAck("", false, "bad_role")
		return false
	}

	c.actor = domain.Actor{
		Name:         req.Actor,
		Role:         req.Role,
		RestaurantID: req.RestaurantID,
		Station:      req.Station,
		SessionID:    req.SessionID,
	}
	c.hub.join(c, rooms)

	if reply, err := json.Marshal(joinedReply{Type: "joined", Rooms: rooms}); err == nil {
		c.enqueue(reply)
	}
	return true
}

func (c *Client) enqueue(frame []byte) {
	if !c.trySend(frame) {
		c.close()
	}
}

func (c *Client) writePump() {
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
				// send closed after the queued frames drained; say goodbye
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
