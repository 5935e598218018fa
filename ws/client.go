package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// pongWait allows three missed 30s heartbeats.
	pongWait = 90 * time.Second

	// Inbound frames are small control messages; data goes over REST.
	maxMessageSize = 4096

	// A full buffer means the client stopped reading; it gets disconnected.
	sendBufferSize = 256

	joinTimeout = 5 * time.Second
)

// Client is one socket connection. ReadPump and WritePump each run in their
// own goroutine; WritePump is the only writer of conn except for the
// close frame.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	identity Identity
	send     chan []byte
	mu       sync.Mutex
	log      *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, connID string, identity Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		id:       connID,
		identity: identity,
		send:     make(chan []byte, sendBufferSize),
		log:      hub.log.With(zap.String("conn", connID), zap.String("user", identity.UserID)),
	}
}

// ReadPump reads frames until the socket fails, then unregisters the
// client, which drops all of its room memberships.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.requestUnregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("failed to set read deadline", zap.Error(err))
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("unexpected close", zap.Error(err))
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Debug("invalid message", zap.Error(err))
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event inboundEvent) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("failed to set read deadline", zap.Error(err))
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpJoinUserRoom:
		userID := parseID(event.Data, "userId")
		if userID == "" {
			userID = c.identity.UserID
		}
		c.join(UserRoom(userID))

	case OpJoinBookRoom:
		c.join(BookRoom(parseID(event.Data, "bookId")))

	case OpLeaveBookRoom:
		c.leave(BookRoom(parseID(event.Data, "bookId")))

	case OpJoinAdminRoom:
		c.join(AdminRoom)

	case OpLeaveAdminRoom:
		c.leave(AdminRoom)

	default:
		c.log.Debug("unknown op", zap.String("op", event.Op))
	}
}

// join admits the connection only after the authorizer accepts the
// identity for room. A denial leaves memberships untouched.
func (c *Client) join(room string) {
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	if err := c.hub.authorizer.Authorize(ctx, c.identity, room); err != nil {
		kind, _, _ := ParseRoom(room)
		c.hub.metrics.JoinDenied(string(kind))

		reason := err.Error()
		var denied *JoinDeniedError
		if !errors.As(err, &denied) {
			c.log.Error("room authorization failed", zap.String("room", room), zap.Error(err))
			reason = "authorization unavailable"
		}
		c.sendEvent(Event{Op: OpJoinDenied, Data: JoinDeniedData{Room: room, Reason: reason}})
		return
	}

	c.hub.joinRoom(c, room)
	c.sendEvent(Event{Op: OpRoomJoined, Data: RoomData{Room: room}})
}

func (c *Client) leave(room string) {
	if c.hub.rooms.Leave(c.id, room) {
		c.hub.metrics.SetRoomMemberships(c.hub.rooms.Memberships())
	}
	c.sendEvent(Event{Op: OpRoomLeft, Data: RoomData{Room: room}})
}

// sendEvent replies to this connection only; replies carry no seq.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
		return
	}
	c.hub.sendTo(c, data)
}

// WritePump drains send until the hub closes it.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
