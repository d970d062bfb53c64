package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"termiclad/internal/models"
	"termiclad/internal/presence"
	"termiclad/internal/services"
	"termiclad/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client is one live websocket session, joined to the room of the identity
// its token verified as. It satisfies presence.Conn.
type Client struct {
	conn      *websocket.Conn
	identity  models.Identity
	sessionID string

	registry *presence.Registry
	messages *services.MessageService
	users    *services.UserService

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(conn *websocket.Conn, identity models.Identity, registry *presence.Registry, messages *services.MessageService, users *services.UserService) *Client {
	return &Client{
		conn:      conn,
		identity:  identity,
		sessionID: uuid.NewString(),
		registry:  registry,
		messages:  messages,
		users:     users,
		send:      make(chan []byte, 256),
	}
}

func (c *Client) ID() string {
	return c.sessionID
}

// Push queues data for the write pump without blocking. A full buffer or a
// closed connection refuses the payload; the caller drops it for this
// connection only.
func (c *Client) Push(data []byte) bool {
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

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump handles inbound events one at a time; a send is processed through
// persistence before the next frame is read, which is what keeps
// per-connection send order aligned with persisted order.
func (c *Client) ReadPump() {
	defer func() {
		c.registry.Leave(c.identity.ID, c)
		if !c.registry.IsOnline(c.identity.ID) {
			c.users.SetPresence(context.Background(), c.identity.ID, false)
		}
		c.closeSend()
		c.conn.Close()
		logger.Info("User %s disconnected (session %s)", c.identity.Username, c.sessionID)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.sendError("malformed event")
			continue
		}

		c.handleEvent(&event)
	}
}

func (c *Client) handleEvent(event *models.ClientEvent) {
	switch event.Event {
	case models.EventJoinRoom:
		c.handleJoinRoom(event.Data)
	case models.EventSendMessage:
		c.handleSendMessage(event.Data)
	default:
		c.sendError("unknown event: " + event.Event)
	}
}

// handleJoinRoom only accepts a join for the identity this connection is
// authenticated as. The connection is already in its own room since the
// upgrade, so a matching join is an idempotent no-op.
func (c *Client) handleJoinRoom(data json.RawMessage) {
	var payload models.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed join_room payload")
		return
	}

	if payload.UserID != c.identity.ID {
		logger.Error("User %d attempted to join room of user %d", c.identity.ID, payload.UserID)
		c.sendError("cannot join another user's room")
		return
	}

	c.registry.Join(c.identity.ID, c)
}

func (c *Client) handleSendMessage(data json.RawMessage) {
	var req models.SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed send_message payload")
		return
	}

	msg, err := c.messages.Send(context.Background(), c.identity, &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.sendError(verr.Reason)
			return
		}
		logger.Error("Send from user %d failed: %v", c.identity.ID, err)
		c.sendError("Failed to send message")
		return
	}

	c.sendEvent(models.EventMessageSent, msg)
}

func (c *Client) sendEvent(event string, data interface{}) {
	payload, err := json.Marshal(models.ServerEvent{Event: event, Data: data})
	if err != nil {
		logger.Error("Error marshaling %s event: %v", event, err)
		return
	}
	c.Push(payload)
}

func (c *Client) sendError(reason string) {
	c.sendEvent(models.EventMessageError, models.ErrorPayload{Message: reason})
}

func (c *Client) WritePump() {
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
				logger.Error("Write error: %v", err)
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
