package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	maxFrameSize   = 4096
)

// SessionCheck reports whether the session that opened a connection may
// still play.
type SessionCheck func(ctx context.Context) bool

// Client is one player's connection.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	picker Picker
	userID int64
	check  SessionCheck
	send   chan []byte
	logger *slog.Logger
}

// NewClient builds a player connection. A nil check never ends the session.
func NewClient(hub *Hub, conn *ws.Conn, picker Picker, userID int64, check SessionCheck, logger *slog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		picker: picker,
		userID: userID,
		check:  check,
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
	}
}

func (c *Client) authorized(ctx context.Context) bool {
	return c.check == nil || c.check(ctx)
}

// endSession closes the connection of a player whose session was revoked
// or suspended.
func (c *Client) endSession() {
	c.logger.Info("closing play connection", "user_id", c.userID, "reason", "session ended")
	c.conn.Close(ws.StatusPolicyViolation, "session ended")
}

// Run registers the client, starts the write pump, and answers frames
// until the connection closes.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(maxFrameSize)
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if !c.authorized(ctx) {
			c.endSession()
			return
		}
		resp := Response{Kind: KindError, Error: "text frames only"}
		if typ == ws.MessageText {
			resp = Handle(c.picker, data)
		}
		if !c.reply(ctx, resp) {
			return
		}
	}
}

// reply queues a response, waiting for buffer space. Unlike notices,
// answers are never dropped.
func (c *Client) reply(ctx context.Context, resp Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("marshal play response", "error", err)
		return false
	}
	select {
	case c.send <- data:
		return true
	case <-ctx.Done():
		return false
	}
}

// writePump drains the send channel and pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if !c.authorized(ctx) {
				c.endSession()
				return
			}
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
