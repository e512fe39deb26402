package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/pong-arena/game/protocol"
	"go.uber.org/zap"
)

// Client is one websocket connection to a game. It implements session.Peer.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	codec  *codec
	gameID string
	logger *zap.Logger

	// send is never closed; done tells the write pump to flush and exit.
	send      chan protocol.Outbound
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Deliver queues msg without blocking. It reports false when the client is
// closed or too far behind.
func (c *Client) Deliver(msg protocol.Outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close flushes queued frames and closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump pumps frames from the websocket connection to the game service
func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("read pump panicked", zap.Any("panic", r))
		}
		c.hub.unregister(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handle(data)
	}
}

// handle decodes and dispatches one frame. A bad frame is answered with an
// ERROR frame and never ends the connection.
func (c *Client) handle(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message handler panicked", zap.Any("panic", r))
			c.Deliver(protocol.NewError("internal error"))
		}
	}()

	var msg protocol.Inbound
	if err := c.codec.unmarshal(data, &msg); err != nil {
		c.logger.Warn("malformed message dropped", zap.Error(err), zap.Int("bytes", len(data)))
		c.Deliver(protocol.NewError(fmt.Sprintf("%v: cannot decode message", protocol.ErrBadPayload)))
		return
	}

	err := c.hub.service.HandleMessage(context.Background(), c.gameID, c.id, &msg)
	if err == nil {
		return
	}
	if errors.Is(err, protocol.ErrBadPayload) || errors.Is(err, protocol.ErrMissingType) {
		c.logger.Debug("invalid message dropped", zap.String("type", msg.Type), zap.Error(err))
	} else {
		c.logger.Warn("message rejected", zap.String("type", msg.Type), zap.Error(err))
	}
	c.Deliver(protocol.NewError(err.Error()))
}

// writePump pumps frames from the session to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush what the session queued before closing, GAME_OVER included.
			for n := len(c.send); n > 0; n-- {
				if err := c.write(<-c.send); err != nil {
					return
				}
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(msg protocol.Outbound) error {
	data, err := c.codec.marshal(msg)
	if err != nil {
		c.logger.Error("failed to encode frame", zap.String("type", msg.MessageType()), zap.Error(err))
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(c.codec.frameType, data)
}
