package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/protocol"
	"go.uber.org/zap"
)

// ErrDisconnected is returned when the server closes the connection before
// sending GAME_OVER.
var ErrDisconnected = errors.New("disconnected before game over")

// Options tune a Bot
type Options struct {
	Width  float64
	Height float64
	// Start sends START_GAME once the bot has a side
	Start bool
	// Deadband is how far the ball may be from the paddle center before the
	// bot moves
	Deadband float64
	Logger   *zap.Logger
}

// Bot plays one side of a match by keeping its paddle centered on the ball
type Bot struct {
	conn  *websocket.Conn
	opts  Options
	log   *zap.Logger
	side  string
	held  engine.Keys
	moves int
}

// Dial connects to a game WebSocket using the JSON subprotocol
func Dial(ctx context.Context, url, token string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"pong.v1.json"},
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// NewBot wraps an open connection
func NewBot(conn *websocket.Conn, opts Options) *Bot {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Bot{conn: conn, opts: opts, log: opts.Logger.Named("bot")}
}

// Side is the side the server assigned, empty until GAME_INITIALIZED
func (b *Bot) Side() string {
	return b.side
}

// Moves counts the input changes the bot has sent
func (b *Bot) Moves() int {
	return b.moves
}

// Play sizes the court, optionally starts the match, and tracks the ball until
// GAME_OVER arrives, the connection drops, or ctx is done.
func (b *Bot) Play(ctx context.Context) (*protocol.GameOver, error) {
	stop := context.AfterFunc(ctx, func() {
		b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bot stopping"),
			time.Now().Add(time.Second))
		b.conn.Close()
	})
	defer stop()

	if err := b.send(&protocol.Inbound{
		Type:   protocol.TypeDimensions,
		Width:  b.opts.Width,
		Height: b.opts.Height,
		DPR:    1,
	}); err != nil {
		return nil, err
	}

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}

		over, err := b.handle(data)
		if err != nil {
			return nil, err
		}
		if over != nil {
			return over, nil
		}
	}
}

func (b *Bot) handle(data []byte) (*protocol.GameOver, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch envelope.Type {
	case protocol.TypeGameInitialized:
		var msg protocol.GameInitialized
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		b.side = msg.Side
		b.log.Info("joined", zap.String("side", b.side))

		if b.opts.Start && b.side != engine.SideSpectator.String() {
			return nil, b.send(&protocol.Inbound{
				Type:  protocol.TypePlayerInput,
				Input: &protocol.PlayerInput{Action: protocol.ActionStartGame},
			})
		}

	case protocol.TypeGameStarted:
		b.log.Info("game started")

	case protocol.TypeGameState:
		var msg protocol.GameState
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		keys := track(b.side, msg.S, b.opts.Deadband)
		if keys == b.held {
			return nil, nil
		}
		b.held = keys
		b.moves++
		return nil, b.send(&protocol.Inbound{
			Type:  protocol.TypePlayerInput,
			Input: &protocol.PlayerInput{Keys: keyMap(keys)},
		})

	case protocol.TypeGameOver:
		var msg protocol.GameOver
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return &msg, nil

	case protocol.TypeError:
		var msg protocol.Error
		json.Unmarshal(data, &msg)
		b.log.Warn("server rejected a frame", zap.String("reason", msg.Reason))
	}

	return nil, nil
}

func (b *Bot) send(msg *protocol.Inbound) error {
	b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := b.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// track returns the keys that move side's paddle toward the ball. The
// spectator never moves.
func track(side string, frame protocol.Frame, deadband float64) engine.Keys {
	var paddle engine.Paddle
	switch side {
	case engine.SideLeft.String():
		paddle = frame.Players.P1
	case engine.SideRight.String():
		paddle = frame.Players.P2
	default:
		return engine.Keys{}
	}

	diff := frame.Ball.Y - (paddle.Y + paddle.Height/2)
	switch {
	case diff > deadband:
		return engine.Keys{Down: true}
	case diff < -deadband:
		return engine.Keys{Up: true}
	}
	return engine.Keys{}
}

func keyMap(k engine.Keys) map[string]bool {
	return map[string]bool{
		"ArrowUp":   k.Up,
		"ArrowDown": k.Down,
	}
}
