// Package protocol defines the JSON frames exchanged with game clients.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wricardo/pong-arena/game/engine"
)

// Message types
const (
	TypeDimensions      = "DIMENSIONS"
	TypePlayerInput     = "PLAYER_INPUT"
	TypeGameInitialized = "GAME_INITIALIZED"
	TypeGameStarted     = "GAME_STARTED"
	TypeGameState       = "GAME_STATE"
	TypeGameOver        = "GAME_OVER"
	TypeError           = "ERROR"

	ActionStartGame = "START_GAME"
)

// Reasons carried by GAME_OVER
const (
	ReasonCompleted  = "completed"
	ReasonAbandoned  = "abandoned"
	ReasonTerminated = "terminated"
)

var (
	ErrMissingType = errors.New("message type is required")
	ErrBadPayload  = errors.New("invalid message payload")
)

var validate = validator.New()

// Inbound is any frame a client may send. Unused fields stay zero.
type Inbound struct {
	Type   string       `json:"type" jsonschema:"enum=DIMENSIONS,enum=PLAYER_INPUT"`
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`
	DPR    float64      `json:"dpr,omitempty"`
	Input  *PlayerInput `json:"input,omitempty"`
}

// PlayerInput carries either a start action or the held key map.
type PlayerInput struct {
	Action string          `json:"action,omitempty" jsonschema:"enum=START_GAME"`
	Keys   map[string]bool `json:"keys,omitempty"`
}

// Validate checks the fields required by the message type.
// Unknown types pass; the dispatcher ignores them.
func (m *Inbound) Validate() error {
	switch m.Type {
	case "":
		return ErrMissingType
	case TypeDimensions:
		if err := validate.Var(m.Width, "gt=0"); err != nil {
			return fmt.Errorf("%w: width: %v", ErrBadPayload, err)
		}
		if err := validate.Var(m.Height, "gt=0"); err != nil {
			return fmt.Errorf("%w: height: %v", ErrBadPayload, err)
		}
	case TypePlayerInput:
		if m.Input == nil {
			return fmt.Errorf("%w: input is required", ErrBadPayload)
		}
	}
	return nil
}

// IsStart reports whether the message asks to start the game.
func (m *Inbound) IsStart() bool {
	return m.Type == TypePlayerInput && m.Input != nil && m.Input.Action == ActionStartGame
}

// Outbound is any frame the server sends.
type Outbound interface {
	MessageType() string
}

// GameInitialized is sent to a single connection once its session has state.
type GameInitialized struct {
	Type  string            `json:"type"`
	State *engine.GameState `json:"state"`
	Side  string            `json:"side"`
}

func (m *GameInitialized) MessageType() string { return m.Type }

// NewGameInitialized copies state for the recipient on side.
func NewGameInitialized(state *engine.GameState, side engine.Side) *GameInitialized {
	return &GameInitialized{Type: TypeGameInitialized, State: state.Clone(), Side: side.String()}
}

// StartedState is the state payload of GAME_STARTED.
type StartedState struct {
	GameStarted bool           `json:"gameStarted"`
	Ball        engine.Ball    `json:"ball"`
	Players     engine.Players `json:"players"`
	Score       engine.Score   `json:"score"`
}

// GameStarted is broadcast once when a start is accepted.
type GameStarted struct {
	Type  string       `json:"type"`
	State StartedState `json:"state"`
}

func (m *GameStarted) MessageType() string { return m.Type }

// NewGameStarted builds a GAME_STARTED frame.
func NewGameStarted(state *engine.GameState) *GameStarted {
	return &GameStarted{
		Type: TypeGameStarted,
		State: StartedState{
			GameStarted: state.GameStarted,
			Ball:        state.Ball,
			Players:     state.Players,
			Score:       state.Score,
		},
	}
}

// BallView is the ball as rendered by clients.
type BallView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// Frame is the per-tick snapshot body.
type Frame struct {
	Ball        BallView       `json:"ball"`
	Players     engine.Players `json:"players"`
	Score       engine.Score   `json:"score"`
	GameStarted bool           `json:"gameStarted"`
}

// NewFrame copies the renderable parts of state.
func NewFrame(state *engine.GameState) Frame {
	return Frame{
		Ball: BallView{
			X:     state.Ball.X,
			Y:     state.Ball.Y,
			Width: state.Ball.Radius * 2,
		},
		Players:     state.Players,
		Score:       state.Score,
		GameStarted: state.GameStarted,
	}
}

// GameState is the per-tick broadcast.
type GameState struct {
	Type string `json:"type"`
	T    int64  `json:"t"`
	S    Frame  `json:"s"`
}

func (m *GameState) MessageType() string { return m.Type }

// NewGameState stamps a frame with the tick time in unix milliseconds.
func NewGameState(state *engine.GameState, at time.Time) *GameState {
	return &GameState{Type: TypeGameState, T: at.UnixMilli(), S: NewFrame(state)}
}

// GameOver is broadcast when a match ends.
type GameOver struct {
	Type   string       `json:"type"`
	Reason string       `json:"reason"`
	Winner string       `json:"winner"`
	Score  engine.Score `json:"score"`
	Hits   engine.Score `json:"hits"`
}

func (m *GameOver) MessageType() string { return m.Type }

// NewGameOver builds a GAME_OVER frame. A tie reports winner "none".
func NewGameOver(state *engine.GameState, reason string, winner engine.Side) *GameOver {
	name := "none"
	if winner != engine.SideSpectator {
		name = winner.String()
	}
	return &GameOver{
		Type:   TypeGameOver,
		Reason: reason,
		Winner: name,
		Score:  state.Score,
		Hits:   state.Hits,
	}
}

// Error tells one client its last frame was rejected.
type Error struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (m *Error) MessageType() string { return m.Type }

// NewError builds an ERROR frame.
func NewError(reason string) *Error {
	return &Error{Type: TypeError, Reason: reason}
}
