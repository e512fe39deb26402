package engine

import "fmt"

// Side identifies which paddle a connection controls.
type Side int

const (
	SideSpectator Side = iota
	SideLeft
	SideRight
)

// Sign choices for a reset velocity component
const directionChoices = 2

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "p1"
	case SideRight:
		return "p2"
	default:
		return "spectator"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	side, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// ParseSide accepts the wire names plus left/right aliases.
func ParseSide(name string) (Side, error) {
	switch name {
	case "p1", "left":
		return SideLeft, nil
	case "p2", "right":
		return SideRight, nil
	case "spectator", "":
		return SideSpectator, nil
	}
	return SideSpectator, fmt.Errorf("unknown side %q", name)
}

// Ball is the single ball in play. Radius is fixed at initialization.
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
}

// Paddle is an axis-aligned rectangle anchored at its top-left corner.
type Paddle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Players holds exactly two paddles: p1 on the left, p2 on the right.
type Players struct {
	P1 Paddle `json:"p1"`
	P2 Paddle `json:"p2"`
}

// Score counts points (or paddle hits) per side.
type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Total returns the sum of both sides.
func (s Score) Total() int {
	return s.Left + s.Right
}

// Add increments the counter for a side.
func (s *Score) Add(side Side) {
	switch side {
	case SideLeft:
		s.Left++
	case SideRight:
		s.Right++
	}
}

// GameState represents the complete simulation state of one session
type GameState struct {
	Ball         Ball    `json:"ball"`
	Players      Players `json:"players"`
	Score        Score   `json:"score"`
	Hits         Score   `json:"hits"`
	CanvasWidth  float64 `json:"canvasWidth"`
	CanvasHeight float64 `json:"canvasHeight"`
	GameStarted  bool    `json:"gameStarted"`
	GameOver     bool    `json:"gameOver"`
}

// Paddle returns the paddle controlled by side, or nil for spectators.
func (g *GameState) Paddle(side Side) *Paddle {
	switch side {
	case SideLeft:
		return &g.Players.P1
	case SideRight:
		return &g.Players.P2
	}
	return nil
}

// Clone returns an independent copy of the state.
func (g *GameState) Clone() *GameState {
	c := *g
	return &c
}

// Keys is the held movement input of one connection.
type Keys struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// KeysFromMap folds browser key names into up/down.
// ArrowUp, w and W move up; ArrowDown, s and S move down.
func KeysFromMap(m map[string]bool) Keys {
	var k Keys
	for name, held := range m {
		if !held {
			continue
		}
		switch name {
		case "ArrowUp", "w", "W":
			k.Up = true
		case "ArrowDown", "s", "S":
			k.Down = true
		}
	}
	return k
}

// Event is a bit set of things that happened during one step.
type Event uint8

const (
	EventWallBounce Event = 1 << iota
	EventHitLeft
	EventHitRight
	EventScoreLeft
	EventScoreRight
	EventGameOver
)

// Has reports whether all bits of f are set.
func (e Event) Has(f Event) bool {
	return e&f == f
}

// Scored reports whether either side scored.
func (e Event) Scored() bool {
	return e&(EventScoreLeft|EventScoreRight) != 0
}
