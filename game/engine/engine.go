package engine

import "fmt"

// Engine provides the per-session operations a tick loop needs
type Engine interface {
	State() *GameState
	Settings() Settings
	Start() bool
	Running() bool
	Advance(left, right Keys) Event
	Finish()
	Winner() Side
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state    *GameState
	settings Settings
	rng      Rand
}

// NewEngine lays out a fresh court of the given size and serves the ball.
func NewEngine(width, height float64, settings Settings, rng Rand) (*GameEngine, error) {
	if err := ValidateSettings(&settings); err != nil {
		return nil, err
	}
	if err := ValidateCanvas(width, height, &settings); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("engine: random source is required")
	}

	return &GameEngine{
		state:    NewGameState(width, height, &settings, rng),
		settings: settings,
		rng:      rng,
	}, nil
}

// NewGameState centres both paddles vertically, inset from the side walls.
func NewGameState(width, height float64, s *Settings, rng Rand) *GameState {
	paddleY := (height - s.PaddleHeight) / 2
	state := &GameState{
		CanvasWidth:  width,
		CanvasHeight: height,
		Ball:         Ball{Radius: s.BallRadius},
		Players: Players{
			P1: Paddle{X: s.PaddleInset, Y: paddleY, Width: s.PaddleWidth, Height: s.PaddleHeight},
			P2: Paddle{X: width - s.PaddleInset - s.PaddleWidth, Y: paddleY, Width: s.PaddleWidth, Height: s.PaddleHeight},
		},
	}
	ResetBall(state, s, rng)
	return state
}

// State returns a copy of the current state.
func (e *GameEngine) State() *GameState {
	return e.state.Clone()
}

// Settings returns the physics the engine was built with.
func (e *GameEngine) Settings() Settings {
	return e.settings
}

// Start flips gameStarted. It reports false if the game was already started or is over.
func (e *GameEngine) Start() bool {
	if e.state.GameStarted || e.state.GameOver {
		return false
	}
	e.state.GameStarted = true
	return true
}

// Running reports whether ticks currently move anything.
func (e *GameEngine) Running() bool {
	return e.state.GameStarted && !e.state.GameOver
}

// Advance applies both players' held keys and steps the ball once.
// Nothing moves before Start or after the game is over.
func (e *GameEngine) Advance(left, right Keys) Event {
	if !e.Running() {
		return 0
	}

	ApplyInput(e.state, SideLeft, left, e.settings.PaddleSpeed)
	ApplyInput(e.state, SideRight, right, e.settings.PaddleSpeed)

	ev := Step(e.state, &e.settings, e.rng)
	if ev.Scored() && e.limitReached() {
		e.state.GameOver = true
		ev |= EventGameOver
	}
	return ev
}

// Finish ends the match where it stands.
func (e *GameEngine) Finish() {
	e.state.GameOver = true
}

// Winner returns the leading side, or SideSpectator on a tie.
func (e *GameEngine) Winner() Side {
	switch {
	case e.state.Score.Left > e.state.Score.Right:
		return SideLeft
	case e.state.Score.Right > e.state.Score.Left:
		return SideRight
	}
	return SideSpectator
}

func (e *GameEngine) limitReached() bool {
	limit := e.settings.ScoreLimit
	return limit > 0 && (e.state.Score.Left >= limit || e.state.Score.Right >= limit)
}
