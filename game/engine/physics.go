package engine

import (
	"math"
	"math/rand"
)

// Rand is the random source used to pick reset directions.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a seeded source suitable for a single session.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Step advances the ball by one tick: move, wall bounce, paddle collision,
// then scoring. The ball is back inside the canvas when Step returns.
func Step(state *GameState, s *Settings, rng Rand) Event {
	var ev Event
	b := &state.Ball

	b.X += b.VX
	b.Y += b.VY

	if b.Y <= 0 {
		b.Y = 0
		b.VY = math.Abs(b.VY)
		ev |= EventWallBounce
	} else if b.Y >= state.CanvasHeight {
		b.Y = state.CanvasHeight
		b.VY = -math.Abs(b.VY)
		ev |= EventWallBounce
	}

	if collideLeft(b, &state.Players.P1) {
		state.Hits.Left++
		ev |= EventHitLeft
	} else if collideRight(b, &state.Players.P2) {
		state.Hits.Right++
		ev |= EventHitRight
	}

	switch {
	case b.X < 0:
		state.Score.Right++
		ResetBall(state, s, rng)
		ev |= EventScoreRight
	case b.X > state.CanvasWidth:
		state.Score.Left++
		ResetBall(state, s, rng)
		ev |= EventScoreLeft
	}

	return ev
}

// collideLeft reflects a ball travelling left off p1's right face.
// A ball that crossed the face during this tick is caught even if it is
// already fully behind the paddle.
func collideLeft(b *Ball, p *Paddle) bool {
	if b.VX >= 0 || !withinSpan(b, p) {
		return false
	}
	face := p.X + p.Width
	leading := b.X - b.Radius
	if leading > face {
		return false
	}
	crossed := leading-b.VX >= face
	if !crossed && b.X+b.Radius < p.X {
		return false
	}
	b.X = face
	b.VX = -b.VX
	return true
}

// collideRight mirrors collideLeft for p2's left face.
func collideRight(b *Ball, p *Paddle) bool {
	if b.VX <= 0 || !withinSpan(b, p) {
		return false
	}
	face := p.X
	leading := b.X + b.Radius
	if leading < face {
		return false
	}
	crossed := leading-b.VX <= face
	if !crossed && b.X-b.Radius > p.X+p.Width {
		return false
	}
	b.X = face
	b.VX = -b.VX
	return true
}

func withinSpan(b *Ball, p *Paddle) bool {
	return b.Y >= p.Y && b.Y <= p.Y+p.Height
}

// ResetBall serves from the centre with each velocity sign drawn from rng.
func ResetBall(state *GameState, s *Settings, rng Rand) {
	state.Ball.X = state.CanvasWidth / 2
	state.Ball.Y = state.CanvasHeight / 2
	state.Ball.VX = s.BallSpeedX * direction(rng)
	state.Ball.VY = s.BallSpeedY * direction(rng)
}

func direction(rng Rand) float64 {
	if rng.Intn(directionChoices) == 0 {
		return -1
	}
	return 1
}
