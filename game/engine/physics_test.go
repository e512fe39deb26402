package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand replays a fixed sequence of Intn results.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) Intn(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[r.i%len(r.vals)] % n
	r.i++
	return v
}

func createTestState(t *testing.T) (*GameState, *Settings) {
	t.Helper()
	s := DefaultSettings()
	state := NewGameState(800, 600, &s, &seqRand{vals: []int{1, 1}})
	return state, &s
}

func TestStepMovesBall(t *testing.T) {
	state, s := createTestState(t)
	state.Ball = Ball{X: 400, Y: 300, VX: 5, VY: 4, Radius: 8}

	ev := Step(state, s, &seqRand{})

	assert.Equal(t, 405.0, state.Ball.X)
	assert.Equal(t, 304.0, state.Ball.Y)
	assert.Equal(t, Event(0), ev)
}

func TestStepWallBounce(t *testing.T) {
	tests := []struct {
		name   string
		y, vy  float64
		wantY  float64
		wantVY float64
	}{
		{"top wall", 2, -4, 0, 4},
		{"bottom wall", 598, 4, 600, -4},
		{"touching top", 4, -4, 0, 4},
		{"clear of walls", 300, 4, 304, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, s := createTestState(t)
			state.Ball = Ball{X: 400, Y: tt.y, VX: 3, VY: tt.vy, Radius: 8}

			Step(state, s, &seqRand{})

			assert.Equal(t, tt.wantY, state.Ball.Y)
			assert.Equal(t, tt.wantVY, state.Ball.VY)
		})
	}
}

func TestStepLeftPaddleCollision(t *testing.T) {
	state, s := createTestState(t)
	state.Players.P1 = Paddle{X: 50, Y: 250, Width: 25, Height: 200}
	state.Ball = Ball{X: 76, Y: 300, VX: -5, VY: 0, Radius: 8}

	ev := Step(state, s, &seqRand{})

	assert.True(t, ev.Has(EventHitLeft))
	assert.Equal(t, 5.0, state.Ball.VX)
	assert.Equal(t, 75.0, state.Ball.X)
	assert.Equal(t, 1, state.Hits.Left)
	assert.Equal(t, 0, state.Score.Total())
}

func TestStepRightPaddleCollision(t *testing.T) {
	state, s := createTestState(t)
	state.Players.P2 = Paddle{X: 725, Y: 250, Width: 25, Height: 200}
	state.Ball = Ball{X: 724, Y: 300, VX: 5, VY: 0, Radius: 8}

	ev := Step(state, s, &seqRand{})

	assert.True(t, ev.Has(EventHitRight))
	assert.Equal(t, -5.0, state.Ball.VX)
	assert.Equal(t, 725.0, state.Ball.X)
	assert.Equal(t, 1, state.Hits.Right)
}

func TestStepFastBallDoesNotTunnel(t *testing.T) {
	state, s := createTestState(t)
	state.Players.P1 = Paddle{X: 50, Y: 250, Width: 25, Height: 200}
	state.Ball = Ball{X: 90, Y: 300, VX: -60, VY: 0, Radius: 8}

	ev := Step(state, s, &seqRand{})

	require.True(t, ev.Has(EventHitLeft))
	assert.Equal(t, 75.0, state.Ball.X)
	assert.Equal(t, 60.0, state.Ball.VX)
}

func TestStepBallOutsidePaddleSpanPasses(t *testing.T) {
	state, s := createTestState(t)
	state.Players.P1 = Paddle{X: 50, Y: 250, Width: 25, Height: 200}
	state.Ball = Ball{X: 76, Y: 100, VX: -5, VY: 0, Radius: 8}

	ev := Step(state, s, &seqRand{})

	assert.False(t, ev.Has(EventHitLeft))
	assert.Equal(t, 71.0, state.Ball.X)
	assert.Equal(t, -5.0, state.Ball.VX)
}

func TestStepNoCollisionWhenMovingAway(t *testing.T) {
	state, s := createTestState(t)
	state.Players.P1 = Paddle{X: 50, Y: 250, Width: 25, Height: 200}
	state.Ball = Ball{X: 75, Y: 300, VX: 5, VY: 0, Radius: 8}

	ev := Step(state, s, &seqRand{})

	assert.False(t, ev.Has(EventHitLeft))
	assert.Equal(t, 80.0, state.Ball.X)
}

func TestStepScoring(t *testing.T) {
	t.Run("ball leaves left edge", func(t *testing.T) {
		state, s := createTestState(t)
		state.Ball = Ball{X: 1, Y: 50, VX: -2, VY: 0, Radius: 8}

		ev := Step(state, s, &seqRand{vals: []int{0, 1}})

		assert.True(t, ev.Has(EventScoreRight))
		assert.Equal(t, Score{Left: 0, Right: 1}, state.Score)
		assert.Equal(t, 400.0, state.Ball.X)
		assert.Equal(t, 300.0, state.Ball.Y)
		assert.Equal(t, -4.0, state.Ball.VX)
		assert.Equal(t, 3.0, state.Ball.VY)
	})

	t.Run("ball leaves right edge", func(t *testing.T) {
		state, s := createTestState(t)
		state.Ball = Ball{X: 799, Y: 50, VX: 2, VY: 0, Radius: 8}

		ev := Step(state, s, &seqRand{vals: []int{1, 0}})

		assert.True(t, ev.Has(EventScoreLeft))
		assert.Equal(t, Score{Left: 1, Right: 0}, state.Score)
		assert.Equal(t, 4.0, state.Ball.VX)
		assert.Equal(t, -3.0, state.Ball.VY)
	})

	t.Run("ball on edge does not score", func(t *testing.T) {
		state, s := createTestState(t)
		state.Ball = Ball{X: 2, Y: 50, VX: -2, VY: 0, Radius: 8}

		ev := Step(state, s, &seqRand{})

		assert.False(t, ev.Scored())
		assert.Equal(t, 0.0, state.Ball.X)
	})
}

func TestStepKeepsBallInBounds(t *testing.T) {
	state, s := createTestState(t)
	rng := NewRand(42)
	ResetBall(state, s, rng)

	scored := 0
	for i := 0; i < 20000; i++ {
		keys := Keys{Up: rng.Intn(2) == 0, Down: rng.Intn(3) == 0}
		ApplyInput(state, SideLeft, keys, s.PaddleSpeed)
		ApplyInput(state, SideRight, Keys{Up: keys.Down, Down: keys.Up}, s.PaddleSpeed)

		before := state.Score.Total()
		ev := Step(state, s, rng)
		if ev.Scored() {
			scored++
			require.Equal(t, before+1, state.Score.Total(), "tick %d", i)
		}

		require.GreaterOrEqual(t, state.Ball.X, 0.0, "tick %d", i)
		require.LessOrEqual(t, state.Ball.X, state.CanvasWidth, "tick %d", i)
		require.GreaterOrEqual(t, state.Ball.Y, 0.0, "tick %d", i)
		require.LessOrEqual(t, state.Ball.Y, state.CanvasHeight, "tick %d", i)
	}
	assert.Equal(t, scored, state.Score.Total())
}

func TestResetBallDirections(t *testing.T) {
	state, s := createTestState(t)

	seen := map[[2]float64]bool{}
	for _, vals := range [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		ResetBall(state, s, &seqRand{vals: vals})
		assert.Equal(t, 400.0, state.Ball.X)
		assert.Equal(t, 300.0, state.Ball.Y)
		seen[[2]float64{state.Ball.VX, state.Ball.VY}] = true
	}

	assert.Len(t, seen, 4)
	assert.True(t, seen[[2]float64{-4, -3}])
	assert.True(t, seen[[2]float64{4, 3}])
}
