// Package engine provides the authoritative Pong simulation.
//
// The engine package implements the game mechanics including:
//   - Ball movement and wall reflection
//   - Paddle collision with tunnelling protection
//   - Scoring and ball reset from an injected random source
//   - Held-key paddle movement clamped to the playfield
//   - Physics preset validation
//
// Core Types:
//
// GameState is the full simulation state for one session: a ball, exactly two
// paddles, the score and the fixed canvas size. Settings carries the tunable
// physics values loaded from presets. GameEngine binds a state to its settings
// and random source and is what a running session advances once per tick.
//
// Usage:
//
//	rng := engine.NewRand(time.Now().UnixNano())
//	eng, err := engine.NewEngine(800, 600, engine.DefaultSettings(), rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.Start()
//	events := eng.Advance(engine.Keys{Up: true}, engine.Keys{})
//	state := eng.State()
//
// The free functions Step, ApplyInput and ResetBall operate on a *GameState
// directly and perform no I/O, so they can be exercised without a session.
package engine
