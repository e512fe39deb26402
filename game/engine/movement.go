package engine

// ApplyInput moves side's paddle by one tick of held input.
// Up and down held together cancel out. Spectators have no paddle.
func ApplyInput(state *GameState, side Side, keys Keys, speed float64) bool {
	p := state.Paddle(side)
	if p == nil || keys.Up == keys.Down {
		return false
	}

	prev := p.Y
	if keys.Up {
		p.Y = clamp(p.Y-speed, 0, state.CanvasHeight-p.Height)
	} else {
		p.Y = clamp(p.Y+speed, 0, state.CanvasHeight-p.Height)
	}
	return p.Y != prev
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
