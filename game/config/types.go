package config

import "github.com/wricardo/pong-arena/game/engine"

// Preset is a named physics configuration loaded from disk
type Preset struct {
	Name        string          `json:"name" toml:"name"`
	Description string          `json:"description" toml:"description"`
	Settings    engine.Settings `json:"settings" toml:"settings"`
}

// PresetInfo provides information about an available preset
type PresetInfo struct {
	Filename    string          `json:"filename"`
	PresetID    string          `json:"preset_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Settings    engine.Settings `json:"settings"`
}

// GameSetup is everything a new session needs besides its canvas.
// Sides maps user ids to a paddle; when empty, sides go by arrival order.
type GameSetup struct {
	GameID   string                 `json:"game_id"`
	Preset   string                 `json:"preset"`
	Settings engine.Settings        `json:"settings"`
	Sides    map[string]engine.Side `json:"sides,omitempty"`
}

// SideFor returns the assigned side of a user and whether assignment is in force.
func (g *GameSetup) SideFor(userID string) (engine.Side, bool) {
	if g == nil || len(g.Sides) == 0 {
		return engine.SideSpectator, false
	}
	return g.Sides[userID], true
}

// DefaultSetup returns a setup with built-in settings and no side assignment.
func DefaultSetup(gameID string) *GameSetup {
	return &GameSetup{
		GameID:   gameID,
		Preset:   "default",
		Settings: engine.DefaultSettings(),
	}
}
