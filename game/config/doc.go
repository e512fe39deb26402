// Package config provides physics presets and per-game setup for pong sessions.
//
// The config package handles:
//   - Loading presets from JSON or TOML files
//   - Preset validation through engine.ValidateSettings
//   - Default preset management
//   - Fetching per-game setup (preset plus side assignment) from an HTTP service
//
// Preset Format:
//
// Presets live in a directory as name.json or name.toml. Both carry a name,
// a description and a settings block:
//
//	name = "Classic"
//	description = "60 Hz, first to five"
//
//	[settings]
//	ball_speed_x = 4
//	ball_speed_y = 3
//	paddle_speed = 8
//	score_limit = 5
//
// Missing settings fall back to engine.DefaultSettings.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadPreset("classic")
//	setup, err := manager.Setup(ctx, "game-42")
//
// Game Setup:
//
// A GameSetup is what a session is created from. Manager.Setup returns the
// default preset with no side assignment; HTTPSource asks the game service and
// may pin user ids to p1 or p2.
package config
