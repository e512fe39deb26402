package service

import (
	"context"
	"time"

	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/protocol"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/game/stats"
	"github.com/wricardo/pong-arena/identity"
)

// GameService defines all game-related operations
type GameService interface {
	// Connections
	Join(ctx context.Context, gameID string, peer session.Peer, user identity.User) (*JoinResult, error)
	HandleMessage(ctx context.Context, gameID, connID string, msg *protocol.Inbound) error
	Leave(ctx context.Context, gameID, connID string)

	// Session Management
	CreateSession(ctx context.Context, gameID string) (*session.Info, error)
	ListSessions(ctx context.Context) ([]*SessionSummary, error)
	GetSession(ctx context.Context, gameID string) (*session.Info, error)
	EndSession(ctx context.Context, gameID string) error
	CleanupIdle(maxIdle time.Duration) int
	Shutdown()

	// Presets
	ListPresets(ctx context.Context) ([]*config.PresetInfo, error)
	GetPreset(ctx context.Context, name string) (*config.Preset, error)

	// Match history
	ListMatches(ctx context.Context) ([]*stats.MatchSummary, error)
	GetMatch(ctx context.Context, id string) (*stats.MatchSummary, error)
}

// SetupSource provides the settings and side assignment of a new game
type SetupSource interface {
	Setup(ctx context.Context, gameID string) (*config.GameSetup, error)
}

// PresetStore handles physics preset loading
type PresetStore interface {
	LoadPreset(name string) (*config.Preset, error)
	ListPresets() ([]*config.PresetInfo, error)
}

// MatchArchive reads back recorded match summaries
type MatchArchive interface {
	Load(id string) (*stats.MatchSummary, error)
	List() ([]*stats.MatchSummary, error)
}
