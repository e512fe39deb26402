package service

import (
	"time"

	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/session"
)

// JoinResult tells a new connection where it landed
type JoinResult struct {
	GameID string      `json:"game_id"`
	ConnID string      `json:"conn_id"`
	Side   engine.Side `json:"side"`
	Preset string      `json:"preset"`
}

// SessionSummary is the list view of a live session
type SessionSummary struct {
	ID           string        `json:"id"`
	Phase        session.Phase `json:"phase"`
	Preset       string        `json:"preset"`
	Connections  int           `json:"connections"`
	Score        engine.Score  `json:"score"`
	Tick         uint64        `json:"tick"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActiveAt time.Time     `json:"last_active_at"`
}

func summarize(info *session.Info) *SessionSummary {
	summary := &SessionSummary{
		ID:           info.ID,
		Phase:        info.Phase,
		Preset:       info.Preset,
		Connections:  info.Connections,
		Tick:         info.Tick,
		CreatedAt:    info.CreatedAt,
		LastActiveAt: info.LastActiveAt,
	}
	if info.State != nil {
		summary.Score = info.State.Score
	}
	return summary
}
