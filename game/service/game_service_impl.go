package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/protocol"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/game/stats"
	"github.com/wricardo/pong-arena/identity"
	"go.uber.org/zap"
)

// Options wires a GameService to its collaborators. Setups, Presets and
// Matches are optional.
type Options struct {
	Registry *session.Registry
	Setups   SetupSource
	Presets  PresetStore
	Matches  MatchArchive
	Logger   *zap.Logger
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	registry *session.Registry
	setups   SetupSource
	presets  PresetStore
	matches  MatchArchive
	logger   *zap.Logger
}

// NewGameService creates a new game service instance
func NewGameService(opts Options) GameService {
	if opts.Registry == nil {
		opts.Registry = session.NewRegistry(session.Options{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &gameServiceImpl{
		registry: opts.Registry,
		setups:   opts.Setups,
		presets:  opts.Presets,
		matches:  opts.Matches,
		logger:   opts.Logger.Named("service"),
	}
}

// Join attaches a connection to its game, creating the session on first use.
func (s *gameServiceImpl) Join(ctx context.Context, gameID string, peer session.Peer, user identity.User) (*JoinResult, error) {
	var setup *config.GameSetup
	if _, err := s.registry.Get(gameID); errors.Is(err, session.ErrSessionNotFound) {
		setup = s.fetchSetup(ctx, gameID)
	}

	sess, side, err := s.registry.Attach(gameID, peer, user.ID, setup)
	if err != nil {
		return nil, err
	}

	return &JoinResult{
		GameID: gameID,
		ConnID: peer.ID(),
		Side:   side,
		Preset: sess.Info().Preset,
	}, nil
}

// fetchSetup asks the setup source for the game's settings and falls back to
// built-in defaults when it cannot answer.
func (s *gameServiceImpl) fetchSetup(ctx context.Context, gameID string) *config.GameSetup {
	if s.setups == nil {
		return config.DefaultSetup(gameID)
	}

	setup, err := s.setups.Setup(ctx, gameID)
	if err != nil {
		s.logger.Warn("game setup unavailable, using defaults",
			zap.String("game_id", gameID),
			zap.Error(err))
		return config.DefaultSetup(gameID)
	}
	return setup
}

// HandleMessage dispatches one decoded client frame. Only malformed frames
// produce an error; premature, duplicate and spectator input is dropped.
func (s *gameServiceImpl) HandleMessage(ctx context.Context, gameID, connID string, msg *protocol.Inbound) error {
	if msg == nil {
		return protocol.ErrMissingType
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	sess, err := s.registry.Get(gameID)
	if err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeDimensions:
		if err := sess.Initialize(connID, msg.Width, msg.Height); err != nil {
			if errors.Is(err, engine.ErrInvalidCanvas) {
				return fmt.Errorf("%w: %v", protocol.ErrBadPayload, err)
			}
			return err
		}
		return nil

	case protocol.TypePlayerInput:
		return s.handleInput(sess, connID, msg.Input)

	default:
		s.logger.Debug("ignoring unknown message type",
			zap.String("game_id", gameID),
			zap.String("conn_id", connID),
			zap.String("type", msg.Type))
		return nil
	}
}

func (s *gameServiceImpl) handleInput(sess *session.Session, connID string, input *protocol.PlayerInput) error {
	if input.Keys != nil {
		if err := sess.SetKeys(connID, engine.KeysFromMap(input.Keys)); err != nil {
			return s.dropped(sess, connID, err)
		}
	}

	if input.Action != protocol.ActionStartGame {
		return nil
	}

	started, err := sess.Start(connID)
	if err != nil {
		return s.dropped(sess, connID, err)
	}
	if !started {
		s.logger.Debug("duplicate start ignored",
			zap.String("game_id", sess.ID()),
			zap.String("conn_id", connID))
	}
	return nil
}

// dropped swallows the input errors a client may legitimately trigger.
func (s *gameServiceImpl) dropped(sess *session.Session, connID string, err error) error {
	if errors.Is(err, session.ErrSpectator) || errors.Is(err, session.ErrNotInitialized) {
		s.logger.Debug("input dropped",
			zap.String("game_id", sess.ID()),
			zap.String("conn_id", connID),
			zap.Error(err))
		return nil
	}
	return err
}

// Leave detaches a connection and purges its session once it is empty.
func (s *gameServiceImpl) Leave(ctx context.Context, gameID, connID string) {
	if s.registry.Detach(gameID, connID) > 0 {
		return
	}
	s.registry.Reap(gameID)
}

// CreateSession opens a session ahead of its players. An existing session is
// returned unchanged. Nobody holds it open, so the janitor purges it once it
// has stayed empty for max_idle.
func (s *gameServiceImpl) CreateSession(ctx context.Context, gameID string) (*session.Info, error) {
	var setup *config.GameSetup
	if _, err := s.registry.Get(gameID); errors.Is(err, session.ErrSessionNotFound) {
		setup = s.fetchSetup(ctx, gameID)
	}

	sess, err := s.registry.GetOrCreate(gameID, setup)
	if err != nil {
		return nil, err
	}
	return sess.Info(), nil
}

// ListSessions returns all live sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	sessions := s.registry.List()
	result := make([]*SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, summarize(sess.Info()))
	}
	return result, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, gameID string) (*session.Info, error) {
	sess, err := s.registry.Get(gameID)
	if err != nil {
		return nil, err
	}
	return sess.Info(), nil
}

// EndSession terminates a match and disconnects everyone in it.
func (s *gameServiceImpl) EndSession(ctx context.Context, gameID string) error {
	return s.registry.Remove(gameID, protocol.ReasonTerminated)
}

// CleanupIdle purges sessions idle for longer than maxIdle.
func (s *gameServiceImpl) CleanupIdle(maxIdle time.Duration) int {
	removed := s.registry.CleanupIdle(maxIdle)
	if removed > 0 {
		s.logger.Info("idle sessions purged", zap.Int("count", removed))
	}
	return removed
}

// Shutdown ends every session.
func (s *gameServiceImpl) Shutdown() {
	s.registry.Shutdown()
}

// ListPresets returns all available presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*config.PresetInfo, error) {
	if s.presets == nil {
		return []*config.PresetInfo{}, nil
	}
	return s.presets.ListPresets()
}

// GetPreset loads one preset by id
func (s *gameServiceImpl) GetPreset(ctx context.Context, name string) (*config.Preset, error) {
	if s.presets == nil {
		return nil, config.ErrPresetNotFound
	}
	return s.presets.LoadPreset(name)
}

// ListMatches returns recorded matches, newest first
func (s *gameServiceImpl) ListMatches(ctx context.Context) ([]*stats.MatchSummary, error) {
	if s.matches == nil {
		return []*stats.MatchSummary{}, nil
	}
	return s.matches.List()
}

// GetMatch loads one recorded match
func (s *gameServiceImpl) GetMatch(ctx context.Context, id string) (*stats.MatchSummary, error) {
	if s.matches == nil {
		return nil, stats.ErrMatchNotFound
	}
	return s.matches.Load(id)
}
