package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/protocol"
	"github.com/wricardo/pong-arena/game/stats"
	"go.uber.org/zap"
)

var (
	ErrNotInitialized = errors.New("session has no game state yet")
	ErrNotMember      = errors.New("connection is not attached to this session")
	ErrSpectator      = errors.New("spectators cannot control the game")
)

// Phase is the lifecycle position of a session
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseInitialized Phase = "initialized"
	PhaseRunning     Phase = "running"
	PhaseStopped     Phase = "stopped"
)

// Peer is a connection that receives session frames.
// Deliver must not block; it reports false when the frame was dropped.
type Peer interface {
	ID() string
	Deliver(msg protocol.Outbound) bool
	Close()
}

type member struct {
	peer     Peer
	userID   string
	side     engine.Side
	keys     engine.Keys
	joinedAt time.Time
}

// Session is one live game: its connections, its engine and its tick loop.
// All fields below mu are guarded by it, including everything a tick touches.
type Session struct {
	id        string
	createdAt time.Time
	setup     *config.GameSetup
	opts      *Options
	loops     *atomic.Int64
	logger    *zap.Logger

	mu                sync.Mutex
	members           []*member
	participants      []stats.Participant
	eng               engine.Engine
	loop              *loop
	tick              uint64
	lastBroadcastTick uint64
	startedAt         time.Time
	lastActiveAt      time.Time
	finished          bool
}

func newSession(id string, setup *config.GameSetup, opts *Options, loops *atomic.Int64) *Session {
	now := opts.Now()
	return &Session{
		id:           id,
		createdAt:    now,
		lastActiveAt: now,
		setup:        setup,
		opts:         opts,
		loops:        loops,
		logger:       opts.Logger.With(zap.String("game_id", id)),
	}
}

// ID returns the game id.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was first requested.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// attach adds a connection and decides its side.
func (s *Session) attach(p Peer, userID string) engine.Side {
	s.mu.Lock()
	defer s.mu.Unlock()

	side := s.assignSideLocked(userID)
	s.members = append(s.members, &member{
		peer:     p,
		userID:   userID,
		side:     side,
		joinedAt: s.opts.Now(),
	})
	if side != engine.SideSpectator {
		s.recordParticipantLocked(stats.Participant{
			ConnID: p.ID(),
			UserID: userID,
			Side:   side.String(),
		})
	}
	s.lastActiveAt = s.opts.Now()

	s.logger.Info("connection attached",
		zap.String("conn_id", p.ID()),
		zap.String("user_id", userID),
		zap.Stringer("side", side),
		zap.Int("connections", len(s.members)))
	return side
}

// recordParticipantLocked keeps one entry per side, the latest holder.
func (s *Session) recordParticipantLocked(p stats.Participant) {
	for i := range s.participants {
		if s.participants[i].Side == p.Side {
			s.participants[i] = p
			return
		}
	}
	s.participants = append(s.participants, p)
}

// assignSideLocked honours an explicit assignment when the setup has one,
// otherwise hands out the first free paddle. Everyone else spectates.
func (s *Session) assignSideLocked(userID string) engine.Side {
	if side, pinned := s.setup.SideFor(userID); pinned {
		if side != engine.SideSpectator && s.sideTakenLocked(side) {
			return engine.SideSpectator
		}
		return side
	}
	for _, side := range []engine.Side{engine.SideLeft, engine.SideRight} {
		if !s.sideTakenLocked(side) {
			return side
		}
	}
	return engine.SideSpectator
}

func (s *Session) sideTakenLocked(side engine.Side) bool {
	for _, m := range s.members {
		if m.side == side {
			return true
		}
	}
	return false
}

// detach removes a connection and returns how many remain.
func (s *Session) detach(connID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.members {
		if m.peer.ID() == connID {
			s.members = append(s.members[:i], s.members[i+1:]...)
			s.lastActiveAt = s.opts.Now()
			s.logger.Info("connection detached",
				zap.String("conn_id", connID),
				zap.Int("connections", len(s.members)))
			break
		}
	}
	return len(s.members)
}

// Connections returns the number of attached connections.
func (s *Session) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Initialize creates the game state from the first canvas size reported by any
// member, then sends that member GAME_INITIALIZED. Later calls keep the
// existing canvas and only resend the snapshot.
func (s *Session) Initialize(connID string, width, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.memberLocked(connID)
	if m == nil {
		return ErrNotMember
	}

	if s.eng == nil {
		eng, err := engine.NewEngine(width, height, s.setup.Settings, s.opts.NewRand())
		if err != nil {
			return err
		}
		s.eng = eng
		s.logger.Info("game state initialized",
			zap.Float64("width", width),
			zap.Float64("height", height),
			zap.String("preset", s.setup.Preset))
	}
	s.lastActiveAt = s.opts.Now()

	m.peer.Deliver(protocol.NewGameInitialized(s.eng.State(), m.side))
	return nil
}

// SetKeys replaces the held keys of a player. They take effect on the next tick.
func (s *Session) SetKeys(connID string, keys engine.Keys) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.memberLocked(connID)
	if m == nil {
		return ErrNotMember
	}
	if m.side == engine.SideSpectator {
		return ErrSpectator
	}
	m.keys = keys
	s.lastActiveAt = s.opts.Now()
	return nil
}

// Start begins the match and its tick loop. It reports whether this call
// started it; repeated starts are no-ops.
func (s *Session) Start(connID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.memberLocked(connID)
	if m == nil {
		return false, ErrNotMember
	}
	if m.side == engine.SideSpectator {
		return false, ErrSpectator
	}
	if s.eng == nil {
		return false, ErrNotInitialized
	}
	if !s.eng.Start() {
		return false, nil
	}

	s.startedAt = s.opts.Now()
	s.lastActiveAt = s.startedAt
	s.broadcastLocked(protocol.NewGameStarted(s.eng.State()))
	s.startLoopLocked()

	s.logger.Info("game started",
		zap.String("conn_id", connID),
		zap.Duration("tick_interval", s.eng.Settings().TickInterval()))
	return true, nil
}

// Terminate ends a started match early and stops the loop.
func (s *Session) Terminate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(reason)
}

// closePeers disconnects every member.
func (s *Session) closePeers() {
	s.mu.Lock()
	peers := make([]Peer, 0, len(s.members))
	for _, m := range s.members {
		peers = append(peers, m.peer)
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
}

// step runs one simulation step for loop l. It returns false when l should exit.
func (s *Session) step(l *loop, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != l {
		return false
	}
	if s.eng == nil || !s.eng.Running() {
		return true
	}

	left, right := s.inputsLocked()
	ev := s.eng.Advance(left, right)
	s.tick++
	s.lastActiveAt = at

	every := uint64(s.eng.Settings().BroadcastEvery)
	if every <= 1 || s.tick%every == 0 || ev.Scored() {
		s.broadcastLocked(protocol.NewGameState(s.eng.State(), at))
		s.lastBroadcastTick = s.tick
	}

	if ev.Scored() {
		state := s.eng.State()
		s.logger.Debug("point scored",
			zap.Uint64("tick", s.tick),
			zap.Int("left", state.Score.Left),
			zap.Int("right", state.Score.Right))
	}

	if ev.Has(engine.EventGameOver) {
		s.finishLocked(protocol.ReasonCompleted)
		return false
	}
	return true
}

func (s *Session) inputsLocked() (left, right engine.Keys) {
	for _, m := range s.members {
		switch m.side {
		case engine.SideLeft:
			left = m.keys
		case engine.SideRight:
			right = m.keys
		}
	}
	return left, right
}

// finishLocked stops the loop and, for a match that was started, announces
// and reports the result exactly once.
func (s *Session) finishLocked(reason string) {
	s.stopLoopLocked()

	if s.eng == nil || s.finished || !s.eng.State().GameStarted {
		return
	}
	s.finished = true
	s.eng.Finish()

	state := s.eng.State()
	winner := s.eng.Winner()
	s.broadcastLocked(protocol.NewGameOver(state, reason, winner))

	s.logger.Info("game over",
		zap.String("reason", reason),
		zap.Stringer("winner", winner),
		zap.Int("left", state.Score.Left),
		zap.Int("right", state.Score.Right),
		zap.Uint64("ticks", s.tick))

	if s.opts.OnFinish == nil {
		return
	}
	winnerName := "none"
	if winner != engine.SideSpectator {
		winnerName = winner.String()
	}
	s.opts.OnFinish(&stats.MatchSummary{
		ID:        stats.MatchID(s.id, s.startedAt),
		GameID:    s.id,
		Preset:    s.setup.Preset,
		Reason:    reason,
		Winner:    winnerName,
		Score:     state.Score,
		Hits:      state.Hits,
		Ticks:     s.tick,
		Players:   append([]stats.Participant(nil), s.participants...),
		StartedAt: s.startedAt,
		EndedAt:   s.opts.Now(),
	})
}

// broadcastLocked delivers msg to every member without blocking.
func (s *Session) broadcastLocked(msg protocol.Outbound) {
	for _, m := range s.members {
		if !m.peer.Deliver(msg) {
			s.logger.Debug("frame dropped",
				zap.String("conn_id", m.peer.ID()),
				zap.String("type", msg.MessageType()))
		}
	}
}

func (s *Session) memberLocked(connID string) *member {
	for _, m := range s.members {
		if m.peer.ID() == connID {
			return m
		}
	}
	return nil
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.eng == nil:
		return PhaseIdle
	case s.loop != nil:
		return PhaseRunning
	case !s.eng.State().GameStarted:
		return PhaseInitialized
	default:
		return PhaseStopped
	}
}

// MemberInfo describes one attached connection
type MemberInfo struct {
	ConnID   string    `json:"conn_id"`
	UserID   string    `json:"user_id,omitempty"`
	Side     string    `json:"side"`
	JoinedAt time.Time `json:"joined_at"`
}

// Info is a point-in-time view of a session
type Info struct {
	ID                string            `json:"id"`
	Phase             Phase             `json:"phase"`
	Preset            string            `json:"preset"`
	Settings          engine.Settings   `json:"settings"`
	Connections       int               `json:"connections"`
	Members           []MemberInfo      `json:"members"`
	Tick              uint64            `json:"tick"`
	LastBroadcastTick uint64            `json:"last_broadcast_tick"`
	CreatedAt         time.Time         `json:"created_at"`
	StartedAt         time.Time         `json:"started_at"`
	LastActiveAt      time.Time         `json:"last_active_at"`
	State             *engine.GameState `json:"state,omitempty"`
}

// Info returns a copy of the session's current status.
func (s *Session) Info() *Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := &Info{
		ID:                s.id,
		Phase:             s.phaseLocked(),
		Preset:            s.setup.Preset,
		Settings:          s.setup.Settings,
		Connections:       len(s.members),
		Members:           make([]MemberInfo, 0, len(s.members)),
		Tick:              s.tick,
		LastBroadcastTick: s.lastBroadcastTick,
		CreatedAt:         s.createdAt,
		StartedAt:         s.startedAt,
		LastActiveAt:      s.lastActiveAt,
	}
	for _, m := range s.members {
		info.Members = append(info.Members, MemberInfo{
			ConnID:   m.peer.ID(),
			UserID:   m.userID,
			Side:     m.side.String(),
			JoinedAt: m.joinedAt,
		})
	}
	if s.eng != nil {
		info.State = s.eng.State()
	}
	return info
}

func (s *Session) idleSince() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt, len(s.members)
}
