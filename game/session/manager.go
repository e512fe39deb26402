package session

import (
	"errors"
	"regexp"
	"sort"
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
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session ID")
)

const maxSessionIDLength = 128

// Game ids end up in match file names and NATS subjects.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Options configures a Registry. Zero values get production defaults.
type Options struct {
	Logger    *zap.Logger
	Now       func() time.Time
	NewRand   func() engine.Rand
	NewTicker func(time.Duration) Ticker

	// OnFinish receives the summary of every started match when it ends.
	// It runs under the session lock and must not block.
	OnFinish func(*stats.MatchSummary)
}

// Registry maps game ids to live sessions
type Registry struct {
	sessions map[string]*Session
	opts     Options
	loops    atomic.Int64
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Logger = opts.Logger.Named("session")
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRand == nil {
		opts.NewRand = func() engine.Rand {
			return engine.NewRand(time.Now().UnixNano())
		}
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newTimeTicker
	}

	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// GetOrCreate returns the session for id, creating it from setup if needed.
// A nil setup means built-in settings.
func (r *Registry) GetOrCreate(id string, setup *config.GameSetup) (*Session, error) {
	if err := validateSessionID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(id, setup), nil
}

func (r *Registry) getOrCreateLocked(id string, setup *config.GameSetup) *Session {
	if s, ok := r.sessions[id]; ok {
		return s
	}
	if setup == nil {
		setup = config.DefaultSetup(id)
	}
	s := newSession(id, setup, &r.opts, &r.loops)
	r.sessions[id] = s

	r.opts.Logger.Info("session created",
		zap.String("game_id", id),
		zap.String("preset", setup.Preset),
		zap.Int("sessions", len(r.sessions)))
	return s
}

// Attach joins peer to the session for id, creating it if needed. The
// session cannot be purged between lookup and join.
func (r *Registry) Attach(id string, peer Peer, userID string, setup *config.GameSetup) (*Session, engine.Side, error) {
	if err := validateSessionID(id); err != nil {
		return nil, engine.SideSpectator, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreateLocked(id, setup)
	side := s.attach(peer, userID)
	return s, side, nil
}

// Get retrieves a live session
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Detach removes a connection and returns how many remain. It does not stop
// the loop; call Reap once the count reaches zero.
func (r *Registry) Detach(id, connID string) int {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.detach(connID)
}

// Reap stops and purges the session if it has no connections left. A started
// match is reported as abandoned.
func (r *Registry) Reap(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Connections() > 0 {
		return false
	}

	s.Terminate(protocol.ReasonAbandoned)
	delete(r.sessions, id)

	r.opts.Logger.Info("session purged",
		zap.String("game_id", id),
		zap.Int("sessions", len(r.sessions)))
	return true
}

// Remove terminates a session, disconnects its members and purges it.
func (r *Registry) Remove(id, reason string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.Terminate(reason)
	s.closePeers()

	r.opts.Logger.Info("session removed",
		zap.String("game_id", id),
		zap.String("reason", reason))
	return nil
}

// List returns all live sessions, oldest first
func (r *Registry) List() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].createdAt.Equal(sessions[j].createdAt) {
			return sessions[i].id < sessions[j].id
		}
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	return sessions
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RunningLoops returns the number of tick goroutines currently alive.
func (r *Registry) RunningLoops() int64 {
	return r.loops.Load()
}

// CleanupIdle purges sessions that have had no connections and no activity
// for longer than maxIdle. It returns how many were removed.
func (r *Registry) CleanupIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.Now()
	removed := 0
	for id, s := range r.sessions {
		lastActive, conns := s.idleSince()
		if conns > 0 || now.Sub(lastActive) <= maxIdle {
			continue
		}
		s.Terminate(protocol.ReasonAbandoned)
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// Shutdown terminates every session and disconnects all members.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Terminate(protocol.ReasonTerminated)
		s.closePeers()
	}
	r.opts.Logger.Info("registry shut down", zap.Int("sessions", len(sessions)))
}

func validateSessionID(id string) error {
	if len(id) > maxSessionIDLength || !sessionIDPattern.MatchString(id) {
		return ErrInvalidSessionID
	}
	return nil
}
