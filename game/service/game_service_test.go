package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/protocol"
	"github.com/wricardo/pong-arena/game/service"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/game/stats"
	"github.com/wricardo/pong-arena/identity"
)

type fixedRand struct{}

func (fixedRand) Intn(int) int { return 1 }

// stillTicker never fires; these tests only observe start and stop.
type stillTicker struct{ c chan time.Time }

func (t stillTicker) C() <-chan time.Time { return t.c }
func (t stillTicker) Stop()               {}

type mockPeer struct {
	id     string
	msgs   chan protocol.Outbound
	closed atomic.Bool
}

func newMockPeer(id string) *mockPeer {
	return &mockPeer{id: id, msgs: make(chan protocol.Outbound, 64)}
}

func (p *mockPeer) ID() string { return p.id }

func (p *mockPeer) Deliver(msg protocol.Outbound) bool {
	select {
	case p.msgs <- msg:
		return true
	default:
		return false
	}
}

func (p *mockPeer) Close() { p.closed.Store(true) }

func (p *mockPeer) types() []string {
	var out []string
	for {
		select {
		case msg := <-p.msgs:
			out = append(out, msg.MessageType())
		default:
			return out
		}
	}
}

// MockSetupSource counts lookups and returns a fixed answer
type MockSetupSource struct {
	mu    sync.Mutex
	calls int
	setup *config.GameSetup
	err   error
}

func (m *MockSetupSource) Setup(ctx context.Context, gameID string) (*config.GameSetup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	setup := *m.setup
	setup.GameID = gameID
	return &setup, nil
}

func newTestService(t *testing.T, opts service.Options) service.GameService {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = session.NewRegistry(session.Options{
			NewRand: func() engine.Rand { return fixedRand{} },
			NewTicker: func(time.Duration) session.Ticker {
				return stillTicker{c: make(chan time.Time)}
			},
		})
	}
	svc := service.NewGameService(opts)
	t.Cleanup(svc.Shutdown)
	return svc
}

func dimensions(w, h float64) *protocol.Inbound {
	return &protocol.Inbound{Type: protocol.TypeDimensions, Width: w, Height: h}
}

func startGame() *protocol.Inbound {
	return &protocol.Inbound{
		Type:  protocol.TypePlayerInput,
		Input: &protocol.PlayerInput{Action: protocol.ActionStartGame},
	}
}

func TestGameService_JoinUsesSetupSource(t *testing.T) {
	settings := engine.DefaultSettings()
	settings.ScoreLimit = 11
	source := &MockSetupSource{setup: &config.GameSetup{
		Preset:   "rally",
		Settings: settings,
		Sides:    map[string]engine.Side{"alice": engine.SideRight, "bob": engine.SideLeft},
	}}
	svc := newTestService(t, service.Options{Setups: source})
	ctx := context.Background()

	joined, err := svc.Join(ctx, "g1", newMockPeer("a"), identity.User{ID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "rally", joined.Preset)
	assert.Equal(t, engine.SideRight, joined.Side)
	assert.Equal(t, "a", joined.ConnID)

	joined, err = svc.Join(ctx, "g1", newMockPeer("b"), identity.User{ID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, engine.SideLeft, joined.Side)

	assert.Equal(t, 1, source.calls, "setup is fetched once per session")

	info, err := svc.GetSession(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 11, info.Settings.ScoreLimit)
}

func TestGameService_JoinFallsBackToDefaults(t *testing.T) {
	source := &MockSetupSource{err: errors.New("connection refused")}
	svc := newTestService(t, service.Options{Setups: source})

	joined, err := svc.Join(context.Background(), "g1", newMockPeer("a"), identity.User{})
	require.NoError(t, err)
	assert.Equal(t, "default", joined.Preset)
	assert.Equal(t, engine.SideLeft, joined.Side)
}

func TestGameService_JoinRejectsBadID(t *testing.T) {
	svc := newTestService(t, service.Options{})

	_, err := svc.Join(context.Background(), "", newMockPeer("a"), identity.User{})
	assert.ErrorIs(t, err, session.ErrInvalidSessionID)
}

func TestGameService_HandleMessage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		msg     *protocol.Inbound
		wantErr error
	}{
		{name: "nil message", msg: nil, wantErr: protocol.ErrMissingType},
		{name: "missing type", msg: &protocol.Inbound{}, wantErr: protocol.ErrMissingType},
		{name: "zero width", msg: dimensions(0, 600), wantErr: protocol.ErrBadPayload},
		{name: "canvas too small", msg: dimensions(50, 50), wantErr: protocol.ErrBadPayload},
		{name: "input without body", msg: &protocol.Inbound{Type: protocol.TypePlayerInput}, wantErr: protocol.ErrBadPayload},
		{name: "unknown type", msg: &protocol.Inbound{Type: "CHAT"}},
		{name: "start before dimensions", msg: startGame()},
		{name: "keys before dimensions", msg: &protocol.Inbound{
			Type:  protocol.TypePlayerInput,
			Input: &protocol.PlayerInput{Keys: map[string]bool{"ArrowUp": true}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, service.Options{})
			peer := newMockPeer("a")
			_, err := svc.Join(ctx, "g1", peer, identity.User{})
			require.NoError(t, err)

			err = svc.HandleMessage(ctx, "g1", "a", tt.msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, peer.types())
		})
	}
}

func TestGameService_HandleMessageUnknownSession(t *testing.T) {
	svc := newTestService(t, service.Options{})

	err := svc.HandleMessage(context.Background(), "nope", "a", dimensions(800, 600))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestGameService_JoinInitializeStart(t *testing.T) {
	svc := newTestService(t, service.Options{})
	ctx := context.Background()
	a, b := newMockPeer("a"), newMockPeer("b")

	_, err := svc.Join(ctx, "g1", a, identity.User{})
	require.NoError(t, err)
	_, err = svc.Join(ctx, "g1", b, identity.User{})
	require.NoError(t, err)

	require.NoError(t, svc.HandleMessage(ctx, "g1", "a", dimensions(800, 600)))
	assert.Equal(t, []string{protocol.TypeGameInitialized}, a.types())
	assert.Empty(t, b.types())

	require.NoError(t, svc.HandleMessage(ctx, "g1", "a", startGame()))
	require.NoError(t, svc.HandleMessage(ctx, "g1", "b", startGame()), "duplicate start is not an error")
	assert.Equal(t, []string{protocol.TypeGameStarted}, a.types())
	assert.Equal(t, []string{protocol.TypeGameStarted}, b.types())

	info, err := svc.GetSession(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, session.PhaseRunning, info.Phase)
}

func TestGameService_SpectatorInputIgnored(t *testing.T) {
	svc := newTestService(t, service.Options{})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Join(ctx, "g1", newMockPeer(id), identity.User{})
		require.NoError(t, err)
	}
	require.NoError(t, svc.HandleMessage(ctx, "g1", "a", dimensions(800, 600)))

	keys := &protocol.Inbound{
		Type:  protocol.TypePlayerInput,
		Input: &protocol.PlayerInput{Action: protocol.ActionStartGame, Keys: map[string]bool{"s": true}},
	}
	require.NoError(t, svc.HandleMessage(ctx, "g1", "c", keys))

	info, err := svc.GetSession(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, session.PhaseInitialized, info.Phase, "spectators cannot start the game")
}

func TestGameService_LeavePurgesEmptySession(t *testing.T) {
	svc := newTestService(t, service.Options{})
	ctx := context.Background()

	_, err := svc.Join(ctx, "g1", newMockPeer("a"), identity.User{})
	require.NoError(t, err)
	_, err = svc.Join(ctx, "g1", newMockPeer("b"), identity.User{})
	require.NoError(t, err)

	svc.Leave(ctx, "g1", "a")
	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Connections)

	svc.Leave(ctx, "g1", "b")
	_, err = svc.GetSession(ctx, "g1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestGameService_EndSession(t *testing.T) {
	svc := newTestService(t, service.Options{})
	ctx := context.Background()
	peer := newMockPeer("a")

	_, err := svc.Join(ctx, "g1", peer, identity.User{})
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, "g1"))
	assert.True(t, peer.closed.Load())
	assert.ErrorIs(t, svc.EndSession(ctx, "g1"), session.ErrSessionNotFound)
}

func TestGameService_Presets(t *testing.T) {
	ctx := context.Background()

	empty := newTestService(t, service.Options{})
	list, err := empty.ListPresets(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = empty.GetPreset(ctx, "classic")
	assert.ErrorIs(t, err, config.ErrPresetNotFound)

	presets, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	settings := engine.DefaultSettings()
	settings.BallSpeedX = 6
	require.NoError(t, presets.SavePreset("fast", &config.Preset{Name: "Fast", Settings: settings}))

	svc := newTestService(t, service.Options{Presets: presets})
	list, err = svc.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fast", list[0].PresetID)

	preset, err := svc.GetPreset(ctx, "fast")
	require.NoError(t, err)
	assert.Equal(t, 6.0, preset.Settings.BallSpeedX)
}

func TestGameService_Matches(t *testing.T) {
	ctx := context.Background()

	empty := newTestService(t, service.Options{})
	matches, err := empty.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)

	archive, err := stats.NewFileSink(t.TempDir())
	require.NoError(t, err)
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	summary := &stats.MatchSummary{
		ID:        stats.MatchID("g1", started),
		GameID:    "g1",
		Reason:    protocol.ReasonCompleted,
		Winner:    "p1",
		Score:     engine.Score{Left: 5, Right: 2},
		StartedAt: started,
		EndedAt:   started.Add(3 * time.Minute),
	}
	require.NoError(t, archive.Record(ctx, summary))

	svc := newTestService(t, service.Options{Matches: archive})
	matches, err = svc.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	got, err := svc.GetMatch(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Winner)
	assert.Equal(t, 3*time.Minute, got.Duration())

	_, err = svc.GetMatch(ctx, "missing")
	assert.ErrorIs(t, err, stats.ErrMatchNotFound)
}

func TestGameService_CleanupIdle(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := session.NewRegistry(session.Options{
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
	})
	svc := newTestService(t, service.Options{Registry: registry})

	_, err := registry.GetOrCreate("stale", nil)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), "busy", newMockPeer("a"), identity.User{})
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	assert.Equal(t, 1, svc.CleanupIdle(time.Minute))
	assert.Equal(t, 1, registry.Count())
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := session.NewRegistry(session.Options{
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
	})
	source := &MockSetupSource{setup: &config.GameSetup{Preset: "rally", Settings: engine.DefaultSettings()}}
	svc := newTestService(t, service.Options{Registry: registry, Setups: source})

	info, err := svc.CreateSession(ctx, "lobby-1")
	require.NoError(t, err)
	assert.Equal(t, "lobby-1", info.ID)
	assert.Equal(t, "rally", info.Preset)
	assert.Equal(t, session.PhaseIdle, info.Phase)
	assert.Equal(t, 0, info.Connections)

	again, err := svc.CreateSession(ctx, "lobby-1")
	require.NoError(t, err)
	assert.Equal(t, info.CreatedAt, again.CreatedAt)
	assert.Equal(t, 1, source.calls, "existing sessions are not fetched again")

	_, err = svc.CreateSession(ctx, "team/1")
	assert.ErrorIs(t, err, session.ErrInvalidSessionID)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	assert.Equal(t, 1, svc.CleanupIdle(time.Minute), "an unjoined session is left to the janitor")
	_, err = svc.GetSession(ctx, "lobby-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
