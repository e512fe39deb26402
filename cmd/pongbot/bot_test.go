package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/protocol"
	"github.com/wricardo/pong-arena/game/service"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/identity"
	transport "github.com/wricardo/pong-arena/transport/websocket"
)

func frame(ballY, paddleY float64) protocol.Frame {
	return protocol.Frame{
		Ball: protocol.BallView{X: 400, Y: ballY, Width: 16},
		Players: engine.Players{
			P1: engine.Paddle{Y: paddleY, Height: 100},
			P2: engine.Paddle{Y: paddleY, Height: 100},
		},
	}
}

func TestTrack(t *testing.T) {
	tests := []struct {
		name   string
		side   string
		ballY  float64
		paddle float64
		want   engine.Keys
	}{
		{"ball below", "p1", 500, 100, engine.Keys{Down: true}},
		{"ball above", "p2", 50, 300, engine.Keys{Up: true}},
		{"inside deadband", "p1", 155, 100, engine.Keys{}},
		{"spectator never moves", "spectator", 500, 100, engine.Keys{}},
		{"no side yet", "", 500, 100, engine.Keys{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, track(tt.side, frame(tt.ballY, tt.paddle), 10))
		})
	}
}

func TestKeyMapRoundTrip(t *testing.T) {
	for _, k := range []engine.Keys{{}, {Up: true}, {Down: true}} {
		assert.Equal(t, k, engine.KeysFromMap(keyMap(k)))
	}
}

func TestGameURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/sessions/lobby-1", gameURL("ws://localhost:8080/", "lobby-1"))
	assert.Equal(t, "wss://pong.example.com/sessions/room%207", gameURL("wss://pong.example.com", "room 7"))
}

// scriptedServer plays the server side of one short match and records what
// the bot sent
func scriptedServer(t *testing.T, received chan<- protocol.Inbound) *httptest.Server {
	upgrader := websocket.Upgrader{Subprotocols: []string{"pong.v1.json"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		read := func() bool {
			var msg protocol.Inbound
			if err := conn.ReadJSON(&msg); err != nil {
				return false
			}
			received <- msg
			return true
		}

		if !read() { // DIMENSIONS
			return
		}
		conn.WriteJSON(&protocol.GameInitialized{Type: protocol.TypeGameInitialized, State: &engine.GameState{}, Side: "p2"})
		if !read() { // START_GAME
			return
		}
		conn.WriteJSON(&protocol.GameStarted{Type: protocol.TypeGameStarted})
		conn.WriteJSON(&protocol.GameState{Type: protocol.TypeGameState, S: frame(500, 100)})
		if !read() { // ArrowDown
			return
		}
		// same picture again: no new input expected
		conn.WriteJSON(&protocol.GameState{Type: protocol.TypeGameState, S: frame(500, 100)})
		conn.WriteJSON(&protocol.Error{Type: protocol.TypeError, Reason: "ignored"})
		conn.WriteJSON(&protocol.GameOver{
			Type:   protocol.TypeGameOver,
			Reason: protocol.ReasonCompleted,
			Winner: "p2",
			Score:  engine.Score{Left: 1, Right: 5},
		})
		time.Sleep(50 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBotPlaysScriptedMatch(t *testing.T) {
	received := make(chan protocol.Inbound, 16)
	srv := scriptedServer(t, received)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/sessions/g1", "secret")
	require.NoError(t, err)
	defer conn.Close()

	bot := NewBot(conn, Options{Start: true, Deadband: 10})
	over, err := bot.Play(ctx)
	require.NoError(t, err)

	assert.Equal(t, "p2", bot.Side())
	assert.Equal(t, protocol.ReasonCompleted, over.Reason)
	assert.Equal(t, "p2", over.Winner)
	assert.Equal(t, 1, bot.Moves())

	close(received)
	var sent []protocol.Inbound
	for msg := range received {
		sent = append(sent, msg)
	}
	require.Len(t, sent, 3)

	assert.Equal(t, protocol.TypeDimensions, sent[0].Type)
	assert.Equal(t, 800.0, sent[0].Width)
	assert.Equal(t, 600.0, sent[0].Height)

	assert.True(t, sent[1].IsStart())

	require.NotNil(t, sent[2].Input)
	assert.Equal(t, engine.Keys{Down: true}, engine.KeysFromMap(sent[2].Input.Keys))
}

func TestBotAgainstArena(t *testing.T) {
	registry := session.NewRegistry(session.Options{})
	svc := service.NewGameService(service.Options{Registry: registry})
	hub := transport.NewHub(svc, transport.Config{}, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, strings.TrimPrefix(r.URL.Path, "/sessions/"), identity.User{})
	}))
	defer srv.Close()
	defer svc.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, gameURL("ws"+strings.TrimPrefix(srv.URL, "http"), "arena-1"), "")
	require.NoError(t, err)
	defer conn.Close()

	bot := NewBot(conn, Options{Start: true})

	type result struct {
		over *protocol.GameOver
		err  error
	}
	done := make(chan result, 1)
	go func() {
		over, err := bot.Play(ctx)
		done <- result{over, err}
	}()

	require.Eventually(t, func() bool {
		sess, err := registry.Get("arena-1")
		return err == nil && sess.Info().Phase == session.PhaseRunning
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.EndSession(ctx, "arena-1"))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, protocol.ReasonTerminated, res.over.Reason)
}

func TestDialRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/sessions/g1", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
