package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wricardo/pong-arena/game/protocol"
	"github.com/wricardo/pong-arena/game/service"
	"github.com/wricardo/pong-arena/identity"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Frames queued per client before new ones are dropped.
	sendBufferSize = 256
)

// Config controls which browsers may connect
type Config struct {
	// AllowedOrigins lists accepted Origin headers. Empty allows all.
	AllowedOrigins []string
}

// Hub upgrades game connections and tracks the clients it serves
type Hub struct {
	service  service.GameService
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// Connected clients by game id
	games map[string]map[*Client]bool
	mu    sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(svc service.GameService, cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		service: svc,
		logger:  logger.Named("websocket"),
		games:   make(map[string]map[*Client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{SubprotocolMsgpack, SubprotocolJSON},
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWS upgrades the request and joins the connection to gameID as user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string, user identity.User) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		codec:  codecFor(conn.Subprotocol()),
		gameID: gameID,
		send:   make(chan protocol.Outbound, sendBufferSize),
		done:   make(chan struct{}),
	}
	client.logger = h.logger.With(
		zap.String("game_id", gameID),
		zap.String("conn_id", client.id))

	joined, err := h.service.Join(r.Context(), gameID, client, user)
	if err != nil {
		client.logger.Warn("join rejected", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.register(client)
	client.logger.Info("client connected",
		zap.String("user_id", user.ID),
		zap.Stringer("side", joined.Side),
		zap.String("codec", client.codec.name))

	go client.writePump()
	go client.readPump()
}

// Clients returns the number of open connections across all games
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.games {
		n += len(clients)
	}
	return n
}

// GameClients returns the number of open connections of one game
func (h *Hub) GameClients(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// register adds a client to its game
func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true
}

// unregister removes a client and reports the departure to the service
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if clients, ok := h.games[client.gameID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.games, client.gameID)
		}
	}
	h.mu.Unlock()

	h.service.Leave(context.Background(), client.gameID, client.id)
	client.logger.Info("client disconnected")
}
