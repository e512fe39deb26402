package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/service"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/game/stats"
	"github.com/wricardo/pong-arena/identity"
	"github.com/wricardo/pong-arena/transport/websocket"
	"go.uber.org/zap"
)

// Server represents the REST API server
type Server struct {
	service  service.GameService
	hub      *websocket.Hub
	verifier identity.Verifier
	logger   *zap.Logger
	router   *mux.Router
}

// Options configures a Server. A nil Verifier admits everyone anonymously.
type Options struct {
	Verifier  identity.Verifier
	Logger    *zap.Logger
	StaticDir string
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts Options) *Server {
	if opts.Verifier == nil {
		opts.Verifier = identity.AnonymousVerifier{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		service:  gameService,
		hub:      hub,
		verifier: opts.Verifier,
		logger:   opts.Logger.Named("api"),
		router:   mux.NewRouter(),
	}

	s.setupRoutes(opts.StaticDir)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes(staticDir string) {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleCreateSession).Methods("PUT")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	// Match history
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/sessions/{gameId}", s.handleWebSocket).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	if staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrPresetNotFound),
		errors.Is(err, stats.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, config.ErrInvalidPreset):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrMissingToken),
		errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	respondError(w, status, err.Error())
}

// limitParam reads ?limit=N; zero means no limit
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}

// Session Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	phase := session.Phase(r.URL.Query().Get("phase"))
	result := make([]*service.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		if phase != "" && sess.Phase != phase {
			continue
		}
		result = append(result, sess)
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": result,
		"total":    len(result),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.CreateSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("session opened by admin", zap.String("game_id", info.ID))
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.EndSession(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("session terminated by admin", zap.String("game_id", id))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "session terminated",
		"id":      id,
	})
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": presets,
	})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.service.GetPreset(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, preset)
}

// Match Handlers

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := s.service.ListMatches(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"total":   len(matches),
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := s.service.GetMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

// WebSocket

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]
	if gameID == "" {
		gameID = r.URL.Query().Get("session")
	}
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	user, err := s.verifier.Verify(r.Context(), identity.TokenFromRequest(r))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("connection refused",
			zap.String("game_id", gameID),
			zap.Int("status", status),
			zap.Error(err))
		respondError(w, status, err.Error())
		return
	}

	s.hub.ServeWS(w, r, gameID, *user)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, _ := s.service.ListSessions(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"sessions":    len(sessions),
		"connections": s.hub.Clients(),
	})
}
