package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wricardo/pong-arena/api"
	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/service"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/game/stats"
	"github.com/wricardo/pong-arena/identity"
	"github.com/wricardo/pong-arena/settings"
	"github.com/wricardo/pong-arena/transport/mcp"
	"github.com/wricardo/pong-arena/transport/websocket"
	"go.uber.org/zap"
)

// app holds the wired services behind one HTTP handler
type app struct {
	settings *settings.Settings
	logger   *zap.Logger
	service  service.GameService
	recorder *stats.Recorder
	handler  http.Handler
	closers  []func()
}

// buildApp wires presets, match sinks, the session registry, the game
// service and the HTTP surface.
func buildApp(ctx context.Context, s *settings.Settings, logger *zap.Logger) (*app, error) {
	presets, err := config.NewManager(s.Presets.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}
	if s.Presets.Default != "" {
		if err := presets.SetDefault(s.Presets.Default); err != nil {
			logger.Warn("default preset unavailable, using built-in settings",
				zap.String("preset", s.Presets.Default),
				zap.Error(err))
		}
	}

	a := &app{settings: s, logger: logger}

	sink, archive := a.openSinks(ctx, s.Stats)
	a.recorder = stats.NewRecorder(sink, s.Stats.Timeout, logger)

	registry := session.NewRegistry(session.Options{
		Logger:   logger,
		OnFinish: a.recorder.Submit,
	})

	var setups service.SetupSource = presets
	if s.Setup.URL != "" {
		setups = config.NewHTTPSource(s.Setup.URL, presets, s.Setup.Timeout)
		logger.Info("game setups fetched remotely", zap.String("url", s.Setup.URL))
	}

	opts := service.Options{
		Registry: registry,
		Setups:   setups,
		Presets:  presets,
		Logger:   logger,
	}
	if archive != nil {
		opts.Matches = archive
	}
	a.service = service.NewGameService(opts)

	var verifier identity.Verifier = identity.AnonymousVerifier{}
	if s.Auth.URL != "" {
		verifier = identity.NewHTTPVerifier(s.Auth.URL, s.Auth.Timeout)
		logger.Info("game connections require a token", zap.String("url", s.Auth.URL))
	}

	hub := websocket.NewHub(a.service, websocket.Config{AllowedOrigins: s.Server.AllowedOrigins}, logger)
	a.handler = api.NewServer(a.service, hub, api.Options{
		Verifier:  verifier,
		Logger:    logger,
		StaticDir: s.Server.StaticDir,
	})

	return a, nil
}

// openSinks connects every configured match backend. A backend that cannot
// be reached is logged and skipped. The file sink doubles as the archive
// served by the API.
func (a *app) openSinks(ctx context.Context, cfg settings.StatsSettings) (stats.Sink, *stats.FileSink) {
	var sinks stats.MultiSink
	var archive *stats.FileSink

	if cfg.Dir != "" {
		fs, err := stats.NewFileSink(cfg.Dir)
		if err != nil {
			a.logger.Warn("match files disabled", zap.String("dir", cfg.Dir), zap.Error(err))
		} else {
			sinks = append(sinks, fs)
			archive = fs
		}
	}

	if cfg.NATS.URL != "" {
		ns, err := stats.NewNATSSink(cfg.NATS.URL, cfg.NATS.Prefix)
		if err != nil {
			a.logger.Warn("match publishing disabled", zap.String("url", cfg.NATS.URL), zap.Error(err))
		} else {
			sinks = append(sinks, ns)
			a.closers = append(a.closers, func() { ns.Close() })
		}
	}

	if cfg.Redis.Addr != "" {
		rs, err := stats.NewRedisSink(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key, cfg.Redis.Keep)
		if err != nil {
			a.logger.Warn("redis match list disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			sinks = append(sinks, rs)
			a.closers = append(a.closers, func() { rs.Close() })
		}
	}

	if cfg.Postgres.URL != "" {
		ps, err := stats.NewPostgresSink(ctx, cfg.Postgres.URL)
		if err != nil {
			a.logger.Warn("postgres match table disabled", zap.Error(err))
		} else {
			sinks = append(sinks, ps)
			a.closers = append(a.closers, ps.Close)
		}
	}

	a.logger.Info("match sinks ready", zap.Int("count", len(sinks)))
	if len(sinks) == 0 {
		return stats.DiscardSink{}, archive
	}
	return sinks, archive
}

// runJanitor purges idle sessions until ctx is done
func (a *app) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(a.settings.Game.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.service.CleanupIdle(a.settings.Game.MaxIdle); removed > 0 {
				a.logger.Info("cleaned up idle sessions", zap.Int("removed", removed))
			}
		}
	}
}

// Shutdown ends every live match and waits for their records
func (a *app) Shutdown() {
	a.service.Shutdown()
	a.recorder.Wait()
}

// Close releases backend connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// withMCP mounts the MCP JSON-RPC endpoint at /mcp next to handler
func withMCP(handler http.Handler, client *mcp.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		}
	})
	return mux
}
