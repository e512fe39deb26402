// Command pongd runs the Pong arena server.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server exposing the game WebSocket, the REST API and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server against a running pongd, or an internal one if none answers
//  3. "schema" – prints the JSON schema of the WebSocket protocol
//
// Settings come from an optional YAML file (--config), then the environment,
// then flags. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/pong-arena/logging"
	"github.com/wricardo/pong-arena/settings"
	"github.com/wricardo/pong-arena/transport/mcp"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Pong Arena Server"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pongd: %v\n", err)
		os.Exit(1)
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "pongd: warning: error loading .env file: %v\n", envErr)
	}
}

// rootFlags are shared by every command
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML settings file",
			Sources: cli.EnvVars("PONGD_CONFIG"),
		},
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "config-dir", Usage: "Directory containing physics presets"},
		&cli.StringFlag{Name: "static-dir", Usage: "Serve the browser client from this directory"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "json or console"},
		&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Expose the server through an ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pongd",
		Usage:   AppName,
		Version: Version,
		Flags:   rootFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the game server with REST API, WebSocket and MCP endpoint (default)",
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "pongd to proxy to; an internal server starts when it does not answer",
						Value: "http://localhost:8080",
					},
				},
				Action: mcpAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the WebSocket protocol",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
				},
				Action: schemaAction,
			},
		},
	}
}

// loadSettings layers flags over the file and environment
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	s, err := settings.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		s.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("config-dir") {
		s.Presets.Dir = cmd.String("config-dir")
	}
	if cmd.IsSet("static-dir") {
		s.Server.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("log-level") {
		s.Log.Level = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		s.Log.Level = "debug"
	}
	if cmd.IsSet("log-format") {
		s.Log.Format = cmd.String("log-format")
	}
	if cmd.Bool("ngrok") {
		s.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func setup(cmd *cli.Command) (*settings.Settings, *zap.Logger, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(s.Log.Level, s.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return s, logger, nil
}

// serveAction starts the HTTP server and, if enabled, an ngrok tunnel
// serving the same handler. It returns after SIGINT/SIGTERM once sessions
// are closed and pending match records are written.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	s, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	a, err := buildApp(ctx, s, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	go a.runJanitor(ctx)

	addr := s.Addr()
	handler := withMCP(a.handler, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("websocket", fmt.Sprintf("ws://%s/sessions/{gameId}", addr)),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if s.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, s.Ngrok, handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP server shutdown error", zap.Error(shutdownErr))
	}
	stop()
	wg.Wait()

	a.Shutdown()
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg settings.NgrokSettings, handler http.Handler, logger *zap.Logger) {
	logger = logger.Named("ngrok")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logger.Info("using custom domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.Authtoken))
	if err != nil {
		logger.Error("failed to start tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close tunnel", zap.Error(err))
		}
	}()

	url := tun.URL()
	logger.Info("tunnel established",
		zap.String("url", url),
		zap.String("websocket", url+"/sessions/{gameId}"),
		zap.String("mcp", url+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("tunnel server error", zap.Error(err))
	}
	logger.Info("tunnel closed")
}

// mcpAction runs an MCP stdio server. It reuses a pongd answering at
// --api-url; otherwise it starts an internal server on a random loopback port.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	s, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	logger.Info("checking for a running server", zap.String("url", baseURL))

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(baseURL + "/healthz")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info("MCP stdio server ready (using external HTTP server)", zap.String("url", baseURL))
	} else {
		if resp != nil {
			resp.Body.Close()
		}

		a, err := buildApp(ctx, s, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer a.Close()
		defer a.Shutdown()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: a.handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("MCP stdio server ready (using internal HTTP server)", zap.String("url", baseURL))
	}

	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema := buildSchema()

	if out := cmd.String("out"); out != "" {
		return writeSchema(out, schema)
	}

	data, err := marshalSchema(schema)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
