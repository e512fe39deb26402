package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/engine"
	"github.com/wricardo/pong-arena/game/service"
	"github.com/wricardo/pong-arena/game/session"
	"github.com/wricardo/pong-arena/game/stats"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pong Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pong Arena - MCP Admin Interface

This is a thin client that proxies all requests to the arena's REST API.
Matches are played by browsers over WebSocket; these tools observe and
administer them.

AVAILABLE TOOLS:
- list_sessions: List live game sessions, optionally by phase
- get_session: Inspect one session: members, sides, tick, score, ball
- create_session: Open a session before its players connect
- end_session: Terminate a match and disconnect its players
- list_presets: List physics presets
- get_preset: Show one preset's settings
- list_matches: List recorded match results
- get_match: Show one recorded match

Phases: idle (no court yet), initialized (court sized, not started),
running (ticking), stopped (finished).`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Sessions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"phase": map[string]interface{}{
					"type":        "string",
					"description": "Only sessions in this phase",
					"enum":        []string{"idle", "initialized", "running", "stopped"},
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions to return",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a live session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID of the session",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Open a session before its players connect. It is purged if nobody joins within the idle timeout",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID: letters, digits, '-' and '_'",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_session",
		Description: "Terminate a session: the match ends and every connection is closed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID of the session",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEndSession)

	// Presets
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List available physics presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_preset",
		Description: "Get the settings of a physics preset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Preset ID, e.g. classic",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleGetPreset)

	// Matches
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List recorded matches, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of matches to return",
				},
			},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Get one recorded match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": map[string]interface{}{
					"type":        "string",
					"description": "Match ID as returned by list_matches",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleGetMatch)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// limitQuery turns a numeric limit argument into ?limit=N
func limitQuery(args map[string]interface{}) url.Values {
	q := url.Values{}
	if n, ok := args["limit"].(float64); ok && n > 0 {
		q.Set("limit", fmt.Sprintf("%d", int(n)))
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	q := limitQuery(args)
	if phase := stringArg(args, "phase"); phase != "" {
		q.Set("phase", phase)
	}

	var response struct {
		Total    int                       `json:"total"`
		Sessions []*service.SessionSummary `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", withQuery("/api/sessions", q), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionList(response.Sessions)), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var info session.Info
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var info session.Info
	if err := c.apiCall(ctx, "PUT", "/api/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if err := c.apiCall(ctx, "DELETE", "/api/sessions/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s terminated. Players were sent GAME_OVER and disconnected.", sessionID)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Presets []*config.PresetInfo `json:"presets"`
	}
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Presets (%d):\n\n", len(response.Presets)))
	for _, p := range response.Presets {
		result.WriteString(fmt.Sprintf("- %s: %s", p.PresetID, p.Name))
		if p.Description != "" {
			result.WriteString(" - " + p.Description)
		}
		result.WriteString("\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetPreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(arguments(request), "name")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	var preset config.Preset
	if err := c.apiCall(ctx, "GET", "/api/presets/"+url.PathEscape(name), nil, &preset); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n%s\n\n%s", preset.Name, preset.Description, formatSettings(preset.Settings))), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Total   int                   `json:"total"`
		Matches []*stats.MatchSummary `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", withQuery("/api/matches", limitQuery(arguments(request))), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Matches (%d):\n\n", len(response.Matches)))
	for _, m := range response.Matches {
		result.WriteString(fmt.Sprintf("- %s game=%s %d-%d winner=%s (%s)\n",
			m.ID, m.GameID, m.Score.Left, m.Score.Right, m.Winner, m.Reason))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var match stats.MatchSummary
	if err := c.apiCall(ctx, "GET", "/api/matches/"+url.PathEscape(matchID), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatch(&match)), nil
}

// Formatting helpers

func formatSessionList(sessions []*service.SessionSummary) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Live Sessions (%d):\n\n", len(sessions)))
	for _, s := range sessions {
		result.WriteString(fmt.Sprintf("- %s [%s] preset=%s connections=%d score=%d-%d tick=%d\n",
			s.ID, s.Phase, s.Preset, s.Connections, s.Score.Left, s.Score.Right, s.Tick))
	}
	return result.String()
}

func formatSessionInfo(info *session.Info) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Session: %s\nPhase: %s\nPreset: %s\nCreated: %s\n",
		info.ID, info.Phase, info.Preset, info.CreatedAt.Format("2006-01-02 15:04:05")))
	result.WriteString(fmt.Sprintf("Tick: %d (last broadcast %d)\n", info.Tick, info.LastBroadcastTick))

	result.WriteString(fmt.Sprintf("\nConnections (%d):\n", info.Connections))
	for _, m := range info.Members {
		user := m.UserID
		if user == "" {
			user = "anonymous"
		}
		result.WriteString(fmt.Sprintf("- %s %s (%s)\n", m.Side, m.ConnID, user))
	}

	result.WriteString("\n")
	result.WriteString(formatGameState(info.State))
	return result.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state yet (waiting for DIMENSIONS)"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Court: %.0fx%.0f\n", state.CanvasWidth, state.CanvasHeight))
	result.WriteString(fmt.Sprintf("Score: %d - %d | Hits: %d - %d\n",
		state.Score.Left, state.Score.Right, state.Hits.Left, state.Hits.Right))
	result.WriteString(fmt.Sprintf("Ball: (%.1f, %.1f) velocity (%.1f, %.1f)\n",
		state.Ball.X, state.Ball.Y, state.Ball.VX, state.Ball.VY))
	result.WriteString(fmt.Sprintf("Paddles: p1 y=%.1f | p2 y=%.1f\n",
		state.Players.P1.Y, state.Players.P2.Y))

	switch {
	case state.GameOver:
		result.WriteString("\nGAME OVER")
	case state.GameStarted:
		result.WriteString("\nIn play")
	default:
		result.WriteString("\nWaiting for START_GAME")
	}
	return result.String()
}

func formatSettings(s engine.Settings) string {
	limit := "none"
	if s.ScoreLimit > 0 {
		limit = fmt.Sprintf("%d", s.ScoreLimit)
	}
	return fmt.Sprintf("Ball speed: %.1f x %.1f, radius %.1f\n"+
		"Paddle: %.0fx%.0f, inset %.0f, speed %.1f\n"+
		"Score limit: %s\nTick rate: %d Hz, broadcast every %d tick(s)",
		s.BallSpeedX, s.BallSpeedY, s.BallRadius,
		s.PaddleWidth, s.PaddleHeight, s.PaddleInset, s.PaddleSpeed,
		limit, s.TickRate, s.BroadcastEvery)
}

func formatMatch(m *stats.MatchSummary) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Match: %s\nGame: %s\nPreset: %s\nResult: %s, winner %s\n",
		m.ID, m.GameID, m.Preset, m.Reason, m.Winner))
	result.WriteString(fmt.Sprintf("Score: %d - %d | Hits: %d - %d\n",
		m.Score.Left, m.Score.Right, m.Hits.Left, m.Hits.Right))
	result.WriteString(fmt.Sprintf("Duration: %s over %d ticks\n", m.Duration().Round(time.Second), m.Ticks))
	for _, p := range m.Players {
		result.WriteString(fmt.Sprintf("- %s %s\n", p.Side, p.UserID))
	}
	return result.String()
}
