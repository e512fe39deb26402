// Package mcp exposes the Pong arena's admin surface as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool is one call against the REST API of a
// running pongd, rendered as plain text for the agent.
//
// MCP Tools:
//   - list_sessions: Live sessions, optionally filtered by phase
//   - get_session: Members, sides, tick and state of one session
//   - create_session: Open a session before its players connect
//   - end_session: Terminate a match and disconnect its players
//   - list_presets, get_preset: Physics presets
//   - list_matches, get_match: Recorded match results
//
// Transport Modes:
//   - Stdio: pongd mcp, for local MCP clients
//   - HTTP: POST /mcp on the game server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
