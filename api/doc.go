// Package api provides the HTTP surface of the Pong arena server.
//
// The api package implements:
//   - Read-only session, preset and match endpoints
//   - Admin termination of a live session
//   - Token verification ahead of the WebSocket upgrade
//   - Optional static file serving for the browser client
//
// Endpoints:
//
// Sessions:
//   - GET /api/sessions - List live sessions (?phase=running, ?limit=N)
//   - GET /api/sessions/{id} - One session with its current state
//   - DELETE /api/sessions/{id} - End the match and disconnect everyone
//
// Presets:
//   - GET /api/presets - List physics presets
//   - GET /api/presets/{name} - One preset
//
// Matches:
//   - GET /api/matches - Recorded matches, newest first (?limit=N)
//   - GET /api/matches/{id} - One recorded match
//
// Game connections:
//   - GET /sessions/{gameId} - WebSocket upgrade
//   - GET /ws?session={gameId} - WebSocket upgrade, legacy path
//
// The token is read from "Authorization: Bearer <token>" or ?token=. An
// invalid token is refused with 401 before the upgrade.
//
// Usage:
//
//	hub := websocket.NewHub(gameService, websocket.Config{}, logger)
//	server := api.NewServer(gameService, hub, api.Options{Verifier: verifier, Logger: logger})
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with the matching HTTP status code:
//
//	{"error": "session not found"}
package api
