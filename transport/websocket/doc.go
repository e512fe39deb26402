// Package websocket provides the WebSocket transport of the Pong arena.
//
// The websocket package implements:
//   - Upgrading game connections and joining them to their session
//   - Decoding client frames and handing them to the game service
//   - Non-blocking delivery of session frames through a per-client queue
//   - Ping/pong keep-alive, read limits and write deadlines
//   - JSON text frames, or MessagePack binary frames when the client asks
//     for the pong.v1.msgpack subprotocol
//
// Architecture:
//
// The Hub upgrades requests and tracks open clients per game. Each Client runs
// a read pump that feeds the service and a write pump that drains its queue.
// A Client is the session's Peer: sessions call Deliver from their tick loop
// and never wait on a slow connection. A full queue drops the frame.
//
// Message Protocol:
//
//   - Incoming: {type: "DIMENSIONS", width, height} or
//     {type: "PLAYER_INPUT", input: {action?: "START_GAME", keys?: {...}}}
//   - Outgoing: GAME_INITIALIZED, GAME_STARTED, GAME_STATE, GAME_OVER, ERROR
//
// A frame that cannot be decoded or fails validation is answered with an
// ERROR frame; the connection stays open.
//
// Usage:
//
//	hub := websocket.NewHub(gameService, websocket.Config{}, logger)
//	router.HandleFunc("/sessions/{gameId}", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, mux.Vars(r)["gameId"], user)
//	})
//
// Connection Lifecycle:
//
// 1. Client connects to /sessions/{gameId}
// 2. Connection joins the session and learns nothing until it sends DIMENSIONS
// 3. Client sends input, receives frames
// 4. Disconnection leaves the session; the last one out purges it
package websocket
