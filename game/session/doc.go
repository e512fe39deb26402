// Package session owns the live game sessions of the server.
//
// The session package implements:
//   - A registry mapping game ids to sessions, created lazily on first connect
//   - Side assignment (explicit from the game setup, else arrival order)
//   - The Idle -> Initialized -> Running -> Stopped lifecycle
//   - One fixed-rate tick goroutine per running session
//   - Non-blocking fan-out of frames to every connection of a session
//   - Purging of empty and idle sessions
//
// Core Types:
//
// Registry is the only owner of sessions. Session holds the connections, the
// engine and the loop handle of one game. Peer is what a transport implements
// so a session can deliver frames to it.
//
// Concurrency:
//
// Lock order is registry, then session. A tick holds only its session's lock
// for the whole input-step-broadcast sequence, so inputs that arrive between
// ticks are applied at the next one and no two ticks of a session overlap.
// Start is idempotent: a session never has more than one loop.
//
// Usage:
//
//	registry := session.NewRegistry(session.Options{Logger: logger})
//
//	sess, side, err := registry.Attach("game-42", peer, userID, setup)
//	if err != nil {
//		return err
//	}
//	err = sess.Initialize(peer.ID(), 800, 600)
//	started, err := sess.Start(peer.ID())
//
//	// On disconnect
//	if registry.Detach("game-42", peer.ID()) == 0 {
//		registry.Reap("game-42")
//	}
//
// Cleanup:
//
// Reap purges a session as soon as its last connection leaves. CleanupIdle
// catches sessions that were created but never held a connection for long.
package session
