// Package service provides the business logic layer for the Pong arena.
//
// The service package implements:
//   - Joining connections to games, fetching each new game's setup
//   - Dispatching client frames to the owning session
//   - Session listing and admin termination
//   - Preset and match history lookups
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SetupSource provides the settings and side assignment of a new game.
// PresetStore and MatchArchive back the read-only catalogue endpoints.
//
// Architecture:
//
// The service layer sits between the transports (WebSocket, HTTP, MCP) and
// the session registry. Transports never touch sessions directly; they hand
// decoded frames to HandleMessage and report disconnects through Leave.
//
// Usage:
//
//	registry := session.NewRegistry(session.Options{Logger: logger})
//	presets, _ := config.NewManager("configs")
//	svc := service.NewGameService(service.Options{
//		Registry: registry,
//		Setups:   presets,
//		Presets:  presets,
//		Logger:   logger,
//	})
//
//	joined, err := svc.Join(ctx, "game-42", client, user)
//	err = svc.HandleMessage(ctx, "game-42", joined.ConnID, msg)
//	svc.Leave(ctx, "game-42", joined.ConnID)
package service
