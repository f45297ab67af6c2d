// Package service provides the business logic layer for the light cycle arena.
//
// The service package implements:
//   - Multi-session game management
//   - Mixing caller actions with scripted agents on every tick
//   - Headless simulation of a session to completion
//   - Vision, history and replay queries
//   - Configuration listing and saving
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine; the service serializes
// access to them, since engines are not safe for concurrent use.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, agent.NewRegistry())
//
//	info, err := gameService.CreateSession(ctx, "duel")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Player 1 is external, player 2 is driven by the preset's agent
//	result, err := gameService.Move(ctx, info.ID, []engine.Turn{engine.TurnStraight}, false)
//
// Controllers:
//
// Player 1 is always controlled by the caller. Players 2..N are driven by the
// agents named in the config's "agents" list; an empty name, or a missing
// entry, leaves that player to the caller as well.
package service
