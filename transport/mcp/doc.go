// Package mcp exposes the light cycle arena to AI agents over the Model
// Context Protocol.
//
// The Client registers its tools on an mcp-go server and forwards every call
// to the REST API, so the same game can be played from a browser, the HTTP
// API and an MCP client at once.
//
// MCP Tools:
//   - create_session: Start a game from a preset (config_id)
//   - list_sessions / get_session: Inspect running games
//   - observe: Session summary plus the vision grid around a player
//   - move: Submit one turn per externally controlled player
//   - simulate: Let agents finish the game
//   - reset_game: Restart a session from its initial state
//   - history: Paginated per-player records
//   - list_configs / list_agents: Available presets and opponents
//   - game_instructions: Rules of the arena
//
// Transport Modes:
//
// Stdio is served with server.ServeStdio. The HTTP server passes the body of
// POST /mcp to MCPServer.HandleMessage.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
