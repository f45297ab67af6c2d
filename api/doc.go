// Package api provides the HTTP REST API for light cycle sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "duel"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session summary with players and rendered board
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - POST /api/sessions/{id}/move - Play one tick
//   - POST /api/sessions/{id}/reset - Restart the game
//   - POST /api/sessions/{id}/simulate - Play to completion with agents ({"max_ticks": N})
//   - GET /api/sessions/{id}/observation - Current observation
//   - GET /api/sessions/{id}/vision?uid=1&size=5 - Occupancy window around a head
//   - GET /api/sessions/{id}/history?uid=1&page=1&limit=20&order=desc - Player records
//   - GET /api/sessions/{id}/replay - Full game document (grid + states)
//
// Configuration:
//   - GET /api/configs - List presets
//   - GET /api/configs/{name} - Get a preset
//   - POST /api/configs - Save a preset
//   - GET /api/agents - Names usable in a preset's agents list
//
// A move carries one turn name per externally controlled player, in uid
// order:
//
//	{
//	  "actions": ["left"],
//	  "reset": false
//	}
//
// Turn names are left, straight and right, plus soft_left and soft_right for
// presets with soft_turns enabled.
//
// Every move, reset and simulation is broadcast to websocket clients of the
// session (GET /ws?session={id}).
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status code: 404 for unknown
// sessions, presets and players, 400 for malformed moves and configs, 409 for
// moves on a finished game and 500 otherwise.
//
//	{"error": "invalid turn: \"up\""}
package api
