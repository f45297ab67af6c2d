// Package websocket provides WebSocket transport for light cycle sessions.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine; the hub's event loop owns registration and fan-out.
//
// Message Protocol:
//
// Clients connect to /ws?session=<id> and receive one JSON message per frame:
//
//	{"session_id": "ab12", "event": "tick", "data": {...}}
//
// Events are "tick" (a service.MoveResult after every move), "reset" (the
// fresh observation), "simulated" (a service.SimulateResult) and "deleted".
// Session IDs are matched case-insensitively.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
