package service

import (
	"time"

	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID              string             `json:"id"`
	ConfigName      string             `json:"config_name"`
	CreatedAt       time.Time          `json:"created_at"`
	LastAccessedAt  time.Time          `json:"last_accessed_at"`
	Tick            int                `json:"tick"`
	Done            bool               `json:"done"`
	Winner          int                `json:"winner,omitempty"`
	Players         []PlayerInfo       `json:"players"`
	ExternalPlayers []int              `json:"external_players"`
	AllowedTurns    []string           `json:"allowed_turns"`
	Board           string             `json:"board"`
	GameConfig      *engine.GameConfig `json:"game_config"`
}

// PlayerInfo is a per-player summary
type PlayerInfo struct {
	UID         int             `json:"uid"`
	Controller  string          `json:"controller"` // "external" or an agent name
	Position    engine.Position `json:"position"`
	Orientation string          `json:"orientation"`
	Status      engine.Status   `json:"status"`
	TotalReward float64         `json:"total_reward"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Tick        int                 `json:"tick"`
	Done        bool                `json:"done"`
	Winner      int                 `json:"winner,omitempty"`
	Actions     []string            `json:"actions"`
	Statuses    []engine.Status     `json:"statuses"`
	Rewards     []float64           `json:"rewards"`
	Observation *engine.Observation `json:"observation"`
	Board       string              `json:"board"`
	Events      []GameEvent         `json:"events,omitempty"`
}

// SimulateResult summarises a game played to completion by agents
type SimulateResult struct {
	Ticks    int                `json:"ticks"`
	Done     bool               `json:"done"`
	Winner   int                `json:"winner,omitempty"`
	Statuses []engine.Status    `json:"statuses"`
	Stats    []engine.GameStats `json:"stats"`
	Board    string             `json:"board"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "reset", "crash", "game_over"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	UID       int              `json:"uid,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
}

// VisionResponse is the local occupancy window around a player's head
type VisionResponse struct {
	UID         int             `json:"uid"`
	Size        int             `json:"size"`
	Position    engine.Position `json:"position"`
	Orientation string          `json:"orientation"`
	Grid        []int           `json:"grid"`
}

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains a paginated slice of one player's records
type HistoryResponse struct {
	UID          int             `json:"uid"`
	Records      []engine.Record `json:"records"`
	TotalRecords int             `json:"total_records"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TotalPages   int             `json:"total_pages"`
	HasNext      bool            `json:"has_next"`
	HasPrevious  bool            `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string   `json:"filename"`
	ConfigID    string   `json:"config_id"` // The identifier to use for session creation
	Name        string   `json:"name"`      // Display name
	Description string   `json:"description"`
	Size        int      `json:"size"`
	NumPlayers  int      `json:"num_players"`
	Agents      []string `json:"agents,omitempty"`
}
