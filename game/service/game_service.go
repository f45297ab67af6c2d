package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*MoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Observation, error)
	Simulate(ctx context.Context, sessionID string, maxTicks int) (*SimulateResult, error)

	// Game State
	GetObservation(ctx context.Context, sessionID string) (*engine.Observation, error)
	GetVision(ctx context.Context, sessionID string, uid, size int) (*VisionResponse, error)
	GetHistory(ctx context.Context, sessionID string, uid int, opts HistoryOptions) (*HistoryResponse, error)
	GetReplay(ctx context.Context, sessionID string) (*replay.Document, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
	ListAgents(ctx context.Context) []string
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// agents[i] drives player i+1; nil marks an externally controlled player.
	agents []agent.Agent
}

// Controllers returns the controller name of every player, "" for external.
// Player 1 is always external.
func (s *Session) Controllers() []string {
	names := make([]string, s.Config.NumPlayers)
	for i := 1; i < s.Config.NumPlayers; i++ {
		if i-1 < len(s.Config.Agents) {
			names[i] = s.Config.Agents[i-1]
		}
	}
	return names
}

// ExternalPlayers returns the uids that expect actions from the caller.
func (s *Session) ExternalPlayers() []int {
	var uids []int
	for i, name := range s.Controllers() {
		if name == "" {
			uids = append(uids, i+1)
		}
	}
	return uids
}
