package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

// FallbackAgent drives externally controlled players during Simulate.
const FallbackAgent = "wallhugger"

// DefaultMaxTicks bounds Simulate when the caller passes no limit.
const DefaultMaxTicks = 10000

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	agents   *agent.Registry
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. A nil registry uses
// the built-in agents.
func NewGameService(sessions SessionManager, configs ConfigManager, agents *agent.Registry) GameService {
	if agents == nil {
		agents = agent.NewRegistry()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		agents:   agents,
		logger:   slog.Default().With("component", "service"),
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			availableConfigs, listErr := s.configs.ListConfigs()
			if listErr == nil && len(availableConfigs) > 0 {
				var configIDs []string
				for _, cfg := range availableConfigs {
					configIDs = append(configIDs, cfg.ConfigID)
				}
				return nil, fmt.Errorf("failed to load config '%s' (available: %v): %w", configName, configIDs, err)
			}
			return nil, fmt.Errorf("failed to load config '%s': %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	if err := s.agents.Validate(config.Agents); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", "session", session.ID, "config", configID, "players", config.NumPlayers)
	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Move plays one tick. actions holds one turn per externally controlled
// player in uid order; scripted players are driven by their agents.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	// Reject bad input before a requested reset touches the game
	external := sess.ExternalPlayers()
	if len(actions) != len(external) {
		return nil, fmt.Errorf("%w: got %d actions for external players %v", engine.ErrActionCount, len(actions), external)
	}
	allowed := sess.Engine.AllowedTurns()
	for i, a := range actions {
		if !slices.Contains(allowed, a) {
			return nil, fmt.Errorf("%w: player %d sent %d", engine.ErrInvalidTurn, external[i], int(a))
		}
	}

	agents, err := s.agentsFor(sess)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	}

	before := sess.Engine.Statuses()
	full := s.decide(sess, agents, actions)
	result, err := sess.Engine.Move(full...)
	if err != nil {
		return nil, err
	}

	events = append(events, tickEvents(before, result)...)
	if result.Done {
		events = append(events, GameEvent{
			Type:      "game_over",
			Message:   gameOverMessage(sess.Engine),
			Timestamp: time.Now(),
			UID:       sess.Engine.Winner(),
		})
	}

	s.persist(sess)

	names := make([]string, len(full))
	for i, t := range full {
		names[i] = t.String()
	}
	return &MoveResult{
		Tick:        sess.Engine.Tick(),
		Done:        result.Done,
		Winner:      sess.Engine.Winner(),
		Actions:     names,
		Statuses:    result.Statuses,
		Rewards:     result.Rewards,
		Observation: result.Observation,
		Board:       engine.Render(result.Observation),
		Events:      events,
	}, nil
}

// decide merges caller actions with agent decisions into one action per player.
func (s *gameServiceImpl) decide(sess *Session, agents []agent.Agent, external []engine.Turn) []engine.Turn {
	obs := sess.Engine.Observation()
	full := make([]engine.Turn, len(agents))
	next := 0
	for i, a := range agents {
		if a == nil {
			full[i] = external[next]
			next++
			continue
		}
		full[i] = a.Decide(obs, i+1)
	}
	return full
}

// Reset restarts the game of a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	obs := sess.Engine.Reset()
	s.sessions.UpdateLastAccessed(sessionID)
	s.persist(sess)
	return obs, nil
}

// Simulate plays the session to completion. External players are driven by
// FallbackAgent.
func (s *gameServiceImpl) Simulate(ctx context.Context, sessionID string, maxTicks int) (*SimulateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.Engine.IsDone() {
		return nil, engine.ErrGameOver
	}
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}

	agents, err := s.agentsFor(sess)
	if err != nil {
		return nil, err
	}
	drivers := make([]agent.Agent, len(agents))
	for i, a := range agents {
		if a == nil {
			a, err = s.agents.New(FallbackAgent, rand.New(rand.NewSource(seedFor(sess.Config, i))))
			if err != nil {
				return nil, err
			}
		}
		drivers[i] = a
	}

	for played := 0; !sess.Engine.IsDone() && played < maxTicks; played++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := sess.Engine.Move(s.decide(sess, drivers, nil)...); err != nil {
			return nil, err
		}
	}

	s.sessions.UpdateLastAccessed(sessionID)
	s.persist(sess)

	result := &SimulateResult{
		Ticks:    sess.Engine.Tick(),
		Done:     sess.Engine.IsDone(),
		Winner:   sess.Engine.Winner(),
		Statuses: sess.Engine.Statuses(),
		Board:    engine.Render(sess.Engine.Observation()),
	}
	for uid := 1; uid <= sess.Engine.NumPlayers(); uid++ {
		stats, _ := sess.Engine.GameStats(uid)
		result.Stats = append(result.Stats, stats)
	}
	s.logger.Info("simulation finished", "session", sess.ID, "ticks", result.Ticks, "winner", result.Winner)
	return result, nil
}

// GetObservation returns the current observation of a session
func (s *gameServiceImpl) GetObservation(ctx context.Context, sessionID string) (*engine.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.Observation(), nil
}

// GetVision returns the vision grid of one player. size 0 uses the config's
// vision size.
func (s *gameServiceImpl) GetVision(ctx context.Context, sessionID string, uid, size int) (*VisionResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if size == 0 {
		size = sess.Config.VisionSize
	}

	grid, err := sess.Engine.VisionGrid(uid, size)
	if err != nil {
		return nil, err
	}
	p, err := sess.Engine.Player(uid)
	if err != nil {
		return nil, err
	}
	return &VisionResponse{
		UID:         uid,
		Size:        size,
		Position:    p.Position,
		Orientation: p.Orientation.String(),
		Grid:        grid,
	}, nil
}

// GetHistory returns paginated records of one player
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, uid int, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	p, err := sess.Engine.Player(uid)
	if err != nil {
		return nil, err
	}
	history := p.History
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var records []engine.Record
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			records = append(records, history[i])
		}
	} else if start < total {
		records = history[start:end]
	}
	if records == nil {
		records = []engine.Record{}
	}

	return &HistoryResponse{
		UID:          uid,
		Records:      records,
		TotalRecords: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// GetReplay returns the persisted document form of a session's game
func (s *gameServiceImpl) GetReplay(ctx context.Context, sessionID string) (*replay.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return replay.FromEngine(sess.ID, sess.Engine), nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := s.agents.Validate(config.Agents); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
	}
	return s.configs.SaveConfig(configName, config)
}

// ListAgents returns the names usable in a config's agents list
func (s *gameServiceImpl) ListAgents(ctx context.Context) []string {
	return s.agents.Names()
}

// agentsFor builds the session's agents on first use.
func (s *gameServiceImpl) agentsFor(sess *Session) ([]agent.Agent, error) {
	if len(sess.agents) == sess.Config.NumPlayers {
		return sess.agents, nil
	}
	agents := make([]agent.Agent, sess.Config.NumPlayers)
	for i, name := range sess.Controllers() {
		if name == "" {
			continue
		}
		a, err := s.agents.New(name, rand.New(rand.NewSource(seedFor(sess.Config, i))))
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i+1, err)
		}
		agents[i] = a
	}
	sess.agents = agents
	return agents, nil
}

func (s *gameServiceImpl) persist(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session", "session", sess.ID, "error", err)
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}

	controllers := sess.Controllers()
	players := sess.Engine.Players()
	infos := make([]PlayerInfo, len(players))
	for i, p := range players {
		controller := controllers[i]
		if controller == "" {
			controller = "external"
		}
		stats, _ := sess.Engine.GameStats(p.UID)
		infos[i] = PlayerInfo{
			UID:         p.UID,
			Controller:  controller,
			Position:    p.Position,
			Orientation: p.Orientation.String(),
			Status:      p.Status,
			TotalReward: stats.TotalReward,
		}
	}

	turns := sess.Engine.AllowedTurns()
	allowed := make([]string, len(turns))
	for i, t := range turns {
		allowed[i] = t.String()
	}

	return &SessionInfo{
		ID:              sess.ID,
		ConfigName:      configID,
		CreatedAt:       sess.CreatedAt,
		LastAccessedAt:  sess.LastAccessedAt,
		Tick:            sess.Engine.Tick(),
		Done:            sess.Engine.IsDone(),
		Winner:          sess.Engine.Winner(),
		Players:         infos,
		ExternalPlayers: sess.ExternalPlayers(),
		AllowedTurns:    allowed,
		Board:           engine.Render(sess.Engine.Observation()),
		GameConfig:      sess.Config,
	}
}

func seedFor(config *engine.GameConfig, player int) int64 {
	if config.Seed == 0 {
		return time.Now().UnixNano() + int64(player)
	}
	return config.Seed*31 + int64(player)
}

func tickEvents(before []engine.Status, result *engine.TickResult) []GameEvent {
	var events []GameEvent
	for i, st := range result.Statuses {
		if before[i] == engine.StatusValid && st != engine.StatusValid {
			pos := result.Observation.Positions[i]
			events = append(events, GameEvent{
				Type:      "crash",
				Message:   fmt.Sprintf("Player %d: %s", i+1, st),
				Timestamp: time.Now(),
				UID:       i + 1,
				Position:  &pos,
			})
		}
	}
	return events
}

func gameOverMessage(e engine.Engine) string {
	if e.NumPlayers() == 1 {
		stats, _ := e.GameStats(1)
		return fmt.Sprintf("Game over after %d ticks: %s", e.Tick(), stats.CrashFlag)
	}
	if w := e.Winner(); w != 0 {
		return fmt.Sprintf("Player %d wins after %d ticks", w, e.Tick())
	}
	return fmt.Sprintf("Draw after %d ticks", e.Tick())
}
