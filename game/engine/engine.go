package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game lifecycle
	Reset() *Observation
	Move(actions ...Turn) (*TickResult, error)
	IsDone() bool
	Tick() int

	// Observation
	Observation() *Observation
	VisionGrid(uid, size int) ([]int, error)
	Board() *Board

	// Players
	NumPlayers() int
	Players() []*Player
	Player(uid int) (*Player, error)
	Statuses() []Status
	GameStats(uid int) (GameStats, error)
	Winner() int
	States() [][]Record

	// Configuration
	GetConfig() *GameConfig
	AllowedTurns() []Turn
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access.
type GameEngine struct {
	config  *GameConfig
	board   *Board
	players []*Player
	rng     *rand.Rand
	tick    int
	done    bool
}

// NewEngine validates the configuration and returns an engine ready to play.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	cfg := config.Clone()
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	ApplyDefaults(cfg)
	if err := ValidateGameConfig(cfg); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: cfg,
		rng:    newRand(cfg.Seed),
	}
	e.Reset()
	return e, nil
}

// Restore rebuilds an engine from a persisted grid and per-player histories.
func Restore(config *GameConfig, grid [][][]int, states [][]Record) (*GameEngine, error) {
	cfg := config.Clone()
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	ApplyDefaults(cfg)
	if err := ValidateGameConfig(cfg); err != nil {
		return nil, err
	}
	if len(states) != cfg.NumPlayers {
		return nil, fmt.Errorf("restore: have %d player histories, config wants %d", len(states), cfg.NumPlayers)
	}

	board, err := BoardFromGrid(grid)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	if board.Size() != cfg.Size || board.NumLayers() != cfg.NumPlayers+1 {
		return nil, fmt.Errorf("restore: grid is %dx%dx%d, config wants %dx%dx%d",
			board.Size(), board.Size(), board.NumLayers(), cfg.Size, cfg.Size, cfg.NumPlayers+1)
	}

	e := &GameEngine{
		config:  cfg,
		board:   board,
		players: make([]*Player, len(states)),
		rng:     newRand(cfg.Seed),
	}
	for i, history := range states {
		if len(history) == 0 {
			return nil, fmt.Errorf("restore: player %d has no history", i+1)
		}
		if len(history) != len(states[0]) {
			return nil, fmt.Errorf("restore: player %d has %d records, player 1 has %d", i+1, len(history), len(states[0]))
		}
		if history[0].UID != i+1 {
			return nil, fmt.Errorf("restore: history %d belongs to uid %d", i, history[0].UID)
		}
		e.players[i] = playerFromHistory(history)
	}
	e.tick = len(states[0]) - 1
	e.done = e.terminated()
	return e, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Reset starts a new game on a fresh board and returns the initial observation.
func (e *GameEngine) Reset() *Observation {
	n := e.config.NumPlayers
	size := e.config.Size
	gap := e.config.WallGap

	e.board = NewBoard(size, n)
	e.players = make([]*Player, n)
	e.tick = 0
	e.done = false

	cols := e.rng.Perm(size - 2)
	for i := 0; i < n; i++ {
		x := cols[i] + 1
		var pos Position
		var orientation Orientation
		switch {
		case n == 1:
			pos = Position{Y: size/2 - gap + 1, X: x}
			orientation = North
		case i%2 == 0:
			pos = Position{Y: size - 1 - gap, X: x}
			orientation = North
		default:
			pos = Position{Y: gap, X: x}
			orientation = South
		}
		e.players[i] = NewPlayer(i+1, pos, orientation)
	}
	e.board.Stamp(e.players)

	return e.Observation()
}

// Move advances the game by one tick. Exactly one action per player is
// required; actions of frozen players are recorded but ignored.
func (e *GameEngine) Move(actions ...Turn) (*TickResult, error) {
	if e.done {
		return nil, ErrGameOver
	}
	if len(actions) != len(e.players) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrActionCount, len(actions), len(e.players))
	}
	for i, a := range actions {
		if !e.allowed(a) {
			return nil, fmt.Errorf("%w: player %d sent %d", ErrInvalidTurn, i+1, int(a))
		}
	}

	before := e.Statuses()
	for i, p := range e.players {
		p.Apply(actions[i])
	}

	staged := e.resolve(before)

	rewards := make([]float64, len(e.players))
	for i, p := range e.players {
		switch {
		case before[i] != StatusValid:
			rewards[i] = 0
		case staged[i] == StatusValid:
			rewards[i] = e.config.Rewards.Survive
		default:
			rewards[i] = e.config.Rewards.Crash
		}
		p.SetStatus(staged[i], rewards[i])
	}

	e.tick++
	e.done = e.terminated()
	if !e.done {
		e.board.Stamp(e.players)
	}

	return &TickResult{
		Observation: e.Observation(),
		Done:        e.done,
		Statuses:    e.Statuses(),
		Rewards:     rewards,
	}, nil
}

// resolve evaluates collisions for the positions after this tick's moves.
// Order: wall, own trail, other trails, then head-on against players that
// were VALID before the tick. The first crash found sticks.
func (e *GameEngine) resolve(before []Status) []Status {
	staged := append([]Status(nil), before...)

	for i, p := range e.players {
		if staged[i] == StatusValid && e.board.IsObstacle(p.Position.Y, p.Position.X) {
			staged[i] = StatusCrashIntoWall
		}
	}

	if len(e.players) == 1 {
		p := e.players[0]
		if staged[0] == StatusValid && e.board.IsOccupiedBySelf(p.Position.Y, p.Position.X, p.UID) {
			staged[0] = StatusCrashIntoSelf
		}
		return staged
	}

	for i, p := range e.players {
		for j, opponent := range e.players {
			if i == j {
				continue
			}
			if staged[i] != StatusValid {
				break
			}
			y, x := p.Position.Y, p.Position.X
			switch {
			case e.board.IsOccupiedBySelf(y, x, p.UID):
				staged[i] = StatusCrashIntoSelf
			case e.board.IsOccupiedByOther(y, x, p.UID):
				staged[i] = StatusCrashIntoTail
			case before[j] == StatusValid && p.HeadCollidesWith(opponent):
				staged[i] = StatusCrashIntoOpponent
			}
		}
	}
	return staged
}

func (e *GameEngine) terminated() bool {
	if len(e.players) == 1 {
		return !e.players[0].Alive()
	}
	alive := 0
	for _, p := range e.players {
		if p.Alive() {
			alive++
		}
	}
	return alive <= 1
}

func (e *GameEngine) allowed(t Turn) bool {
	if !t.Valid() {
		return false
	}
	return e.config.SoftTurns || !t.IsSoft()
}

// AllowedTurns returns the action set of this game.
func (e *GameEngine) AllowedTurns() []Turn {
	if e.config.SoftTurns {
		return append([]Turn(nil), SoftTurns...)
	}
	return append([]Turn(nil), Turns...)
}

// Observation returns a snapshot of the current state.
func (e *GameEngine) Observation() *Observation {
	obs := &Observation{
		Board:        e.board.Clone(),
		Positions:    make([]Position, len(e.players)),
		Orientations: make([]Orientation, len(e.players)),
		Statuses:     e.Statuses(),
		Tick:         e.tick,
	}
	for i, p := range e.players {
		obs.Positions[i] = p.Position
		obs.Orientations[i] = p.Orientation
	}
	return obs
}

// VisionGrid returns the size x size window centred on the player's head in
// row-major order. Cells outside the board are omitted, so windows near the
// border are shorter. A cell is 1 when any layer is set.
func (e *GameEngine) VisionGrid(uid, size int) ([]int, error) {
	p, err := e.player(uid)
	if err != nil {
		return nil, err
	}
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("vision size must be odd and positive, got %d", size)
	}

	return Vision(e.board, p.Position, size), nil
}

// IsDone reports whether the game has terminated.
func (e *GameEngine) IsDone() bool {
	return e.done
}

// Tick returns the number of moves played since the last reset.
func (e *GameEngine) Tick() int {
	return e.tick
}

// Board returns a copy of the board.
func (e *GameEngine) Board() *Board {
	return e.board.Clone()
}

// NumPlayers returns the roster size, frozen players included.
func (e *GameEngine) NumPlayers() int {
	return len(e.players)
}

// Players returns copies of all players in uid order.
func (e *GameEngine) Players() []*Player {
	out := make([]*Player, len(e.players))
	for i, p := range e.players {
		out[i] = p.Clone()
	}
	return out
}

// Player returns a copy of the player with the given uid.
func (e *GameEngine) Player(uid int) (*Player, error) {
	p, err := e.player(uid)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (e *GameEngine) player(uid int) (*Player, error) {
	if uid < 1 || uid > len(e.players) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, uid)
	}
	return e.players[uid-1], nil
}

// Statuses returns the status of every player in uid order.
func (e *GameEngine) Statuses() []Status {
	out := make([]Status, len(e.players))
	for i, p := range e.players {
		out[i] = p.Status
	}
	return out
}

// GameStats summarises one player's game so far.
func (e *GameEngine) GameStats(uid int) (GameStats, error) {
	p, err := e.player(uid)
	if err != nil {
		return GameStats{}, err
	}
	stats := GameStats{
		UID:        uid,
		NumActions: len(p.History) - 1,
		CrashFlag:  p.Status,
	}
	for _, r := range p.History {
		stats.TotalReward += r.Reward
	}
	return stats, nil
}

// Winner returns the uid of the only VALID player of a finished multi-player
// game, or 0 when there is none.
func (e *GameEngine) Winner() int {
	if !e.done || len(e.players) < 2 {
		return 0
	}
	for _, p := range e.players {
		if p.Alive() {
			return p.UID
		}
	}
	return 0
}

// GetConfig returns the game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config.Clone()
}

// States returns a copy of every player's history, as persisted.
func (e *GameEngine) States() [][]Record {
	out := make([][]Record, len(e.players))
	for i, p := range e.players {
		out[i] = append([]Record(nil), p.History...)
	}
	return out
}
