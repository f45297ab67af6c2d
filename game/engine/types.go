package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// Validation constants
	MinGridSize     = 5
	MaxGridSize     = 200
	DefaultWallGap  = 1
	DefaultVision   = 3
	DefaultSurvive  = 1.0
	DefaultCrash    = -100.0
	ObstacleLayer   = 0
	MaxVisionSize   = 15
	MaxBoardPlayers = 16
)

var (
	ErrActionCount   = errors.New("wrong number of actions")
	ErrInvalidTurn   = errors.New("invalid turn")
	ErrGameOver      = errors.New("game is over")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidConfig = errors.New("invalid game config")
)

// Status is the per-player outcome of a tick.
type Status int

const (
	StatusValid Status = iota
	StatusCrashIntoWall
	StatusCrashIntoSelf
	StatusCrashIntoTail
	StatusCrashIntoOpponent
)

var statusNames = map[Status]string{
	StatusValid:             "VALID",
	StatusCrashIntoWall:     "CRASH_INTO_WALL",
	StatusCrashIntoSelf:     "CRASH_INTO_SELF",
	StatusCrashIntoTail:     "CRASH_INTO_TAIL",
	StatusCrashIntoOpponent: "CRASH_INTO_OPPONENT",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Crashed reports whether s is any crash status.
func (s Status) Crashed() bool {
	return s != StatusValid
}

// MarshalText encodes the status by name so persisted games stay readable.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// Position is a (row, column) board coordinate.
type Position struct {
	Y int `json:"y"`
	X int `json:"x"`
}

// Record is one tick of a player's history.
type Record struct {
	Y           int         `json:"y"`
	X           int         `json:"x"`
	Orientation Orientation `json:"orientation"`
	UID         int         `json:"uid"`
	Status      Status      `json:"status"`
	Action      Turn        `json:"action"`
	Reward      float64     `json:"reward"`
}

// Observation is a read-only snapshot handed to agents, renderers and learners.
// It never aliases engine state.
type Observation struct {
	Board        *Board        `json:"board"`
	Positions    []Position    `json:"positions"`
	Orientations []Orientation `json:"orientations"`
	Statuses     []Status      `json:"statuses"`
	Tick         int           `json:"tick"`
}

// NumPlayers returns the number of players in the observation.
func (o *Observation) NumPlayers() int {
	return len(o.Positions)
}

// TickResult is returned by Move.
type TickResult struct {
	Observation *Observation `json:"observation"`
	Done        bool         `json:"done"`
	Statuses    []Status     `json:"statuses"`
	Rewards     []float64    `json:"rewards"`
}

// Rewards configures the per-tick reward signal.
type Rewards struct {
	Survive float64 `json:"survive"`
	Crash   float64 `json:"crash"`
}

// GameConfig represents a game preset loaded from JSON
type GameConfig struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Size        int      `json:"size"`
	NumPlayers  int      `json:"num_players"`
	WallGap     int      `json:"wall_gap"`
	SoftTurns   bool     `json:"soft_turns,omitempty"`
	Rewards     Rewards  `json:"rewards"`
	Seed        int64    `json:"seed,omitempty"`
	VisionSize  int      `json:"vision_size,omitempty"`
	Agents      []string `json:"agents,omitempty"` // controllers for players 2..N, "" = external
}

// Clone returns a deep copy of the config.
func (c *GameConfig) Clone() *GameConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Agents = append([]string(nil), c.Agents...)
	return &out
}

// String renders the config as compact JSON, mostly for logs.
func (c *GameConfig) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return c.Name
	}
	return string(data)
}

// GameStats summarises one player's game, as used by learning loops.
type GameStats struct {
	UID         int     `json:"uid"`
	NumActions  int     `json:"num_actions"`
	TotalReward float64 `json:"total_reward"`
	CrashFlag   Status  `json:"crash_flag"`
}
