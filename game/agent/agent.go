package agent

import (
	"math/rand"

	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

// Agent picks the next turn for the player with the given uid.
type Agent interface {
	Decide(obs *engine.Observation, uid int) engine.Turn
}

// Func adapts a plain function to the Agent interface.
type Func func(obs *engine.Observation, uid int) engine.Turn

func (f Func) Decide(obs *engine.Observation, uid int) engine.Turn {
	return f(obs, uid)
}

// Forward always goes straight.
type Forward struct{}

func (Forward) Decide(*engine.Observation, int) engine.Turn {
	return engine.TurnStraight
}

// Random picks uniformly among the safe turns, or among all turns when none
// is safe.
type Random struct {
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (a *Random) Decide(obs *engine.Observation, uid int) engine.Turn {
	return pickSafe(a.rng, obs, uid)
}

// WallHugger goes straight while that is safe and otherwise behaves like
// Random.
type WallHugger struct {
	rng *rand.Rand
}

func NewWallHugger(rng *rand.Rand) *WallHugger {
	return &WallHugger{rng: rng}
}

func (a *WallHugger) Decide(obs *engine.Observation, uid int) engine.Turn {
	if straightIsSafe(obs, uid) {
		return engine.TurnStraight
	}
	return pickSafe(a.rng, obs, uid)
}

// Stochastic mostly goes straight but turns 90 degrees with probability
// TurnRate on each side. It does not look at the board.
type Stochastic struct {
	rng      *rand.Rand
	TurnRate float64
}

func NewStochastic(rng *rand.Rand) *Stochastic {
	return &Stochastic{rng: rng, TurnRate: 0.1}
}

func (a *Stochastic) Decide(*engine.Observation, int) engine.Turn {
	r := a.rng.Float64()
	switch {
	case r < a.TurnRate:
		return engine.TurnHardLeft
	case r > 1-a.TurnRate:
		return engine.TurnHardRight
	}
	return engine.TurnStraight
}

// SpaceSeeker takes the safe turn that leads into the largest open area,
// preferring straight on ties.
type SpaceSeeker struct {
	// Limit caps the flood fill per candidate cell.
	Limit int
}

func (a SpaceSeeker) Decide(obs *engine.Observation, uid int) engine.Turn {
	limit := a.Limit
	if limit <= 0 {
		limit = 256
	}
	pos := obs.Positions[uid-1]
	o := obs.Orientations[uid-1]

	best, bestSpace := engine.TurnStraight, -1
	for _, t := range []engine.Turn{engine.TurnStraight, engine.TurnHardLeft, engine.TurnHardRight} {
		y, x, _ := engine.Step(pos.Y, pos.X, o, t)
		if space := engine.FreeSpace(obs.Board, y, x, limit); space > bestSpace {
			best, bestSpace = t, space
		}
	}
	return best
}

func straightIsSafe(obs *engine.Observation, uid int) bool {
	pos := obs.Positions[uid-1]
	y, x, _ := engine.Step(pos.Y, pos.X, obs.Orientations[uid-1], engine.TurnStraight)
	return engine.IsSafe(obs.Board, y, x)
}

func pickSafe(rng *rand.Rand, obs *engine.Observation, uid int) engine.Turn {
	if safe := engine.ValidTurns(obs, uid); len(safe) > 0 {
		return safe[rng.Intn(len(safe))]
	}
	return engine.Turns[rng.Intn(len(engine.Turns))]
}
