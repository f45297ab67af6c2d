package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

// DefaultOpponent drives opponents the game config leaves unassigned.
const DefaultOpponent = "wallhugger"

// Params are the Q-learning hyperparameters.
type Params struct {
	LearningRate float64 `json:"learning_rate"`
	Discount     float64 `json:"discount"`
	Epsilon      float64 `json:"epsilon"`
	VisionSize   int     `json:"vision_size"`
}

// DefaultParams returns alpha 0.4, gamma 0.9, epsilon 0.2 and a 3x3 vision grid.
func DefaultParams() Params {
	return Params{LearningRate: 0.4, Discount: 0.9, Epsilon: 0.2, VisionSize: 3}
}

// Validate checks that every parameter is in range.
func (p Params) Validate() error {
	switch {
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning rate must be in (0, 1], got %g", p.LearningRate)
	case p.Discount < 0 || p.Discount > 1:
		return fmt.Errorf("discount must be in [0, 1], got %g", p.Discount)
	case p.Epsilon < 0 || p.Epsilon > 1:
		return fmt.Errorf("epsilon must be in [0, 1], got %g", p.Epsilon)
	case p.VisionSize < 1 || p.VisionSize%2 == 0:
		return fmt.Errorf("vision size must be odd and positive, got %d", p.VisionSize)
	}
	return nil
}

// Learner is an epsilon-greedy Q-learning policy for player 1.
type Learner struct {
	params Params
	table  *QTable
	rng    *rand.Rand
}

// NewLearner returns a learner updating table. A nil table starts empty.
func NewLearner(params Params, table *QTable, rng *rand.Rand) (*Learner, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = NewQTable(params.VisionSize)
	}
	if table.VisionSize() != params.VisionSize {
		return nil, fmt.Errorf("q table was trained on vision size %d, params want %d", table.VisionSize(), params.VisionSize)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Learner{params: params, table: table, rng: rng}, nil
}

func (l *Learner) Table() *QTable { return l.table }

func (l *Learner) Params() Params { return l.params }

// SelectAction explores with probability epsilon and otherwise exploits.
func (l *Learner) SelectAction(state string) int {
	if l.rng.Float64() < l.params.Epsilon {
		return l.rng.Intn(len(Actions))
	}
	return l.table.RandomTieBreak(state, l.rng)
}

// Observe records one transition in the table.
func (l *Learner) Observe(state string, action int, reward float64, next string) {
	l.table.Update(state, action, reward, next, l.params)
}

// Trainer plays episodes with the learner as player 1 against registry agents.
type Trainer struct {
	Config   *engine.GameConfig
	Agents   *agent.Registry
	Learner  *Learner
	Logger   *slog.Logger
	Episodes int
	// First is the number of the first episode, for appending to earlier runs.
	First int
	// OnEpisode, when set, is called with every finished game.
	OnEpisode func(episode int, game *engine.GameEngine) error
	// KeepTransitions collects per-tick rows in the result.
	KeepTransitions bool
}

// TrainResult holds what one Train call produced.
type TrainResult struct {
	Stats       []EpisodeStats
	Transitions []Transition
}

// Train runs the configured number of episodes. Episodes are sequential since
// every tick updates the shared table.
func (t *Trainer) Train(ctx context.Context) (*TrainResult, error) {
	if t.Config == nil || t.Learner == nil {
		return nil, errors.New("trainer needs a config and a learner")
	}
	if t.Agents == nil {
		t.Agents = agent.NewRegistry()
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	names := opponentNames(t.Config)
	if err := t.Agents.Validate(names); err != nil {
		return nil, err
	}

	result := &TrainResult{}
	for i := 0; i < t.Episodes; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		episode := t.First + i
		game, transitions, err := t.playEpisode(ctx, episode, names)
		if err != nil {
			return result, fmt.Errorf("episode %d: %w", episode, err)
		}

		stats, _ := game.GameStats(1)
		result.Stats = append(result.Stats, EpisodeStats{
			Episode:     int64(episode),
			NumActions:  int32(stats.NumActions),
			TotalReward: stats.TotalReward,
			CrashFlag:   stats.CrashFlag.String(),
		})
		if t.KeepTransitions {
			result.Transitions = append(result.Transitions, transitions...)
		}

		if t.OnEpisode != nil {
			if err := t.OnEpisode(episode, game); err != nil {
				return result, err
			}
		}
		if (i+1)%100 == 0 {
			logger.Info("training progress", "episode", i+1, "of", t.Episodes, "states", t.Learner.table.Len())
		}
	}
	return result, nil
}

func (t *Trainer) playEpisode(ctx context.Context, episode int, names []string) (*engine.GameEngine, []Transition, error) {
	cfg := t.Config.Clone()
	if cfg.Seed != 0 {
		cfg.Seed += int64(episode)
	}
	game, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}

	opponents := make([]agent.Agent, len(names))
	for i, name := range names {
		opponents[i], err = t.Agents.New(name, rand.New(rand.NewSource(t.Learner.rng.Int63())))
		if err != nil {
			return nil, nil, err
		}
	}

	size := t.Learner.params.VisionSize
	var transitions []Transition
	actions := make([]engine.Turn, cfg.NumPlayers)
	for !game.IsDone() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		obs := game.Observation()
		learning := obs.Statuses[0] == engine.StatusValid

		var state string
		action := 1
		if learning {
			grid, _ := game.VisionGrid(1, size)
			state = StateKey(grid)
			action = t.Learner.SelectAction(state)
		}
		actions[0] = Actions[action]
		for i, opp := range opponents {
			actions[i+1] = opp.Decide(obs, i+2)
		}

		res, err := game.Move(actions...)
		if err != nil {
			return nil, nil, err
		}
		if !learning {
			continue
		}

		grid, _ := game.VisionGrid(1, size)
		next := StateKey(grid)
		t.Learner.Observe(state, action, res.Rewards[0], next)
		if t.KeepTransitions {
			transitions = append(transitions, Transition{
				Episode:   int64(episode),
				Tick:      int32(game.Tick()),
				State:     state,
				Action:    int32(Actions[action]),
				Reward:    res.Rewards[0],
				NextState: next,
				Status:    res.Statuses[0].String(),
			})
		}
	}
	return game, transitions, nil
}

// opponentNames returns the controllers of players 2..N.
func opponentNames(cfg *engine.GameConfig) []string {
	names := make([]string, cfg.NumPlayers-1)
	for i := range names {
		names[i] = DefaultOpponent
		if i < len(cfg.Agents) && cfg.Agents[i] != "" {
			names[i] = cfg.Agents[i]
		}
	}
	return names
}
