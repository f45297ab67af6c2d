package learn

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

// BatchOptions configures RunEpisodes.
type BatchOptions struct {
	Episodes int
	// Workers bounds concurrent games; 0 means GOMAXPROCS.
	Workers int
	// Controllers names the agent of each player. Missing entries fall back
	// to the config's agents, then DefaultOpponent.
	Controllers []string
}

// GameResult is one finished self-play game.
type GameResult struct {
	Episode int
	GameID  string
	Ticks   int
	Winner  int
	Stats   []engine.GameStats
	Game    *engine.GameEngine
}

// RunEpisodes plays independent agent-only games concurrently. Results are
// ordered by episode. With a non-zero config seed the batch is reproducible.
func RunEpisodes(ctx context.Context, cfg *engine.GameConfig, agents *agent.Registry, opts BatchOptions) ([]GameResult, error) {
	if agents == nil {
		agents = agent.NewRegistry()
	}
	names := Controllers(cfg, opts.Controllers)
	if err := agents.Validate(names); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]GameResult, opts.Episodes)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		g.Go(func() error {
			res, err := playAgents(ctx, cfg, agents, names, i)
			if err != nil {
				return fmt.Errorf("episode %d: %w", i, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Controllers resolves the agent name of every player for an agent-only game.
func Controllers(cfg *engine.GameConfig, override []string) []string {
	names := make([]string, cfg.NumPlayers)
	for i := range names {
		switch {
		case i < len(override) && override[i] != "":
			names[i] = override[i]
		case i > 0 && i-1 < len(cfg.Agents) && cfg.Agents[i-1] != "":
			names[i] = cfg.Agents[i-1]
		default:
			names[i] = DefaultOpponent
		}
	}
	return names
}

func playAgents(ctx context.Context, base *engine.GameConfig, agents *agent.Registry, names []string, episode int) (*GameResult, error) {
	cfg := base.Clone()
	if cfg.Seed != 0 {
		cfg.Seed += int64(episode)
	}
	// The game records its seed so placement can be replayed
	for cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}
	seed := cfg.Seed
	game, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	players := make([]agent.Agent, len(names))
	for i, name := range names {
		players[i], err = agents.New(name, rand.New(rand.NewSource(seed*31+int64(i))))
		if err != nil {
			return nil, err
		}
	}

	actions := make([]engine.Turn, len(players))
	for !game.IsDone() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs := game.Observation()
		for i, p := range players {
			actions[i] = p.Decide(obs, i+1)
		}
		if _, err := game.Move(actions...); err != nil {
			return nil, err
		}
	}

	res := &GameResult{
		Episode: episode,
		GameID:  replay.NewGameID(),
		Ticks:   game.Tick(),
		Winner:  game.Winner(),
		Game:    game,
	}
	for uid := 1; uid <= game.NumPlayers(); uid++ {
		stats, _ := game.GameStats(uid)
		res.Stats = append(res.Stats, stats)
	}
	return res, nil
}
