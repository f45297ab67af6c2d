package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/learn"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "play agent-only games and optionally save their replays",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "preset name or JSON file"},
			&cli.IntFlag{Name: "episodes", Aliases: []string{"n"}, Value: 1, Usage: "number of games"},
			&cli.IntFlag{Name: "workers", Value: 0, Usage: "concurrent games (0 = GOMAXPROCS)"},
			&cli.StringSliceFlag{Name: "agent", Usage: "controller per player in uid order, repeatable"},
			&cli.StringFlag{Name: "out", Usage: "directory to save replays into"},
			&cli.BoolFlag{Name: "board", Usage: "print the final board of every game"},
		},
		Action: runSimulate,
	}
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, cmd.String("config"))
	if err != nil {
		return err
	}
	registry := agent.NewRegistry()
	if err := registerPolicy(registry, cmd.StringSlice("agent")); err != nil {
		return err
	}

	opts := learn.BatchOptions{
		Episodes:    cmd.Int("episodes"),
		Workers:     cmd.Int("workers"),
		Controllers: cmd.StringSlice("agent"),
	}
	results, err := learn.RunEpisodes(ctx, cfg, registry, opts)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	names := learn.Controllers(cfg, opts.Controllers)
	fmt.Fprintf(out, "%s: %d game(s), players %s\n", cfg.Name, len(results), strings.Join(names, ", "))

	wins := make([]int, cfg.NumPlayers+1)
	for _, r := range results {
		wins[r.Winner]++
		fmt.Fprintf(out, "game %d: %d ticks, winner %d", r.Episode, r.Ticks, r.Winner)
		for _, s := range r.Stats {
			fmt.Fprintf(out, ", p%d %s", s.UID, s.CrashFlag)
		}
		fmt.Fprintln(out)
		if cmd.Bool("board") {
			fmt.Fprint(out, engine.Render(r.Game.Observation()))
		}

		if dir := cmd.String("out"); dir != "" {
			path := filepath.Join(dir, r.GameID+".json")
			if err := replay.SaveFile(path, replay.FromEngine(r.GameID, r.Game)); err != nil {
				return err
			}
			slog.Debug("replay saved", "path", path)
		}
	}

	fmt.Fprintln(out, "wins:")
	for uid := 1; uid <= cfg.NumPlayers; uid++ {
		fmt.Fprintf(out, "  player %d (%s): %d\n", uid, names[uid-1], wins[uid])
	}
	fmt.Fprintf(out, "  none: %d\n", wins[0])
	return nil
}

// registerPolicy adds a "q:<path>" agent for every such controller name, so
// trained tables can take part in battles.
func registerPolicy(registry *agent.Registry, names []string) error {
	for _, name := range names {
		path, ok := strings.CutPrefix(name, "q:")
		if !ok || registry.Has(name) {
			continue
		}
		table, err := learn.LoadQTable(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("q table %s does not exist", path)
			}
			return err
		}
		policy := table.Policy()
		registry.Register(name, func(_ *rand.Rand) agent.Agent { return policy })
	}
	return nil
}
