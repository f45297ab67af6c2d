package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/learn"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

func trainCommand() *cli.Command {
	defaults := learn.DefaultParams()
	return &cli.Command{
		Name:  "train",
		Usage: "train a Q-learning policy as player 1",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "preset name or JSON file"},
			&cli.IntFlag{Name: "episodes", Aliases: []string{"n"}, Value: 1000, Usage: "number of episodes"},
			&cli.FloatFlag{Name: "learning-rate", Aliases: []string{"l"}, Value: defaults.LearningRate},
			&cli.FloatFlag{Name: "discount", Aliases: []string{"d"}, Value: defaults.Discount},
			&cli.FloatFlag{Name: "epsilon", Aliases: []string{"e"}, Value: defaults.Epsilon},
			&cli.IntFlag{Name: "vision", Aliases: []string{"v"}, Usage: "vision grid size (0 = preset's vision_size)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"f"}, Usage: "file name root (default lightcycle_<size>x<size>_<n>players)"},
			&cli.IntFlag{Name: "save-every", Value: 500, Usage: "save a replay every N episodes (0 = never)"},
			&cli.BoolFlag{Name: "transitions", Usage: "also export per-tick transitions"},
			&cli.Int64Flag{Name: "seed", Usage: "learner seed (0 = time seeded)"},
		},
		Action: runTrain,
	}
}

// trainFiles are the artifacts of a training run sharing one file name root.
type trainFiles struct {
	QTable      string
	Stats       string
	Transitions string
	Root        string
}

func newTrainFiles(root string, cfg *engine.GameConfig) trainFiles {
	if root == "" {
		root = fmt.Sprintf("lightcycle_%dx%d_%dplayers", cfg.Size, cfg.Size, cfg.NumPlayers)
	}
	return trainFiles{
		Root:        root,
		QTable:      root + "_q_table.json",
		Stats:       root + "_game_stats.parquet",
		Transitions: root + "_transitions.parquet",
	}
}

func runTrain(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, cmd.String("config"))
	if err != nil {
		return err
	}
	files := newTrainFiles(cmd.String("out"), cfg)

	params := learn.Params{
		LearningRate: cmd.Float("learning-rate"),
		Discount:     cmd.Float("discount"),
		Epsilon:      cmd.Float("epsilon"),
		VisionSize:   cmd.Int("vision"),
	}
	if params.VisionSize == 0 {
		params.VisionSize = cfg.VisionSize
	}

	table, err := learn.LoadQTable(files.QTable)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("initializing new q table", "path", files.QTable)
		table = nil
	case err != nil:
		return err
	default:
		slog.Info("loaded q table", "path", files.QTable, "states", table.Len())
	}

	previous, err := learn.ReadEpisodeStats(files.Stats)
	if err != nil {
		if _, statErr := os.Stat(files.Stats); !errors.Is(statErr, os.ErrNotExist) {
			return err
		}
		previous = nil
	}

	var rng *rand.Rand
	if seed := cmd.Int64("seed"); seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}
	learner, err := learn.NewLearner(params, table, rng)
	if err != nil {
		return err
	}

	saveEvery := cmd.Int("save-every")
	trainer := &learn.Trainer{
		Config:          cfg,
		Agents:          agent.NewRegistry(),
		Learner:         learner,
		Episodes:        cmd.Int("episodes"),
		First:           len(previous),
		KeepTransitions: cmd.Bool("transitions"),
		OnEpisode: func(episode int, game *engine.GameEngine) error {
			if saveEvery <= 0 || (episode+1)%saveEvery != 0 {
				return nil
			}
			path := fmt.Sprintf("%s_episode_%d.json", files.Root, episode+1)
			slog.Info("game saved", "path", path)
			return replay.SaveFile(path, replay.FromEngine("", game))
		},
	}

	result, err := trainer.Train(ctx)
	if err != nil {
		return err
	}

	all := append(previous, result.Stats...)
	if err := learn.WriteEpisodeStats(files.Stats, all); err != nil {
		return err
	}
	if trainer.KeepTransitions {
		if err := learn.WriteTransitions(files.Transitions, result.Transitions); err != nil {
			return err
		}
	}
	if err := learner.Table().Save(files.QTable); err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "%s on %dx%d with %d players\n", cfg.Name, cfg.Size, cfg.Size, cfg.NumPlayers)
	fmt.Fprint(out, learn.Summarize(all))
	fmt.Fprintf(out, "Q table: %d states -> %s\n", learner.Table().Len(), files.QTable)
	return nil
}
