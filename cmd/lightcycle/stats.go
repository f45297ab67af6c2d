package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/learn"
)

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "summarize episode statistics written by train",
		ArgsUsage: "<game_stats.parquet>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("missing parquet file argument")
			}
			var all []learn.EpisodeStats
			for _, path := range cmd.Args().Slice() {
				rows, err := learn.ReadEpisodeStats(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				all = append(all, rows...)
			}
			fmt.Fprint(cmd.Root().Writer, learn.Summarize(all))
			return nil
		},
	}
}
