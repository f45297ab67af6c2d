package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "print a saved game tick by tick",
		ArgsUsage: "<replay.json>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tick", Value: -1, Usage: "print only this tick"},
		},
		Action: runReplay,
	}
}

func runReplay(ctx context.Context, cmd *cli.Command) error {
	doc, err := loadReplayArg(cmd)
	if err != nil {
		return err
	}
	frames := doc.Frames()
	out := cmd.Root().Writer

	fmt.Fprintf(out, "Game %s (%s, %d players, %d ticks)\n\n", doc.GameID, doc.Config.Name, len(doc.States), doc.Ticks())
	tick := cmd.Int("tick")
	if tick >= 0 {
		if tick >= len(frames) {
			return fmt.Errorf("tick %d out of range, game has %d ticks", tick, doc.Ticks())
		}
		writeFrame(out, frames[tick])
		return nil
	}
	for _, f := range frames {
		writeFrame(out, f)
	}
	return nil
}

func loadReplayArg(cmd *cli.Command) (*replay.Document, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, fmt.Errorf("missing replay file argument")
	}
	return replay.LoadFile(path)
}

func writeFrame(w io.Writer, frame *engine.Observation) {
	fmt.Fprintf(w, "Tick %d | %s\n", frame.Tick, statusLine(frame))
	fmt.Fprintln(w, engine.Render(frame))
}

func statusLine(frame *engine.Observation) string {
	parts := make([]string, len(frame.Statuses))
	for i, s := range frame.Statuses {
		parts[i] = fmt.Sprintf("%c %s %s", 'A'+i%26, frame.Orientations[i], s)
	}
	return strings.Join(parts, ", ")
}
