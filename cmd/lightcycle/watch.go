package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "play back a saved game in the terminal",
		ArgsUsage: "<replay.json>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "delay", Value: 150 * time.Millisecond, Usage: "time between frames"},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	doc, err := loadReplayArg(cmd)
	if err != nil {
		return err
	}
	m := newViewer(doc, cmd.Duration("delay"))
	if len(m.frames) == 0 {
		return replay.ErrEmptyDocument
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

type frameMsg time.Time

type viewer struct {
	title   string
	frames  []*engine.Observation
	current int
	playing bool
	delay   time.Duration
}

func newViewer(doc *replay.Document, delay time.Duration) viewer {
	return viewer{
		title:   fmt.Sprintf("%s (%s)", doc.Config.Name, doc.GameID),
		frames:  doc.Frames(),
		playing: true,
		delay:   delay,
	}
}

func (v viewer) tick() tea.Cmd {
	return tea.Tick(v.delay, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (v viewer) Init() tea.Cmd {
	return v.tick()
}

func (v viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case " ":
			v.playing = !v.playing
			if v.playing {
				return v, v.tick()
			}
		case "right", "l":
			v.playing = false
			v.current = min(v.current+1, len(v.frames)-1)
		case "left", "h":
			v.playing = false
			v.current = max(v.current-1, 0)
		case "home", "r":
			v.current = 0
		case "end":
			v.playing = false
			v.current = len(v.frames) - 1
		}
	case frameMsg:
		if !v.playing {
			return v, nil
		}
		if v.current >= len(v.frames)-1 {
			v.playing = false
			return v, nil
		}
		v.current++
		return v, v.tick()
	}
	return v, nil
}

func (v viewer) View() string {
	frame := v.frames[v.current]
	var b strings.Builder
	fmt.Fprintf(&b, "%s  tick %d/%d\n\n", v.title, frame.Tick, len(v.frames)-1)
	b.WriteString(engine.Render(frame))
	b.WriteByte('\n')
	for i, s := range frame.Statuses {
		fmt.Fprintf(&b, "%c  player %d  %-3s %s\n", 'A'+i%26, i+1, frame.Orientations[i], s)
	}
	state := "paused"
	if v.playing {
		state = "playing"
	}
	fmt.Fprintf(&b, "\n[%s] space play/pause, left/right step, r restart, q quit\n", state)
	return b.String()
}
