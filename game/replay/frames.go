package replay

import (
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

// Frames rebuilds the observation after every tick, starting with the initial
// placement. Trail cells are derived from the records: a cell is stamped when
// its player was VALID after that tick, except on the tick that ended the game.
// A document that fails Validate has no frames.
func (d *Document) Frames() []*engine.Observation {
	if d.Validate() != nil {
		return nil
	}
	n := len(d.States)
	last := d.Ticks()
	done := finished(d.States)

	board := engine.NewBoard(d.Config.Size, n)
	grid := board.Grid()

	frames := make([]*engine.Observation, 0, last+1)
	for t := 0; t <= last; t++ {
		obs := &engine.Observation{
			Positions:    make([]engine.Position, n),
			Orientations: make([]engine.Orientation, n),
			Statuses:     make([]engine.Status, n),
			Tick:         t,
		}
		for i, history := range d.States {
			r := history[t]
			obs.Positions[i] = engine.Position{Y: r.Y, X: r.X}
			obs.Orientations[i] = r.Orientation
			obs.Statuses[i] = r.Status
			if r.Status == engine.StatusValid && !(done && t == last) {
				grid[r.Y][r.X][i+1] = 1
			}
		}
		b, err := engine.BoardFromGrid(grid)
		if err != nil {
			return frames
		}
		obs.Board = b
		frames = append(frames, obs)
	}
	return frames
}

func finished(states [][]engine.Record) bool {
	alive := 0
	for _, history := range states {
		if history[len(history)-1].Status == engine.StatusValid {
			alive++
		}
	}
	if len(states) == 1 {
		return alive == 0
	}
	return alive <= 1
}
