package engine

// IsSafe reports whether a cycle could enter (y, x) without crashing into a
// wall or an existing trail. Heads of other players are not considered.
func IsSafe(board *Board, y, x int) bool {
	return !board.IsObstacle(y, x) && !board.IsOccupied(y, x)
}

// ValidTurns returns the turns that keep the player out of walls and trails
// for one step. It defaults to the 3-way turn set.
func ValidTurns(obs *Observation, uid int, turns ...Turn) []Turn {
	if uid < 1 || uid > obs.NumPlayers() {
		return nil
	}
	if len(turns) == 0 {
		turns = Turns
	}
	pos := obs.Positions[uid-1]
	o := obs.Orientations[uid-1]

	var safe []Turn
	for _, t := range turns {
		y, x, _ := Step(pos.Y, pos.X, o, t)
		if IsSafe(obs.Board, y, x) {
			safe = append(safe, t)
		}
	}
	return safe
}

// FreeSpace counts the empty cells reachable from (y, x) with 8-neighbour
// moves, capped at limit. Agents use it to rank otherwise safe turns.
func FreeSpace(board *Board, y, x, limit int) int {
	if !IsSafe(board, y, x) {
		return 0
	}
	seen := map[Position]bool{{Y: y, X: x}: true}
	queue := []Position{{Y: y, X: x}}
	for len(queue) > 0 && len(seen) < limit {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range displacements {
			next := Position{Y: cur.Y + d.dy, X: cur.X + d.dx}
			if seen[next] || !IsSafe(board, next.Y, next.X) {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return min(len(seen), limit)
}

// Vision returns the size x size window of board centred on pos in row-major
// order, skipping cells outside the board. A cell is 1 when any layer is set.
func Vision(board *Board, pos Position, size int) []int {
	half := size / 2
	grid := make([]int, 0, size*size)
	for y := pos.Y - half; y <= pos.Y+half; y++ {
		for x := pos.X - half; x <= pos.X+half; x++ {
			if !board.InBounds(y, x) {
				continue
			}
			if board.IsOccupied(y, x) {
				grid = append(grid, 1)
			} else {
				grid = append(grid, 0)
			}
		}
	}
	return grid
}

// Render draws an observation: the board plus player heads as letters
// ('A' for uid 1) and crashed heads as 'X'.
func Render(obs *Observation) string {
	rows := make([][]byte, obs.Board.Size())
	for y := range rows {
		rows[y] = make([]byte, obs.Board.Size())
		for x := range rows[y] {
			rows[y][x] = cellRune(obs.Board.Owner(y, x))
		}
	}
	for i, pos := range obs.Positions {
		if !obs.Board.InBounds(pos.Y, pos.X) {
			continue
		}
		if obs.Statuses[i] == StatusValid {
			rows[pos.Y][pos.X] = byte('A' + i%26)
		} else {
			rows[pos.Y][pos.X] = 'X'
		}
	}
	out := make([]byte, 0, len(rows)*(len(rows)+1))
	for _, row := range rows {
		out = append(out, row...)
		out = append(out, '\n')
	}
	return string(out)
}
