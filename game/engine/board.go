package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board is the occupancy tensor of a game: size x size cells, each with one
// layer for static obstacles and one trail layer per player.
type Board struct {
	size   int
	layers int
	cells  []uint8
}

// NewBoard creates an empty board and stamps the border into the obstacle layer.
func NewBoard(size, numPlayers int) *Board {
	b := &Board{
		size:   size,
		layers: 1 + numPlayers,
		cells:  make([]uint8, size*size*(1+numPlayers)),
	}
	for i := 0; i < size; i++ {
		b.set(0, i, ObstacleLayer)
		b.set(size-1, i, ObstacleLayer)
		b.set(i, 0, ObstacleLayer)
		b.set(i, size-1, ObstacleLayer)
	}
	return b
}

// BoardFromGrid builds a board from a nested rows x cols x layers grid.
func BoardFromGrid(grid [][][]int) (*Board, error) {
	size := len(grid)
	if size == 0 {
		return nil, fmt.Errorf("grid is empty")
	}
	if len(grid[0]) == 0 {
		return nil, fmt.Errorf("grid row 0 is empty")
	}
	layers := len(grid[0][0])
	if layers < 2 {
		return nil, fmt.Errorf("grid needs at least 2 layers, got %d", layers)
	}

	b := &Board{size: size, layers: layers, cells: make([]uint8, size*size*layers)}
	for y, row := range grid {
		if len(row) != size {
			return nil, fmt.Errorf("grid row %d has %d columns, want %d", y, len(row), size)
		}
		for x, cell := range row {
			if len(cell) != layers {
				return nil, fmt.Errorf("grid cell (%d,%d) has %d layers, want %d", y, x, len(cell), layers)
			}
			for l, v := range cell {
				if v != 0 && v != 1 {
					return nil, fmt.Errorf("grid cell (%d,%d,%d) = %d, want 0 or 1", y, x, l, v)
				}
				b.cells[b.index(y, x, l)] = uint8(v)
			}
		}
	}
	return b, nil
}

// Size returns the side length of the board.
func (b *Board) Size() int { return b.size }

// NumLayers returns 1 + number of players.
func (b *Board) NumLayers() int { return b.layers }

// InBounds reports whether (y, x) lies on the board.
func (b *Board) InBounds(y, x int) bool {
	return y >= 0 && y < b.size && x >= 0 && x < b.size
}

// At returns the value of a single cell layer. Out of range reads return 0.
func (b *Board) At(y, x, layer int) uint8 {
	if !b.InBounds(y, x) || layer < 0 || layer >= b.layers {
		return 0
	}
	return b.cells[b.index(y, x, layer)]
}

// Stamp marks the current cell of every VALID player in its trail layer.
func (b *Board) Stamp(players []*Player) {
	for _, p := range players {
		if p.Status != StatusValid || !b.InBounds(p.Position.Y, p.Position.X) {
			continue
		}
		b.set(p.Position.Y, p.Position.X, p.UID)
	}
}

// IsObstacle reports whether (y, x) is off the board or a static obstacle.
func (b *Board) IsObstacle(y, x int) bool {
	if !b.InBounds(y, x) {
		return true
	}
	return b.cells[b.index(y, x, ObstacleLayer)] == 1
}

// IsOccupiedBySelf reports whether the player's own trail covers (y, x).
func (b *Board) IsOccupiedBySelf(y, x, uid int) bool {
	return b.At(y, x, uid) == 1
}

// IsOccupiedByOther reports whether another player's trail covers (y, x).
func (b *Board) IsOccupiedByOther(y, x, uid int) bool {
	if !b.InBounds(y, x) {
		return false
	}
	for l := 1; l < b.layers; l++ {
		if l != uid && b.cells[b.index(y, x, l)] == 1 {
			return true
		}
	}
	return false
}

// IsOccupied reports whether any layer is set at (y, x).
func (b *Board) IsOccupied(y, x int) bool {
	if !b.InBounds(y, x) {
		return false
	}
	base := b.index(y, x, 0)
	for l := 0; l < b.layers; l++ {
		if b.cells[base+l] == 1 {
			return true
		}
	}
	return false
}

// Owner returns the uid whose trail covers (y, x), -1 for an obstacle, or 0
// for an empty cell.
func (b *Board) Owner(y, x int) int {
	if b.IsObstacle(y, x) {
		return -1
	}
	for l := 1; l < b.layers; l++ {
		if b.cells[b.index(y, x, l)] == 1 {
			return l
		}
	}
	return 0
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	return &Board{
		size:   b.size,
		layers: b.layers,
		cells:  append([]uint8(nil), b.cells...),
	}
}

// Grid returns the board as nested rows x cols x layers ints.
func (b *Board) Grid() [][][]int {
	grid := make([][][]int, b.size)
	for y := range grid {
		grid[y] = make([][]int, b.size)
		for x := range grid[y] {
			cell := make([]int, b.layers)
			for l := range cell {
				cell[l] = int(b.cells[b.index(y, x, l)])
			}
			grid[y][x] = cell
		}
	}
	return grid
}

// Equal reports whether two boards have identical shape and contents.
func (b *Board) Equal(other *Board) bool {
	if b.size != other.size || b.layers != other.layers {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Grid())
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var grid [][][]int
	if err := json.Unmarshal(data, &grid); err != nil {
		return err
	}
	nb, err := BoardFromGrid(grid)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}

// String renders the board: '#' obstacle, '.' empty, trail cells by uid.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			sb.WriteByte(cellRune(b.Owner(y, x)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func cellRune(owner int) byte {
	switch {
	case owner < 0:
		return '#'
	case owner == 0:
		return '.'
	case owner < 10:
		return byte('0' + owner)
	}
	return '+'
}

func (b *Board) index(y, x, layer int) int {
	return (y*b.size+x)*b.layers + layer
}

func (b *Board) set(y, x, layer int) {
	b.cells[b.index(y, x, layer)] = 1
}
