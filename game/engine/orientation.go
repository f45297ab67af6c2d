package engine

import "fmt"

// Orientation is one of the 8 compass directions, numbered clockwise from North.
type Orientation int

const (
	North Orientation = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest

	numOrientations = 8
)

// displacements holds the (dy, dx) unit step for each orientation.
// Rows grow downward, columns grow to the right.
var displacements = [numOrientations]struct{ dy, dx int }{
	North:     {-1, 0},
	NorthEast: {-1, 1},
	East:      {0, 1},
	SouthEast: {1, 1},
	South:     {1, 0},
	SouthWest: {1, -1},
	West:      {0, -1},
	NorthWest: {-1, -1},
}

var orientationNames = [numOrientations]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Displacement returns the (dy, dx) step of the orientation.
func (o Orientation) Displacement() (dy, dx int) {
	d := displacements[o.normalize()]
	return d.dy, d.dx
}

func (o Orientation) String() string {
	if o < 0 || o >= numOrientations {
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
	return orientationNames[o]
}

func (o Orientation) normalize() Orientation {
	return ((o % numOrientations) + numOrientations) % numOrientations
}

// Turn is a change of orientation index applied before stepping forward.
type Turn int

const (
	TurnHardLeft  Turn = -2
	TurnSoftLeft  Turn = -1
	TurnStraight  Turn = 0
	TurnSoftRight Turn = 1
	TurnHardRight Turn = 2
)

// Turns is the canonical 3-way action set.
var Turns = []Turn{TurnHardLeft, TurnStraight, TurnHardRight}

// SoftTurns is the 5-way action set that also allows 45 degree turns.
var SoftTurns = []Turn{TurnHardLeft, TurnSoftLeft, TurnStraight, TurnSoftRight, TurnHardRight}

// IsSoft reports whether t is a 45 degree turn.
func (t Turn) IsSoft() bool {
	return t == TurnSoftLeft || t == TurnSoftRight
}

// Valid reports whether t belongs to the 5-way action set.
func (t Turn) Valid() bool {
	return t >= TurnHardLeft && t <= TurnHardRight
}

func (t Turn) String() string {
	switch t {
	case TurnHardLeft:
		return "left"
	case TurnSoftLeft:
		return "soft_left"
	case TurnStraight:
		return "straight"
	case TurnSoftRight:
		return "soft_right"
	case TurnHardRight:
		return "right"
	}
	return fmt.Sprintf("Turn(%d)", int(t))
}

// ParseTurn maps a turn name (as produced by Turn.String) to a Turn.
func ParseTurn(s string) (Turn, error) {
	for _, t := range SoftTurns {
		if t.String() == s {
			return t, nil
		}
	}
	return TurnStraight, fmt.Errorf("%w: %q", ErrInvalidTurn, s)
}

// Rotate returns the orientation after applying the turn, modulo 8.
func (o Orientation) Rotate(t Turn) Orientation {
	return (o + Orientation(t)).normalize()
}

// Step is the motion model. It rotates the orientation by the turn and then
// advances one cell along the new orientation. No bounds checking is done, so
// it is safe for hypothetical lookahead.
func Step(y, x int, o Orientation, t Turn) (ny, nx int, no Orientation) {
	no = o.Rotate(t)
	dy, dx := no.Displacement()
	return y + dy, x + dx, no
}
