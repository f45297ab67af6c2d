package engine

// Player is one light cycle. UIDs are 1-based and double as the board layer
// holding the player's trail.
type Player struct {
	UID         int         `json:"uid"`
	Position    Position    `json:"position"`
	Orientation Orientation `json:"orientation"`
	Status      Status      `json:"status"`
	History     []Record    `json:"history"`

	action Turn
}

// NewPlayer creates a VALID player and records its starting state.
func NewPlayer(uid int, pos Position, orientation Orientation) *Player {
	p := &Player{
		UID:         uid,
		Position:    pos,
		Orientation: orientation,
		Status:      StatusValid,
	}
	p.History = append(p.History, p.record(0))
	return p
}

// Apply moves the player one cell according to the turn. Frozen players keep
// their position and orientation.
func (p *Player) Apply(t Turn) {
	p.action = t
	if p.Status != StatusValid {
		return
	}
	y, x, o := Step(p.Position.Y, p.Position.X, p.Orientation, t)
	p.Position = Position{Y: y, X: x}
	p.Orientation = o
}

// HeadCollidesWith reports whether both heads share a cell.
func (p *Player) HeadCollidesWith(other *Player) bool {
	return p.Position == other.Position
}

// SetStatus commits the tick outcome and appends it to the history.
// A crash status is permanent; later calls only add history entries.
func (p *Player) SetStatus(status Status, reward float64) {
	if p.Status == StatusValid {
		p.Status = status
	}
	p.History = append(p.History, p.record(reward))
}

// Alive reports whether the player is still VALID.
func (p *Player) Alive() bool {
	return p.Status == StatusValid
}

// Clone returns a copy that shares no memory with p.
func (p *Player) Clone() *Player {
	c := *p
	c.History = append([]Record(nil), p.History...)
	return &c
}

func (p *Player) record(reward float64) Record {
	return Record{
		Y:           p.Position.Y,
		X:           p.Position.X,
		Orientation: p.Orientation,
		UID:         p.UID,
		Status:      p.Status,
		Action:      p.action,
		Reward:      reward,
	}
}

// playerFromHistory rebuilds a player from persisted records.
func playerFromHistory(history []Record) *Player {
	last := history[len(history)-1]
	return &Player{
		UID:         last.UID,
		Position:    Position{Y: last.Y, X: last.X},
		Orientation: last.Orientation,
		Status:      last.Status,
		History:     append([]Record(nil), history...),
		action:      last.Action,
	}
}
