package learn

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

// Actions is the learner's action set. Q values are indexed in this order.
var Actions = engine.Turns

// StateKey encodes a vision grid as a string of '0' and '1'. Windows clipped
// at the border are shorter and therefore distinct states.
func StateKey(grid []int) string {
	var b strings.Builder
	b.Grow(len(grid))
	for _, v := range grid {
		if v != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// QTable maps a state key to one value per action. Unseen states are all
// zero. It is safe for concurrent use.
type QTable struct {
	mu         sync.RWMutex
	visionSize int
	values     map[string][]float64
}

// NewQTable creates an empty table for vision grids of the given size.
func NewQTable(visionSize int) *QTable {
	return &QTable{visionSize: visionSize, values: make(map[string][]float64)}
}

// VisionSize returns the vision grid size the table was trained on.
func (q *QTable) VisionSize() int {
	return q.visionSize
}

// Len returns the number of visited states.
func (q *QTable) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.values)
}

// Values returns a copy of the action values of state.
func (q *QTable) Values(state string) []float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]float64, len(Actions))
	copy(out, q.values[state])
	return out
}

// Best returns the index and value of the highest valued action. Ties go to
// the lowest index.
func (q *QTable) Best(state string) (int, float64) {
	values := q.Values(state)
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best, values[best]
}

// Update applies one temporal-difference step:
// Q(s,a) += alpha * (r + gamma * max Q(s',.) - Q(s,a)).
func (q *QTable) Update(state string, action int, reward float64, next string, p Params) {
	_, future := q.Best(next)

	q.mu.Lock()
	defer q.mu.Unlock()
	row, ok := q.values[state]
	if !ok {
		row = make([]float64, len(Actions))
		q.values[state] = row
	}
	row[action] += p.LearningRate * (reward + p.Discount*future - row[action])
}

// Policy returns a greedy agent that plays the table.
func (q *QTable) Policy() agent.Agent {
	return agent.Func(func(obs *engine.Observation, uid int) engine.Turn {
		if uid < 1 || uid > obs.NumPlayers() {
			return engine.TurnStraight
		}
		grid := engine.Vision(obs.Board, obs.Positions[uid-1], q.visionSize)
		best, _ := q.Best(StateKey(grid))
		return Actions[best]
	})
}

// RandomTieBreak returns the best action of state, choosing uniformly among
// equally valued actions.
func (q *QTable) RandomTieBreak(state string, rng *rand.Rand) int {
	values := q.Values(state)
	_, top := q.Best(state)
	var ties []int
	for i, v := range values {
		if v == top {
			ties = append(ties, i)
		}
	}
	return ties[rng.Intn(len(ties))]
}

type tableFile struct {
	VisionSize int                  `json:"vision_size"`
	Actions    []string             `json:"actions"`
	QTable     map[string][]float64 `json:"q_table"`
}

func (q *QTable) MarshalJSON() ([]byte, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	names := make([]string, len(Actions))
	for i, a := range Actions {
		names[i] = a.String()
	}
	return json.Marshal(tableFile{VisionSize: q.visionSize, Actions: names, QTable: q.values})
}

func (q *QTable) UnmarshalJSON(data []byte) error {
	var f tableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.VisionSize < 1 || f.VisionSize%2 == 0 {
		return fmt.Errorf("q table: invalid vision size %d", f.VisionSize)
	}
	for state, row := range f.QTable {
		if len(row) != len(Actions) {
			return fmt.Errorf("q table: state %q has %d values, want %d", state, len(row), len(Actions))
		}
	}
	if f.QTable == nil {
		f.QTable = make(map[string][]float64)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.visionSize = f.VisionSize
	q.values = f.QTable
	return nil
}

// Save writes the table as indented JSON through a temp file and rename.
func (q *QTable) Save(path string) error {
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Errorf("encode q table: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write q table: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename q table: %w", err)
	}
	return nil
}

// LoadQTable reads a table written by Save. A missing file returns an error
// matching os.ErrNotExist.
func LoadQTable(path string) (*QTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	q := &QTable{}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("load q table %s: %w", path, err)
	}
	return q, nil
}
