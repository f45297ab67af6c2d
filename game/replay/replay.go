package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

var (
	ErrEmptyDocument     = errors.New("replay document has no states")
	ErrMalformedDocument = errors.New("malformed replay document")
)

// Document is the persisted form of a game.
type Document struct {
	GameID    string             `json:"game_id"`
	CreatedAt time.Time          `json:"created_at"`
	Config    *engine.GameConfig `json:"config"`
	Grid      [][][]int          `json:"grid"`
	States    [][]engine.Record  `json:"states"`
}

// NewGameID returns a fresh random game identifier.
func NewGameID() string {
	return uuid.NewString()
}

// FromEngine captures the current state of a game.
func FromEngine(gameID string, e engine.Engine) *Document {
	if gameID == "" {
		gameID = NewGameID()
	}
	return &Document{
		GameID:    gameID,
		CreatedAt: time.Now().UTC(),
		Config:    e.GetConfig(),
		Grid:      e.Board().Grid(),
		States:    e.States(),
	}
}

// Engine rebuilds an engine positioned at the last recorded tick.
func (d *Document) Engine() (*engine.GameEngine, error) {
	if len(d.States) == 0 {
		return nil, ErrEmptyDocument
	}
	return engine.Restore(d.Config, d.Grid, d.States)
}

// Validate checks that the document describes a playable game: a valid
// config, one history per player, equal history lengths, matching uids and
// VALID records on the board.
func (d *Document) Validate() error {
	if len(d.States) == 0 {
		return ErrEmptyDocument
	}
	if d.Config == nil {
		return fmt.Errorf("%w: missing config", ErrMalformedDocument)
	}
	cfg := d.Config.Clone()
	engine.ApplyDefaults(cfg)
	if err := engine.ValidateGameConfig(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if len(d.States) != d.Config.NumPlayers {
		return fmt.Errorf("%w: %d histories for %d players", ErrMalformedDocument, len(d.States), d.Config.NumPlayers)
	}

	size := d.Config.Size
	length := len(d.States[0])
	for i, history := range d.States {
		if len(history) == 0 || len(history) != length {
			return fmt.Errorf("%w: player %d has %d records, want %d", ErrMalformedDocument, i+1, len(history), length)
		}
		for t, r := range history {
			if r.UID != i+1 {
				return fmt.Errorf("%w: record %d of player %d has uid %d", ErrMalformedDocument, t, i+1, r.UID)
			}
			if r.Status == engine.StatusValid && (r.Y < 0 || r.Y >= size || r.X < 0 || r.X >= size) {
				return fmt.Errorf("%w: player %d is off the board at tick %d (%d, %d)", ErrMalformedDocument, i+1, t, r.Y, r.X)
			}
		}
	}
	return nil
}

// Ticks returns the number of moves recorded.
func (d *Document) Ticks() int {
	if len(d.States) == 0 {
		return 0
	}
	return len(d.States[0]) - 1
}

// Encode writes the document as indented JSON.
func Encode(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}
	return nil
}

// Decode reads a document written by Encode.
func Decode(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveFile writes the document to path through a temp file and rename.
func SaveFile(path string, d *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := Encode(f, d); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename replay: %w", err)
	}
	return nil
}

// LoadFile reads a document from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
