package learn

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// EpisodeStats is one training episode from player 1's point of view.
type EpisodeStats struct {
	Episode     int64   `parquet:"episode" json:"episode"`
	NumActions  int32   `parquet:"num_actions" json:"num_actions"`
	TotalReward float64 `parquet:"total_reward" json:"total_reward"`
	CrashFlag   string  `parquet:"crash_flag,dict" json:"crash_flag"`
}

// Transition is a single (s, a, r, s') sample. Action holds the turn value
// (-2 hard left .. 2 hard right) and Status the learner's status after the
// tick.
type Transition struct {
	Episode   int64   `parquet:"episode"`
	Tick      int32   `parquet:"tick"`
	State     string  `parquet:"state,dict"`
	Action    int32   `parquet:"action"`
	Reward    float64 `parquet:"reward"`
	NextState string  `parquet:"next_state,dict"`
	Status    string  `parquet:"status,dict"`
}

const (
	statsSchema       = "lightcycle_episode_stats_v1"
	transitionsSchema = "lightcycle_transitions_v1"
)

// WriteEpisodeStats writes stats to a zstd compressed parquet file.
func WriteEpisodeStats(path string, rows []EpisodeStats) error {
	return writeParquet(path, rows, statsSchema)
}

// WriteTransitions writes transitions to a zstd compressed parquet file.
func WriteTransitions(path string, rows []Transition) error {
	return writeParquet(path, rows, transitionsSchema)
}

// ReadEpisodeStats loads stats written by WriteEpisodeStats.
func ReadEpisodeStats(path string) ([]EpisodeStats, error) {
	rows, err := parquet.ReadFile[EpisodeStats](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// ReadTransitions loads transitions written by WriteTransitions.
func ReadTransitions(path string) ([]Transition, error) {
	rows, err := parquet.ReadFile[Transition](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// writeParquet writes to a temp file and renames it into place.
func writeParquet[T any](path string, rows []T, schema string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// Summary aggregates episode statistics.
type Summary struct {
	Episodes   int
	MinActions int32
	MaxActions int32
	AvgActions float64
	MinReward  float64
	MaxReward  float64
	AvgReward  float64
	CrashFlags map[string]int
}

// Summarize computes a Summary. It returns the zero value for no episodes.
func Summarize(stats []EpisodeStats) Summary {
	s := Summary{Episodes: len(stats), CrashFlags: map[string]int{}}
	if len(stats) == 0 {
		return s
	}
	s.MinActions, s.MaxActions = math.MaxInt32, math.MinInt32
	s.MinReward, s.MaxReward = math.Inf(1), math.Inf(-1)
	var actions, rewards float64
	for _, e := range stats {
		s.MinActions = min(s.MinActions, e.NumActions)
		s.MaxActions = max(s.MaxActions, e.NumActions)
		s.MinReward = math.Min(s.MinReward, e.TotalReward)
		s.MaxReward = math.Max(s.MaxReward, e.TotalReward)
		actions += float64(e.NumActions)
		rewards += e.TotalReward
		s.CrashFlags[e.CrashFlag]++
	}
	s.AvgActions = actions / float64(len(stats))
	s.AvgReward = rewards / float64(len(stats))
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d episodes\n", s.Episodes)
	fmt.Fprintf(&b, "Actions: max %d, avg %.2f, min %d\n", s.MaxActions, s.AvgActions, s.MinActions)
	fmt.Fprintf(&b, "Rewards: max %.2f, avg %.2f, min %.2f\n", s.MaxReward, s.AvgReward, s.MinReward)
	b.WriteString("Crash flag:\n")
	flags := make([]string, 0, len(s.CrashFlags))
	for f := range s.CrashFlags {
		flags = append(flags, f)
	}
	sort.Strings(flags)
	for _, f := range flags {
		n := s.CrashFlags[f]
		fmt.Fprintf(&b, "  %s: %.2f%% or %d/%d\n", f, 100*float64(n)/float64(s.Episodes), n, s.Episodes)
	}
	return b.String()
}
