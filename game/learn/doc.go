// Package learn trains tabular Q-learning policies and produces self-play
// datasets.
//
// The learner always plays player 1. Its state is the vision grid around its
// head, encoded by StateKey, and its actions are the three canonical turns.
// Trainer runs episodes sequentially against registry agents, while
// RunEpisodes plays agent-only games in a bounded worker pool.
//
// Episode statistics and per-tick transitions are exported as zstd
// compressed parquet files. Q tables are stored as JSON:
//
//	{
//	  "vision_size": 3,
//	  "actions": ["left", "straight", "right"],
//	  "q_table": {"000010000": [0.1, 0.9, -3.2]}
//	}
package learn
