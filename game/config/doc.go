// Package config provides preset management for light cycle games.
//
// The config package handles:
//   - Loading game presets from JSON files, with defaults applied
//   - Validation through engine.ValidateGameConfig
//   - Default preset selection (classic.json, else the first valid preset,
//     else engine.DefaultGameConfig)
//   - Preset discovery, listing and atomic saving
//
// Configuration Format:
//
// Presets are stored as <id>.json in the configs directory:
//
//	{
//	  "name": "duel",
//	  "description": "Two cycles, one scripted opponent",
//	  "size": 16,
//	  "num_players": 2,
//	  "wall_gap": 1,
//	  "soft_turns": false,
//	  "rewards": {"survive": 1, "crash": -100},
//	  "vision_size": 3,
//	  "agents": ["wallhugger"]
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	duel, err := manager.LoadConfig("duel")
//	presets, err := manager.ListConfigs()
package config
