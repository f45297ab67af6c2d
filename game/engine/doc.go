// Package engine provides the core game logic for the light cycle arena.
//
// The engine package implements the game mechanics including:
//   - The 8-way orientation and turn model (Step)
//   - Board occupancy with one obstacle layer and one trail layer per player
//   - Per-tick movement, collision adjudication and elimination
//   - The observation and reward contract used by agents and learners
//   - Configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. Observation is a deep copy of the state handed
// to agents, while GameConfig defines board size, player count and rewards
// loaded from JSON presets.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/duel.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	obs := game.Reset()
//	for !game.IsDone() {
//		result, err := game.Move(engine.TurnStraight, engine.TurnHardLeft)
//		if err != nil {
//			log.Fatal(err)
//		}
//		obs = result.Observation
//	}
//
// Game Rules:
//
// Every tick each VALID player turns (hard left, straight or hard right) and
// advances one cell, leaving a permanent trail behind. A player crashes when it
// enters the border, any trail including its own, or the cell another player's
// head enters on the same tick. Crashed players freeze in place. A solo game
// ends when its player crashes; a multi-player game ends when at most one
// player is left. The engine is deterministic for a fixed seed and is not safe
// for concurrent use.
package engine
