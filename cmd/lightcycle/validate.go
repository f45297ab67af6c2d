package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/agent"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
)

var errSomeInvalid = errors.New("some configurations have errors")

// ValidationResult captures the outcome of validating a single preset file.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate game presets",
		ArgsUsage: "[file.json|dir]...",
		Description: "Checks every preset for JSON structure, board and player limits, " +
			"known agent names and that every player starts with room to move. " +
			"Without arguments the --config-dir directory is checked.",
		Action: runValidate,
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	targets := cmd.Args().Slice()
	if len(targets) == 0 {
		targets = []string{cmd.String("config-dir")}
	}
	files, err := presetFiles(targets)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no preset files found in %s", strings.Join(targets, ", "))
	}

	registry := agent.NewRegistry()
	results := make([]ValidationResult, len(files))
	for i, file := range files {
		results[i] = validatePreset(file, registry)
	}

	if !printValidation(cmd.Root().Writer, results) {
		return errSomeInvalid
	}
	return nil
}

func presetFiles(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(target, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// validatePreset loads one preset, validates it and places the players of a
// fresh game to check that each of them can move.
func validatePreset(path string, registry *agent.Registry) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := engine.ParseGameConfig(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if err := registry.Validate(cfg.Agents); err != nil {
		result.fail("%v", err)
	}

	game, err := engine.NewEngine(cfg)
	if err != nil {
		result.fail("Failed to start a game: %v", err)
		return result
	}
	obs := game.Observation()
	minRoom := -1
	for i, pos := range obs.Positions {
		y, x, _ := engine.Step(pos.Y, pos.X, obs.Orientations[i], engine.TurnStraight)
		room := engine.FreeSpace(obs.Board, y, x, cfg.Size*cfg.Size)
		if room == 0 {
			result.fail("Player %d starts at (%d,%d) facing a wall", i+1, pos.X, pos.Y)
		}
		if minRoom < 0 || room < minRoom {
			minRoom = room
		}
	}

	if !result.Valid {
		return result
	}

	turnSet := "3-way"
	if cfg.SoftTurns {
		turnSet = "5-way"
	}
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", cfg.Name),
		fmt.Sprintf("✓ Arena: %dx%d, wall gap %d", cfg.Size, cfg.Size, cfg.WallGap),
		fmt.Sprintf("✓ Players: %d (%s turns)", cfg.NumPlayers, turnSet),
		fmt.Sprintf("✓ Rewards: survive %g, crash %g", cfg.Rewards.Survive, cfg.Rewards.Crash),
		fmt.Sprintf("✓ Vision: %dx%d", cfg.VisionSize, cfg.VisionSize),
		fmt.Sprintf("✓ Reachable cells from the tightest start: %d", minRoom),
	)
	if len(cfg.Agents) > 0 {
		result.Info = append(result.Info, fmt.Sprintf("✓ Agents: %s", strings.Join(cfg.Agents, ", ")))
	}
	if cfg.Seed == 0 {
		result.Info = append(result.Info, "✓ Seed: none, placement varies per game")
	}
	return result
}

// printValidation writes the report and reports whether every file is valid.
func printValidation(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
			continue
		}
		allValid = false
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}
