package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ApplyDefaults fills zero-valued optional fields. Rewards are defaulted only
// when both values are zero.
func ApplyDefaults(config *GameConfig) {
	if config.WallGap == 0 {
		config.WallGap = DefaultWallGap
	}
	if config.VisionSize == 0 {
		config.VisionSize = DefaultVision
	}
	if config.Rewards == (Rewards{}) {
		config.Rewards = Rewards{Survive: DefaultSurvive, Crash: DefaultCrash}
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	// Validate grid size
	if config.Size < MinGridSize || config.Size > MaxGridSize {
		return fmt.Errorf("%w: size must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Size)
	}

	// Every player needs its own interior column
	if config.NumPlayers < 1 {
		return fmt.Errorf("%w: num_players must be at least 1, got %d", ErrInvalidConfig, config.NumPlayers)
	}
	if config.NumPlayers > config.Size-2 {
		return fmt.Errorf("%w: num_players %d exceeds the %d interior columns", ErrInvalidConfig, config.NumPlayers, config.Size-2)
	}
	if config.NumPlayers > MaxBoardPlayers {
		return fmt.Errorf("%w: num_players must be at most %d, got %d", ErrInvalidConfig, MaxBoardPlayers, config.NumPlayers)
	}

	// Players start inside the border and must not overlap the opposite row
	if config.WallGap < 1 || config.WallGap >= config.Size/2 {
		return fmt.Errorf("%w: wall_gap must be between 1 and %d, got %d", ErrInvalidConfig, config.Size/2-1, config.WallGap)
	}

	if config.VisionSize < 1 || config.VisionSize%2 == 0 || config.VisionSize > MaxVisionSize {
		return fmt.Errorf("%w: vision_size must be odd and between 1 and %d, got %d", ErrInvalidConfig, MaxVisionSize, config.VisionSize)
	}

	if len(config.Agents) > config.NumPlayers-1 {
		return fmt.Errorf("%w: %d agents configured but only %d opponents", ErrInvalidConfig, len(config.Agents), config.NumPlayers-1)
	}

	return nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return ParseGameConfig(data)
}

// ParseGameConfig decodes, defaults and validates a JSON preset.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	ApplyDefaults(&config)
	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultGameConfig returns the built-in two player preset.
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Two light cycles on a 20x20 arena",
		Size:        20,
		NumPlayers:  2,
		WallGap:     DefaultWallGap,
		VisionSize:  DefaultVision,
		Rewards:     Rewards{Survive: DefaultSurvive, Crash: DefaultCrash},
		Agents:      []string{"random"},
	}
}
