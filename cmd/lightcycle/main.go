// Command lightcycle bundles the offline tools of the light cycle arena:
// headless agent battles, Q-learning, replay printing and viewing, training
// statistics and preset validation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/lightcycle/game/config"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/internal/logging"
)

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "lightcycle",
		Usage: "offline tools for the light cycle arena",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory holding game presets",
				Value:   "configs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text, json or pretty",
				Value:   logging.FormatText,
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			_, err := logging.Setup(os.Stderr, cmd.String("log-format"), cmd.String("log-level"))
			return ctx, err
		},
		Commands: []*cli.Command{
			simulateCommand(),
			trainCommand(),
			replayCommand(),
			watchCommand(),
			statsCommand(),
			validateCommand(),
		},
	}
}

// loadConfig resolves a preset by path or by name in --config-dir. An empty
// name selects the directory's default preset.
func loadConfig(cmd *cli.Command, name string) (*engine.GameConfig, error) {
	if strings.HasSuffix(name, ".json") {
		if _, err := os.Stat(name); err == nil {
			return engine.LoadGameConfig(name)
		}
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, err
	}
	if name == "" {
		return manager.GetDefault(), nil
	}
	cfg, err := manager.LoadConfig(name)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("preset %q not found in %s", name, cmd.String("config-dir"))
	}
	return cfg, err
}
