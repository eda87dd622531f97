// Package mcp parses MCP command flags and serves the rules tools on stdio.
package mcp

import (
	"context"
	"flag"

	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/mcptools"
	"github.com/torchlit/engine/internal/platform/config"
)

// Config holds MCP command configuration.
type Config struct {
	Seed int64 `env:"TORCHLIT_SEED"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "deterministic dice seed (0 uses the clock)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the rules tool server on stdio.
func Run(ctx context.Context, cfg Config) error {
	var roller *dice.Roller
	if cfg.Seed != 0 {
		roller = dice.NewSeededRoller(nil, cfg.Seed)
	} else {
		roller = dice.NewRoller(nil)
	}
	return mcptools.Serve(ctx, mcptools.NewServer(roller))
}
