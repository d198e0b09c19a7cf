// Package fundlock parses fundlock service flags and launches the service.
package fundlock

import (
	"context"
	"flag"

	server "github.com/topstarwebking/fundlock/internal/fundlock/app"
	entrypoint "github.com/topstarwebking/fundlock/internal/platform/cmd"
)

// Config holds fundlock command configuration.
type Config struct {
	Port int `env:"FUNDLOCK_PORT" envDefault:"8090"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The fundlock HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the fundlock HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFundlock, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
