// Package battleserver parses battle server flags and launches the HTTP API.
package battleserver

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/autoresolve/internal/platform/cmd"
	"github.com/louisbranch/autoresolve/internal/platform/logging"
	"github.com/louisbranch/autoresolve/internal/platform/otel"
	server "github.com/louisbranch/autoresolve/internal/services/battle/app"
	"go.uber.org/zap"
)

// Config holds battle server configuration.
type Config struct {
	Addr           string   `env:"HTTP_ADDR" envDefault:":8088"`
	DBPath         string   `env:"DB_PATH" envDefault:"data/battles.db"`
	MaxRounds      int      `env:"MAX_ROUNDS"`
	RoundLimit     int      `env:"ROUND_LIMIT" envDefault:"500"`
	AllowLua       bool     `env:"ALLOW_LUA"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	Log            logging.Config
	OTel           otel.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.Load(fs, args, func(cfg *Config, fs *flag.FlagSet) {
		fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
		fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "battle archive SQLite path")
		fs.IntVar(&cfg.MaxRounds, "max-rounds", cfg.MaxRounds, "round cap for scenarios that do not set one")
		fs.IntVar(&cfg.RoundLimit, "round-limit", cfg.RoundLimit, "largest round cap a request may ask for")
		fs.BoolVar(&cfg.AllowLua, "allow-lua", cfg.AllowLua, "accept Lua scenario source in requests")
		fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
	})
}

// Run starts the battle HTTP API.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc := entrypoint.Service{Name: entrypoint.ServiceBattleServer, OTel: cfg.OTel, Logger: logger}
	return entrypoint.Run(ctx, svc, func(ctx context.Context) error {
		logger.Info("starting battle server",
			zap.String("addr", cfg.Addr),
			zap.String("db", cfg.DBPath),
			zap.Bool("allow_lua", cfg.AllowLua),
		)
		return server.Run(ctx, server.Config{
			Addr:           cfg.Addr,
			DBPath:         cfg.DBPath,
			MaxRounds:      cfg.MaxRounds,
			RoundLimit:     cfg.RoundLimit,
			AllowLua:       cfg.AllowLua,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		})
	})
}
