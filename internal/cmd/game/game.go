// Package game parses game engine flags and launches the daemon.
package game

import (
	"context"
	"flag"

	entrypoint "github.com/n1ck8131/tg-bot/internal/platform/cmd"
	server "github.com/n1ck8131/tg-bot/internal/services/knives/app"
)

// Config holds game command configuration.
type Config struct {
	Port          int    `env:"KNIVES_PORT" envDefault:"8080"`
	DBPath        string `env:"KNIVES_DB_PATH" envDefault:"knives.db"`
	MinPlayers    int    `env:"KNIVES_MIN_PLAYERS" envDefault:"3"`
	MaxPlayers    int    `env:"KNIVES_MAX_PLAYERS" envDefault:"20"`
	Locale        string `env:"KNIVES_LOCALE" envDefault:"ru"`
	AdminPlayerID string `env:"KNIVES_ADMIN_PLAYER_ID"`
	Seed          int64  `env:"KNIVES_SEED"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The game gRPC server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	fs.IntVar(&cfg.MinPlayers, "min-players", cfg.MinPlayers, "Minimum players required to start")
	fs.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "Maximum players per game")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Message locale")
	fs.StringVar(&cfg.AdminPlayerID, "admin", cfg.AdminPlayerID, "Player receiving test-mode broadcasts")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for draws (0 = random)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game engine daemon.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			Port:          cfg.Port,
			DBPath:        cfg.DBPath,
			MinPlayers:    cfg.MinPlayers,
			MaxPlayers:    cfg.MaxPlayers,
			Locale:        cfg.Locale,
			AdminPlayerID: cfg.AdminPlayerID,
			Seed:          cfg.Seed,
		})
	})
}
