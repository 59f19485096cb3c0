// Package simulate runs a full virtual-player dry run of the game engine.
package simulate

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	seedcmd "github.com/n1ck8131/tg-bot/internal/cmd/seed"
	entrypoint "github.com/n1ck8131/tg-bot/internal/platform/cmd"
	"github.com/n1ck8131/tg-bot/internal/platform/random"
	"github.com/n1ck8131/tg-bot/internal/services/knives/domain"
	"github.com/n1ck8131/tg-bot/internal/services/knives/notify"
	"github.com/n1ck8131/tg-bot/internal/services/knives/render"
	"github.com/n1ck8131/tg-bot/internal/services/knives/simulator"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage/sqlite"
)

// Config holds simulate command configuration.
type Config struct {
	DBPath   string        `env:"KNIVES_SIM_DB_PATH" envDefault:"knives-simulate.db"`
	Players  int           `env:"KNIVES_VIRTUAL_PLAYERS" envDefault:"5"`
	Seed     int64         `env:"KNIVES_SEED"`
	Locale   string        `env:"KNIVES_LOCALE" envDefault:"ru"`
	SafeZone string        `env:"KNIVES_SAFE_ZONE" envDefault:"smoking room"`
	Delay    time.Duration `env:"KNIVES_STEP_DELAY" envDefault:"0s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the simulation SQLite database")
	fs.IntVar(&cfg.Players, "players", cfg.Players, "Number of virtual players")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for a reproducible run (0 = random)")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Message locale")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Pause between simulated protocol steps")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run plays one simulated game end to end and logs the final report.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSimulate, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Printf("close storage: %v", closeErr)
			}
		}()
		if err := seedcmd.EnsurePools(ctx, store, cfg.SafeZone); err != nil {
			return err
		}

		rng, err := random.NewRand(cfg.Seed)
		if err != nil {
			return fmt.Errorf("seed random source: %w", err)
		}
		loc := render.NewLocalizer(cfg.Locale)
		dispatcher := notify.NewDispatcher(notify.NewLogSender(log.Default()), loc, "")
		service := domain.NewService(store, dispatcher, domain.Config{}, nil, nil, rng)

		report, err := simulator.New(service, cfg.Players, cfg.Delay, rng, log.Default()).Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("final report:\n%s", render.FinalReport(loc, report))
		return nil
	})
}
