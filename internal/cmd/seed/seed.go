// Package seed loads the weapon and location pools into the game database.
package seed

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	entrypoint "github.com/n1ck8131/tg-bot/internal/platform/cmd"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage/sqlite"
)

// DefaultWeapons is the built-in weapon pool.
var DefaultWeapons = []string{
	"rubber duck",
	"banana",
	"water pistol",
	"rolled-up newspaper",
	"plastic spoon",
	"pillow",
}

// DefaultLocations is the built-in location pool, safe zone excluded.
var DefaultLocations = []string{
	"kitchen",
	"garage",
	"parking lot",
	"conference room",
	"elevator",
	"stairwell",
}

// Config holds seed command configuration.
type Config struct {
	DBPath    string `env:"KNIVES_DB_PATH" envDefault:"knives.db"`
	SafeZone  string `env:"KNIVES_SAFE_ZONE" envDefault:"smoking room"`
	Weapons   string `env:"KNIVES_WEAPONS"`
	Locations string `env:"KNIVES_LOCATIONS"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	fs.StringVar(&cfg.SafeZone, "safe-zone", cfg.SafeZone, "Location excluded from contract draws")
	fs.StringVar(&cfg.Weapons, "weapons", cfg.Weapons, "Comma-separated weapon pool (default: built-in)")
	fs.StringVar(&cfg.Locations, "locations", cfg.Locations, "Comma-separated location pool (default: built-in)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the pools and exits.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Printf("close storage: %v", closeErr)
			}
		}()
		return SeedPools(ctx, store, cfg)
	})
}

// SeedPools writes the configured weapon and location pools. Existing entries
// are updated in place; the safe zone is always flagged.
func SeedPools(ctx context.Context, store storage.Store, cfg Config) error {
	weapons := splitList(cfg.Weapons, DefaultWeapons)
	locations := splitList(cfg.Locations, DefaultLocations)

	for _, weapon := range weapons {
		if err := store.PutWeapon(ctx, storage.WeaponRecord{Name: weapon}); err != nil {
			return fmt.Errorf("seed weapon %q: %w", weapon, err)
		}
	}
	for _, location := range locations {
		if err := store.PutLocation(ctx, storage.LocationRecord{Name: location}); err != nil {
			return fmt.Errorf("seed location %q: %w", location, err)
		}
	}
	safeZone := strings.TrimSpace(cfg.SafeZone)
	if safeZone != "" {
		if err := store.PutLocation(ctx, storage.LocationRecord{Name: safeZone, SafeZone: true}); err != nil {
			return fmt.Errorf("seed safe zone %q: %w", safeZone, err)
		}
	}
	log.Printf("seeded %d weapons and %d locations (safe zone: %s)", len(weapons), len(locations), safeZone)
	return nil
}

// EnsurePools seeds the built-in pools when the database has none yet.
func EnsurePools(ctx context.Context, store storage.Store, safeZone string) error {
	weapons, err := store.ListWeapons(ctx)
	if err != nil {
		return fmt.Errorf("check weapon pool: %w", err)
	}
	locations, err := store.ListAssignableLocations(ctx)
	if err != nil {
		return fmt.Errorf("check location pool: %w", err)
	}
	if len(weapons) > 0 && len(locations) > 0 {
		return nil
	}
	return SeedPools(ctx, store, Config{SafeZone: safeZone})
}

func splitList(value string, fallback []string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
