package simulate

import (
	"context"
	"flag"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Players != 5 {
		t.Fatalf("players = %d, want 5", cfg.Players)
	}
	if cfg.Delay != 0 {
		t.Fatalf("delay = %v, want 0", cfg.Delay)
	}
}

func TestRunCompletesDryRun(t *testing.T) {
	cfg := Config{
		DBPath:   filepath.Join(t.TempDir(), "simulate-test.db"),
		Players:  4,
		Seed:     11,
		Locale:   "en",
		SafeZone: "smoking room",
	}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run simulation: %v", err)
	}
}
