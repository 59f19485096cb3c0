// Package server wires the game engine into a long-running gRPC daemon.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/n1ck8131/tg-bot/internal/platform/random"
	"github.com/n1ck8131/tg-bot/internal/services/knives/domain"
	"github.com/n1ck8131/tg-bot/internal/services/knives/notify"
	"github.com/n1ck8131/tg-bot/internal/services/knives/render"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage/sqlite"
)

// Config holds daemon wiring options.
type Config struct {
	Port          int
	DBPath        string
	MinPlayers    int
	MaxPlayers    int
	Locale        string
	AdminPlayerID string
	Seed          int64
}

// Run opens storage, wires the engine, and serves the gRPC health endpoint
// until the context ends. Shutdown drains in-flight calls.
func Run(ctx context.Context, cfg Config) error {
	logger := log.Default()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Printf("close storage: %v", closeErr)
		}
	}()

	rng, err := random.NewRand(cfg.Seed)
	if err != nil {
		return fmt.Errorf("seed random source: %w", err)
	}
	dispatcher := notify.NewDispatcher(notify.NewLogSender(logger), render.NewLocalizer(cfg.Locale), cfg.AdminPlayerID)
	service := domain.NewService(store, dispatcher, domain.Config{
		MinPlayers: cfg.MinPlayers,
		MaxPlayers: cfg.MaxPlayers,
	}, nil, nil, rng)

	if game, activeErr := service.ActiveGame(ctx); activeErr == nil {
		logger.Printf("resuming %s game %s", game.Status, game.ID)
	} else if !errors.Is(activeErr, domain.ErrGameNotFound) {
		return fmt.Errorf("check active game: %w", activeErr)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	logger.Printf("game engine listening on %s", listener.Addr())

	select {
	case <-ctx.Done():
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
		<-serveErr
		return nil
	case err := <-serveErr:
		return err
	}
}
