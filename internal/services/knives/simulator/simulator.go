// Package simulator drives a full test-mode game with virtual players
// through the public engine operations, end to end.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/n1ck8131/tg-bot/internal/services/knives/domain"
)

// DefaultPlayers is the virtual roster size when none is configured.
const DefaultPlayers = 5

// Runner replays a complete game lifecycle against the engine.
type Runner struct {
	service *domain.Service
	logger  *log.Logger
	rng     *rand.Rand
	players int
	delay   time.Duration
}

// New wires a simulation runner. A nil rng falls back to a fixed seed so
// repeated dry runs replay the same game; delay paces the protocol steps and
// may be zero.
func New(service *domain.Service, players int, delay time.Duration, rng *rand.Rand, logger *log.Logger) *Runner {
	if players <= 0 {
		players = DefaultPlayers
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{service: service, logger: logger, rng: rng, players: players, delay: delay}
}

// Run creates a test-mode game, registers virtual players, and plays rounds
// of self-report and confirmation until a winner emerges. Roughly a quarter
// of reports are withdrawn and re-filed to exercise the pending round trip.
func (r *Runner) Run(ctx context.Context) (domain.Report, error) {
	if r == nil || r.service == nil {
		return domain.Report{}, fmt.Errorf("simulator service is not configured")
	}

	game, err := r.service.CreateGame(ctx, true)
	if err != nil {
		return domain.Report{}, fmt.Errorf("create test game: %w", err)
	}
	r.logger.Printf("simulating game %s with %d virtual players", game.ID, r.players)

	for i := 0; i < r.players; i++ {
		input := domain.RegisterPlayerInput{
			DisplayName: fmt.Sprintf("Virtual #%02d", i+1),
			Virtual:     true,
		}
		if _, err := r.service.RegisterPlayer(ctx, game.ID, input); err != nil {
			return domain.Report{}, fmt.Errorf("register virtual player %d: %w", i+1, err)
		}
	}
	if _, err := r.service.StartGame(ctx, game.ID); err != nil {
		return domain.Report{}, fmt.Errorf("start test game: %w", err)
	}

	for round := 0; round < r.players-1; round++ {
		if err := ctx.Err(); err != nil {
			return domain.Report{}, err
		}
		finished, err := r.playRound(ctx, game.ID)
		if err != nil {
			return domain.Report{}, fmt.Errorf("round %d: %w", round+1, err)
		}
		if finished {
			break
		}
	}

	report, err := r.service.Report(ctx, game.ID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("final report: %w", err)
	}
	r.logger.Printf("game %s won by %s after %d kills", game.ID, report.WinnerName, len(report.Chronology))
	return report, nil
}

func (r *Runner) playRound(ctx context.Context, gameID string) (bool, error) {
	alive, err := r.service.PlayersAlive(ctx, gameID)
	if err != nil {
		return false, err
	}
	if len(alive) < 2 {
		return true, nil
	}

	killer := alive[r.rng.Intn(len(alive))]
	_, target, err := r.service.ContractFor(ctx, gameID, killer.ID)
	if err != nil {
		return false, err
	}

	if err := r.service.SelfReportDeath(ctx, gameID, target.ID); err != nil {
		return false, err
	}
	if r.rng.Intn(4) == 0 {
		if err := r.pause(ctx); err != nil {
			return false, err
		}
		if err := r.service.WithdrawReport(ctx, gameID, target.ID); err != nil {
			return false, err
		}
		if err := r.service.SelfReportDeath(ctx, gameID, target.ID); err != nil {
			return false, err
		}
	}
	if err := r.pause(ctx); err != nil {
		return false, err
	}

	result, err := r.service.ConfirmKill(ctx, gameID, killer.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingDeath) {
			return false, nil
		}
		return false, err
	}
	return result.Finished, nil
}

func (r *Runner) pause(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
