// Package domain implements the elimination game engine: one kill ring per
// game, two-step death confirmation, and contract reassignment until a sole
// survivor remains.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/n1ck8131/tg-bot/internal/platform/id"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage"
)

const (
	// DefaultMinPlayers is the smallest ring that still hides who hunts whom.
	DefaultMinPlayers = 3
	// DefaultMaxPlayers caps registration for one game.
	DefaultMaxPlayers = 20
)

// Config carries engine limits.
type Config struct {
	MinPlayers int
	MaxPlayers int
}

// RegisterPlayerInput describes one registration request. Virtual players are
// simulator-driven stand-ins used in test-mode games.
type RegisterPlayerInput struct {
	DisplayName string
	Virtual     bool
}

// ConfirmKillResult captures the outcome of one confirmed elimination.
type ConfirmKillResult struct {
	Kill        storage.KillRecord
	NewContract *storage.ContractRecord
	Finished    bool
	WinnerID    string
}

// Service orchestrates the game lifecycle over persistent state.
type Service struct {
	store    storage.Store
	notifier Notifier
	logger   *log.Logger
	clock    func() time.Time
	newID    func() (string, error)
	rng      *rand.Rand

	minPlayers int
	maxPlayers int
}

// NewService constructs the game engine. A nil clock, id generator, or random
// source falls back to production defaults; a nil notifier disables dispatch.
func NewService(store storage.Store, notifier Notifier, cfg Config, clock func() time.Time, newID func() (string, error), rng *rand.Rand) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	minPlayers := cfg.MinPlayers
	if minPlayers <= 0 {
		minPlayers = DefaultMinPlayers
	}
	maxPlayers := cfg.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Service{
		store:      store,
		notifier:   notifier,
		logger:     log.Default(),
		clock:      clock,
		newID:      newID,
		rng:        rng,
		minPlayers: minPlayers,
		maxPlayers: maxPlayers,
	}
}

// SetLogger overrides the engine logger.
func (s *Service) SetLogger(logger *log.Logger) {
	if s == nil || logger == nil {
		return
	}
	s.logger = logger
}

// CreateGame opens a game for registration. Only one game may be open at a
// time across the deployment.
func (s *Service) CreateGame(ctx context.Context, testMode bool) (storage.GameRecord, error) {
	if s == nil || s.store == nil {
		return storage.GameRecord{}, ErrStoreNotConfigured
	}
	gameID, err := s.newID()
	if err != nil {
		return storage.GameRecord{}, fmt.Errorf("generate game id: %w", err)
	}
	game := storage.GameRecord{
		ID:        gameID,
		Status:    storage.GameStatusRegistration,
		TestMode:  testMode,
		CreatedAt: s.clock(),
	}
	if err := s.store.CreateGame(ctx, game); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return storage.GameRecord{}, ErrGameAlreadyActive
		}
		return storage.GameRecord{}, fmt.Errorf("create game: %w", err)
	}
	return game, nil
}

// RegisterPlayer adds one player to a game still in registration.
func (s *Service) RegisterPlayer(ctx context.Context, gameID string, input RegisterPlayerInput) (storage.PlayerRecord, error) {
	if s == nil || s.store == nil {
		return storage.PlayerRecord{}, ErrStoreNotConfigured
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return storage.PlayerRecord{}, fmt.Errorf("display name is required")
	}

	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return storage.PlayerRecord{}, err
	}
	if game.Status != storage.GameStatusRegistration {
		return storage.PlayerRecord{}, ErrRegistrationClosed
	}

	players, err := s.store.ListPlayers(ctx, game.ID)
	if err != nil {
		return storage.PlayerRecord{}, fmt.Errorf("list players: %w", err)
	}
	if len(players) >= s.maxPlayers {
		return storage.PlayerRecord{}, ErrTooManyPlayers
	}

	playerID, err := s.newID()
	if err != nil {
		return storage.PlayerRecord{}, fmt.Errorf("generate player id: %w", err)
	}
	player := storage.PlayerRecord{
		ID:           playerID,
		GameID:       game.ID,
		DisplayName:  displayName,
		Virtual:      input.Virtual,
		Liveness:     storage.LivenessAlive,
		RegisteredAt: s.clock(),
	}
	if err := s.store.PutPlayer(ctx, player); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return storage.PlayerRecord{}, ErrAlreadyRegistered
		}
		return storage.PlayerRecord{}, fmt.Errorf("put player: %w", err)
	}
	return player, nil
}

// StartGame closes registration, builds the kill ring, and issues the initial
// contracts. Every player receives their assignment privately.
func (s *Service) StartGame(ctx context.Context, gameID string) ([]storage.ContractRecord, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	switch game.Status {
	case storage.GameStatusRegistration:
	case storage.GameStatusActive:
		return nil, ErrGameAlreadyActive
	default:
		return nil, ErrRegistrationClosed
	}

	players, err := s.store.ListPlayers(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if len(players) < s.minPlayers {
		return nil, ErrInsufficientPlayers
	}

	weapons, locations, err := s.drawPools(ctx)
	if err != nil {
		return nil, err
	}

	playersByID := make(map[string]storage.PlayerRecord, len(players))
	playerIDs := make([]string, 0, len(players))
	for _, player := range players {
		playersByID[player.ID] = player
		playerIDs = append(playerIDs, player.ID)
	}

	now := s.clock()
	contracts := make([]storage.ContractRecord, 0, len(players))
	for _, link := range ringAssignments(s.rng, playerIDs) {
		contractID, idErr := s.newID()
		if idErr != nil {
			return nil, fmt.Errorf("generate contract id: %w", idErr)
		}
		contracts = append(contracts, storage.ContractRecord{
			ID:             contractID,
			GameID:         game.ID,
			HunterPlayerID: link.HunterID,
			TargetPlayerID: link.TargetID,
			Weapon:         weapons[s.rng.Intn(len(weapons))].Name,
			Location:       locations[s.rng.Intn(len(locations))].Name,
			CreatedAt:      now,
		})
	}

	if err := s.store.ActivateGame(ctx, game.ID, now, contracts); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrGameAlreadyActive
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("activate game: %w", err)
	}

	for _, contract := range contracts {
		hunter := playersByID[contract.HunterPlayerID]
		target := playersByID[contract.TargetPlayerID]
		s.dispatchAssignment(ctx, game, contract, hunter, target)
	}
	return contracts, nil
}

// SelfReportDeath marks the reporter as pending death and asks their recorded
// killer to confirm. The reporter can withdraw until the killer confirms.
func (s *Service) SelfReportDeath(ctx context.Context, gameID string, playerID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	game, err := s.getActiveGame(ctx, gameID)
	if err != nil {
		return err
	}
	victim, err := s.getPlayer(ctx, game.ID, playerID)
	if err != nil {
		return err
	}
	if victim.Liveness == storage.LivenessPendingDeath {
		return ErrAlreadyPending
	}

	incoming, err := s.store.OpenContractByTarget(ctx, game.ID, victim.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotATarget
		}
		return fmt.Errorf("find incoming contract: %w", err)
	}

	if err := s.store.SetPlayerLiveness(ctx, game.ID, victim.ID, storage.LivenessAlive, storage.LivenessPendingDeath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAlreadyPending
		}
		return fmt.Errorf("mark player pending: %w", err)
	}

	killer, err := s.getPlayer(ctx, game.ID, incoming.HunterPlayerID)
	if err != nil {
		return err
	}
	if s.notifier != nil {
		event := ConfirmationRequestedEvent{
			GameID:     game.ID,
			Test:       game.TestMode,
			KillerID:   killer.ID,
			KillerName: killer.DisplayName,
			VictimID:   victim.ID,
			VictimName: victim.DisplayName,
		}
		if notifyErr := s.notifier.ConfirmationRequested(ctx, event); notifyErr != nil {
			s.logger.Printf("notify confirmation request for %s: %v", victim.ID, notifyErr)
		}
	}
	return nil
}

// WithdrawReport cancels a pending death report and returns the player to
// alive. Once the killer has confirmed, withdrawal is no longer possible.
func (s *Service) WithdrawReport(ctx context.Context, gameID string, playerID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	game, err := s.getActiveGame(ctx, gameID)
	if err != nil {
		return err
	}
	if _, err := s.getPlayer(ctx, game.ID, playerID); err != nil {
		return err
	}
	if err := s.store.SetPlayerLiveness(ctx, game.ID, playerID, storage.LivenessPendingDeath, storage.LivenessAlive); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoPendingDeath
		}
		return fmt.Errorf("withdraw report: %w", err)
	}
	return nil
}

// ConfirmKill finalizes the killer's pending victim: the kill is logged, the
// victim's open contract passes to the killer with a fresh weapon and
// location draw, and the game finishes when the ring collapses to the killer
// alone.
func (s *Service) ConfirmKill(ctx context.Context, gameID string, killerID string) (ConfirmKillResult, error) {
	if s == nil || s.store == nil {
		return ConfirmKillResult{}, ErrStoreNotConfigured
	}
	game, err := s.getActiveGame(ctx, gameID)
	if err != nil {
		return ConfirmKillResult{}, err
	}
	killer, err := s.getPlayer(ctx, game.ID, killerID)
	if err != nil {
		return ConfirmKillResult{}, err
	}

	killerContract, err := s.store.OpenContractByHunter(ctx, game.ID, killer.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ConfirmKillResult{}, s.confirmMismatch(ctx, game.ID)
		}
		return ConfirmKillResult{}, fmt.Errorf("find killer contract: %w", err)
	}
	victim, err := s.getPlayer(ctx, game.ID, killerContract.TargetPlayerID)
	if err != nil {
		return ConfirmKillResult{}, err
	}
	if victim.Liveness != storage.LivenessPendingDeath {
		return ConfirmKillResult{}, s.confirmMismatch(ctx, game.ID)
	}

	victimContract, err := s.store.OpenContractByHunter(ctx, game.ID, victim.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("critical: game %s has no outgoing contract for pending victim %s", game.ID, victim.ID)
			return ConfirmKillResult{}, ErrInconsistentRing
		}
		return ConfirmKillResult{}, fmt.Errorf("find victim contract: %w", err)
	}

	now := s.clock()
	input := storage.ConfirmedKillInput{
		GameID:           game.ID,
		KillerPlayerID:   killer.ID,
		VictimPlayerID:   victim.ID,
		Weapon:           killerContract.Weapon,
		Location:         killerContract.Location,
		ConfirmedAt:      now,
		CloseContractIDs: []string{killerContract.ID, victimContract.ID},
	}

	nextTargetID := victimContract.TargetPlayerID
	if nextTargetID == killer.ID {
		input.WinnerPlayerID = killer.ID
	} else {
		weapons, locations, poolErr := s.drawPools(ctx)
		if poolErr != nil {
			return ConfirmKillResult{}, poolErr
		}
		contractID, idErr := s.newID()
		if idErr != nil {
			return ConfirmKillResult{}, fmt.Errorf("generate contract id: %w", idErr)
		}
		input.NewContract = &storage.ContractRecord{
			ID:             contractID,
			GameID:         game.ID,
			HunterPlayerID: killer.ID,
			TargetPlayerID: nextTargetID,
			Weapon:         weapons[s.rng.Intn(len(weapons))].Name,
			Location:       locations[s.rng.Intn(len(locations))].Name,
			CreatedAt:      now,
		}
	}

	kill, err := s.store.RecordConfirmedKill(ctx, input)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// The victim withdrew between the read and the write.
			return ConfirmKillResult{}, ErrNoPendingDeath
		}
		return ConfirmKillResult{}, fmt.Errorf("record confirmed kill: %w", err)
	}

	result := ConfirmKillResult{
		Kill:        kill,
		NewContract: input.NewContract,
		Finished:    input.NewContract == nil,
		WinnerID:    input.WinnerPlayerID,
	}
	s.dispatchKill(ctx, game, kill, killer, victim, result)
	return result, nil
}

// ResetGame force-finishes an open game without a winner so a new one can be
// created. Kill history stays readable; open contracts close.
func (s *Service) ResetGame(ctx context.Context, gameID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return err
	}
	if err := s.store.AbortGame(ctx, game.ID, s.clock()); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ErrGameAlreadyFinished
		}
		if errors.Is(err, storage.ErrNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("abort game: %w", err)
	}
	s.logger.Printf("game %s reset without a winner", game.ID)
	return nil
}

// ActiveGame returns the single game currently open for play or registration.
func (s *Service) ActiveGame(ctx context.Context) (storage.GameRecord, error) {
	if s == nil || s.store == nil {
		return storage.GameRecord{}, ErrStoreNotConfigured
	}
	game, err := s.store.GetOpenGame(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.GameRecord{}, ErrGameNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("get open game: %w", err)
	}
	return game, nil
}

// ContractFor returns one hunter's open contract with the target resolved.
func (s *Service) ContractFor(ctx context.Context, gameID string, playerID string) (storage.ContractRecord, storage.PlayerRecord, error) {
	if s == nil || s.store == nil {
		return storage.ContractRecord{}, storage.PlayerRecord{}, ErrStoreNotConfigured
	}
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return storage.ContractRecord{}, storage.PlayerRecord{}, err
	}
	contract, err := s.store.OpenContractByHunter(ctx, game.ID, strings.TrimSpace(playerID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ContractRecord{}, storage.PlayerRecord{}, ErrNoOpenContract
		}
		return storage.ContractRecord{}, storage.PlayerRecord{}, fmt.Errorf("find contract: %w", err)
	}
	target, err := s.getPlayer(ctx, game.ID, contract.TargetPlayerID)
	if err != nil {
		return storage.ContractRecord{}, storage.PlayerRecord{}, err
	}
	return contract, target, nil
}

// PlayersAlive lists players still in play, pending reports included.
func (s *Service) PlayersAlive(ctx context.Context, gameID string) ([]storage.PlayerRecord, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayers(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	alive := make([]storage.PlayerRecord, 0, len(players))
	for _, player := range players {
		if player.Liveness != storage.LivenessDead {
			alive = append(alive, player)
		}
	}
	return alive, nil
}

func (s *Service) getGame(ctx context.Context, gameID string) (storage.GameRecord, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return storage.GameRecord{}, ErrGameNotFound
	}
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.GameRecord{}, ErrGameNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("get game: %w", err)
	}
	return game, nil
}

func (s *Service) getActiveGame(ctx context.Context, gameID string) (storage.GameRecord, error) {
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return storage.GameRecord{}, err
	}
	if game.Status != storage.GameStatusActive {
		return storage.GameRecord{}, ErrGameNotActive
	}
	return game, nil
}

func (s *Service) getPlayer(ctx context.Context, gameID string, playerID string) (storage.PlayerRecord, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return storage.PlayerRecord{}, ErrPlayerNotFound
	}
	player, err := s.store.GetPlayer(ctx, gameID, playerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.PlayerRecord{}, ErrPlayerNotFound
		}
		return storage.PlayerRecord{}, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

func (s *Service) drawPools(ctx context.Context) ([]storage.WeaponRecord, []storage.LocationRecord, error) {
	weapons, err := s.store.ListWeapons(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list weapons: %w", err)
	}
	if len(weapons) == 0 {
		return nil, nil, fmt.Errorf("weapon pool is empty")
	}
	locations, err := s.store.ListAssignableLocations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list locations: %w", err)
	}
	if len(locations) == 0 {
		return nil, nil, fmt.Errorf("location pool is empty")
	}
	return weapons, locations, nil
}

// confirmMismatch distinguishes a third-party confirmation attempt from a
// confirmation with nothing pending.
func (s *Service) confirmMismatch(ctx context.Context, gameID string) error {
	pending, err := s.store.ListPlayersByLiveness(ctx, gameID, storage.LivenessPendingDeath)
	if err != nil {
		return fmt.Errorf("list pending players: %w", err)
	}
	if len(pending) > 0 {
		return ErrNotYourTarget
	}
	return ErrNoPendingDeath
}

func (s *Service) dispatchAssignment(ctx context.Context, game storage.GameRecord, contract storage.ContractRecord, hunter storage.PlayerRecord, target storage.PlayerRecord) {
	if s.notifier == nil {
		return
	}
	event := AssignmentIssuedEvent{
		GameID:     game.ID,
		Test:       game.TestMode,
		PlayerID:   hunter.ID,
		PlayerName: hunter.DisplayName,
		TargetID:   target.ID,
		TargetName: target.DisplayName,
		Weapon:     contract.Weapon,
		Location:   contract.Location,
	}
	if err := s.notifier.AssignmentIssued(ctx, event); err != nil {
		s.logger.Printf("notify assignment for %s: %v", hunter.ID, err)
	}
}

func (s *Service) dispatchKill(ctx context.Context, game storage.GameRecord, kill storage.KillRecord, killer storage.PlayerRecord, victim storage.PlayerRecord, result ConfirmKillResult) {
	if s.notifier == nil {
		return
	}
	killEvent := KillConfirmedEvent{
		GameID:      game.ID,
		Test:        game.TestMode,
		Seq:         kill.Seq,
		KillerID:    killer.ID,
		KillerName:  killer.DisplayName,
		VictimID:    victim.ID,
		VictimName:  victim.DisplayName,
		Weapon:      kill.Weapon,
		Location:    kill.Location,
		ConfirmedAt: kill.ConfirmedAt,
	}
	if err := s.notifier.KillConfirmed(ctx, killEvent); err != nil {
		s.logger.Printf("notify kill for %s: %v", victim.ID, err)
	}

	if result.Finished {
		report, reportErr := s.Report(ctx, game.ID)
		if reportErr != nil {
			s.logger.Printf("build final report for %s: %v", game.ID, reportErr)
			return
		}
		event := GameFinishedEvent{
			GameID:     game.ID,
			Test:       game.TestMode,
			WinnerID:   killer.ID,
			WinnerName: killer.DisplayName,
			Report:     report,
		}
		if err := s.notifier.GameFinished(ctx, event); err != nil {
			s.logger.Printf("notify finish for %s: %v", game.ID, err)
		}
		return
	}

	if result.NewContract != nil {
		target, targetErr := s.getPlayer(ctx, game.ID, result.NewContract.TargetPlayerID)
		if targetErr != nil {
			s.logger.Printf("resolve inherited target for %s: %v", killer.ID, targetErr)
			return
		}
		s.dispatchAssignment(ctx, game, *result.NewContract, killer, target)
	}
}
