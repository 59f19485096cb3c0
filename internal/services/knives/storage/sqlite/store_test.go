package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/n1ck8131/tg-bot/internal/services/knives/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "knives-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTime(offset int) time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
}

func seedGame(t *testing.T, store *Store, gameID string) storage.GameRecord {
	t.Helper()
	game := storage.GameRecord{ID: gameID, Status: storage.GameStatusRegistration, CreatedAt: testTime(0)}
	if err := store.CreateGame(context.Background(), game); err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func seedPlayers(t *testing.T, store *Store, gameID string, names ...string) []storage.PlayerRecord {
	t.Helper()
	players := make([]storage.PlayerRecord, 0, len(names))
	for i, name := range names {
		player := storage.PlayerRecord{
			ID:           fmt.Sprintf("player-%02d", i+1),
			GameID:       gameID,
			DisplayName:  name,
			Liveness:     storage.LivenessAlive,
			RegisteredAt: testTime(i + 1),
		}
		if err := store.PutPlayer(context.Background(), player); err != nil {
			t.Fatalf("put player %s: %v", name, err)
		}
		players = append(players, player)
	}
	return players
}

func ringContracts(gameID string, players []storage.PlayerRecord, at time.Time) []storage.ContractRecord {
	contracts := make([]storage.ContractRecord, 0, len(players))
	for i, player := range players {
		target := players[(i+1)%len(players)]
		contracts = append(contracts, storage.ContractRecord{
			ID:             fmt.Sprintf("contract-%02d", i+1),
			GameID:         gameID,
			HunterPlayerID: player.ID,
			TargetPlayerID: target.ID,
			Weapon:         "rubber duck",
			Location:       "kitchen",
			CreatedAt:      at,
		})
	}
	return contracts
}

func TestCreateGameAllowsOneOpenGame(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")

	err := store.CreateGame(ctx, storage.GameRecord{ID: "game-2", Status: storage.GameStatusRegistration, CreatedAt: testTime(1)})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict for second open game, got %v", err)
	}

	open, err := store.GetOpenGame(ctx)
	if err != nil {
		t.Fatalf("get open game: %v", err)
	}
	if open.ID != "game-1" {
		t.Fatalf("expected game-1 open, got %s", open.ID)
	}
}

func TestPutPlayerRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	seedPlayers(t, store, "game-1", "Alice")

	err := store.PutPlayer(ctx, storage.PlayerRecord{
		ID:           "player-dup",
		GameID:       "game-1",
		DisplayName:  "Alice",
		Liveness:     storage.LivenessAlive,
		RegisteredAt: testTime(5),
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict for duplicate display name, got %v", err)
	}
}

func TestSetPlayerLivenessGuardsCurrentState(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice")

	if err := store.SetPlayerLiveness(ctx, "game-1", players[0].ID, storage.LivenessAlive, storage.LivenessPendingDeath); err != nil {
		t.Fatalf("alive to pending: %v", err)
	}

	err := store.SetPlayerLiveness(ctx, "game-1", players[0].ID, storage.LivenessAlive, storage.LivenessPendingDeath)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for stale transition, got %v", err)
	}

	if err := store.SetPlayerLiveness(ctx, "game-1", players[0].ID, storage.LivenessPendingDeath, storage.LivenessAlive); err != nil {
		t.Fatalf("pending back to alive: %v", err)
	}
	player, err := store.GetPlayer(ctx, "game-1", players[0].ID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if player.Liveness != storage.LivenessAlive {
		t.Fatalf("expected alive, got %s", player.Liveness)
	}
}

func TestActivateGameWritesContractsAtomically(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice", "Bob", "Carol")

	if err := store.ActivateGame(ctx, "game-1", testTime(10), ringContracts("game-1", players, testTime(10))); err != nil {
		t.Fatalf("activate game: %v", err)
	}

	game, err := store.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Status != storage.GameStatusActive {
		t.Fatalf("expected active, got %s", game.Status)
	}
	if game.StartedAt == nil || !game.StartedAt.Equal(testTime(10)) {
		t.Fatalf("expected started at %v, got %v", testTime(10), game.StartedAt)
	}

	for i, player := range players {
		contract, err := store.OpenContractByHunter(ctx, "game-1", player.ID)
		if err != nil {
			t.Fatalf("open contract for %s: %v", player.ID, err)
		}
		want := players[(i+1)%len(players)].ID
		if contract.TargetPlayerID != want {
			t.Fatalf("expected %s to hunt %s, got %s", player.ID, want, contract.TargetPlayerID)
		}
	}

	err = store.ActivateGame(ctx, "game-1", testTime(11), ringContracts("game-1", players, testTime(11)))
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict reactivating game, got %v", err)
	}
}

func TestActivateGameRollsBackOnBadContract(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice", "Bob", "Carol")

	contracts := ringContracts("game-1", players, testTime(10))
	// Duplicate id forces the batch insert to fail mid-way.
	contracts[2].ID = contracts[0].ID

	err := store.ActivateGame(ctx, "game-1", testTime(10), contracts)
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict from duplicate contract id, got %v", err)
	}

	game, err := store.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Status != storage.GameStatusRegistration {
		t.Fatalf("expected registration after rollback, got %s", game.Status)
	}
	if _, err := store.OpenContractByHunter(ctx, "game-1", players[0].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no contracts after rollback, got %v", err)
	}
}

func TestAbortGameClosesOpenContracts(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice", "Bob", "Carol")
	if err := store.ActivateGame(ctx, "game-1", testTime(10), ringContracts("game-1", players, testTime(10))); err != nil {
		t.Fatalf("activate game: %v", err)
	}

	if err := store.AbortGame(ctx, "game-1", testTime(30)); err != nil {
		t.Fatalf("abort game: %v", err)
	}

	game, err := store.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Status != storage.GameStatusFinished {
		t.Fatalf("expected finished, got %s", game.Status)
	}
	if game.WinnerPlayerID != "" {
		t.Fatalf("expected no winner, got %s", game.WinnerPlayerID)
	}
	if game.FinishedAt == nil || !game.FinishedAt.Equal(testTime(30)) {
		t.Fatalf("expected finished at %v, got %v", testTime(30), game.FinishedAt)
	}
	for _, player := range players {
		if _, err := store.OpenContractByHunter(ctx, "game-1", player.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected contract for %s closed, got %v", player.ID, err)
		}
	}
	if _, err := store.GetOpenGame(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no open game after abort, got %v", err)
	}

	if err := store.AbortGame(ctx, "game-1", testTime(31)); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict aborting finished game, got %v", err)
	}
	if err := store.AbortGame(ctx, "game-9", testTime(31)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for unknown game, got %v", err)
	}
}

func TestRecordConfirmedKillSupersedesContracts(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice", "Bob", "Carol")
	if err := store.ActivateGame(ctx, "game-1", testTime(10), ringContracts("game-1", players, testTime(10))); err != nil {
		t.Fatalf("activate game: %v", err)
	}

	// Alice hunts Bob, Bob hunts Carol. Bob self-reports and Alice confirms.
	if err := store.SetPlayerLiveness(ctx, "game-1", players[1].ID, storage.LivenessAlive, storage.LivenessPendingDeath); err != nil {
		t.Fatalf("pending victim: %v", err)
	}
	killerContract, err := store.OpenContractByHunter(ctx, "game-1", players[0].ID)
	if err != nil {
		t.Fatalf("killer contract: %v", err)
	}
	victimContract, err := store.OpenContractByHunter(ctx, "game-1", players[1].ID)
	if err != nil {
		t.Fatalf("victim contract: %v", err)
	}

	kill, err := store.RecordConfirmedKill(ctx, storage.ConfirmedKillInput{
		GameID:           "game-1",
		KillerPlayerID:   players[0].ID,
		VictimPlayerID:   players[1].ID,
		Weapon:           killerContract.Weapon,
		Location:         killerContract.Location,
		ConfirmedAt:      testTime(20),
		CloseContractIDs: []string{killerContract.ID, victimContract.ID},
		NewContract: &storage.ContractRecord{
			ID:             "contract-next",
			GameID:         "game-1",
			HunterPlayerID: players[0].ID,
			TargetPlayerID: victimContract.TargetPlayerID,
			Weapon:         "banana",
			Location:       "garage",
			CreatedAt:      testTime(20),
		},
	})
	if err != nil {
		t.Fatalf("record confirmed kill: %v", err)
	}
	if kill.Seq != 1 {
		t.Fatalf("expected first kill seq 1, got %d", kill.Seq)
	}

	victim, err := store.GetPlayer(ctx, "game-1", players[1].ID)
	if err != nil {
		t.Fatalf("get victim: %v", err)
	}
	if victim.Liveness != storage.LivenessDead {
		t.Fatalf("expected victim dead, got %s", victim.Liveness)
	}
	if victim.DiedAt == nil || !victim.DiedAt.Equal(testTime(20)) {
		t.Fatalf("expected died at %v, got %v", testTime(20), victim.DiedAt)
	}

	inherited, err := store.OpenContractByHunter(ctx, "game-1", players[0].ID)
	if err != nil {
		t.Fatalf("inherited contract: %v", err)
	}
	if inherited.TargetPlayerID != players[2].ID {
		t.Fatalf("expected killer to inherit %s, got %s", players[2].ID, inherited.TargetPlayerID)
	}
	if _, err := store.OpenContractByHunter(ctx, "game-1", players[1].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected victim contract closed, got %v", err)
	}

	history, err := store.ListContractsByHunter(ctx, "game-1", players[0].ID)
	if err != nil {
		t.Fatalf("list contracts: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 contracts in history, got %d", len(history))
	}
	if history[0].ClosedAt == nil || history[1].ClosedAt != nil {
		t.Fatal("expected first contract closed and second open")
	}
}

func TestRecordConfirmedKillRequiresPendingVictim(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice", "Bob", "Carol")
	if err := store.ActivateGame(ctx, "game-1", testTime(10), ringContracts("game-1", players, testTime(10))); err != nil {
		t.Fatalf("activate game: %v", err)
	}
	killerContract, err := store.OpenContractByHunter(ctx, "game-1", players[0].ID)
	if err != nil {
		t.Fatalf("killer contract: %v", err)
	}
	victimContract, err := store.OpenContractByHunter(ctx, "game-1", players[1].ID)
	if err != nil {
		t.Fatalf("victim contract: %v", err)
	}

	// Victim never self-reported: the whole write must roll back.
	_, err = store.RecordConfirmedKill(ctx, storage.ConfirmedKillInput{
		GameID:           "game-1",
		KillerPlayerID:   players[0].ID,
		VictimPlayerID:   players[1].ID,
		Weapon:           killerContract.Weapon,
		Location:         killerContract.Location,
		ConfirmedAt:      testTime(20),
		CloseContractIDs: []string{killerContract.ID, victimContract.ID},
		WinnerPlayerID:   players[0].ID,
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict for non-pending victim, got %v", err)
	}

	kills, err := store.ListKills(ctx, "game-1")
	if err != nil {
		t.Fatalf("list kills: %v", err)
	}
	if len(kills) != 0 {
		t.Fatalf("expected empty kill log after rollback, got %d entries", len(kills))
	}
	if _, err := store.OpenContractByHunter(ctx, "game-1", players[0].ID); err != nil {
		t.Fatalf("expected killer contract still open, got %v", err)
	}
}

func TestRecordConfirmedKillSequenceIsMonotonic(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1")
	players := seedPlayers(t, store, "game-1", "Alice", "Bob", "Carol")
	if err := store.ActivateGame(ctx, "game-1", testTime(10), ringContracts("game-1", players, testTime(10))); err != nil {
		t.Fatalf("activate game: %v", err)
	}

	// Alice kills Bob, inherits Carol, then kills Carol and wins.
	for i, victim := range []storage.PlayerRecord{players[1], players[2]} {
		if err := store.SetPlayerLiveness(ctx, "game-1", victim.ID, storage.LivenessAlive, storage.LivenessPendingDeath); err != nil {
			t.Fatalf("pending victim %s: %v", victim.ID, err)
		}
		killerContract, err := store.OpenContractByHunter(ctx, "game-1", players[0].ID)
		if err != nil {
			t.Fatalf("killer contract: %v", err)
		}
		victimContract, err := store.OpenContractByHunter(ctx, "game-1", victim.ID)
		if err != nil {
			t.Fatalf("victim contract: %v", err)
		}

		input := storage.ConfirmedKillInput{
			GameID:           "game-1",
			KillerPlayerID:   players[0].ID,
			VictimPlayerID:   victim.ID,
			Weapon:           killerContract.Weapon,
			Location:         killerContract.Location,
			ConfirmedAt:      testTime(20 + i),
			CloseContractIDs: []string{killerContract.ID, victimContract.ID},
		}
		if victimContract.TargetPlayerID == players[0].ID {
			input.WinnerPlayerID = players[0].ID
		} else {
			input.NewContract = &storage.ContractRecord{
				ID:             fmt.Sprintf("contract-next-%d", i),
				GameID:         "game-1",
				HunterPlayerID: players[0].ID,
				TargetPlayerID: victimContract.TargetPlayerID,
				Weapon:         "banana",
				Location:       "garage",
				CreatedAt:      testTime(20 + i),
			}
		}
		kill, err := store.RecordConfirmedKill(ctx, input)
		if err != nil {
			t.Fatalf("record kill %d: %v", i+1, err)
		}
		if kill.Seq != i+1 {
			t.Fatalf("expected seq %d, got %d", i+1, kill.Seq)
		}
	}

	kills, err := store.ListKills(ctx, "game-1")
	if err != nil {
		t.Fatalf("list kills: %v", err)
	}
	if len(kills) != 2 || kills[0].Seq != 1 || kills[1].Seq != 2 {
		t.Fatalf("expected kills in sequence order, got %+v", kills)
	}

	game, err := store.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Status != storage.GameStatusFinished {
		t.Fatalf("expected finished, got %s", game.Status)
	}
	if game.WinnerPlayerID != players[0].ID {
		t.Fatalf("expected winner %s, got %s", players[0].ID, game.WinnerPlayerID)
	}
	if _, err := store.GetOpenGame(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no open game after finish, got %v", err)
	}
}

func TestListAssignableLocationsExcludesSafeZone(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutLocation(ctx, storage.LocationRecord{Name: "kitchen"}); err != nil {
		t.Fatalf("put kitchen: %v", err)
	}
	if err := store.PutLocation(ctx, storage.LocationRecord{Name: "smoking room", SafeZone: true}); err != nil {
		t.Fatalf("put smoking room: %v", err)
	}

	all, err := store.ListLocations(ctx)
	if err != nil {
		t.Fatalf("list locations: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(all))
	}

	assignable, err := store.ListAssignableLocations(ctx)
	if err != nil {
		t.Fatalf("list assignable locations: %v", err)
	}
	if len(assignable) != 1 || assignable[0].Name != "kitchen" {
		t.Fatalf("expected only kitchen assignable, got %+v", assignable)
	}
}

func TestPutWeaponIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.PutWeapon(ctx, storage.WeaponRecord{Name: "rubber duck"}); err != nil {
			t.Fatalf("put weapon: %v", err)
		}
	}
	weapons, err := store.ListWeapons(ctx)
	if err != nil {
		t.Fatalf("list weapons: %v", err)
	}
	if len(weapons) != 1 {
		t.Fatalf("expected 1 weapon, got %d", len(weapons))
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.GetOpenGame(context.Background()); err == nil {
		t.Fatal("expected error from nil store")
	}
}
