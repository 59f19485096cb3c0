// Package storage defines the persistence boundary for the knives game engine.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with a stored precondition or
	// uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// GameStatus identifies one game lifecycle state.
type GameStatus string

const (
	// GameStatusRegistration means the game accepts player registrations.
	GameStatusRegistration GameStatus = "registration"
	// GameStatusActive means contracts are assigned and eliminations run.
	GameStatusActive GameStatus = "active"
	// GameStatusFinished means a sole survivor has been recorded.
	GameStatusFinished GameStatus = "finished"
)

// Liveness identifies one player elimination state.
type Liveness string

const (
	// LivenessAlive means the player is in play.
	LivenessAlive Liveness = "alive"
	// LivenessPendingDeath means the player self-reported and awaits killer confirmation.
	LivenessPendingDeath Liveness = "pending_death"
	// LivenessDead means the killer confirmed the elimination.
	LivenessDead Liveness = "dead"
)

// GameRecord stores one game lifecycle row.
type GameRecord struct {
	ID             string
	Status         GameStatus
	TestMode       bool
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	WinnerPlayerID string
}

// PlayerRecord stores one registered participant, real or virtual.
type PlayerRecord struct {
	ID           string
	GameID       string
	DisplayName  string
	Virtual      bool
	Liveness     Liveness
	RegisteredAt time.Time
	DiedAt       *time.Time
}

// ContractRecord stores one hunter→target assignment. Contracts are
// supersede-only: reassignment closes the old row and opens a new one.
type ContractRecord struct {
	ID             string
	GameID         string
	HunterPlayerID string
	TargetPlayerID string
	Weapon         string
	Location       string
	CreatedAt      time.Time
	ClosedAt       *time.Time
}

// KillRecord stores one confirmed elimination. The per-game sequence number
// is the authoritative chronology order.
type KillRecord struct {
	GameID         string
	Seq            int
	KillerPlayerID string
	VictimPlayerID string
	Weapon         string
	Location       string
	ConfirmedAt    time.Time
}

// WeaponRecord stores one reusable weapon pool entry.
type WeaponRecord struct {
	Name string
}

// LocationRecord stores one reusable location pool entry. Safe-zone rows are
// kept for listing but are never drawn for assignments.
type LocationRecord struct {
	Name      string
	Latitude  *float64
	Longitude *float64
	SafeZone  bool
}

// ConfirmedKillInput describes one confirmed elimination applied atomically:
// victim marked dead, kill log appended, both open contracts closed, and
// either a replacement contract opened or the game finished with a winner.
type ConfirmedKillInput struct {
	GameID           string
	KillerPlayerID   string
	VictimPlayerID   string
	Weapon           string
	Location         string
	ConfirmedAt      time.Time
	CloseContractIDs []string
	// NewContract is the killer's inherited assignment; nil when the kill
	// ends the game.
	NewContract *ContractRecord
	// WinnerPlayerID is set exactly when NewContract is nil.
	WinnerPlayerID string
}

// Store persists all durable knives game state. Multi-row writes are atomic;
// partial application is never observable.
type Store interface {
	// CreateGame inserts a game in registration state. It fails with
	// ErrConflict while another game is still in registration or active.
	CreateGame(ctx context.Context, game GameRecord) error
	GetGame(ctx context.Context, gameID string) (GameRecord, error)
	// GetOpenGame returns the single game in registration or active state.
	GetOpenGame(ctx context.Context) (GameRecord, error)
	// AbortGame force-finishes an open game without a winner and closes its
	// open contracts in one transaction. It fails with ErrConflict when the
	// game is already finished.
	AbortGame(ctx context.Context, gameID string, finishedAt time.Time) error

	PutPlayer(ctx context.Context, player PlayerRecord) error
	GetPlayer(ctx context.Context, gameID string, playerID string) (PlayerRecord, error)
	ListPlayers(ctx context.Context, gameID string) ([]PlayerRecord, error)
	ListPlayersByLiveness(ctx context.Context, gameID string, liveness Liveness) ([]PlayerRecord, error)
	// SetPlayerLiveness transitions a player between liveness states. It
	// fails with ErrNotFound when the player is not currently in from.
	SetPlayerLiveness(ctx context.Context, gameID string, playerID string, from Liveness, to Liveness) error

	// ActivateGame transitions registration→active and writes the initial
	// contract batch in one transaction.
	ActivateGame(ctx context.Context, gameID string, startedAt time.Time, contracts []ContractRecord) error
	OpenContractByHunter(ctx context.Context, gameID string, hunterPlayerID string) (ContractRecord, error)
	OpenContractByTarget(ctx context.Context, gameID string, targetPlayerID string) (ContractRecord, error)
	// ListContractsByHunter returns one hunter's full contract history in
	// assignment order, open or closed.
	ListContractsByHunter(ctx context.Context, gameID string, hunterPlayerID string) ([]ContractRecord, error)

	// RecordConfirmedKill applies one confirmed elimination atomically and
	// returns the appended kill with its assigned sequence number. It fails
	// with ErrConflict when the victim is no longer pending death.
	RecordConfirmedKill(ctx context.Context, input ConfirmedKillInput) (KillRecord, error)
	ListKills(ctx context.Context, gameID string) ([]KillRecord, error)

	PutWeapon(ctx context.Context, weapon WeaponRecord) error
	ListWeapons(ctx context.Context) ([]WeaponRecord, error)
	PutLocation(ctx context.Context, location LocationRecord) error
	ListLocations(ctx context.Context) ([]LocationRecord, error)
	// ListAssignableLocations excludes safe-zone rows from the draw pool.
	ListAssignableLocations(ctx context.Context) ([]LocationRecord, error)
}
