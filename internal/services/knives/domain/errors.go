package domain

import "errors"

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("game store is not configured")
	// ErrGameNotFound indicates no game matches the requested id.
	ErrGameNotFound = errors.New("game not found")
	// ErrPlayerNotFound indicates the player is not registered in the game.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrGameAlreadyActive indicates another game is still open.
	ErrGameAlreadyActive = errors.New("a game is already active")
	// ErrRegistrationClosed indicates the game no longer accepts registrations.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrGameNotActive indicates the operation requires a started game.
	ErrGameNotActive = errors.New("game is not active")
	// ErrGameNotFinished indicates the final report is not available yet.
	ErrGameNotFinished = errors.New("game is not finished")
	// ErrGameAlreadyFinished indicates the game has already been closed out.
	ErrGameAlreadyFinished = errors.New("game is already finished")
	// ErrAlreadyRegistered indicates the display name is taken in this game.
	ErrAlreadyRegistered = errors.New("player is already registered")
	// ErrTooManyPlayers indicates the registration cap has been reached.
	ErrTooManyPlayers = errors.New("player limit reached")
	// ErrInsufficientPlayers indicates too few players to close the ring.
	ErrInsufficientPlayers = errors.New("not enough players to start")
	// ErrNotATarget indicates the reporter has no open contract against them.
	ErrNotATarget = errors.New("player is not a current target")
	// ErrAlreadyPending indicates the player already has an unconfirmed report.
	ErrAlreadyPending = errors.New("death report is already pending")
	// ErrNotYourTarget indicates the confirmer is not the recorded killer.
	ErrNotYourTarget = errors.New("victim is not your target")
	// ErrNoPendingDeath indicates there is nothing for this killer to confirm.
	ErrNoPendingDeath = errors.New("no pending death report")
	// ErrNoOpenContract indicates the player holds no open contract.
	ErrNoOpenContract = errors.New("player has no open contract")
	// ErrInconsistentRing indicates the stored contracts no longer form a
	// single cycle. The game cannot proceed without operator intervention.
	ErrInconsistentRing = errors.New("contract ring is inconsistent")
)
