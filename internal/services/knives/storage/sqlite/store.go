// Package sqlite provides SQLite-backed persistence for the knives game engine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/n1ck8131/tg-bot/internal/platform/storage/sqlitemigrate"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage"
	"github.com/n1ck8131/tg-bot/internal/services/knives/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for knives game state.
type Store struct {
	sqlDB *sql.DB
}

type scanner func(dest ...any) error

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toNullableMillis(value *time.Time) any {
	if value == nil {
		return nil
	}
	return toMillis(*value)
}

func fromNullableMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed := fromMillis(value.Int64)
	return &parsed
}

// Open opens a knives SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// CreateGame inserts one game in registration state. At most one game may be
// open (registration or active) at a time.
func (s *Store) CreateGame(ctx context.Context, game storage.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeGameRecord(game)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin game create: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback game create: %v", cause, rollbackErr)
		}
		return cause
	}

	var open int
	row := tx.QueryRowContext(ctx, `
SELECT COUNT(1) FROM game WHERE status IN (?, ?)
`, storage.GameStatusRegistration, storage.GameStatusActive)
	if err := row.Scan(&open); err != nil {
		return rollbackWith(fmt.Errorf("count open games: %w", err))
	}
	if open > 0 {
		return rollbackWith(storage.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO game (id, status, test_mode, created_at, started_at, finished_at, winner_player_id)
VALUES (?, ?, ?, ?, NULL, NULL, NULL)
`, normalized.ID, normalized.Status, boolToInt(normalized.TestMode), toMillis(normalized.CreatedAt)); err != nil {
		return rollbackWith(fmt.Errorf("insert game: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game create: %w", err)
	}
	return nil
}

// GetGame loads one game by id.
func (s *Store) GetGame(ctx context.Context, gameID string) (storage.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GameRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GameRecord{}, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return storage.GameRecord{}, fmt.Errorf("game id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, status, test_mode, created_at, started_at, finished_at, winner_player_id
FROM game
WHERE id = ?
`, gameID)
	record, err := scanGame(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GameRecord{}, storage.ErrNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("get game: %w", err)
	}
	return record, nil
}

// GetOpenGame loads the single game still in registration or active state.
func (s *Store) GetOpenGame(ctx context.Context) (storage.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GameRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GameRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, status, test_mode, created_at, started_at, finished_at, winner_player_id
FROM game
WHERE status IN (?, ?)
ORDER BY created_at DESC, id DESC
LIMIT 1
`, storage.GameStatusRegistration, storage.GameStatusActive)
	record, err := scanGame(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GameRecord{}, storage.ErrNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("get open game: %w", err)
	}
	return record, nil
}

// PutPlayer upserts one player row by id. Display names are unique per game;
// a duplicate name fails with ErrConflict.
func (s *Store) PutPlayer(ctx context.Context, player storage.PlayerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizePlayerRecord(player)
	if err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO player (id, game_id, display_name, virtual, liveness, registered_at, died_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    display_name = excluded.display_name,
    virtual = excluded.virtual,
    liveness = excluded.liveness,
    died_at = excluded.died_at
`, normalized.ID, normalized.GameID, normalized.DisplayName, boolToInt(normalized.Virtual),
		normalized.Liveness, toMillis(normalized.RegisteredAt), toNullableMillis(normalized.DiedAt)); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put player: %w", err)
	}
	return nil
}

// GetPlayer loads one player by game and id.
func (s *Store) GetPlayer(ctx context.Context, gameID string, playerID string) (storage.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PlayerRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.PlayerRecord{}, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	playerID = strings.TrimSpace(playerID)
	if gameID == "" {
		return storage.PlayerRecord{}, fmt.Errorf("game id is required")
	}
	if playerID == "" {
		return storage.PlayerRecord{}, fmt.Errorf("player id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, game_id, display_name, virtual, liveness, registered_at, died_at
FROM player
WHERE game_id = ? AND id = ?
`, gameID, playerID)
	record, err := scanPlayer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PlayerRecord{}, storage.ErrNotFound
		}
		return storage.PlayerRecord{}, fmt.Errorf("get player: %w", err)
	}
	return record, nil
}

// ListPlayers lists all players of one game in registration order.
func (s *Store) ListPlayers(ctx context.Context, gameID string) ([]storage.PlayerRecord, error) {
	return s.listPlayers(ctx, gameID, "")
}

// ListPlayersByLiveness lists players of one game in the given liveness state.
func (s *Store) ListPlayersByLiveness(ctx context.Context, gameID string, liveness storage.Liveness) ([]storage.PlayerRecord, error) {
	if strings.TrimSpace(string(liveness)) == "" {
		return nil, fmt.Errorf("liveness is required")
	}
	return s.listPlayers(ctx, gameID, liveness)
}

func (s *Store) listPlayers(ctx context.Context, gameID string, liveness storage.Liveness) ([]storage.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}

	query := `
SELECT id, game_id, display_name, virtual, liveness, registered_at, died_at
FROM player
WHERE game_id = ?
`
	args := []any{gameID}
	if liveness != "" {
		query += " AND liveness = ?"
		args = append(args, liveness)
	}
	query += " ORDER BY registered_at ASC, id ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var records []storage.PlayerRecord
	for rows.Next() {
		record, scanErr := scanPlayer(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan player: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return records, nil
}

// SetPlayerLiveness transitions one player between liveness states. The write
// applies only when the player currently holds from; otherwise ErrNotFound.
func (s *Store) SetPlayerLiveness(ctx context.Context, gameID string, playerID string, from storage.Liveness, to storage.Liveness) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	playerID = strings.TrimSpace(playerID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE player SET liveness = ?
WHERE game_id = ? AND id = ? AND liveness = ?
`, to, gameID, playerID, from)
	if err != nil {
		return fmt.Errorf("set player liveness: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check liveness rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ActivateGame atomically transitions registration→active and writes the
// initial contract batch.
func (s *Store) ActivateGame(ctx context.Context, gameID string, startedAt time.Time, contracts []storage.ContractRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if len(contracts) == 0 {
		return fmt.Errorf("initial contracts are required")
	}
	normalized := make([]storage.ContractRecord, 0, len(contracts))
	for _, contract := range contracts {
		normalizedContract, normalizeErr := normalizeContractRecord(contract)
		if normalizeErr != nil {
			return normalizeErr
		}
		normalized = append(normalized, normalizedContract)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin game activation: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback game activation: %v", cause, rollbackErr)
		}
		return cause
	}

	result, err := tx.ExecContext(ctx, `
UPDATE game SET status = ?, started_at = ?
WHERE id = ? AND status = ?
`, storage.GameStatusActive, toMillis(startedAt), gameID, storage.GameStatusRegistration)
	if err != nil {
		return rollbackWith(fmt.Errorf("activate game: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("check activation rows affected: %w", err))
	}
	if affected == 0 {
		var exists int
		if scanErr := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM game WHERE id = ?", gameID).Scan(&exists); scanErr != nil {
			return rollbackWith(fmt.Errorf("check game exists: %w", scanErr))
		}
		if exists == 0 {
			return rollbackWith(storage.ErrNotFound)
		}
		return rollbackWith(storage.ErrConflict)
	}

	for _, contract := range normalized {
		if err := insertContractExec(ctx, tx, contract); err != nil {
			return rollbackWith(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game activation: %w", err)
	}
	return nil
}

// AbortGame force-finishes an open game without a winner. Kill history stays
// intact; open contracts close so the ring indexes free up.
func (s *Store) AbortGame(ctx context.Context, gameID string, finishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin game abort: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback game abort: %v", cause, rollbackErr)
		}
		return cause
	}

	result, err := tx.ExecContext(ctx, `
UPDATE game SET status = ?, finished_at = ?
WHERE id = ? AND status IN (?, ?)
`, storage.GameStatusFinished, toMillis(finishedAt), gameID, storage.GameStatusRegistration, storage.GameStatusActive)
	if err != nil {
		return rollbackWith(fmt.Errorf("abort game: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("check abort rows affected: %w", err))
	}
	if affected == 0 {
		var exists int
		if scanErr := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM game WHERE id = ?", gameID).Scan(&exists); scanErr != nil {
			return rollbackWith(fmt.Errorf("check game exists: %w", scanErr))
		}
		if exists == 0 {
			return rollbackWith(storage.ErrNotFound)
		}
		return rollbackWith(storage.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE contract SET closed_at = ?
WHERE game_id = ? AND closed_at IS NULL
`, toMillis(finishedAt), gameID); err != nil {
		return rollbackWith(fmt.Errorf("close open contracts: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game abort: %w", err)
	}
	return nil
}

func insertContractExec(ctx context.Context, execer sqlExecer, contract storage.ContractRecord) error {
	if _, err := execer.ExecContext(ctx, `
INSERT INTO contract (id, game_id, hunter_player_id, target_player_id, weapon, location, created_at, closed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, contract.ID, contract.GameID, contract.HunterPlayerID, contract.TargetPlayerID,
		contract.Weapon, contract.Location, toMillis(contract.CreatedAt), toNullableMillis(contract.ClosedAt)); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// OpenContractByHunter loads one hunter's open contract.
func (s *Store) OpenContractByHunter(ctx context.Context, gameID string, hunterPlayerID string) (storage.ContractRecord, error) {
	return s.openContractBy(ctx, gameID, "hunter_player_id", hunterPlayerID)
}

// OpenContractByTarget loads the open contract targeting one player.
func (s *Store) OpenContractByTarget(ctx context.Context, gameID string, targetPlayerID string) (storage.ContractRecord, error) {
	return s.openContractBy(ctx, gameID, "target_player_id", targetPlayerID)
}

func (s *Store) openContractBy(ctx context.Context, gameID string, column string, playerID string) (storage.ContractRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ContractRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ContractRecord{}, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	playerID = strings.TrimSpace(playerID)
	if gameID == "" {
		return storage.ContractRecord{}, fmt.Errorf("game id is required")
	}
	if playerID == "" {
		return storage.ContractRecord{}, fmt.Errorf("player id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, game_id, hunter_player_id, target_player_id, weapon, location, created_at, closed_at
FROM contract
WHERE game_id = ? AND `+column+` = ? AND closed_at IS NULL
`, gameID, playerID)
	record, err := scanContract(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ContractRecord{}, storage.ErrNotFound
		}
		return storage.ContractRecord{}, fmt.Errorf("get open contract: %w", err)
	}
	return record, nil
}

// ListContractsByHunter lists one hunter's contract history in assignment order.
func (s *Store) ListContractsByHunter(ctx context.Context, gameID string, hunterPlayerID string) ([]storage.ContractRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	hunterPlayerID = strings.TrimSpace(hunterPlayerID)
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}
	if hunterPlayerID == "" {
		return nil, fmt.Errorf("player id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, game_id, hunter_player_id, target_player_id, weapon, location, created_at, closed_at
FROM contract
WHERE game_id = ? AND hunter_player_id = ?
ORDER BY created_at ASC, id ASC
`, gameID, hunterPlayerID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var records []storage.ContractRecord
	for rows.Next() {
		record, scanErr := scanContract(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan contract: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return records, nil
}

// RecordConfirmedKill atomically applies one confirmed elimination: the victim
// is marked dead, the kill log gains the next sequence number, both open
// contracts close, and the killer either inherits a new contract or wins.
func (s *Store) RecordConfirmedKill(ctx context.Context, input storage.ConfirmedKillInput) (storage.KillRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.KillRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.KillRecord{}, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeConfirmedKillInput(input)
	if err != nil {
		return storage.KillRecord{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.KillRecord{}, fmt.Errorf("begin kill confirmation: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback kill confirmation: %v", cause, rollbackErr)
		}
		return cause
	}

	confirmedAt := toMillis(normalized.ConfirmedAt)

	result, err := tx.ExecContext(ctx, `
UPDATE player SET liveness = ?, died_at = ?
WHERE game_id = ? AND id = ? AND liveness = ?
`, storage.LivenessDead, confirmedAt, normalized.GameID, normalized.VictimPlayerID, storage.LivenessPendingDeath)
	if err != nil {
		return storage.KillRecord{}, rollbackWith(fmt.Errorf("mark victim dead: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.KillRecord{}, rollbackWith(fmt.Errorf("check victim rows affected: %w", err))
	}
	if affected == 0 {
		return storage.KillRecord{}, rollbackWith(storage.ErrConflict)
	}

	var seq int
	row := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(seq), 0) + 1 FROM kill_log WHERE game_id = ?
`, normalized.GameID)
	if err := row.Scan(&seq); err != nil {
		return storage.KillRecord{}, rollbackWith(fmt.Errorf("next kill sequence: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO kill_log (game_id, seq, killer_player_id, victim_player_id, weapon, location, confirmed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, normalized.GameID, seq, normalized.KillerPlayerID, normalized.VictimPlayerID,
		normalized.Weapon, normalized.Location, confirmedAt); err != nil {
		return storage.KillRecord{}, rollbackWith(fmt.Errorf("insert kill log: %w", err))
	}

	for _, contractID := range normalized.CloseContractIDs {
		closeResult, closeErr := tx.ExecContext(ctx, `
UPDATE contract SET closed_at = ?
WHERE id = ? AND closed_at IS NULL
`, confirmedAt, contractID)
		if closeErr != nil {
			return storage.KillRecord{}, rollbackWith(fmt.Errorf("close contract: %w", closeErr))
		}
		closed, closeErr := closeResult.RowsAffected()
		if closeErr != nil {
			return storage.KillRecord{}, rollbackWith(fmt.Errorf("check contract rows affected: %w", closeErr))
		}
		if closed == 0 {
			return storage.KillRecord{}, rollbackWith(storage.ErrConflict)
		}
	}

	if normalized.NewContract != nil {
		if err := insertContractExec(ctx, tx, *normalized.NewContract); err != nil {
			return storage.KillRecord{}, rollbackWith(err)
		}
	} else {
		finishResult, finishErr := tx.ExecContext(ctx, `
UPDATE game SET status = ?, finished_at = ?, winner_player_id = ?
WHERE id = ? AND status = ?
`, storage.GameStatusFinished, confirmedAt, normalized.WinnerPlayerID, normalized.GameID, storage.GameStatusActive)
		if finishErr != nil {
			return storage.KillRecord{}, rollbackWith(fmt.Errorf("finish game: %w", finishErr))
		}
		finished, finishErr := finishResult.RowsAffected()
		if finishErr != nil {
			return storage.KillRecord{}, rollbackWith(fmt.Errorf("check finish rows affected: %w", finishErr))
		}
		if finished == 0 {
			return storage.KillRecord{}, rollbackWith(storage.ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.KillRecord{}, fmt.Errorf("commit kill confirmation: %w", err)
	}
	return storage.KillRecord{
		GameID:         normalized.GameID,
		Seq:            seq,
		KillerPlayerID: normalized.KillerPlayerID,
		VictimPlayerID: normalized.VictimPlayerID,
		Weapon:         normalized.Weapon,
		Location:       normalized.Location,
		ConfirmedAt:    fromMillis(confirmedAt),
	}, nil
}

// ListKills lists one game's confirmed kills in sequence order.
func (s *Store) ListKills(ctx context.Context, gameID string) ([]storage.KillRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT game_id, seq, killer_player_id, victim_player_id, weapon, location, confirmed_at
FROM kill_log
WHERE game_id = ?
ORDER BY seq ASC
`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list kills: %w", err)
	}
	defer rows.Close()

	var records []storage.KillRecord
	for rows.Next() {
		record, scanErr := scanKill(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan kill: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kills: %w", err)
	}
	return records, nil
}

// PutWeapon upserts one weapon pool entry.
func (s *Store) PutWeapon(ctx context.Context, weapon storage.WeaponRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(weapon.Name)
	if name == "" {
		return fmt.Errorf("weapon name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO weapon (name) VALUES (?)
ON CONFLICT (name) DO NOTHING
`, name); err != nil {
		return fmt.Errorf("put weapon: %w", err)
	}
	return nil
}

// ListWeapons lists the weapon pool in name order.
func (s *Store) ListWeapons(ctx context.Context) ([]storage.WeaponRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT name FROM weapon ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list weapons: %w", err)
	}
	defer rows.Close()

	var records []storage.WeaponRecord
	for rows.Next() {
		var record storage.WeaponRecord
		if scanErr := rows.Scan(&record.Name); scanErr != nil {
			return nil, fmt.Errorf("scan weapon: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weapons: %w", err)
	}
	return records, nil
}

// PutLocation upserts one location pool entry.
func (s *Store) PutLocation(ctx context.Context, location storage.LocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(location.Name)
	if name == "" {
		return fmt.Errorf("location name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO location (name, latitude, longitude, safe_zone)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
    latitude = excluded.latitude,
    longitude = excluded.longitude,
    safe_zone = excluded.safe_zone
`, name, nullableFloat(location.Latitude), nullableFloat(location.Longitude), boolToInt(location.SafeZone)); err != nil {
		return fmt.Errorf("put location: %w", err)
	}
	return nil
}

// ListLocations lists the full location pool in name order.
func (s *Store) ListLocations(ctx context.Context) ([]storage.LocationRecord, error) {
	return s.listLocations(ctx, false)
}

// ListAssignableLocations lists locations eligible for contract draws.
// Safe-zone rows are excluded.
func (s *Store) ListAssignableLocations(ctx context.Context) ([]storage.LocationRecord, error) {
	return s.listLocations(ctx, true)
}

func (s *Store) listLocations(ctx context.Context, assignableOnly bool) ([]storage.LocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := "SELECT name, latitude, longitude, safe_zone FROM location"
	if assignableOnly {
		query += " WHERE safe_zone = 0"
	}
	query += " ORDER BY name ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var records []storage.LocationRecord
	for rows.Next() {
		record, scanErr := scanLocation(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan location: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return records, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func scanGame(scan scanner) (storage.GameRecord, error) {
	var record storage.GameRecord
	var testMode int
	var createdAt int64
	var startedAt, finishedAt sql.NullInt64
	var winner sql.NullString
	if err := scan(&record.ID, &record.Status, &testMode, &createdAt, &startedAt, &finishedAt, &winner); err != nil {
		return storage.GameRecord{}, err
	}
	record.TestMode = testMode != 0
	record.CreatedAt = fromMillis(createdAt)
	record.StartedAt = fromNullableMillis(startedAt)
	record.FinishedAt = fromNullableMillis(finishedAt)
	if winner.Valid {
		record.WinnerPlayerID = winner.String
	}
	return record, nil
}

func scanPlayer(scan scanner) (storage.PlayerRecord, error) {
	var record storage.PlayerRecord
	var virtual int
	var registeredAt int64
	var diedAt sql.NullInt64
	if err := scan(&record.ID, &record.GameID, &record.DisplayName, &virtual, &record.Liveness, &registeredAt, &diedAt); err != nil {
		return storage.PlayerRecord{}, err
	}
	record.Virtual = virtual != 0
	record.RegisteredAt = fromMillis(registeredAt)
	record.DiedAt = fromNullableMillis(diedAt)
	return record, nil
}

func scanContract(scan scanner) (storage.ContractRecord, error) {
	var record storage.ContractRecord
	var createdAt int64
	var closedAt sql.NullInt64
	if err := scan(&record.ID, &record.GameID, &record.HunterPlayerID, &record.TargetPlayerID,
		&record.Weapon, &record.Location, &createdAt, &closedAt); err != nil {
		return storage.ContractRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.ClosedAt = fromNullableMillis(closedAt)
	return record, nil
}

func scanKill(scan scanner) (storage.KillRecord, error) {
	var record storage.KillRecord
	var confirmedAt int64
	if err := scan(&record.GameID, &record.Seq, &record.KillerPlayerID, &record.VictimPlayerID,
		&record.Weapon, &record.Location, &confirmedAt); err != nil {
		return storage.KillRecord{}, err
	}
	record.ConfirmedAt = fromMillis(confirmedAt)
	return record, nil
}

func scanLocation(scan scanner) (storage.LocationRecord, error) {
	var record storage.LocationRecord
	var latitude, longitude sql.NullFloat64
	var safeZone int
	if err := scan(&record.Name, &latitude, &longitude, &safeZone); err != nil {
		return storage.LocationRecord{}, err
	}
	if latitude.Valid {
		value := latitude.Float64
		record.Latitude = &value
	}
	if longitude.Valid {
		value := longitude.Float64
		record.Longitude = &value
	}
	record.SafeZone = safeZone != 0
	return record, nil
}

func normalizeGameRecord(record storage.GameRecord) (storage.GameRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return storage.GameRecord{}, fmt.Errorf("game id is required")
	}
	if record.Status == "" {
		record.Status = storage.GameStatusRegistration
	}
	if record.CreatedAt.IsZero() {
		return storage.GameRecord{}, fmt.Errorf("game created time is required")
	}
	return record, nil
}

func normalizePlayerRecord(record storage.PlayerRecord) (storage.PlayerRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.GameID = strings.TrimSpace(record.GameID)
	record.DisplayName = strings.TrimSpace(record.DisplayName)
	if record.ID == "" {
		return storage.PlayerRecord{}, fmt.Errorf("player id is required")
	}
	if record.GameID == "" {
		return storage.PlayerRecord{}, fmt.Errorf("game id is required")
	}
	if record.DisplayName == "" {
		return storage.PlayerRecord{}, fmt.Errorf("player display name is required")
	}
	if record.Liveness == "" {
		record.Liveness = storage.LivenessAlive
	}
	if record.RegisteredAt.IsZero() {
		return storage.PlayerRecord{}, fmt.Errorf("player registration time is required")
	}
	return record, nil
}

func normalizeContractRecord(record storage.ContractRecord) (storage.ContractRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.GameID = strings.TrimSpace(record.GameID)
	record.HunterPlayerID = strings.TrimSpace(record.HunterPlayerID)
	record.TargetPlayerID = strings.TrimSpace(record.TargetPlayerID)
	record.Weapon = strings.TrimSpace(record.Weapon)
	record.Location = strings.TrimSpace(record.Location)
	if record.ID == "" {
		return storage.ContractRecord{}, fmt.Errorf("contract id is required")
	}
	if record.GameID == "" {
		return storage.ContractRecord{}, fmt.Errorf("game id is required")
	}
	if record.HunterPlayerID == "" || record.TargetPlayerID == "" {
		return storage.ContractRecord{}, fmt.Errorf("contract players are required")
	}
	if record.HunterPlayerID == record.TargetPlayerID {
		return storage.ContractRecord{}, fmt.Errorf("contract cannot target its own hunter")
	}
	if record.Weapon == "" || record.Location == "" {
		return storage.ContractRecord{}, fmt.Errorf("contract weapon and location are required")
	}
	if record.CreatedAt.IsZero() {
		return storage.ContractRecord{}, fmt.Errorf("contract created time is required")
	}
	return record, nil
}

func normalizeConfirmedKillInput(input storage.ConfirmedKillInput) (storage.ConfirmedKillInput, error) {
	input.GameID = strings.TrimSpace(input.GameID)
	input.KillerPlayerID = strings.TrimSpace(input.KillerPlayerID)
	input.VictimPlayerID = strings.TrimSpace(input.VictimPlayerID)
	input.Weapon = strings.TrimSpace(input.Weapon)
	input.Location = strings.TrimSpace(input.Location)
	input.WinnerPlayerID = strings.TrimSpace(input.WinnerPlayerID)
	if input.GameID == "" {
		return storage.ConfirmedKillInput{}, fmt.Errorf("game id is required")
	}
	if input.KillerPlayerID == "" || input.VictimPlayerID == "" {
		return storage.ConfirmedKillInput{}, fmt.Errorf("kill players are required")
	}
	if input.Weapon == "" || input.Location == "" {
		return storage.ConfirmedKillInput{}, fmt.Errorf("kill weapon and location are required")
	}
	if input.ConfirmedAt.IsZero() {
		return storage.ConfirmedKillInput{}, fmt.Errorf("kill confirmation time is required")
	}
	if len(input.CloseContractIDs) == 0 {
		return storage.ConfirmedKillInput{}, fmt.Errorf("contracts to close are required")
	}
	if input.NewContract == nil && input.WinnerPlayerID == "" {
		return storage.ConfirmedKillInput{}, fmt.Errorf("either a new contract or a winner is required")
	}
	if input.NewContract != nil {
		if input.WinnerPlayerID != "" {
			return storage.ConfirmedKillInput{}, fmt.Errorf("winner cannot be set with a new contract")
		}
		normalizedContract, err := normalizeContractRecord(*input.NewContract)
		if err != nil {
			return storage.ConfirmedKillInput{}, err
		}
		input.NewContract = &normalizedContract
	}
	return input, nil
}
