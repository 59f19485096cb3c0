package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/n1ck8131/tg-bot/internal/services/knives/storage"
)

// KillEntry is one confirmed elimination in chronology order.
type KillEntry struct {
	Seq         int
	KillerID    string
	KillerName  string
	VictimID    string
	VictimName  string
	Weapon      string
	Location    string
	ConfirmedAt time.Time
}

// PathStep is one contract the winner held, in assignment order.
type PathStep struct {
	TargetID   string
	TargetName string
	Weapon     string
	Location   string
	AssignedAt time.Time
}

// Report is the final summary of a finished game: the full kill chronology
// plus the winner's path through their successive contracts.
type Report struct {
	GameID     string
	Test       bool
	WinnerID   string
	WinnerName string
	Chronology []KillEntry
	WinnerPath []PathStep
}

// Report builds the final report for a finished game.
func (s *Service) Report(ctx context.Context, gameID string) (Report, error) {
	if s == nil || s.store == nil {
		return Report{}, ErrStoreNotConfigured
	}
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return Report{}, err
	}
	if game.Status != storage.GameStatusFinished {
		return Report{}, ErrGameNotFinished
	}

	players, err := s.store.ListPlayers(ctx, game.ID)
	if err != nil {
		return Report{}, fmt.Errorf("list players: %w", err)
	}
	namesByID := make(map[string]string, len(players))
	for _, player := range players {
		namesByID[player.ID] = player.DisplayName
	}

	kills, err := s.store.ListKills(ctx, game.ID)
	if err != nil {
		return Report{}, fmt.Errorf("list kills: %w", err)
	}
	chronology := make([]KillEntry, 0, len(kills))
	for _, kill := range kills {
		chronology = append(chronology, KillEntry{
			Seq:         kill.Seq,
			KillerID:    kill.KillerPlayerID,
			KillerName:  namesByID[kill.KillerPlayerID],
			VictimID:    kill.VictimPlayerID,
			VictimName:  namesByID[kill.VictimPlayerID],
			Weapon:      kill.Weapon,
			Location:    kill.Location,
			ConfirmedAt: kill.ConfirmedAt,
		})
	}

	// A reset game carries no winner and therefore no path.
	var path []PathStep
	if game.WinnerPlayerID != "" {
		contracts, err := s.store.ListContractsByHunter(ctx, game.ID, game.WinnerPlayerID)
		if err != nil {
			return Report{}, fmt.Errorf("list winner contracts: %w", err)
		}
		path = make([]PathStep, 0, len(contracts))
		for _, contract := range contracts {
			path = append(path, PathStep{
				TargetID:   contract.TargetPlayerID,
				TargetName: namesByID[contract.TargetPlayerID],
				Weapon:     contract.Weapon,
				Location:   contract.Location,
				AssignedAt: contract.CreatedAt,
			})
		}
		// Each winner contract closed when its target died, so the kill
		// sequence gives the assignment order even within one clock tick.
		seqByVictim := make(map[string]int, len(kills))
		for _, kill := range kills {
			seqByVictim[kill.VictimPlayerID] = kill.Seq
		}
		sort.SliceStable(path, func(i, j int) bool {
			return seqByVictim[path[i].TargetID] < seqByVictim[path[j].TargetID]
		})
	}

	return Report{
		GameID:     game.ID,
		Test:       game.TestMode,
		WinnerID:   game.WinnerPlayerID,
		WinnerName: namesByID[game.WinnerPlayerID],
		Chronology: chronology,
		WinnerPath: path,
	}, nil
}
