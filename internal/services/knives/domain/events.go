package domain

import (
	"context"
	"time"
)

// AssignmentIssuedEvent announces one hunter's new contract. Sent privately
// to the hunter; the target must never learn who hunts them.
type AssignmentIssuedEvent struct {
	GameID     string
	Test       bool
	PlayerID   string
	PlayerName string
	TargetID   string
	TargetName string
	Weapon     string
	Location   string
}

// ConfirmationRequestedEvent asks a killer to confirm their victim's
// self-reported death.
type ConfirmationRequestedEvent struct {
	GameID     string
	Test       bool
	KillerID   string
	KillerName string
	VictimID   string
	VictimName string
}

// KillConfirmedEvent announces one confirmed elimination to the group.
type KillConfirmedEvent struct {
	GameID      string
	Test        bool
	Seq         int
	KillerID    string
	KillerName  string
	VictimID    string
	VictimName  string
	Weapon      string
	Location    string
	ConfirmedAt time.Time
}

// GameFinishedEvent announces the sole survivor with the full final report.
type GameFinishedEvent struct {
	GameID     string
	Test       bool
	WinnerID   string
	WinnerName string
	Report     Report
}

// Notifier receives engine events after their state changes commit. Delivery
// is attempted at most once per event; failures are reported, never retried.
type Notifier interface {
	AssignmentIssued(ctx context.Context, event AssignmentIssuedEvent) error
	ConfirmationRequested(ctx context.Context, event ConfirmationRequestedEvent) error
	KillConfirmed(ctx context.Context, event KillConfirmedEvent) error
	GameFinished(ctx context.Context, event GameFinishedEvent) error
}
