// Package notify dispatches engine events to players and the game group.
// Each event is delivered at most once; failures are surfaced to the caller
// and never retried.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/n1ck8131/tg-bot/internal/services/knives/domain"
	"github.com/n1ck8131/tg-bot/internal/services/knives/render"
)

// Sender delivers one rendered message to its audience.
type Sender interface {
	SendToPlayer(ctx context.Context, playerID string, body string) error
	SendToGroup(ctx context.Context, gameID string, body string) error
}

// Dispatcher renders engine events and routes them through a Sender.
// Test-mode group traffic is redirected to the admin player so dry runs never
// reach the real group.
type Dispatcher struct {
	sender        Sender
	loc           render.Localizer
	adminPlayerID string
}

// NewDispatcher wires a dispatcher. An empty adminPlayerID sends test-mode
// group messages to the group like any other.
func NewDispatcher(sender Sender, loc render.Localizer, adminPlayerID string) *Dispatcher {
	if loc == nil {
		loc = render.NewLocalizer("en")
	}
	return &Dispatcher{sender: sender, loc: loc, adminPlayerID: adminPlayerID}
}

// AssignmentIssued privately briefs one hunter on their contract.
func (d *Dispatcher) AssignmentIssued(ctx context.Context, event domain.AssignmentIssuedEvent) error {
	if d == nil || d.sender == nil {
		return fmt.Errorf("sender is not configured")
	}
	return d.sender.SendToPlayer(ctx, event.PlayerID, render.Assignment(d.loc, event))
}

// ConfirmationRequested privately prompts the recorded killer.
func (d *Dispatcher) ConfirmationRequested(ctx context.Context, event domain.ConfirmationRequestedEvent) error {
	if d == nil || d.sender == nil {
		return fmt.Errorf("sender is not configured")
	}
	return d.sender.SendToPlayer(ctx, event.KillerID, render.ConfirmationRequest(d.loc, event))
}

// KillConfirmed announces one confirmed elimination to the group.
func (d *Dispatcher) KillConfirmed(ctx context.Context, event domain.KillConfirmedEvent) error {
	if d == nil || d.sender == nil {
		return fmt.Errorf("sender is not configured")
	}
	return d.broadcast(ctx, event.GameID, event.Test, render.KillAnnouncement(d.loc, event))
}

// GameFinished announces the winner with the full final report.
func (d *Dispatcher) GameFinished(ctx context.Context, event domain.GameFinishedEvent) error {
	if d == nil || d.sender == nil {
		return fmt.Errorf("sender is not configured")
	}
	return d.broadcast(ctx, event.GameID, event.Test, render.FinalReport(d.loc, event.Report))
}

func (d *Dispatcher) broadcast(ctx context.Context, gameID string, test bool, body string) error {
	if test && d.adminPlayerID != "" {
		return d.sender.SendToPlayer(ctx, d.adminPlayerID, body)
	}
	return d.sender.SendToGroup(ctx, gameID, body)
}

// LogSender writes outbound messages to a logger. It backs deployments with
// no chat transport configured and the simulator.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender wires a log-backed sender. A nil logger uses the default.
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

// SendToPlayer logs one private message.
func (s *LogSender) SendToPlayer(_ context.Context, playerID string, body string) error {
	if s == nil || s.logger == nil {
		return fmt.Errorf("log sender is not configured")
	}
	s.logger.Printf("to player %s: %s", playerID, body)
	return nil
}

// SendToGroup logs one group message.
func (s *LogSender) SendToGroup(_ context.Context, gameID string, body string) error {
	if s == nil || s.logger == nil {
		return fmt.Errorf("log sender is not configured")
	}
	s.logger.Printf("to group %s: %s", gameID, body)
	return nil
}
